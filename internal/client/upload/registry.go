// Package upload implements the client-side upload pipeline: the registry of
// observable upload records, the chunk scheduler and the coordinator that
// routes a payload through compression, hashing and transfer.
package upload

import (
	"context"
	"sync"

	"github.com/tamteklipy/tkcli/internal/client/models"
)

// Subscriber receives a copy of a record after each committed mutation.
type Subscriber func(models.UploadRecord)

// Registry holds the observable state of every in-flight and finished upload,
// keyed by the client-generated upload id, together with each upload's cancel
// function. All mutations go through the registry so that subscribers see
// every committed change exactly once.
type Registry struct {
	// notifyMu serializes commit+broadcast so subscribers observe mutations
	// in commit order. It is taken before mu; subscriber callbacks may read
	// the registry but must not mutate it.
	notifyMu sync.Mutex

	mu      sync.Mutex
	records map[string]*models.UploadRecord
	cancels map[string]context.CancelFunc
	subs    map[int]Subscriber
	nextSub int
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*models.UploadRecord),
		cancels: make(map[string]context.CancelFunc),
		subs:    make(map[int]Subscriber),
	}
}

// Subscribe registers fn for change notifications and returns an
// unsubscribe function.
func (r *Registry) Subscribe(fn Subscriber) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Insert adds a new record with its cancel function and notifies subscribers.
func (r *Registry) Insert(rec models.UploadRecord, cancel context.CancelFunc) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	cp := rec
	r.records[rec.ID] = &cp
	r.cancels[rec.ID] = cancel
	subs, snapshot := r.subscribersLocked(), cp
	r.mu.Unlock()

	notify(subs, snapshot)
}

// Update applies fn to the record with the given id and notifies
// subscribers. Updates to unknown ids or to records already in a terminal
// status are no-ops. Progress never decreases.
func (r *Registry) Update(id string, fn func(*models.UploadRecord)) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok || rec.Status.Terminal() {
		r.mu.Unlock()
		return
	}

	before := rec.Progress
	fn(rec)
	if rec.Progress < before {
		rec.Progress = before
	}
	if rec.Progress > 100 {
		rec.Progress = 100
	}
	if rec.Status.Terminal() {
		delete(r.cancels, id)
	}

	subs, snapshot := r.subscribersLocked(), *rec
	r.mu.Unlock()

	notify(subs, snapshot)
}

// Get returns a copy of the record with the given id.
func (r *Registry) Get(id string) (models.UploadRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return models.UploadRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of every record keyed by upload id.
func (r *Registry) Snapshot() map[string]models.UploadRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]models.UploadRecord, len(r.records))
	for id, rec := range r.records {
		out[id] = *rec
	}
	return out
}

// Remove discards the record in any state. An upload still running keeps
// running; only the observable record is dropped.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	delete(r.cancels, id)
}

// Cancel fires the abort signal of a non-terminal upload. Cancelling a
// finished or unknown upload is a no-op.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	var cancel context.CancelFunc
	if rec, ok := r.records[id]; ok && !rec.Status.Terminal() {
		cancel = r.cancels[id]
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (r *Registry) subscribersLocked() []Subscriber {
	subs := make([]Subscriber, 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []Subscriber, rec models.UploadRecord) {
	for _, fn := range subs {
		fn(rec)
	}
}
