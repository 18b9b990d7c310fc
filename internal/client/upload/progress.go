package upload

import "sync"

// ProgressFunc receives overall upload progress as an integer percent.
type ProgressFunc func(percent int)

// chunkProgress aggregates per-chunk transport progress into one monotonic
// overall percent: floor((completed + sum of in-flight fractions) / total * 100).
// Out-of-order completions are clamped so observers never see progress drop.
type chunkProgress struct {
	mu       sync.Mutex
	total    int
	done     int
	inFlight map[int]float64
	last     int
	fn       ProgressFunc
}

func newChunkProgress(total int, fn ProgressFunc) *chunkProgress {
	return &chunkProgress{
		total:    total,
		inFlight: make(map[int]float64),
		fn:       fn,
	}
}

// chunkSent records partial transport progress of one chunk.
func (p *chunkProgress) chunkSent(index int, sent, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frac := float64(sent) / float64(size)
	if frac > 1 {
		frac = 1
	}
	p.inFlight[index] = frac
	p.emitLocked()
}

// chunkDone marks one chunk fully acknowledged.
func (p *chunkProgress) chunkDone(index int) (done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inFlight, index)
	p.done++
	p.emitLocked()
	return p.done
}

// emitLocked computes the percent and delivers it to the callback while the
// mutex is still held, so callers never observe deliveries out of order.
func (p *chunkProgress) emitLocked() {
	sum := float64(p.done)
	for _, frac := range p.inFlight {
		sum += frac
	}
	pct := int(sum / float64(p.total) * 100)
	if pct > 100 {
		pct = 100
	}
	if pct < p.last {
		pct = p.last
	}
	p.last = pct

	if p.fn != nil {
		p.fn(pct)
	}
}
