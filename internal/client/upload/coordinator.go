package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tamteklipy/tkcli/internal/client/api"
	"github.com/tamteklipy/tkcli/internal/client/models"
	"github.com/tamteklipy/tkcli/internal/common"
	"github.com/tamteklipy/tkcli/internal/hashx"
	"github.com/tamteklipy/tkcli/internal/imagex"
	"github.com/tamteklipy/tkcli/internal/logging"
)

const (
	// ChunkedThreshold routes payloads strictly larger than this to the
	// chunked path; everything else goes single-shot.
	ChunkedThreshold int64 = 50 << 20

	// singleShotTimeout caps one single-shot transfer.
	singleShotTimeout = 5 * time.Minute

	// abortNotifyTimeout caps the best-effort delete-partial request.
	abortNotifyTimeout = 10 * time.Second
)

// Result is the outcome of one successful upload.
type Result struct {
	UploadID string
	ClipID   int64
}

// Coordinator orchestrates one end-to-end upload per Upload call:
// compression, hashing, registration, routing to the single-shot or chunked
// path, and the terminal registry transition. Concurrent Upload calls are
// safe; each gets its own upload id and abort signal.
type Coordinator struct {
	api      api.Client
	registry *Registry
	log      logging.Logger
}

func NewCoordinator(apiClient api.Client, registry *Registry, log logging.Logger) *Coordinator {
	return &Coordinator{api: apiClient, registry: registry, log: log}
}

// Registry exposes the record store for observers.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Cancel fires the abort signal of the given upload. Cancelling a finished
// upload is a no-op.
func (c *Coordinator) Cancel(uploadID string) {
	c.registry.Cancel(uploadID)
}

// Upload transfers one payload and blocks until it reaches a terminal state.
// The returned error always wraps a *common.UploadError carrying the kind
// surfaced on the upload record.
func (c *Coordinator) Upload(ctx context.Context, p models.Payload) (*Result, error) {
	if p.Size == 0 {
		return nil, common.NewUploadError(common.KindValidationFailed, "refusing to upload an empty file")
	}

	uploadID := uuid.NewString()
	log := c.log.With("upload_id", uploadID, "file", p.Filename)

	payload, compressionFailed := c.compress(ctx, p, log)

	fileHash, err := hashx.SumSHA256(payload.Reader())
	if err != nil {
		return nil, &common.UploadError{
			Kind:    common.KindHashUnavailable,
			Message: fmt.Sprintf("content hash: %v", err),
		}
	}

	mode := models.ModeSingleShot
	totalChunks := 0
	if payload.Size > ChunkedThreshold {
		mode = models.ModeChunked
		totalChunks = int((payload.Size + ChunkSize - 1) / ChunkSize)
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.registry.Insert(models.UploadRecord{
		ID:          uploadID,
		Filename:    payload.Filename,
		Size:        payload.Size,
		MediaType:   payload.MediaType,
		Mode:        mode,
		TotalChunks: totalChunks,
		Status:      models.StatusUploading,
	}, cancel)

	log.Info(ctx, "upload started", "mode", mode, "size", payload.Size, "hash", fileHash)

	var clipID int64
	if mode == models.ModeChunked {
		clipID, err = c.runChunked(uploadCtx, uploadID, payload, fileHash)
	} else {
		clipID, err = c.runSingleShot(uploadCtx, uploadID, payload)
	}

	if err != nil {
		return nil, c.fail(ctx, uploadID, mode, err, compressionFailed, log)
	}

	c.registry.Update(uploadID, func(rec *models.UploadRecord) {
		rec.Status = models.StatusComplete
		rec.Progress = 100
		rec.ClipID = clipID
	})
	log.Info(ctx, "upload complete", "clip_id", clipID)

	return &Result{UploadID: uploadID, ClipID: clipID}, nil
}

// compress runs the image payload through the compressor. Failures are
// non-fatal: the original payload is carried instead and the incident is
// only surfaced if the upload itself fails later.
func (c *Coordinator) compress(ctx context.Context, p models.Payload, log logging.Logger) (models.Payload, bool) {
	if !p.IsImage() {
		return p, false
	}

	compressed, err := imagex.Compress(p, imagex.Options{})
	if err != nil {
		log.Warn(ctx, "compression failed, uploading original", "error", err)
		return p, true
	}
	if compressed.Size < p.Size {
		log.Debug(ctx, "image compressed", "from", p.Size, "to", compressed.Size)
	}
	return compressed, false
}

func (c *Coordinator) runSingleShot(ctx context.Context, uploadID string, p models.Payload) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, singleShotTimeout)
	defer cancel()

	return c.api.UploadFile(ctx, p, func(sent, total int64) {
		pct := int(sent * 100 / total)
		c.registry.Update(uploadID, func(rec *models.UploadRecord) {
			rec.Progress = pct
		})
	})
}

func (c *Coordinator) runChunked(ctx context.Context, uploadID string, p models.Payload, fileHash string) (int64, error) {
	sched := &chunkScheduler{api: c.api, log: c.log}

	return sched.run(ctx, uploadID, p, fileHash, schedulerHooks{
		onProgress: func(percent int) {
			c.registry.Update(uploadID, func(rec *models.UploadRecord) {
				rec.Progress = percent
			})
		},
		onChunkDone: func(done, total int) {
			c.registry.Update(uploadID, func(rec *models.UploadRecord) {
				rec.ChunksDone = done
			})
		},
		onFinalizing: func() {
			c.registry.Update(uploadID, func(rec *models.UploadRecord) {
				rec.Status = models.StatusFinalizing
			})
		},
	})
}

// fail applies the terminal transition for an unsuccessful upload. A
// cooperative abort becomes StatusCancelled and, on the chunked path, a
// best-effort delete-partial request; everything else becomes StatusError
// with the mapped kind.
func (c *Coordinator) fail(ctx context.Context, uploadID string, mode models.UploadMode, err error, compressionFailed bool, log logging.Logger) error {
	if errors.Is(err, context.Canceled) || common.KindOf(err) == common.KindCancelled {
		c.registry.Update(uploadID, func(rec *models.UploadRecord) {
			rec.Status = models.StatusCancelled
		})
		log.Info(ctx, "upload cancelled")

		if mode == models.ModeChunked {
			c.notifyAbort(uploadID, log)
		}
		return common.NewUploadError(common.KindCancelled, "upload cancelled")
	}

	kind := common.KindOf(err)
	msg := err.Error()
	if compressionFailed {
		// the fallback upload failed too; surface the compression incident
		msg = fmt.Sprintf("%s (after compression failed and original was retried)", msg)
	}

	c.registry.Update(uploadID, func(rec *models.UploadRecord) {
		rec.Status = models.StatusError
		rec.ErrKind = kind
		rec.ErrMessage = msg
	})
	log.Error(ctx, "upload failed", "kind", kind, "error", err)

	return err
}

// notifyAbort tells the backend to discard the partial upload. Uses a fresh
// context: the upload's own context is already cancelled.
func (c *Coordinator) notifyAbort(uploadID string, log logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), abortNotifyTimeout)
	defer cancel()

	if err := c.api.AbortUpload(ctx, uploadID); err != nil {
		log.Warn(ctx, "discarding partial upload failed", "error", err)
	}
}
