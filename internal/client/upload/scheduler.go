package upload

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/tamteklipy/tkcli/internal/client/api"
	"github.com/tamteklipy/tkcli/internal/client/models"
	"github.com/tamteklipy/tkcli/internal/logging"
)

// Transfer policy. These values are coordinated with the backend; changing
// them is a deployment decision, not a runtime knob.
const (
	// ChunkSize is the fixed size of every chunk except a shorter tail.
	ChunkSize int64 = 5 << 20

	// maxInFlightChunks bounds concurrent chunk requests per upload.
	maxInFlightChunks = 3
)

// chunkScheduler splits a payload into fixed-size chunks, transmits them with
// bounded concurrency and finalizes the upload once every chunk is
// acknowledged. Chunks may arrive at the backend in any order; reassembly is
// by index.
type chunkScheduler struct {
	api api.Client
	log logging.Logger
}

// events the scheduler reports back to the coordinator while running.
type schedulerHooks struct {
	onProgress   ProgressFunc
	onChunkDone  func(done, total int)
	onFinalizing func()
}

// run transmits the payload and returns the backend-assigned clip id. On any
// chunk failure the remaining requests are aborted and the first error is
// returned; no finalize is attempted. A cancelled ctx aborts the same way.
func (s *chunkScheduler) run(ctx context.Context, uploadID string, p models.Payload, fileHash string, hooks schedulerHooks) (int64, error) {
	totalChunks := int((p.Size + ChunkSize - 1) / ChunkSize)
	progress := newChunkProgress(totalChunks, hooks.onProgress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlightChunks)

	for index := 0; index < totalChunks; index++ {
		index := index
		g.Go(func() error {
			// the group context trips on the first failure; issue nothing more
			if err := gctx.Err(); err != nil {
				return err
			}

			offset := int64(index) * ChunkSize
			size := min(ChunkSize, p.Size-offset)

			chunk := models.Chunk{
				UploadID: uploadID,
				Index:    index,
				Total:    totalChunks,
				Filename: p.Filename,
				Size:     size,
				Data:     io.NewSectionReader(p.Data, offset, size),
			}
			if index == totalChunks-1 {
				chunk.FileHash = fileHash
			}

			err := s.api.UploadChunk(gctx, chunk, func(sent, total int64) {
				progress.chunkSent(index, sent, size)
			})
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", index, totalChunks, err)
			}

			done := progress.chunkDone(index)
			s.log.Debug(gctx, "chunk uploaded", "upload_id", uploadID, "chunk", index, "done", done, "total", totalChunks)
			if hooks.onChunkDone != nil {
				hooks.onChunkDone(done, totalChunks)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	if hooks.onFinalizing != nil {
		hooks.onFinalizing()
	}

	clipID, err := s.api.CompleteUpload(ctx, uploadID, fileHash)
	if err != nil {
		return 0, fmt.Errorf("finalize: %w", err)
	}
	return clipID, nil
}
