package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/tamteklipy/tkcli/internal/client/models"
)

// Upload starts a background upload of the file at path. The REPL stays
// responsive; progress is visible through the 'uploads' command and the
// upload can be stopped with 'cancel <id>'.
func (a *App) Upload(ctx context.Context, path string) error {
	payload, closeFn, err := openPayload(path)
	if err != nil {
		printlnFn("error:", err)
		return err
	}

	printlnFn(fmt.Sprintf("uploading %s (%d bytes)", payload.Filename, payload.Size))

	go func() {
		defer closeFn()

		res, err := a.coordinator.Upload(ctx, payload)
		if err != nil {
			printlnFn(fmt.Sprintf("upload of %s failed: %v", payload.Filename, err))
			return
		}

		printlnFn(fmt.Sprintf("upload of %s complete: clip %d", payload.Filename, res.ClipID))
		a.waitForThumbnail(ctx, res.ClipID)
	}()

	return nil
}

// Uploads prints the state of every upload started in this session.
func (a *App) Uploads(ctx context.Context) error {
	snapshot := a.coordinator.Registry().Snapshot()
	if len(snapshot) == 0 {
		printlnFn("No uploads yet")
		return nil
	}

	for id, rec := range snapshot {
		line := fmt.Sprintf("%s  %-20s  %-11s  %3d%%  %s", shortID(id), rec.Filename, rec.Mode, rec.Progress, rec.Status)
		if rec.Mode == models.ModeChunked && !rec.Status.Terminal() {
			line += fmt.Sprintf("  (%d/%d chunks)", rec.ChunksDone, rec.TotalChunks)
		}
		if rec.Status == models.StatusError {
			line += fmt.Sprintf("  [%s] %s", rec.ErrKind, rec.ErrMessage)
		}
		printlnFn(line)
	}
	return nil
}

// CancelUpload cancels a running upload. The id may be the short prefix
// shown by 'uploads'.
func (a *App) CancelUpload(ctx context.Context, id string) error {
	full, ok := a.resolveUploadID(id)
	if !ok {
		printlnFn("Unknown upload:", id)
		return nil
	}

	a.coordinator.Cancel(full)
	printlnFn("Cancel requested for", shortID(full))
	return nil
}

func (a *App) resolveUploadID(prefix string) (string, bool) {
	for id := range a.coordinator.Registry().Snapshot() {
		if id == prefix || shortID(id) == prefix {
			return id, true
		}
	}
	return "", false
}

// waitForThumbnail polls the backend a few times after a successful upload
// so the user learns when the clip is fully browsable. Giving up is silent;
// the thumbnail appears on its own eventually.
func (a *App) waitForThumbnail(ctx context.Context, clipID int64) {
	for attempt := 0; attempt < a.config.ThumbnailPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(a.config.ThumbnailPollInterval):
		}

		ready, err := a.apiClient.ThumbnailReady(ctx, clipID)
		if err != nil {
			a.log.Warn(ctx, "thumbnail poll failed", "clip_id", clipID, "error", err)
			return
		}
		if ready {
			printlnFn(fmt.Sprintf("thumbnail for clip %d is ready", clipID))
			return
		}
	}
}

func openPayload(path string) (models.Payload, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Payload{}, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return models.Payload{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	return models.Payload{
		Filename:  filepath.Base(path),
		Size:      fi.Size(),
		MediaType: mediaType,
		Data:      f,
	}, f.Close, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
