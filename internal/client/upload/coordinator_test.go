package upload

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamteklipy/tkcli/internal/client/api"
	"github.com/tamteklipy/tkcli/internal/client/models"
	"github.com/tamteklipy/tkcli/internal/common"
	"github.com/tamteklipy/tkcli/internal/hashx"
	"github.com/tamteklipy/tkcli/internal/logging"
)

// zeroReaderAt synthesizes an all-zero payload of arbitrary size without
// allocating it.
type zeroReaderAt struct{ size int64 }

func (z zeroReaderAt) ReadAt(b []byte, off int64) (int, error) {
	if off >= z.size {
		return 0, io.EOF
	}
	n := len(b)
	if int64(n) > z.size-off {
		n = int(z.size - off)
	}
	clear(b[:n])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func zeroPayload(name string, size int64) models.Payload {
	return models.Payload{
		Filename:  name,
		Size:      size,
		MediaType: "video/mp4",
		Data:      zeroReaderAt{size: size},
	}
}

// chunkCall is what the fake backend remembers about one chunk request.
type chunkCall struct {
	uploadID string
	index    int
	total    int
	filename string
	size     int64
	fileHash string
}

// fakeAPI is an in-memory stand-in for the backend, instrumented to check
// the transfer contract: request sets, concurrency high-water mark, ordering.
type fakeAPI struct {
	mu sync.Mutex

	chunkDelay  time.Duration
	chunkErr    func(index int) error
	completeErr error
	clipID      int64

	singleShots []models.Payload
	singleErr   error

	chunks    []chunkCall
	completes []string // file hashes passed to CompleteUpload
	aborts    []string

	inFlight    int
	maxInFlight int
}

var _ api.Client = (*fakeAPI)(nil)

func (f *fakeAPI) Login(context.Context, string, string) (string, error) { return "tok", nil }
func (f *fakeAPI) ThumbnailReady(context.Context, int64) (bool, error)   { return true, nil }
func (f *fakeAPI) ListClips(context.Context, int, int) (models.ClipPage, error) {
	return models.ClipPage{}, nil
}

func (f *fakeAPI) UploadFile(ctx context.Context, p models.Payload, fn api.ProgressFunc) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.singleShots = append(f.singleShots, p)
	f.mu.Unlock()

	if f.singleErr != nil {
		return 0, f.singleErr
	}
	if fn != nil {
		fn(p.Size/2, p.Size)
		fn(p.Size, p.Size)
	}
	return f.clipID, nil
}

func (f *fakeAPI) UploadChunk(ctx context.Context, c models.Chunk, fn api.ProgressFunc) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.chunkDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.chunkDelay):
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.chunkErr != nil {
		if err := f.chunkErr(c.Index); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(c.Data)
	if err != nil {
		return err
	}
	if fn != nil {
		fn(int64(len(data)), int64(len(data)))
	}

	f.mu.Lock()
	f.chunks = append(f.chunks, chunkCall{
		uploadID: c.UploadID,
		index:    c.Index,
		total:    c.Total,
		filename: c.Filename,
		size:     int64(len(data)),
		fileHash: c.FileHash,
	})
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) CompleteUpload(ctx context.Context, uploadID, fileHash string) (int64, error) {
	f.mu.Lock()
	f.completes = append(f.completes, fileHash)
	f.mu.Unlock()

	if f.completeErr != nil {
		return 0, f.completeErr
	}
	return f.clipID, nil
}

func (f *fakeAPI) AbortUpload(ctx context.Context, uploadID string) error {
	f.mu.Lock()
	f.aborts = append(f.aborts, uploadID)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) chunkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks)
}

func newCoordinator(f *fakeAPI) *Coordinator {
	return NewCoordinator(f, NewRegistry(), logging.Discard())
}

const mib = int64(1 << 20)

func TestUpload_SingleShotSuccess(t *testing.T) {
	f := &fakeAPI{clipID: 41}
	c := newCoordinator(f)

	res, err := c.Upload(context.Background(), zeroPayload("small.mp4", 10*mib))
	require.NoError(t, err)
	require.Equal(t, int64(41), res.ClipID)

	require.Len(t, f.singleShots, 1)
	require.Empty(t, f.chunks)
	require.Empty(t, f.completes)

	rec, ok := c.Registry().Get(res.UploadID)
	require.True(t, ok)
	require.Equal(t, models.StatusComplete, rec.Status)
	require.Equal(t, 100, rec.Progress)
	require.Equal(t, int64(41), rec.ClipID)
	require.Equal(t, models.ModeSingleShot, rec.Mode)
}

func TestUpload_ChunkedSuccess(t *testing.T) {
	f := &fakeAPI{clipID: 7}
	c := newCoordinator(f)

	size := 52 * mib
	res, err := c.Upload(context.Background(), zeroPayload("big.mp4", size))
	require.NoError(t, err)

	require.Empty(t, f.singleShots)
	require.Len(t, f.chunks, 11, "ceil(52MiB/5MiB) = 11 chunks")

	// every index exactly once
	indices := make([]int, 0, len(f.chunks))
	for _, ch := range f.chunks {
		indices = append(indices, ch.index)
		require.Equal(t, res.UploadID, ch.uploadID)
		require.Equal(t, 11, ch.total)
		require.Equal(t, "big.mp4", ch.filename)
	}
	sort.Ints(indices)
	for i, idx := range indices {
		require.Equal(t, i, idx)
	}

	// hash rides on the final-indexed chunk only, and matches the finalize
	wantHash, err := hashx.SumSHA256(io.NewSectionReader(zeroReaderAt{size: size}, 0, size))
	require.NoError(t, err)

	hashCount := 0
	for _, ch := range f.chunks {
		if ch.fileHash != "" {
			hashCount++
			require.Equal(t, 10, ch.index)
			require.Equal(t, wantHash, ch.fileHash)
		}
	}
	require.Equal(t, 1, hashCount)
	require.Equal(t, []string{wantHash}, f.completes)

	// tail chunk is the remainder
	for _, ch := range f.chunks {
		if ch.index == 10 {
			require.Equal(t, 2*mib, ch.size)
		} else {
			require.Equal(t, 5*mib, ch.size)
		}
	}

	rec, _ := c.Registry().Get(res.UploadID)
	require.Equal(t, models.StatusComplete, rec.Status)
	require.Equal(t, 11, rec.ChunksDone)
	require.Equal(t, 100, rec.Progress)
}

func TestUpload_ChunkSizeMultipleHasFullTail(t *testing.T) {
	f := &fakeAPI{}
	c := newCoordinator(f)

	_, err := c.Upload(context.Background(), zeroPayload("exact.mp4", 55*mib))
	require.NoError(t, err)

	require.Len(t, f.chunks, 11)
	for _, ch := range f.chunks {
		require.Equal(t, 5*mib, ch.size, "chunk %d", ch.index)
	}
}

func TestUpload_ThresholdBoundary(t *testing.T) {
	t.Run("exactly 50MiB stays single-shot", func(t *testing.T) {
		f := &fakeAPI{}
		c := newCoordinator(f)

		_, err := c.Upload(context.Background(), zeroPayload("edge.mp4", 50*mib))
		require.NoError(t, err)
		require.Len(t, f.singleShots, 1)
		require.Empty(t, f.chunks)
	})

	t.Run("one byte over goes chunked", func(t *testing.T) {
		f := &fakeAPI{}
		c := newCoordinator(f)

		_, err := c.Upload(context.Background(), zeroPayload("over.mp4", 50*mib+1))
		require.NoError(t, err)
		require.Empty(t, f.singleShots)
		require.Len(t, f.chunks, 11)
	})
}

func TestUpload_EmptyFileRejectedBeforeRegistration(t *testing.T) {
	f := &fakeAPI{}
	c := newCoordinator(f)

	_, err := c.Upload(context.Background(), zeroPayload("empty.mp4", 0))
	require.Equal(t, common.KindValidationFailed, common.KindOf(err))
	require.Empty(t, c.Registry().Snapshot())
	require.Empty(t, f.singleShots)
	require.Empty(t, f.chunks)
}

func TestUpload_AtMostThreeChunksInFlight(t *testing.T) {
	f := &fakeAPI{chunkDelay: 10 * time.Millisecond}
	c := newCoordinator(f)

	_, err := c.Upload(context.Background(), zeroPayload("big.mp4", 100*mib))
	require.NoError(t, err)

	require.Len(t, f.chunks, 20)
	require.LessOrEqual(t, f.maxInFlight, 3)
	require.Greater(t, f.maxInFlight, 1, "scheduler should actually run chunks concurrently")
}

func TestUpload_ProgressMonotonicAndFinalizeLast(t *testing.T) {
	f := &fakeAPI{chunkDelay: time.Millisecond}
	c := newCoordinator(f)

	var mu sync.Mutex
	var progress []int
	var statuses []models.UploadStatus
	c.Registry().Subscribe(func(rec models.UploadRecord) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, rec.Progress)
		if len(statuses) == 0 || statuses[len(statuses)-1] != rec.Status {
			statuses = append(statuses, rec.Status)
		}
	})

	_, err := c.Upload(context.Background(), zeroPayload("big.mp4", 60*mib))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(progress); i++ {
		require.GreaterOrEqual(t, progress[i], progress[i-1],
			"progress %v must be non-decreasing", progress)
	}
	require.Equal(t,
		[]models.UploadStatus{models.StatusUploading, models.StatusFinalizing, models.StatusComplete},
		statuses)
}

func TestUpload_CancelMidFlight(t *testing.T) {
	f := &fakeAPI{chunkDelay: 15 * time.Millisecond}
	c := newCoordinator(f)

	// cancel once a third of the chunks are through
	var once sync.Once
	c.Registry().Subscribe(func(rec models.UploadRecord) {
		if rec.ChunksDone >= 13 {
			once.Do(func() { go c.Cancel(rec.ID) })
		}
	})

	res, err := c.Upload(context.Background(), zeroPayload("huge.mp4", 200*mib))
	require.Nil(t, res)
	require.Equal(t, common.KindCancelled, common.KindOf(err))

	require.Empty(t, f.completes, "no finalize after cancel")
	require.Less(t, f.chunkCount(), 40, "pending chunks must not be sent")

	// no trailing requests once the coordinator has returned
	sent := f.chunkCount()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, sent, f.chunkCount())

	require.Len(t, f.aborts, 1, "one delete-partial request")

	snap := c.Registry().Snapshot()
	require.Len(t, snap, 1)
	for _, rec := range snap {
		require.Equal(t, models.StatusCancelled, rec.Status)
		require.Empty(t, rec.ErrKind)
	}
}

func TestUpload_SingleShotCancelSkipsDelete(t *testing.T) {
	f := &fakeAPI{}
	c := newCoordinator(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Upload(ctx, zeroPayload("small.mp4", mib))
	require.Equal(t, common.KindCancelled, common.KindOf(err))
	require.Empty(t, f.aborts, "single-shot aborts carry no server-side cleanup")
}

func TestUpload_ChunkFailureAbortsRemaining(t *testing.T) {
	f := &fakeAPI{
		chunkDelay: 5 * time.Millisecond,
		chunkErr: func(index int) error {
			if index == 4 {
				return common.NewUploadError(common.KindNetworkUnavailable, "connection reset")
			}
			return nil
		},
	}
	c := newCoordinator(f)

	_, err := c.Upload(context.Background(), zeroPayload("big.mp4", 120*mib))
	require.Equal(t, common.KindNetworkUnavailable, common.KindOf(err))

	require.Empty(t, f.completes)
	require.Less(t, f.chunkCount(), 24, "scheduler must stop issuing chunks after a failure")

	for _, rec := range c.Registry().Snapshot() {
		require.Equal(t, models.StatusError, rec.Status)
		require.Equal(t, common.KindNetworkUnavailable, rec.ErrKind)
		require.Zero(t, rec.ClipID)
	}
}

func TestUpload_DiskFullOnFinalize(t *testing.T) {
	f := &fakeAPI{
		completeErr: &common.UploadError{Kind: common.KindDiskFull, Message: "insufficient storage", StatusCode: 507},
	}
	c := newCoordinator(f)

	var statuses []models.UploadStatus
	var mu sync.Mutex
	c.Registry().Subscribe(func(rec models.UploadRecord) {
		mu.Lock()
		defer mu.Unlock()
		if len(statuses) == 0 || statuses[len(statuses)-1] != rec.Status {
			statuses = append(statuses, rec.Status)
		}
	})

	_, err := c.Upload(context.Background(), zeroPayload("big.mp4", 60*mib))
	require.Equal(t, common.KindDiskFull, common.KindOf(err))

	require.Len(t, f.chunks, 12, "all chunks of 60MiB succeed before finalize")
	require.Len(t, f.completes, 1)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t,
		[]models.UploadStatus{models.StatusUploading, models.StatusFinalizing, models.StatusError},
		statuses)
}

func TestUpload_ImageIsCompressedBeforeTransfer(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, 2400, 1600))
	for y := 0; y < 1600; y++ {
		for x := 0; x < 2400; x++ {
			img.Set(x, y, color.RGBA{uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	original := buf.Bytes()

	f := &fakeAPI{}
	c := newCoordinator(f)

	res, err := c.Upload(context.Background(), models.Payload{
		Filename:  "shot.jpg",
		Size:      int64(len(original)),
		MediaType: "image/jpeg",
		Data:      bytes.NewReader(original),
	})
	require.NoError(t, err)

	require.Len(t, f.singleShots, 1)
	sent := f.singleShots[0]
	require.Less(t, sent.Size, int64(len(original)), "compressed payload should be transmitted")

	sentBytes, err := io.ReadAll(sent.Reader())
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(sentBytes))
	require.NoError(t, err)
	require.LessOrEqual(t, cfg.Width, 1920)
	require.LessOrEqual(t, cfg.Height, 1920)

	rec, _ := c.Registry().Get(res.UploadID)
	require.Equal(t, sent.Size, rec.Size, "record reflects the transmitted size")
}

func TestUpload_CompressionFailureFallsBackToOriginal(t *testing.T) {
	f := &fakeAPI{clipID: 3}
	c := newCoordinator(f)

	broken := []byte("this is declared a jpeg but is not one")
	res, err := c.Upload(context.Background(), models.Payload{
		Filename:  "broken.jpg",
		Size:      int64(len(broken)),
		MediaType: "image/jpeg",
		Data:      bytes.NewReader(broken),
	})
	require.NoError(t, err, "decode failure is non-fatal")

	require.Len(t, f.singleShots, 1)
	sentBytes, err := io.ReadAll(f.singleShots[0].Reader())
	require.NoError(t, err)
	require.Equal(t, broken, sentBytes, "original bytes uploaded unchanged")

	rec, _ := c.Registry().Get(res.UploadID)
	require.Equal(t, models.StatusComplete, rec.Status)
}

func TestUpload_ConcurrentUploadsGetDistinctIDs(t *testing.T) {
	f := &fakeAPI{}
	c := newCoordinator(f)

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			res, err := c.Upload(context.Background(), zeroPayload("clip.mp4", mib))
			require.NoError(t, err)
			ids[i] = res.UploadID
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		require.NotEmpty(t, id)
		require.False(t, seen[id], "upload ids must be unique")
		seen[id] = true
	}
	require.Len(t, c.Registry().Snapshot(), 4)
}
