package uploadqueue

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/uploadqueue/limits"
	"github.com/opd-ai/uploadqueue/queue"
	"github.com/opd-ai/uploadqueue/strategy"
	"github.com/opd-ai/uploadqueue/validate"
)

const mib = 1 << 20

func pngFile(name string, size int64) File {
	// Payload carrying a real PNG signature so content verification passes.
	sig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	return File{Name: name, Size: size, MIME: "image/png", Data: bytes.NewReader(sig)}
}

func videoFile(name string, size int64) File {
	return File{Name: name, Size: size, MIME: "video/mp4", Data: bytes.NewReader([]byte("ftyp"))}
}

func TestNewDefaults(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Empty(t, client.Files())
}

func TestNewRejectsOversizedCap(t *testing.T) {
	options := NewOptions()
	options.MaxFileSize = limits.MaxFileSize + 1

	_, err := New(options)
	require.ErrorIs(t, err, limits.ErrFileTooLarge)
}

func TestAddFilesAssignsStrategies(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)

	batch, err := client.AddFiles(context.Background(),
		pngFile("thumb.png", 5*mib),
		pngFile("scan.png", 60*mib),
		videoFile("clip.mp4", 150*mib),
	)
	require.NoError(t, err)
	require.True(t, batch.OK())
	require.Len(t, batch.ValidFiles, 3)

	files := client.Files()
	require.Len(t, files, 3)
	byName := make(map[string]queue.Item, 3)
	for _, item := range files {
		byName[item.Name] = item
	}

	assert.Equal(t, strategy.Direct, byName["thumb.png"].Strategy)
	assert.Equal(t, strategy.Chunked, byName["scan.png"].Strategy)
	assert.Equal(t, strategy.Streaming, byName["clip.mp4"].Strategy)
	for _, item := range files {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, queue.StatusPending, item.Status)
	}
}

func TestAddFilesPartitionsInvalid(t *testing.T) {
	options := NewOptions()
	options.AllowedTypes = []string{"image/*"}
	client, err := New(options)
	require.NoError(t, err)

	batch, err := client.AddFiles(context.Background(),
		pngFile("ok.png", mib),
		File{Name: "notes.txt", Size: 100, MIME: "text/plain"},
	)
	require.NoError(t, err)

	require.Len(t, batch.ValidFiles, 1)
	require.Len(t, batch.InvalidFiles, 1)
	assert.Equal(t, "notes.txt", batch.InvalidFiles[0].Name)
	assert.ErrorIs(t, batch.InvalidFiles[0].Err, validate.ErrTypeNotAllowed)

	// Only the valid file reached the queue.
	files := client.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "ok.png", files[0].Name)
}

func TestAddFilesContentVerification(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)

	// Declared PNG, payload is JPEG magic: rejected before enqueueing.
	forged := File{
		Name: "forged.png",
		Size: 3,
		MIME: "image/png",
		Data: bytes.NewReader([]byte{0xFF, 0xD8, 0xFF}),
	}

	batch, err := client.AddFiles(context.Background(), forged, pngFile("real.png", mib))
	require.NoError(t, err)

	require.Len(t, batch.ValidFiles, 1)
	require.Len(t, batch.InvalidFiles, 1)
	assert.ErrorIs(t, batch.InvalidFiles[0].Err, validate.ErrCorruptedContent)
	assert.Len(t, client.Files(), 1)
}

func TestAddFilesContentVerificationDisabled(t *testing.T) {
	options := NewOptions()
	options.VerifyContent = false
	client, err := New(options)
	require.NoError(t, err)

	forged := File{
		Name: "forged.png",
		Size: 3,
		MIME: "image/png",
		Data: bytes.NewReader([]byte{0xFF, 0xD8, 0xFF}),
	}
	batch, err := client.AddFiles(context.Background(), forged)
	require.NoError(t, err)
	assert.Len(t, batch.ValidFiles, 1)
}

func TestAddFilesCountsQueuedFiles(t *testing.T) {
	options := NewOptions()
	options.MaxFiles = 3
	client, err := New(options)
	require.NoError(t, err)

	_, err = client.AddFiles(context.Background(), pngFile("a.png", mib), pngFile("b.png", mib))
	require.NoError(t, err)

	// Two of three slots taken: a two-file batch must be rejected whole.
	batch, err := client.AddFiles(context.Background(), pngFile("c.png", mib), pngFile("d.png", mib))
	require.NoError(t, err)
	assert.False(t, batch.OK())
	require.Len(t, batch.BatchErrors, 1)
	assert.ErrorIs(t, batch.BatchErrors[0], validate.ErrTooManyFiles)
	assert.Len(t, client.Files(), 2)
}

func TestEndToEndUploadFlow(t *testing.T) {
	options := NewOptions()
	options.Concurrency = 2
	client, err := New(options)
	require.NoError(t, err)

	var mu sync.Mutex
	var completions [][]queue.Result
	var lastSnap queue.Snapshot
	client.OnComplete(func(r []queue.Result) {
		mu.Lock()
		completions = append(completions, r)
		mu.Unlock()
	})
	client.OnProgress(func(s queue.Snapshot) {
		mu.Lock()
		lastSnap = s
		mu.Unlock()
	})

	batch, err := client.AddFiles(context.Background(),
		pngFile("thumb.png", 5*mib),
		pngFile("scan.png", 60*mib),
		videoFile("clip.mp4", 150*mib),
	)
	require.NoError(t, err)
	require.True(t, batch.OK())

	err = client.Start(context.Background(), func(_ context.Context, item queue.Item) (interface{}, error) {
		return "https://cdn.example.net/" + item.Name, nil
	})
	require.NoError(t, err)
	client.Wait()

	completed := client.FilesByStatus(queue.StatusCompleted)
	require.Len(t, completed, 3)
	for _, item := range completed {
		assert.Equal(t, "https://cdn.example.net/"+item.Name, item.Result)
	}

	snap := client.Progress()
	assert.Equal(t, 3, snap.Completed)
	assert.InDelta(t, 100.0, snap.OverallProgress, 0.001)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, completions, 1)
	require.Len(t, completions[0], 3)
	assert.Equal(t, "thumb.png", completions[0][0].Name)
	assert.Equal(t, 3, lastSnap.Completed)
}

func TestClientControlSurface(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)

	batch, err := client.AddFiles(context.Background(), pngFile("a.png", mib), pngFile("b.png", mib))
	require.NoError(t, err)
	require.Len(t, batch.ValidFiles, 2)

	files := client.Files()
	require.NoError(t, client.Cancel(files[0].ID))
	require.NoError(t, client.Remove(files[1].ID))

	assert.Len(t, client.FilesByStatus(queue.StatusCancelled), 1)
	assert.Len(t, client.Files(), 1)

	client.ClearAll()
	assert.Empty(t, client.Files())
}

func TestClientSetProgressFeedsSnapshot(t *testing.T) {
	options := NewOptions()
	options.Concurrency = 1
	client, err := New(options)
	require.NoError(t, err)

	_, err = client.AddFiles(context.Background(), pngFile("a.png", mib))
	require.NoError(t, err)
	id := client.Files()[0].ID

	release := make(chan struct{})
	go func() {
		_ = client.Start(context.Background(), func(context.Context, queue.Item) (interface{}, error) {
			<-release
			return nil, nil
		})
	}()

	require.Eventually(t, func() bool {
		return len(client.FilesByStatus(queue.StatusUploading)) == 1
	}, time.Second, time.Millisecond)

	client.SetProgress(id, 60)
	snap := client.Progress()
	assert.InDelta(t, 60.0, snap.OverallProgress, 0.001)

	close(release)
	client.Wait()
}
