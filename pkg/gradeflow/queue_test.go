package gradeflow

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

type gatewayStub struct {
	mu        sync.Mutex
	uploads   []string
	inFlight  int
	maxActive int
	delay     time.Duration
	failFor   map[string]error
	progress  []int
}

func (g *gatewayStub) UploadSingle(ctx context.Context, assignmentID, studentID string, file gradeapi.File, onProgress gradeapi.ProgressFunc) (gradeapi.UploadResult, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxActive {
		g.maxActive = g.inFlight
	}
	g.mu.Unlock()

	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	g.mu.Lock()
	g.inFlight--
	g.uploads = append(g.uploads, file.Name)
	err := g.failFor[file.Name]
	g.mu.Unlock()

	if err != nil {
		return gradeapi.UploadResult{}, err
	}

	if onProgress != nil {
		for _, pct := range []int{30, 65, 100} {
			onProgress(pct)
		}
	}

	return gradeapi.UploadResult{
		SubmissionID: "sub-" + file.Name,
		FileURL:      "https://cdn.example.com/" + file.Name,
		FileName:     file.Name,
		Status:       gradeapi.StatusPending,
	}, nil
}

func jpegFile(name string, size int) gradeapi.File {
	return gradeapi.File{Name: name, MIMEType: "image/jpeg", Content: bytes.Repeat([]byte("j"), size)}
}

func newTestQueue(gateway SubmissionGateway, previews PreviewStore, opts ...QueueOption) *UploadQueue {
	return NewUploadQueue("exam-1", "student-1", gateway, previews, zerolog.Nop(), opts...)
}

func TestAddFilesAcceptsValidJPEG(t *testing.T) {
	q := newTestQueue(&gatewayStub{}, nil)

	rejections := q.AddFiles([]gradeapi.File{jpegFile("page1.jpg", 2*1024*1024)})
	require.Empty(t, rejections)

	items := q.Items()
	require.Len(t, items, 1)
	require.Equal(t, UploadQueued, items[0].Status)
	require.Equal(t, 0, items[0].Progress)
	require.NotEmpty(t, items[0].ID)
	require.NotEmpty(t, items[0].PreviewRef)
}

func TestAddFilesRejectsDisallowedType(t *testing.T) {
	q := newTestQueue(&gatewayStub{}, nil)

	rejections := q.AddFiles([]gradeapi.File{
		{Name: "notes.txt", MIMEType: "text/plain", Content: []byte("plain text")},
	})
	require.Len(t, rejections, 1)
	require.Equal(t, "notes.txt: Invalid file type. Accepted: JPEG, PNG, PDF, HEIC.", rejections[0])
	require.Empty(t, q.Items())
}

func TestAddFilesRejectsOversize(t *testing.T) {
	q := newTestQueue(&gatewayStub{}, nil)

	rejections := q.AddFiles([]gradeapi.File{jpegFile("huge.jpg", 12*1024*1024)})
	require.Len(t, rejections, 1)
	require.Equal(t, "huge.jpg: File exceeds 10 MB limit (12.0 MB).", rejections[0])
	require.Empty(t, q.Items())
}

func TestAddFilesAcceptsByExtensionWhenMIMEMissing(t *testing.T) {
	q := newTestQueue(&gatewayStub{}, nil)

	rejections := q.AddFiles([]gradeapi.File{
		{Name: "scan.heic", Content: bytes.Repeat([]byte{0x00}, 256)},
	})
	require.Empty(t, rejections)
	require.Len(t, q.Items(), 1)
}

func TestPDFGetsNoPreview(t *testing.T) {
	previews := NewMemoryPreviewStore()
	q := newTestQueue(&gatewayStub{}, previews)

	rejections := q.AddFiles([]gradeapi.File{
		{Name: "exam.pdf", MIMEType: "application/pdf", Content: []byte("%PDF-1.4")},
	})
	require.Empty(t, rejections)
	require.Empty(t, q.Items()[0].PreviewRef)
	require.Equal(t, 0, previews.Len())
}

func TestUploadFileSuccess(t *testing.T) {
	gateway := &gatewayStub{}
	q := newTestQueue(gateway, nil)
	q.AddFiles([]gradeapi.File{jpegFile("page1.jpg", 1024)})

	id := q.Items()[0].ID
	require.NoError(t, q.UploadFile(context.Background(), id))

	item := q.Items()[0]
	require.Equal(t, UploadDone, item.Status)
	require.Equal(t, 100, item.Progress)
	require.NotNil(t, item.Result)
	require.Equal(t, "sub-page1.jpg", item.Result.SubmissionID)
	require.Empty(t, item.Error)
}

func TestUploadFileFailureKeepsItemRetryable(t *testing.T) {
	gateway := &gatewayStub{failFor: map[string]error{"page1.jpg": errors.New("network unreachable")}}
	q := newTestQueue(gateway, nil)
	q.AddFiles([]gradeapi.File{jpegFile("page1.jpg", 1024)})

	id := q.Items()[0].ID
	require.NoError(t, q.UploadFile(context.Background(), id))

	item := q.Items()[0]
	require.Equal(t, UploadError, item.Status)
	require.Equal(t, "network unreachable", item.Error)
	require.Nil(t, item.Result)

	// Retry after the transient failure clears.
	gateway.mu.Lock()
	gateway.failFor = nil
	gateway.mu.Unlock()

	require.NoError(t, q.UploadFile(context.Background(), id))
	require.Equal(t, UploadDone, q.Items()[0].Status)
}

func TestUploadFileGuards(t *testing.T) {
	gateway := &gatewayStub{}
	q := newTestQueue(gateway, nil)
	q.AddFiles([]gradeapi.File{jpegFile("page1.jpg", 1024)})
	id := q.Items()[0].ID

	require.ErrorIs(t, q.UploadFile(context.Background(), "missing"), ErrFileNotFound)

	require.NoError(t, q.UploadFile(context.Background(), id))
	require.ErrorIs(t, q.UploadFile(context.Background(), id), ErrAlreadyUploaded)

	gateway.mu.Lock()
	uploadCalls := len(gateway.uploads)
	gateway.mu.Unlock()
	require.Equal(t, 1, uploadCalls)
}

func TestUploadAllBoundedPoolAndIndependentFailures(t *testing.T) {
	gateway := &gatewayStub{
		delay:   20 * time.Millisecond,
		failFor: map[string]error{"page3.jpg": errors.New("storage unavailable")},
	}
	q := newTestQueue(gateway, nil, WithUploadConcurrency(2))

	q.AddFiles([]gradeapi.File{
		jpegFile("page1.jpg", 1024),
		jpegFile("page2.jpg", 1024),
		jpegFile("page3.jpg", 1024),
		jpegFile("page4.jpg", 1024),
		jpegFile("page5.jpg", 1024),
	})

	q.UploadAll(context.Background())

	counts := q.Counts()
	require.Equal(t, 4, counts.Done)
	require.Equal(t, 1, counts.Errors)
	require.Equal(t, 0, counts.Pending)

	gateway.mu.Lock()
	maxActive := gateway.maxActive
	gateway.mu.Unlock()
	require.LessOrEqual(t, maxActive, 2)
}

func TestRemoveFileReleasesPreview(t *testing.T) {
	previews := NewMemoryPreviewStore()
	q := newTestQueue(&gatewayStub{}, previews)

	q.AddFiles([]gradeapi.File{jpegFile("page1.jpg", 1024)})
	require.Equal(t, 1, previews.Len())

	require.NoError(t, q.RemoveFile(q.Items()[0].ID))
	require.Empty(t, q.Items())
	require.Equal(t, 0, previews.Len())
}

func TestClearAllReleasesEveryPreview(t *testing.T) {
	previews := NewMemoryPreviewStore()
	q := newTestQueue(&gatewayStub{}, previews)

	q.AddFiles([]gradeapi.File{
		jpegFile("page1.jpg", 1024),
		jpegFile("page2.jpg", 1024),
	})
	require.Equal(t, 2, previews.Len())

	q.ClearAll()
	require.Empty(t, q.Items())
	require.Equal(t, 0, previews.Len())
}

func TestCounts(t *testing.T) {
	gateway := &gatewayStub{failFor: map[string]error{"bad.jpg": errors.New("boom")}}
	q := newTestQueue(gateway, nil)

	q.AddFiles([]gradeapi.File{
		jpegFile("good.jpg", 1024),
		jpegFile("bad.jpg", 1024),
		jpegFile("waiting.jpg", 1024),
	})

	items := q.Items()
	require.NoError(t, q.UploadFile(context.Background(), items[0].ID))
	require.NoError(t, q.UploadFile(context.Background(), items[1].ID))

	counts := q.Counts()
	require.Equal(t, QueueCounts{Pending: 1, Done: 1, Errors: 1}, counts)
	require.False(t, q.IsUploading())
}
