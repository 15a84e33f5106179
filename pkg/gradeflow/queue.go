// Package gradeflow implements the teacher-facing grading session pipeline:
// an upload queue with per-file state, a single-flight grading orchestrator,
// a review workbench for flagged results, and an in-session ledger of graded
// students. All state is scoped to one grading session; the server remains
// the system of record.
package gradeflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// Upload queue limits and the accepted handwriting formats.
const (
	MaxFileSizeBytes = 10 * 1024 * 1024

	// DefaultUploadConcurrency bounds how many files transfer at once in
	// UploadAll. The original design fanned out unbounded, which saturates
	// client bandwidth on large batches.
	DefaultUploadConcurrency = 3
)

var allowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/heic":      {},
	"application/pdf": {},
}

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".heic": {},
	".pdf":  {},
}

// UploadStatus tracks a queued file through its lifecycle.
type UploadStatus string

const (
	UploadQueued    UploadStatus = "queued"
	UploadUploading UploadStatus = "uploading"
	UploadDone      UploadStatus = "done"
	UploadError     UploadStatus = "error"
)

var (
	// ErrFileNotFound indicates the queue holds no file with the given id.
	ErrFileNotFound = errors.New("file not found in upload queue")
	// ErrUploadInFlight indicates an upload was requested for a file that is
	// already transferring.
	ErrUploadInFlight = errors.New("upload already in progress")
	// ErrAlreadyUploaded indicates an upload was requested for a completed file.
	ErrAlreadyUploaded = errors.New("file already uploaded")
)

// QueuedFile is one file tracked by the upload queue.
type QueuedFile struct {
	ID         string
	File       gradeapi.File
	PreviewRef string
	Progress   int
	Status     UploadStatus
	Error      string
	Result     *gradeapi.UploadResult
}

// SubmissionGateway uploads one file and reports transfer progress.
type SubmissionGateway interface {
	UploadSingle(ctx context.Context, assignmentID, studentID string, file gradeapi.File, onProgress gradeapi.ProgressFunc) (gradeapi.UploadResult, error)
}

// QueueCounts summarizes the queue by status.
type QueueCounts struct {
	Pending   int
	Uploading int
	Done      int
	Errors    int
}

// UploadQueue validates, tracks, and uploads submission files for one
// assignment/student pair. Methods are safe for concurrent use.
type UploadQueue struct {
	mu           sync.Mutex
	assignmentID string
	studentID    string
	items        []*QueuedFile
	gateway      SubmissionGateway
	previews     PreviewStore
	concurrency  int
	logger       zerolog.Logger
}

// QueueOption customises an UploadQueue.
type QueueOption func(*UploadQueue)

// WithUploadConcurrency overrides the bounded pool size used by UploadAll.
func WithUploadConcurrency(n int) QueueOption {
	return func(q *UploadQueue) {
		if n > 0 {
			q.concurrency = n
		}
	}
}

// NewUploadQueue constructs an empty queue bound to one assignment/student.
func NewUploadQueue(assignmentID, studentID string, gateway SubmissionGateway, previews PreviewStore, logger zerolog.Logger, opts ...QueueOption) *UploadQueue {
	if previews == nil {
		previews = NewMemoryPreviewStore()
	}

	q := &UploadQueue{
		assignmentID: assignmentID,
		studentID:    studentID,
		gateway:      gateway,
		previews:     previews,
		concurrency:  DefaultUploadConcurrency,
		logger:       logger.With().Str("component", "upload_queue").Logger(),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// AddFiles validates and enqueues the given files. Invalid files are not
// enqueued; each contributes a "<name>: <reason>" rejection message.
func (q *UploadQueue) AddFiles(files []gradeapi.File) []string {
	var rejections []string

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, file := range files {
		if reason := validateFile(file); reason != "" {
			rejections = append(rejections, fmt.Sprintf("%s: %s", file.Name, reason))
			continue
		}

		item := &QueuedFile{
			ID:     uuid.NewString(),
			File:   file,
			Status: UploadQueued,
		}

		if strings.HasPrefix(detectMIME(file), "image/") {
			ref, err := q.previews.Acquire(file)
			if err != nil {
				q.logger.Warn().Err(err).Str("file", file.Name).Msg("preview acquisition failed")
			} else {
				item.PreviewRef = ref
			}
		}

		q.items = append(q.items, item)
	}

	return rejections
}

// UploadFile transfers one queued or failed file. Files that are already
// uploading or done are rejected locally without touching the network.
func (q *UploadQueue) UploadFile(ctx context.Context, id string) error {
	q.mu.Lock()
	item := q.find(id)
	if item == nil {
		q.mu.Unlock()
		return ErrFileNotFound
	}

	switch item.Status {
	case UploadUploading:
		q.mu.Unlock()
		return ErrUploadInFlight
	case UploadDone:
		q.mu.Unlock()
		return ErrAlreadyUploaded
	}

	item.Status = UploadUploading
	item.Progress = 0
	item.Error = ""
	file := item.File
	q.mu.Unlock()

	result, err := q.gateway.UploadSingle(ctx, q.assignmentID, q.studentID, file, func(pct int) {
		q.setProgress(id, pct)
	})

	q.mu.Lock()
	defer q.mu.Unlock()

	// The item may have been cleared while the transfer was in flight.
	item = q.find(id)
	if item == nil {
		return nil
	}

	if err != nil {
		message := strings.TrimSpace(err.Error())
		if message == "" {
			message = "Upload failed. Please try again."
		}
		item.Status = UploadError
		item.Error = message
		q.logger.Warn().Str("file", item.File.Name).Str("error", message).Msg("upload failed")
		return nil
	}

	item.Status = UploadDone
	item.Progress = 100
	item.Result = &result
	q.logger.Info().Str("file", item.File.Name).Str("submission_id", result.SubmissionID).Msg("upload complete")
	return nil
}

// UploadAll uploads every queued or failed file through a bounded worker
// pool. Files fail independently; one failure never blocks the rest.
func (q *UploadQueue) UploadAll(ctx context.Context) {
	q.mu.Lock()
	var pending []string
	for _, item := range q.items {
		if item.Status == UploadQueued || item.Status == UploadError {
			pending = append(pending, item.ID)
		}
	}
	q.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	sem := make(chan struct{}, q.concurrency)
	var wg sync.WaitGroup

	for _, id := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(fileID string) {
			defer wg.Done()
			defer func() { <-sem }()
			_ = q.UploadFile(ctx, fileID)
		}(id)
	}

	wg.Wait()
}

// RemoveFile drops a file from the queue and releases its preview. Files
// that are mid-transfer cannot be removed.
func (q *UploadQueue) RemoveFile(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID != id {
			continue
		}
		if item.Status == UploadUploading {
			return ErrUploadInFlight
		}
		if item.PreviewRef != "" {
			q.previews.Release(item.PreviewRef)
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		return nil
	}

	return ErrFileNotFound
}

// ClearAll empties the queue and releases every held preview.
func (q *UploadQueue) ClearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.PreviewRef != "" {
			q.previews.Release(item.PreviewRef)
		}
	}
	q.items = nil
}

// Items returns a snapshot of the queue in insertion order.
func (q *UploadQueue) Items() []QueuedFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]QueuedFile, 0, len(q.items))
	for _, item := range q.items {
		snapshot = append(snapshot, *item)
	}
	return snapshot
}

// Counts summarizes the queue by status.
func (q *UploadQueue) Counts() QueueCounts {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := QueueCounts{}
	for _, item := range q.items {
		switch item.Status {
		case UploadQueued:
			counts.Pending++
		case UploadUploading:
			counts.Uploading++
		case UploadDone:
			counts.Done++
		case UploadError:
			counts.Errors++
		}
	}
	return counts
}

// IsUploading reports whether any file is currently transferring.
func (q *UploadQueue) IsUploading() bool {
	return q.Counts().Uploading > 0
}

// setProgress records transfer progress for the file with the given id.
// Items are addressed by id, never by position: concurrent removal can
// reorder the collection mid-flight.
func (q *UploadQueue) setProgress(id string, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if item := q.find(id); item != nil && item.Status == UploadUploading && pct > item.Progress {
		item.Progress = pct
	}
}

func (q *UploadQueue) find(id string) *QueuedFile {
	for _, item := range q.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func validateFile(file gradeapi.File) string {
	mime := detectMIME(file)
	ext := strings.ToLower(filepath.Ext(file.Name))

	_, mimeOK := allowedMIMETypes[mime]
	_, extOK := allowedExtensions[ext]
	if !mimeOK && !extOK {
		return "Invalid file type. Accepted: JPEG, PNG, PDF, HEIC."
	}

	if file.Size() > MaxFileSizeBytes {
		return fmt.Sprintf("File exceeds 10 MB limit (%.1f MB).", float64(file.Size())/1024/1024)
	}

	return ""
}

// detectMIME prefers the declared type and sniffs content when the source
// omitted one, as browsers do for HEIC.
func detectMIME(file gradeapi.File) string {
	declared := strings.ToLower(strings.TrimSpace(file.MIMEType))
	if declared != "" {
		return declared
	}
	if len(file.Content) == 0 {
		return ""
	}
	return strings.ToLower(mimetype.Detect(file.Content).String())
}
