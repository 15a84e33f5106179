package gradeflow

import (
	"sync"

	"github.com/google/uuid"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// PreviewStore owns local preview handles for queued image files. Acquire is
// called when a file is enqueued and Release when it leaves the queue; the
// pairing is an ownership obligation, not best-effort cleanup.
type PreviewStore interface {
	Acquire(file gradeapi.File) (string, error)
	Release(ref string)
}

// MemoryPreviewStore keeps preview payloads in process memory, keyed by an
// opaque reference.
type MemoryPreviewStore struct {
	mu       sync.Mutex
	previews map[string][]byte
}

// NewMemoryPreviewStore constructs an empty preview store.
func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{previews: make(map[string][]byte)}
}

// Acquire registers a preview for the file and returns its reference.
func (s *MemoryPreviewStore) Acquire(file gradeapi.File) (string, error) {
	ref := "preview-" + uuid.NewString()

	s.mu.Lock()
	s.previews[ref] = file.Content
	s.mu.Unlock()

	return ref, nil
}

// Release frees the preview behind ref. Unknown references are ignored.
func (s *MemoryPreviewStore) Release(ref string) {
	s.mu.Lock()
	delete(s.previews, ref)
	s.mu.Unlock()
}

// Get returns the preview payload for ref, if still held.
func (s *MemoryPreviewStore) Get(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.previews[ref]
	return payload, ok
}

// Len reports how many previews are currently held.
func (s *MemoryPreviewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.previews)
}
