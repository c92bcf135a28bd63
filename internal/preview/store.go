// Package preview holds rendered part previews behind opaque, revocable handles.
package preview

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/relscope/internal/apperr"
)

// Preview is the payload behind a handle.
type Preview struct {
	MIME string
	Data []byte
}

// Store issues handles for preview payloads. Handles stay valid until revoked,
// so owners must call Revoke when a part is removed or its package is replaced.
type Store struct {
	mu    sync.RWMutex
	items map[string]Preview
}

// NewStore creates an empty preview store.
func NewStore() *Store {
	return &Store{items: make(map[string]Preview)}
}

// Create registers data under a new handle.
func (s *Store) Create(data []byte, mime string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("preview: empty payload")
	}
	handle := uuid.NewString()
	s.mu.Lock()
	s.items[handle] = Preview{MIME: mime, Data: data}
	s.mu.Unlock()
	return handle, nil
}

// Get returns the preview for handle.
func (s *Store) Get(handle string) (Preview, error) {
	s.mu.RLock()
	p, ok := s.items[handle]
	s.mu.RUnlock()
	if !ok {
		return Preview{}, fmt.Errorf("preview: %s: %w", handle, apperr.ErrNotFound)
	}
	return p, nil
}

// Revoke releases handles. Unknown and empty handles are ignored.
func (s *Store) Revoke(handles ...string) {
	s.mu.Lock()
	for _, h := range handles {
		delete(s.items, h)
	}
	s.mu.Unlock()
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
