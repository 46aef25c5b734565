// Package blobstore holds in-memory binary data behind revocable URLs
package blobstore

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// URLPrefix is the route the object URLs are served under
const URLPrefix = "/blob/"

// Blob is data registered with the store
type Blob struct {
	Data      []byte
	MediaType string
	Created   time.Time
}

// Store maps object URLs to data until they are revoked
type Store struct {
	mu    sync.RWMutex
	blobs map[string]Blob
	now   func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{blobs: make(map[string]Blob), now: time.Now}
}

// CreateObjectURL registers data and returns a URL that serves it
func (s *Store) CreateObjectURL(data []byte, mediaType string) string {
	id := ulid.Make().String()
	s.mu.Lock()
	s.blobs[id] = Blob{Data: data, MediaType: mediaType, Created: s.now()}
	s.mu.Unlock()
	return URLPrefix + id
}

// RevokeObjectURL releases the data behind url. It reports whether anything was removed.
func (s *Store) RevokeObjectURL(url string) bool {
	id, ok := IDFromURL(url)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.blobs[id]; !found {
		return false
	}
	delete(s.blobs, id)
	return true
}

// Get looks up a blob by id
func (s *Store) Get(id string) (Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[id]
	return blob, ok
}

// Len is the number of live blobs
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Sweep revokes every blob created more than olderThan ago and returns how many went
func (s *Store) Sweep(olderThan time.Duration) int {
	cutoff := s.now().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, blob := range s.blobs {
		if blob.Created.Before(cutoff) {
			delete(s.blobs, id)
			removed++
		}
	}
	return removed
}

// IDFromURL extracts the blob id from an object URL
func IDFromURL(url string) (string, bool) {
	id, found := strings.CutPrefix(url, URLPrefix)
	if !found || id == "" {
		return "", false
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return "", false
	}
	return id, true
}
