package testutil

import (
	"context"
	"sync"

	"witwaves/internal/storage"
)

// MemoryObjectStore is an in-memory storage.ObjectStore with failure injection.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failFor map[string]error
	Deleted []string
}

// NewMemoryObjectStore creates an empty store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string][]byte),
		failFor: make(map[string]error),
	}
}

// Put stores an object.
func (s *MemoryObjectStore) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
}

// Exists reports whether path is stored.
func (s *MemoryObjectStore) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

// FailDelete makes every Delete of path return err.
func (s *MemoryObjectStore) FailDelete(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[path] = err
}

// Delete implements storage.ObjectStore.
func (s *MemoryObjectStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[path]; ok {
		return err
	}
	if _, ok := s.objects[path]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, path)
	s.Deleted = append(s.Deleted, path)
	return nil
}
