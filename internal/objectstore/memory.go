package objectstore

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	k, err := objectKey("", key)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[k] = append([]byte(nil), body...)
	s.mu.Unlock()
	return "mem://" + k, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	k, err := objectKey("", key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.objects[k]
	if !ok {
		return nil, fmt.Errorf("%s: %w", k, ErrObjectNotFound)
	}
	return append([]byte(nil), v...), nil
}
