package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"medication-adherence/internal/ports/kvstore"
)

type kvStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewKVStore es el store en memoria: modo dev y tests. No sobrevive al proceso.
func NewKVStore() kvstore.Store {
	return &kvStore{
		data: make(map[string]string),
	}
}

func (s *kvStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	return v, ok, nil
}

func (s *kvStore) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}
