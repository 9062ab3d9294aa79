package gifp4

import (
	"context"
	"sync"
)

// MemoryStore is a Store held in process memory. Its contents are lost on exit,
// it is meant for tests and throwaway instances.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// compile-time assertion that we implement Store
var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (m *MemoryStore) TryClaim(ctx context.Context, key []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[string(key)]; ok {
		return false, nil
	}
	m.data[string(key)] = []byte{}
	return true, nil
}

func (m *MemoryStore) ApplyBatch(ctx context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		m.data[string(w.Key)] = append([]byte{}, w.Value...)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
