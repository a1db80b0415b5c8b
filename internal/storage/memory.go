package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mutex  sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string][]byte{}}
}

// Get returns a copy of the value stored under key.
func (store *MemoryStore) Get(executionContext context.Context, key string) ([]byte, bool, error) {
	if keyError := validateKey(key); keyError != nil {
		return nil, false, keyError
	}

	store.mutex.RLock()
	defer store.mutex.RUnlock()

	value, exists := store.values[key]
	if !exists {
		return nil, false, nil
	}
	return append([]byte{}, value...), true, nil
}

// Set stores a copy of value under key.
func (store *MemoryStore) Set(executionContext context.Context, key string, value []byte) error {
	if keyError := validateKey(key); keyError != nil {
		return keyError
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.values[key] = append([]byte{}, value...)
	return nil
}

// Close is a no-op for MemoryStore.
func (store *MemoryStore) Close() error {
	return nil
}
