package objectstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests, grounded on manifold's
// internal/objectstore/memory.go (mutex-guarded map of objects), adapted to
// the write-once PutIfAbsent contract.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	attrs   map[string]ObjectAttrs
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		attrs:   make(map[string]ObjectAttrs),
	}
}

func (m *MemoryStore) uri(key string) string {
	return "mem://" + key
}

// PutIfAbsent stores data at key unless it is already present.
func (m *MemoryStore) PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return m.uri(key), nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	m.attrs[key] = ObjectAttrs{
		Key:          key,
		Size:         int64(len(cp)),
		LastModified: time.Now().UTC(),
		ContentType:  contentType,
	}
	return m.uri(key), nil
}

// Get reads the bytes stored at key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Exists reports whether key is present.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Head returns stored metadata for key.
func (m *MemoryStore) Head(ctx context.Context, key string) (ObjectAttrs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attrs[key]
	if !ok {
		return ObjectAttrs{}, ErrNotFound
	}
	return a, nil
}

// SignedURL returns the synthetic in-memory URI; expires is ignored since
// there is nothing to sign.
func (m *MemoryStore) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	exists, err := m.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrNotFound
	}
	return m.uri(key), nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*LocalStore)(nil)
var _ Store = (*S3Store)(nil)
