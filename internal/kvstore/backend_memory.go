package kvstore

import (
	"context"
	"sync"
)

type MemBackend struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemBackend() *MemBackend {
	return &MemBackend{m: map[string][]byte{}}
}

func (b *MemBackend) Read(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (b *MemBackend) Write(_ context.Context, key string, val []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = append([]byte(nil), val...)
	return nil
}

func (b *MemBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
	return nil
}

func (b *MemBackend) Ping(context.Context) error { return nil }

func (b *MemBackend) Close() error { return nil }
