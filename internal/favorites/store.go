// Package favorites keeps the set of favorited product ids. It trusts the
// catalog for product data and never validates ids on its own.
package favorites

import (
	"context"
	"sync"

	"Shelf/internal/catalog"
	"Shelf/internal/kvstore"
)

const KeyFavorites = "product-store-favorites"

type Store struct {
	kv *kvstore.Store

	mu  sync.RWMutex
	ids []int64
}

// Open loads the persisted favorite ids.
func Open(ctx context.Context, kv *kvstore.Store) *Store {
	return &Store{
		kv:  kv,
		ids: dedupe(kvstore.Get[[]int64](ctx, kv, KeyFavorites, nil)),
	}
}

// List returns the favorite ids in the order they were added.
func (s *Store) List() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64{}, s.ids...)
}

func (s *Store) Contains(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.ids, id) >= 0
}

// Toggle adds id when absent and removes it when present.
func (s *Store) Toggle(ctx context.Context, id int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.ids, id); i >= 0 {
		s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
	} else {
		s.ids = append(s.ids, id)
	}
	s.kv.Set(ctx, KeyFavorites, s.ids)
	return append([]int64{}, s.ids...)
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = []int64{}
	s.kv.Set(ctx, KeyFavorites, s.ids)
}

// ProjectAgainst returns the favorited items of items, in catalog order. Ids
// with no matching product are skipped but stay in the set.
func (s *Store) ProjectAgainst(items []catalog.Product) []catalog.Product {
	s.mu.RLock()
	set := make(map[int64]struct{}, len(s.ids))
	for _, id := range s.ids {
		set[id] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]catalog.Product, 0, len(set))
	for _, p := range items {
		if _, ok := set[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if indexOf(out, id) < 0 {
			out = append(out, id)
		}
	}
	return out
}
