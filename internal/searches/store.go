package searches

import (
	"context"
	"strings"
	"sync"

	"Shelf/internal/kvstore"
)

const (
	KeyRecentSearches = "product-store-recent-searches"
	MaxRecent         = 10
)

// Store keeps recent search terms, most recent first, without duplicates.
type Store struct {
	kv *kvstore.Store

	mu    sync.Mutex
	terms []string
}

func Open(ctx context.Context, kv *kvstore.Store) *Store {
	return &Store{
		kv:    kv,
		terms: kvstore.Get[[]string](ctx, kv, KeyRecentSearches, nil),
	}
}

func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.terms...)
}

// Add records term in its trimmed form. Blank terms are ignored.
func (s *Store) Add(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]string, 0, MaxRecent)
	next = append(next, term)
	for _, t := range s.terms {
		if len(next) == MaxRecent {
			break
		}
		if t != term {
			next = append(next, t)
		}
	}

	s.terms = next
	s.kv.Set(ctx, KeyRecentSearches, s.terms)
}
