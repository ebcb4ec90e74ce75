package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"Shelf/internal/kvstore"
)

const (
	KeyProducts   = "product-store-products"
	KeyAPIFetched = "product-store-api-fetched"
)

// Repository owns the product collection: remote items merged with locally
// created ones. Every mutation is written through to the store.
type Repository struct {
	store *kvstore.Store
	log   *zap.Logger
	now   func() time.Time

	mu     sync.RWMutex
	items  []Product
	lastID int64
}

type RepositoryOption func(*Repository)

func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) { r.now = now }
}

func WithLogger(log *zap.Logger) RepositoryOption {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

func NewRepository(store *kvstore.Store, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory collection with the persisted one.
func (r *Repository) Load(ctx context.Context) []Product {
	items := kvstore.Get[[]Product](ctx, r.store, KeyProducts, nil)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = items
	for _, p := range items {
		if p.IsCustom && p.ID > r.lastID {
			r.lastID = p.ID
		}
	}
	return cloneProducts(r.items)
}

func (r *Repository) Items() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneProducts(r.items)
}

func (r *Repository) Get(id int64) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return Product{}, false
	}
	return r.items[i], true
}

// ReplaceRemotePortion drops every remote item, puts remote in front and keeps
// the local items after it. Remote items clashing with a kept id are skipped.
func (r *Repository) ReplaceRemotePortion(ctx context.Context, remote []Product) []Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	local := make([]Product, 0, len(r.items))
	seen := make(map[int64]struct{}, len(r.items)+len(remote))
	for _, p := range r.items {
		if p.IsCustom {
			local = append(local, p)
			seen[p.ID] = struct{}{}
		}
	}

	merged := make([]Product, 0, len(remote)+len(local))
	for _, p := range remote {
		if _, dup := seen[p.ID]; dup {
			r.log.Warn("skipping remote product with duplicate id", zap.Int64("id", p.ID))
			continue
		}
		seen[p.ID] = struct{}{}
		p.IsCustom = false
		merged = append(merged, p)
	}
	merged = append(merged, local...)

	r.items = merged
	r.persist(ctx)
	return cloneProducts(r.items)
}

func (r *Repository) Create(ctx context.Context, d Draft) Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	p := Product{
		ID:          r.nextID(now),
		Title:       d.Title,
		Price:       d.Price,
		Description: d.Description,
		Category:    d.Category,
		Image:       d.Image,
		Rating:      Rating{},
		InStock:     boolPtr(d.InStock),
		IsCustom:    true,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}

	r.items = append([]Product{p}, r.items...)
	r.persist(ctx)
	return p
}

func (r *Repository) Update(ctx context.Context, id int64, d Draft) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return Product{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}

	now := r.now().UTC()
	p := r.items[i]
	p.Title = d.Title
	p.Description = d.Description
	p.Price = d.Price
	p.Category = d.Category
	p.Image = d.Image
	p.InStock = boolPtr(d.InStock)
	p.UpdatedAt = &now

	r.items[i] = p
	r.persist(ctx)
	return p, nil
}

// Delete removes the product with id. A missing id is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(id); i >= 0 {
		r.items = append(r.items[:i:i], r.items[i+1:]...)
	}
	r.persist(ctx)
}

// Fetched reports whether the remote catalog was already pulled into this
// store. The flag gates every further remote fetch.
func (r *Repository) Fetched(ctx context.Context) bool {
	return kvstore.Get(ctx, r.store, KeyAPIFetched, false)
}

func (r *Repository) MarkFetched(ctx context.Context) {
	r.store.Set(ctx, KeyAPIFetched, true)
}

func (r *Repository) ClearFetched(ctx context.Context) {
	r.store.Remove(ctx, KeyAPIFetched)
}

// nextID returns a millisecond timestamp id, bumped past the last issued id
// and past any id already in the collection.
func (r *Repository) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	for r.indexOf(id) >= 0 {
		id++
	}
	r.lastID = id
	return id
}

func (r *Repository) indexOf(id int64) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) persist(ctx context.Context) {
	r.store.Set(ctx, KeyProducts, r.items)
}
