// Package state holds the application state: the catalog, favorites, search
// term and filter criteria, plus the derived view computed from them.
//
// Every action runs as one transition under the container lock. After the
// transition the view is recomputed with catalog.Project and the new snapshot
// is handed to every subscriber before the action returns.
package state

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Shelf/internal/catalog"
	"Shelf/internal/favorites"
	"Shelf/internal/searches"
)

// Source is the remote catalog.
type Source interface {
	FetchProducts(ctx context.Context) ([]catalog.Product, error)
}

type State struct {
	Items       []catalog.Product `json:"items"`
	View        []catalog.Product `json:"view"`
	Favorites   []catalog.Product `json:"favorites"`
	FavoriteIDs []int64           `json:"favoriteIds"`
	SearchTerm  string            `json:"searchTerm"`
	Criteria    catalog.Criteria  `json:"filters"`
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
	Fetched     bool              `json:"fetched"`
}

type FetchOutcome string

const (
	FetchSkipped FetchOutcome = "skipped"
	FetchApplied FetchOutcome = "applied"
	FetchFailed  FetchOutcome = "failed"
)

type Deps struct {
	Repo      *catalog.Repository
	Favorites *favorites.Store
	Searches  *searches.Store
	Source    Source
	Log       *zap.Logger
}

type Container struct {
	repo   *catalog.Repository
	favs   *favorites.Store
	recent *searches.Store
	source Source
	log    *zap.Logger

	mu         sync.Mutex
	searchTerm string
	criteria   catalog.Criteria
	pending    int
	fetchErr   string
	fetched    bool
	snap       State

	// pubMu keeps snapshots reaching subscribers in transition order.
	pubMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
	closed  bool
}

// New hydrates a container from the persisted catalog and favorites. It does
// not touch the network; call Fetch for that.
func New(ctx context.Context, deps Deps) *Container {
	c := &Container{
		repo:     deps.Repo,
		favs:     deps.Favorites,
		recent:   deps.Searches,
		source:   deps.Source,
		log:      deps.Log,
		criteria: catalog.DefaultCriteria(),
		subs:     map[int]func(State){},
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	items := c.repo.Load(ctx)
	c.criteria.PriceRange.High = catalog.PriceCeiling(items)
	c.fetched = c.repo.Fetched(ctx)
	c.recompute()

	c.log.Info("state hydrated",
		zap.Int("items", len(items)),
		zap.Int("favorites", len(c.favs.List())),
		zap.Bool("fetched", c.fetched),
	)
	return c
}

func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe registers fn for every future snapshot. fn runs synchronously
// inside the action that produced the snapshot and must not call actions on
// the container.
func (c *Container) Subscribe(fn func(State)) (unsubscribe func()) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	if c.closed {
		return func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.pubMu.Lock()
		defer c.pubMu.Unlock()
		delete(c.subs, id)
	}
}

// Close drops all subscribers. Actions keep working but publish to nobody.
func (c *Container) Close() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.closed = true
	c.subs = map[int]func(State){}
}

// mutate applies fn, recomputes the derived view and publishes it.
func (c *Container) mutate(fn func()) State {
	c.mu.Lock()
	fn()
	c.recompute()
	snap := c.snap

	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()

	for _, sub := range c.subs {
		sub(snap)
	}
	return snap
}

func (c *Container) recompute() {
	items := c.repo.Items()
	favIDs := c.favs.List()

	c.snap = State{
		Items:       items,
		View:        catalog.Project(items, c.searchTerm, c.criteria, favIDs),
		Favorites:   c.favs.ProjectAgainst(items),
		FavoriteIDs: favIDs,
		SearchTerm:  c.searchTerm,
		Criteria:    c.criteria,
		Loading:     c.pending > 0,
		Error:       c.fetchErr,
		Fetched:     c.fetched,
	}
}

// widenPriceCeiling keeps a just created or edited product visible under the
// active price filter.
func (c *Container) widenPriceCeiling(price float64) {
	if price > c.criteria.PriceRange.High {
		c.criteria.PriceRange.High = math.Ceil(price)
	}
}

func (c *Container) SetSearchTerm(ctx context.Context, term string) State {
	return c.mutate(func() {
		if strings.TrimSpace(term) != "" && term != c.searchTerm {
			c.recent.Add(ctx, term)
		}
		c.searchTerm = term
	})
}

func (c *Container) SetFilters(patch catalog.CriteriaPatch) State {
	return c.mutate(func() {
		c.criteria = patch.Apply(c.criteria)
	})
}

// ClearFilters restores the default criteria and clears the search term. The
// price ceiling is set high enough to show the whole catalog.
func (c *Container) ClearFilters() State {
	return c.mutate(func() {
		c.criteria = catalog.DefaultCriteria()
		c.criteria.PriceRange.High = catalog.PriceCeiling(c.repo.Items())
		c.searchTerm = ""
	})
}

// ToggleFavorite adds or removes id. Only adding requires id to be in the
// catalog; a favorite left behind by a deleted product can still be removed.
func (c *Container) ToggleFavorite(ctx context.Context, id int64) (State, error) {
	var err error
	s := c.mutate(func() {
		if !c.favs.Contains(id) {
			if _, ok := c.repo.Get(id); !ok {
				err = fmt.Errorf("%w: id=%d", catalog.ErrNotFound, id)
				return
			}
		}
		c.favs.Toggle(ctx, id)
	})
	return s, err
}

func (c *Container) ClearFavorites(ctx context.Context) State {
	return c.mutate(func() {
		c.favs.Clear(ctx)
	})
}

func (c *Container) CreateProduct(ctx context.Context, d catalog.Draft) (catalog.Product, State) {
	var p catalog.Product
	s := c.mutate(func() {
		p = c.repo.Create(ctx, d)
		c.widenPriceCeiling(p.Price)
	})
	c.log.Info("product created", zap.Int64("id", p.ID), zap.String("title", p.Title))
	return p, s
}

func (c *Container) UpdateProduct(ctx context.Context, id int64, d catalog.Draft) (catalog.Product, State, error) {
	var (
		p   catalog.Product
		err error
	)
	s := c.mutate(func() {
		p, err = c.repo.Update(ctx, id, d)
		if err == nil {
			c.widenPriceCeiling(p.Price)
		}
	})
	if err != nil {
		return catalog.Product{}, s, err
	}
	c.log.Info("product updated", zap.Int64("id", id))
	return p, s, nil
}

// DeleteProduct removes id from the catalog. Favorites pointing at it stay
// persisted and simply drop out of the favorite products.
func (c *Container) DeleteProduct(ctx context.Context, id int64) State {
	return c.mutate(func() {
		c.repo.Delete(ctx, id)
	})
}

// Fetch pulls the remote catalog unless it was already fetched into this
// store. Mutations made while the request is in flight apply right away; when
// several fetches overlap, the last one to finish wins.
func (c *Container) Fetch(ctx context.Context) (FetchOutcome, State, error) {
	if c.repo.Fetched(ctx) {
		c.log.Debug("remote catalog already fetched, skipping")
		s := c.mutate(func() { c.fetched = true })
		return FetchSkipped, s, nil
	}

	fetchID := uuid.NewString()
	log := c.log.With(zap.String("fetch_id", fetchID))
	log.Info("fetching remote catalog")

	c.mutate(func() { c.pending++ })

	remote, err := c.source.FetchProducts(ctx)

	if err != nil {
		log.Warn("remote catalog fetch failed", zap.Error(err))
		s := c.mutate(func() {
			c.pending--
			c.fetchErr = err.Error()
		})
		return FetchFailed, s, err
	}

	s := c.mutate(func() {
		c.pending--
		c.repo.MarkFetched(ctx)
		items := c.repo.ReplaceRemotePortion(ctx, remote)
		c.criteria.PriceRange.High = catalog.PriceCeiling(items)
		c.fetchErr = ""
		c.fetched = true
	})
	log.Info("remote catalog applied", zap.Int("remote", len(remote)), zap.Int("items", len(s.Items)))
	return FetchApplied, s, nil
}

// RetryFetch is the user initiated retry after a failed fetch.
func (c *Container) RetryFetch(ctx context.Context) (FetchOutcome, State, error) {
	return c.Fetch(ctx)
}

// ResetFetchFlag forgets that the remote catalog was fetched, so the next
// Fetch goes to the network again.
func (c *Container) ResetFetchFlag(ctx context.Context) State {
	return c.mutate(func() {
		c.repo.ClearFetched(ctx)
		c.fetched = false
	})
}
