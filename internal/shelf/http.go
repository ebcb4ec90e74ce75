// Package shelf exposes the application state container over HTTP.
package shelf

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Shelf/internal/catalog"
	"Shelf/internal/searches"
	"Shelf/internal/state"
	"Shelf/pkg/kit"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type CategorySource interface {
	FetchCategories(ctx context.Context) ([]string, error)
}

type Server struct {
	State    *state.Container
	Searches *searches.Store
	Remote   CategorySource
	Store    Pinger
	Log      *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/state", s.snapshot)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.Post("/", s.createProduct)
		r.Get("/{id}", s.getProduct)
		r.Put("/{id}", s.updateProduct)
		r.Delete("/{id}", s.deleteProduct)
	})

	r.Put("/search", s.setSearch)
	r.Get("/searches/recent", s.recentSearches)

	r.Patch("/filters", s.setFilters)
	r.Delete("/filters", s.clearFilters)

	r.Get("/favorites", s.listFavorites)
	r.Delete("/favorites", s.clearFavorites)
	r.Post("/favorites/{id}/toggle", s.toggleFavorite)

	r.Post("/fetch", s.fetch)
	r.Delete("/fetch", s.resetFetch)

	r.Get("/categories", s.categories)

	return r
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

func (s *Server) snapshot(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.State.State())
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.State.State().View)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	for _, p := range s.State.State().Items {
		if p.ID == id {
			kit.WriteJSON(w, http.StatusOK, p)
			return
		}
	}
	kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
}

// readForm decodes and validates a product form. It writes the error
// response itself and reports whether the handler may continue.
func readForm(w http.ResponseWriter, r *http.Request) (catalog.Draft, bool) {
	var in catalog.FormInput
	if !kit.DecodeJSON(w, r, &in) {
		return catalog.Draft{}, false
	}

	d, err := catalog.Validate(in)
	if err == nil {
		return d, true
	}

	var fe catalog.FieldErrors
	if errors.As(err, &fe) {
		kit.WriteError(w, r, http.StatusUnprocessableEntity, "validation failed", fe)
	} else {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product form", map[string]any{"reason": err.Error()})
	}
	return catalog.Draft{}, false
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	d, ok := readForm(w, r)
	if !ok {
		return
	}

	p, _ := s.State.CreateProduct(r.Context(), d)
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	d, ok := readForm(w, r)
	if !ok {
		return
	}

	p, _, err := s.State.UpdateProduct(r.Context(), id, d)
	if errors.Is(err, catalog.ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	s.State.DeleteProduct(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

type searchRequest struct {
	Term string `json:"term"`
}

func (s *Server) setSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !kit.DecodeJSON(w, r, &req) {
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.State.SetSearchTerm(r.Context(), req.Term))
}

func (s *Server) recentSearches(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Searches.List())
}

func (s *Server) setFilters(w http.ResponseWriter, r *http.Request) {
	var patch catalog.CriteriaPatch
	if !kit.DecodeJSON(w, r, &patch) {
		return
	}

	bad := map[string]any{}
	if patch.SortBy != nil && !patch.SortBy.Valid() {
		bad["sortBy"] = *patch.SortBy
	}
	if patch.Stock != nil && !patch.Stock.Valid() {
		bad["stock"] = *patch.Stock
	}
	if patch.PriceRange != nil && patch.PriceRange.Low > patch.PriceRange.High {
		bad["priceRange"] = *patch.PriceRange
	}
	if len(bad) > 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid filters", bad)
		return
	}

	kit.WriteJSON(w, http.StatusOK, s.State.SetFilters(patch))
}

func (s *Server) clearFilters(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.State.ClearFilters())
}

func (s *Server) listFavorites(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.State.State().Favorites)
}

func (s *Server) clearFavorites(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.State.ClearFavorites(r.Context()))
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	st, err := s.State.ToggleFavorite(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, st)
}

type fetchResponse struct {
	Outcome state.FetchOutcome `json:"outcome"`
	State   state.State        `json:"state"`
}

// fetch runs the user initiated retry. A failed fetch answers 502 but the
// catalog already held stays available.
func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	outcome, st, err := s.State.RetryFetch(r.Context())
	if err != nil {
		kit.WriteError(w, r, http.StatusBadGateway, "remote catalog unavailable", map[string]any{
			"reason": err.Error(),
			"items":  len(st.Items),
		})
		return
	}
	kit.WriteJSON(w, http.StatusOK, fetchResponse{Outcome: outcome, State: st})
}

func (s *Server) resetFetch(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.State.ResetFetchFlag(r.Context()))
}

type categoryView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func categoryViews(values []string) []categoryView {
	out := make([]categoryView, 0, len(values))
	for _, v := range values {
		out = append(out, categoryView{Value: v, Label: catalog.FormatCategory(v)})
	}
	return out
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") != "remote" {
		kit.WriteJSON(w, http.StatusOK, categoryViews(catalog.UniqueCategories(s.State.State().Items)))
		return
	}

	values, err := s.Remote.FetchCategories(r.Context())
	if err != nil {
		s.logger().Warn("fetch categories failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusBadGateway, "remote catalog unavailable", map[string]any{"reason": err.Error()})
		return
	}
	kit.WriteJSON(w, http.StatusOK, categoryViews(values))
}
