package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Shelf/internal/catalog"
)

const productsJSON = `[
	{"id":1,"title":"Backpack","price":109.95,"description":"Fits laptops","category":"men's clothing","image":"https://img/1.jpg","rating":{"rate":3.9,"count":120}},
	{"id":2,"title":"Shirt","price":22.3,"description":"Slim fit","category":"men's clothing","image":"https://img/2.jpg","rating":{"rate":4.1,"count":259}}
]`

func newUpstream(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_FetchProducts(t *testing.T) {
	ts := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(productsJSON))
	})

	rolls := []float64{0.5, 0.95}
	c := NewClient(ts.URL+"/", time.Second)
	c.Roll = func() float64 {
		v := rolls[0]
		rolls = rolls[1:]
		return v
	}

	got, err := c.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Backpack", got[0].Title)
	assert.Equal(t, catalog.Rating{Rate: 3.9, Count: 120}, got[0].Rating)
	assert.False(t, got[0].IsCustom)
	assert.Nil(t, got[0].CreatedAt)
	require.NotNil(t, got[0].InStock)
	assert.True(t, *got[0].InStock)
	require.NotNil(t, got[1].InStock)
	assert.False(t, *got[1].InStock)
}

func TestClient_FetchProductsStockRatio(t *testing.T) {
	ts := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(productsJSON))
	})
	c := NewClient(ts.URL, time.Second)

	inStock := 0
	for i := 0; i < 500; i++ {
		got, err := c.FetchProducts(context.Background())
		require.NoError(t, err)
		for _, p := range got {
			if *p.InStock {
				inStock++
			}
		}
	}
	ratio := float64(inStock) / 1000
	assert.InDelta(t, InStockRatio, ratio, 0.05)
}

func TestClient_FetchCategories(t *testing.T) {
	ts := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/categories", r.URL.Path)
		_, _ = w.Write([]byte(`["electronics","jewelery"]`))
	})

	got, err := NewClient(ts.URL, time.Second).FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "jewelery"}, got)
}

func TestClient_Errors(t *testing.T) {
	t.Run("BadStatus", func(t *testing.T) {
		ts := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := NewClient(ts.URL, time.Second).FetchProducts(context.Background())
		assert.ErrorIs(t, err, ErrBadStatus)
		assert.Contains(t, err.Error(), "status=503")
	})

	t.Run("Unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		_, err := NewClient(url, time.Second).FetchProducts(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("Timeout", func(t *testing.T) {
		ts := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`[]`))
		})
		_, err := NewClient(ts.URL, 20*time.Millisecond).FetchProducts(context.Background())
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		ts := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"not":"an array"}`))
		})
		_, err := NewClient(ts.URL, time.Second).FetchProducts(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
		assert.NotErrorIs(t, err, ErrBadStatus)
	})

	t.Run("NullBody", func(t *testing.T) {
		ts := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("null"))
		})
		c := NewClient(ts.URL, time.Second)

		_, err := c.FetchProducts(context.Background())
		assert.ErrorIs(t, err, ErrNullBody)

		_, err = c.FetchCategories(context.Background())
		assert.ErrorIs(t, err, ErrNullBody)
	})

	t.Run("EmptyArrayIsValid", func(t *testing.T) {
		ts := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("[]"))
		})

		got, err := NewClient(ts.URL, time.Second).FetchProducts(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
