package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Shelf/internal/catalog"
)

var (
	ErrBadStatus   = errors.New("catalog source bad status")
	ErrUnavailable = errors.New("catalog source unavailable")
	ErrNullBody    = errors.New("catalog source returned null")
)

// InStockRatio is the share of fetched products stamped as in stock. The
// upstream source has no stock data.
const InStockRatio = 0.9

const defaultTimeout = 10 * time.Second

type apiProduct struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Price       float64        `json:"price"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Image       string         `json:"image"`
	Rating      catalog.Rating `json:"rating"`
}

type Client struct {
	BaseURL string
	Client  *http.Client

	// Roll returns a number in [0, 1) used to stamp the stock flag.
	Roll func() float64
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Roll:    rand.Float64,
	}
}

// FetchProducts downloads the full remote catalog. Every product comes back
// marked as remote with a random stock flag.
func (c *Client) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	var raw []apiProduct
	if err := c.getJSON(ctx, "/products", &raw); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("fetch products: %w", ErrNullBody)
	}

	out := make([]catalog.Product, 0, len(raw))
	for _, p := range raw {
		inStock := c.Roll() < InStockRatio
		out = append(out, catalog.Product{
			ID:          p.ID,
			Title:       p.Title,
			Price:       p.Price,
			Description: p.Description,
			Category:    p.Category,
			Image:       p.Image,
			Rating:      p.Rating,
			InStock:     &inStock,
			IsCustom:    false,
		})
	}
	return out, nil
}

func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "/products/categories", &out); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("fetch categories: %w", ErrNullBody)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
