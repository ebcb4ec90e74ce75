package catalog

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortMode string

const (
	SortTitle     SortMode = "title"
	SortPriceAsc  SortMode = "price-asc"
	SortPriceDesc SortMode = "price-desc"
	SortRating    SortMode = "rating"
	SortNewest    SortMode = "newest"
)

func (m SortMode) Valid() bool {
	switch m {
	case SortTitle, SortPriceAsc, SortPriceDesc, SortRating, SortNewest:
		return true
	}
	return false
}

type StockFilter string

const (
	StockAny        StockFilter = "any"
	StockInStock    StockFilter = "in-stock"
	StockOutOfStock StockFilter = "out-of-stock"
)

func (s StockFilter) Valid() bool {
	switch s {
	case StockAny, StockInStock, StockOutOfStock, "":
		return true
	}
	return false
}

type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (r PriceRange) Contains(price float64) bool {
	return price >= r.Low && price <= r.High
}

// DefaultPriceCeiling is the upper price bound used when nothing in the
// catalog is more expensive.
const DefaultPriceCeiling = 1000

type Criteria struct {
	Category      string      `json:"category"`
	PriceRange    PriceRange  `json:"priceRange"`
	MinRating     float64     `json:"rating"`
	Stock         StockFilter `json:"stock"`
	SortBy        SortMode    `json:"sortBy"`
	FavoritesOnly bool        `json:"favoritesOnly"`
}

func DefaultCriteria() Criteria {
	return Criteria{
		PriceRange: PriceRange{Low: 0, High: DefaultPriceCeiling},
		Stock:      StockAny,
		SortBy:     SortTitle,
	}
}

// CriteriaPatch carries a partial criteria update; nil fields are left as is.
type CriteriaPatch struct {
	Category      *string      `json:"category,omitempty"`
	PriceRange    *PriceRange  `json:"priceRange,omitempty"`
	MinRating     *float64     `json:"rating,omitempty"`
	Stock         *StockFilter `json:"stock,omitempty"`
	SortBy        *SortMode    `json:"sortBy,omitempty"`
	FavoritesOnly *bool        `json:"favoritesOnly,omitempty"`
}

func (p CriteriaPatch) Apply(c Criteria) Criteria {
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.PriceRange != nil {
		c.PriceRange = *p.PriceRange
	}
	if p.MinRating != nil {
		c.MinRating = *p.MinRating
	}
	if p.Stock != nil {
		c.Stock = *p.Stock
	}
	if p.SortBy != nil {
		c.SortBy = *p.SortBy
	}
	if p.FavoritesOnly != nil {
		c.FavoritesOnly = *p.FavoritesOnly
	}
	return c
}

// Project filters and sorts items into a new slice. It never modifies items.
func Project(items []Product, searchTerm string, c Criteria, favoriteIDs []int64) []Product {
	var favs map[int64]struct{}
	if c.FavoritesOnly {
		favs = make(map[int64]struct{}, len(favoriteIDs))
		for _, id := range favoriteIDs {
			favs[id] = struct{}{}
		}
	}

	query := ""
	if strings.TrimSpace(searchTerm) != "" {
		query = strings.ToLower(searchTerm)
	}

	out := make([]Product, 0, len(items))
	for _, p := range items {
		if c.FavoritesOnly {
			if _, ok := favs[p.ID]; !ok {
				continue
			}
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		if c.Category != "" && p.Category != c.Category {
			continue
		}
		if !c.PriceRange.Contains(p.Price) {
			continue
		}
		if c.MinRating > 0 && p.Rating.Rate < c.MinRating {
			continue
		}
		switch c.Stock {
		case StockInStock:
			if !p.Available() {
				continue
			}
		case StockOutOfStock:
			if p.Available() {
				continue
			}
		}
		out = append(out, p)
	}

	sortProducts(out, c.SortBy)
	return out
}

func matchesQuery(p Product, query string) bool {
	return strings.Contains(strings.ToLower(p.Title), query) ||
		strings.Contains(strings.ToLower(p.Description), query) ||
		strings.Contains(strings.ToLower(p.Category), query)
}

func sortProducts(ps []Product, mode SortMode) {
	switch mode {
	case SortTitle:
		// Collators keep internal buffers, so each call gets its own.
		col := collate.New(language.English)
		sort.SliceStable(ps, func(i, j int) bool {
			return col.CompareString(ps[i].Title, ps[j].Title) < 0
		})
	case SortPriceAsc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price < ps[j].Price })
	case SortPriceDesc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price > ps[j].Price })
	case SortRating:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Rating.Rate > ps[j].Rating.Rate })
	case SortNewest:
		sort.SliceStable(ps, func(i, j int) bool {
			if ps[i].IsCustom != ps[j].IsCustom {
				return ps[i].IsCustom
			}
			return ps[i].ID > ps[j].ID
		})
	}
}

func UniqueCategories(items []Product) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, 8)
	for _, p := range items {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// MaxPrice returns the highest price in items, or DefaultPriceCeiling for an
// empty catalog.
func MaxPrice(items []Product) float64 {
	if len(items) == 0 {
		return DefaultPriceCeiling
	}
	max := items[0].Price
	for _, p := range items[1:] {
		if p.Price > max {
			max = p.Price
		}
	}
	return max
}

// PriceCeiling is the upper price bound that shows every item in the catalog.
func PriceCeiling(items []Product) float64 {
	return math.Ceil(math.Max(MaxPrice(items), DefaultPriceCeiling))
}

// FormatCategory upper-cases the first letter of every word.
func FormatCategory(category string) string {
	words := strings.Split(category, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
