package catalog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog item. IsCustom marks locally created items; remote
// items never carry timestamps.
type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Price       float64    `json:"price"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Image       string     `json:"image"`
	Rating      Rating     `json:"rating"`
	InStock     *bool      `json:"inStock,omitempty"`
	IsCustom    bool       `json:"isCustom"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Available reports the effective stock state. A product without a stock
// flag counts as in stock.
func (p Product) Available() bool {
	return p.InStock == nil || *p.InStock
}

var APICategories = []string{
	"electronics",
	"jewelery",
	"men's clothing",
	"women's clothing",
}

var ProductCategories = append(append([]string{}, APICategories...),
	"books",
	"health & beauty",
	"automotive",
	"toys & games",
)

func IsProductCategory(c string) bool {
	for _, v := range ProductCategories {
		if v == c {
			return true
		}
	}
	return false
}

func cloneProducts(in []Product) []Product {
	out := make([]Product, len(in))
	copy(out, in)
	return out
}

func boolPtr(v bool) *bool { return &v }
