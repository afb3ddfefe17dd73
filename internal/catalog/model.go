// Package catalog provides the product model and SQLite-backed catalog
// store for the product wall.
package catalog

import (
	"errors"

	"github.com/onnwee/productwall/internal/ranking"
	"github.com/onnwee/productwall/internal/validate"
)

// Common errors for catalog operations.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// MaxSearchLength bounds free-text search input.
const MaxSearchLength = 100

// ErrSearchTooLong indicates a search string above MaxSearchLength.
var ErrSearchTooLong = errors.New("search query too long")

// Product is one catalog record as the engine consumes it: named, typed
// fields with explicit defaults instead of loose row maps. Metric channels
// absent from the feed read as zero.
type Product struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	OldPrice      float64         `json:"oldprice"`
	DiscountPct   float64         `json:"discount"`
	Gender        string          `json:"gender"`
	ImageURL      string          `json:"image_url"`
	Available     bool            `json:"available"`
	SaleStartDate string          `json:"sale_start_date"`
	Metrics       ranking.Metrics `json:"metrics"`
	Categories    []int64         `json:"categories,omitempty"`
}

// Category is one merchandising category.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Filter narrows the candidate set for one ranking pass.
// The zero value means "everything with a price".
type Filter struct {
	// CategoryID filters to one category; 0 means all categories.
	CategoryID int64

	// HideNoPrice excludes products without a positive price.
	HideNoPrice bool

	// Search matches name or SKU as a case-insensitive substring.
	Search string

	// Gender filters on the product gender label; empty means all.
	Gender string

	// SKU filters to one exact SKU.
	SKU string
}

// Validate checks filter limits. Search input is bounded; everything else
// is matched literally via bound parameters.
func (f *Filter) Validate() error {
	search, err := validate.SearchTerm(f.Search)
	if err != nil {
		return ErrSearchTooLong
	}
	f.Search = search
	return nil
}
