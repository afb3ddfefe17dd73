// Package wall orchestrates one ranking pass over the product catalog:
// resolve the active weight configuration, collect candidates and curator
// overrides, score and rank them, and cut the requested page.
package wall

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/onnwee/productwall/internal/catalog"
	"github.com/onnwee/productwall/internal/override"
	"github.com/onnwee/productwall/internal/ranking"
	"github.com/onnwee/productwall/internal/weights"
)

// Catalog is the candidate source for ranking passes.
type Catalog interface {
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	MissingSKUs(ctx context.Context, skus []string) ([]string, error)
	InCategory(ctx context.Context, sku string, categoryID int64) (bool, error)
}

// WeightSource resolves the active weight configuration.
type WeightSource interface {
	Latest(ctx context.Context) (weights.Record, error)
}

// Overrides is the curator override store as the service consumes it.
type Overrides interface {
	PositionsByCategory(ctx context.Context, categoryID int64) (map[string]int, error)
	Set(ctx context.Context, o override.Override) error
	SetAll(ctx context.Context, overrides []override.Override) error
	ResetCategory(ctx context.Context, categoryID int64) (int, error)
}

// Service runs ranking passes and manages overrides.
type Service struct {
	catalog   Catalog
	weights   WeightSource
	overrides Overrides
	calc      *ranking.Calculator
	metrics   *Metrics
	logger    *slog.Logger
}

// New creates a wall service. metrics may be nil to disable instrumentation.
func New(cat Catalog, ws WeightSource, ovr Overrides, calc *ranking.Calculator, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:   cat,
		weights:   ws,
		overrides: ovr,
		calc:      calc,
		metrics:   metrics,
		logger:    logger,
	}
}

// Query describes one wall request.
type Query struct {
	Filter  catalog.Filter
	OrderBy ranking.OrderBy
	Page    ranking.PageRequest
}

// Item is one ranked product with its catalog record attached.
type Item struct {
	catalog.Product
	Score    float64 `json:"score"`
	Position *int    `json:"position,omitempty"`
	Rank     int     `json:"rank"`
}

// PageResult is one page of the ranked wall.
type PageResult struct {
	Products   []Item `json:"products"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	WeightsID  int64  `json:"weights_id"`
}

// Wall executes one ranking pass. The weight configuration and overrides
// are read once at the start, so a concurrent update cannot produce a page
// ranked under two different configurations.
func (s *Service) Wall(ctx context.Context, q Query) (*PageResult, error) {
	start := time.Now()
	res, err := s.wall(ctx, q)
	if s.metrics != nil {
		status := StatusSuccess
		scored := 0
		if err != nil {
			status = StatusFailure
		} else {
			scored = res.Total
		}
		s.metrics.ObserveRankPass(string(s.calc.Params().Mode), status, time.Since(start).Seconds(), scored)
	}
	return res, err
}

func (s *Service) wall(ctx context.Context, q Query) (*PageResult, error) {
	rec, err := s.weights.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve weights: %w", err)
	}

	var positions map[string]int
	if q.Filter.CategoryID != 0 {
		positions, err = s.overrides.PositionsByCategory(ctx, q.Filter.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("resolve overrides: %w", err)
		}
	}

	products, err := s.catalog.List(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	candidates := buildCandidates(products, positions)
	bySKU := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		bySKU[p.SKU] = p
	}

	entries := s.calc.Rank(candidates, ranking.RankRequest{
		Weights:     rec.Config,
		Categorized: q.Filter.CategoryID != 0,
		OrderBy:     q.OrderBy,
	})

	page, err := ranking.Paginate(entries, q.Page)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(page.Items))
	for i, e := range page.Items {
		items[i] = Item{
			Product:  bySKU[e.SKU],
			Score:    e.Score,
			Position: e.Position,
			Rank:     e.Rank,
		}
	}

	s.logger.Debug("ranking pass complete",
		"category_id", q.Filter.CategoryID,
		"candidates", len(candidates),
		"page", page.Page,
		"weights_id", rec.ID)

	return &PageResult{
		Products:   items,
		Page:       page.Page,
		PerPage:    page.PerPage,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		WeightsID:  rec.ID,
	}, nil
}

// SetOverride validates that the SKU belongs to the category and upserts
// the override.
func (s *Service) SetOverride(ctx context.Context, o override.Override) error {
	if err := o.Validate(); err != nil {
		return err
	}
	in, err := s.catalog.InCategory(ctx, o.SKU, o.CategoryID)
	if err != nil {
		return err
	}
	if !in {
		return catalog.ErrProductNotFound
	}
	return s.overrides.Set(ctx, o)
}

// SetOverrides applies a batch atomically. Every SKU must exist in the
// catalog; a batch with any unknown SKU is rejected whole, with all of
// them named in the error.
func (s *Service) SetOverrides(ctx context.Context, overrides []override.Override) error {
	for _, o := range overrides {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("override %s: %w", o.SKU, err)
		}
	}
	missing, err := s.catalog.MissingSKUs(ctx, override.DedupeSKUs(overrides))
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &override.MissingSKUsError{SKUs: missing}
	}
	return s.overrides.SetAll(ctx, overrides)
}

// ResetCategory drops every override in a category.
func (s *Service) ResetCategory(ctx context.Context, categoryID int64) (int, error) {
	return s.overrides.ResetCategory(ctx, categoryID)
}

func buildCandidates(products []catalog.Product, positions map[string]int) []ranking.Candidate {
	candidates := make([]ranking.Candidate, len(products))
	for i, p := range products {
		c := ranking.Candidate{
			SKU:         p.SKU,
			Metrics:     p.Metrics,
			DiscountPct: p.DiscountPct,
			SaleStart:   p.SaleStartDate,
			Available:   p.Available,
		}
		if pos, ok := positions[p.SKU]; ok {
			c.Position = &pos
		}
		candidates[i] = c
	}
	return candidates
}

// ExportOverridesCSV writes every product of a category as CSV in the
// current ranking order: curated rows first by position, then the rest by
// computed rank with an empty position cell. The file edits and re-imports
// cleanly since blank positions are skipped on parse.
func (s *Service) ExportOverridesCSV(ctx context.Context, w io.Writer, categoryID int64) error {
	rec, err := s.weights.Latest(ctx)
	if err != nil {
		return fmt.Errorf("resolve weights: %w", err)
	}
	positions, err := s.overrides.PositionsByCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("resolve overrides: %w", err)
	}
	products, err := s.catalog.List(ctx, catalog.Filter{CategoryID: categoryID})
	if err != nil {
		return fmt.Errorf("list category products: %w", err)
	}

	entries := s.calc.Rank(buildCandidates(products, positions), ranking.RankRequest{
		Weights:     rec.Config,
		Categorized: true,
	})

	rows := make([]override.CSVRow, len(entries))
	for i, e := range entries {
		rows[i] = override.CSVRow{SKU: e.SKU, Position: e.Position}
	}
	return override.WriteCSV(w, rows)
}

// ImportOverridesCSV parses an override CSV for one category and applies
// it atomically. Returns the number of applied overrides.
func (s *Service) ImportOverridesCSV(ctx context.Context, r io.Reader, categoryID int64) (int, error) {
	parsed, err := override.ParseCSV(r, categoryID)
	if err != nil {
		s.countImport(StatusFailure)
		return 0, err
	}
	if err := s.SetOverrides(ctx, parsed); err != nil {
		s.countImport(StatusFailure)
		return 0, err
	}
	s.countImport(StatusSuccess)
	return len(parsed), nil
}

func (s *Service) countImport(status string) {
	if s.metrics != nil {
		s.metrics.IncOverrideImports(status)
	}
}
