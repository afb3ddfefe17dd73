// Package override manages curator-assigned positions within a category.
// Overrides pin a product to a slot on the wall regardless of its computed
// score; they never change the score itself.
package override

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/onnwee/productwall/internal/validate"
)

// ErrInvalidPosition indicates a position below 1.
var ErrInvalidPosition = errors.New("position must be a positive integer")

// MissingSKUsError reports every unknown SKU in a rejected batch, so a
// curator can fix the whole file in one pass instead of one SKU at a time.
type MissingSKUsError struct {
	SKUs []string
}

func (e *MissingSKUsError) Error() string {
	return fmt.Sprintf("unknown skus: %s", strings.Join(e.SKUs, ", "))
}

// Override pins one SKU to a position within one category.
type Override struct {
	SKU        string `json:"sku"`
	CategoryID int64  `json:"category_id"`
	Position   int    `json:"position"`
}

// Validate checks a single override record.
func (o Override) Validate() error {
	if _, err := validate.SKU(o.SKU); err != nil {
		return fmt.Errorf("invalid sku %q: %w", o.SKU, err)
	}
	if o.Position < 1 {
		return ErrInvalidPosition
	}
	return nil
}

// Store persists manual overrides.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates an override store on top of an open database handle.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Set inserts or replaces one override. Last writer wins per
// (sku, category) pair.
func (s *Store) Set(ctx context.Context, o Override) error {
	if err := o.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_order (sku, category_id, position, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sku, category_id) DO UPDATE SET
			position = excluded.position,
			updated_at = excluded.updated_at
	`, o.SKU, o.CategoryID, o.Position, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set override %s/%d: %w", o.SKU, o.CategoryID, err)
	}
	return nil
}

// SetAll replaces a batch of overrides in one transaction. Either every
// record applies or none does.
func (s *Store) SetAll(ctx context.Context, overrides []Override) error {
	for _, o := range overrides {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("override %s: %w", o.SKU, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, o := range overrides {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO category_order (sku, category_id, position, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(sku, category_id) DO UPDATE SET
				position = excluded.position,
				updated_at = excluded.updated_at
		`, o.SKU, o.CategoryID, o.Position, now); err != nil {
			return fmt.Errorf("set override %s/%d: %w", o.SKU, o.CategoryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("overrides applied", "count", len(overrides))
	return nil
}

// Delete removes one override. Deleting an absent override is not an error.
func (s *Store) Delete(ctx context.Context, sku string, categoryID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM category_order WHERE sku = ? AND category_id = ?`,
		sku, categoryID)
	if err != nil {
		return fmt.Errorf("delete override %s/%d: %w", sku, categoryID, err)
	}
	return nil
}

// ResetCategory removes every override in a category and returns how many
// rows were deleted.
func (s *Store) ResetCategory(ctx context.Context, categoryID int64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM category_order WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("reset category %d: %w", categoryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	s.logger.Info("category overrides reset", "category_id", categoryID, "removed", n)
	return int(n), nil
}

// ListByCategory returns a category's overrides ordered by position
// ascending, ties broken by SKU for a stable listing.
func (s *Store) ListByCategory(ctx context.Context, categoryID int64) ([]Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, category_id, position
		FROM category_order
		WHERE category_id = ?
		ORDER BY position ASC, sku ASC
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list overrides for category %d: %w", categoryID, err)
	}
	defer rows.Close()
	return scanOverrides(rows)
}

// ListAll returns every override grouped by category then position.
func (s *Store) ListAll(ctx context.Context) ([]Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, category_id, position
		FROM category_order
		ORDER BY category_id ASC, position ASC, sku ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()
	return scanOverrides(rows)
}

// PositionsByCategory returns a category's overrides as a sku-to-position
// map for the ranking pass.
func (s *Store) PositionsByCategory(ctx context.Context, categoryID int64) (map[string]int, error) {
	overrides, err := s.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	positions := make(map[string]int, len(overrides))
	for _, o := range overrides {
		positions[o.SKU] = o.Position
	}
	return positions, nil
}

func scanOverrides(rows *sql.Rows) ([]Override, error) {
	var out []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.SKU, &o.CategoryID, &o.Position); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DedupeSKUs returns the unique SKUs of a batch, sorted.
func DedupeSKUs(overrides []Override) []string {
	seen := make(map[string]bool, len(overrides))
	var out []string
	for _, o := range overrides {
		if !seen[o.SKU] {
			out = append(out, o.SKU)
			seen[o.SKU] = true
		}
	}
	sort.Strings(out)
	return out
}
