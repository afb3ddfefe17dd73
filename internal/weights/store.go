// Package weights persists the ranking weight configuration as an
// append-only log. Updates never rewrite history: each change appends a
// full row and the newest row wins. When the log is empty the neutral
// configuration applies, so ranking works before anyone has tuned it.
package weights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/productwall/internal/ranking"
)

// Store reads and appends weight configurations.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a weight store on top of an open database handle.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Record is one row of the weight log.
type Record struct {
	ID        int64                `json:"id"`
	Config    ranking.WeightConfig `json:"weights"`
	CreatedAt time.Time            `json:"created_at"`
}

// Latest returns the newest weight configuration. An empty log yields the
// neutral configuration with ID zero rather than an error.
func (s *Store) Latest(ctx context.Context) (Record, error) {
	var (
		rec       Record
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sessions_weight, views_weight, cart_weight,
		       checkout_weight, orders_gross_weight, orders_net_weight,
		       discount_penalty, dnp_weight, created_at
		FROM weights
		ORDER BY id DESC
		LIMIT 1
	`).Scan(
		&rec.ID,
		&rec.Config.Sessions, &rec.Config.Views, &rec.Config.Cart,
		&rec.Config.Checkout, &rec.Config.OrdersGross, &rec.Config.OrdersNet,
		&rec.Config.DiscountPenalty, &rec.Config.Novelty,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{Config: ranking.NeutralWeights()}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("load latest weights: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

// Append writes a new weight configuration to the log and returns the
// stored record.
func (s *Store) Append(ctx context.Context, cfg ranking.WeightConfig) (Record, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO weights (
			sessions_weight, views_weight, cart_weight,
			checkout_weight, orders_gross_weight, orders_net_weight,
			discount_penalty, dnp_weight, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cfg.Sessions, cfg.Views, cfg.Cart, cfg.Checkout,
		cfg.OrdersGross, cfg.OrdersNet, cfg.DiscountPenalty, cfg.Novelty,
		now.Format(time.RFC3339),
	)
	if err != nil {
		return Record{}, fmt.Errorf("append weights: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("append weights: %w", err)
	}

	s.logger.Info("weights updated", "id", id)
	return Record{ID: id, Config: cfg, CreatedAt: now}, nil
}

// Update applies a partial patch onto the neutral defaults and appends the
// result. An update names only the coefficients it moves off neutral;
// every absent coefficient resets, so each log row stands alone and
// deleting a coefficient from the payload is how a curator retires it.
func (s *Store) Update(ctx context.Context, patch ranking.WeightPatch) (Record, error) {
	return s.Append(ctx, patch.Apply(ranking.NeutralWeights()))
}

// Reset appends a neutral configuration row. History stays intact.
func (s *Store) Reset(ctx context.Context) (Record, error) {
	return s.Append(ctx, ranking.NeutralWeights())
}

// History returns the most recent log rows, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sessions_weight, views_weight, cart_weight,
		       checkout_weight, orders_gross_weight, orders_net_weight,
		       discount_penalty, dnp_weight, created_at
		FROM weights
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("load weight history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			createdAt string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Config.Sessions, &rec.Config.Views, &rec.Config.Cart,
			&rec.Config.Checkout, &rec.Config.OrdersGross, &rec.Config.OrdersNet,
			&rec.Config.DiscountPenalty, &rec.Config.Novelty,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
