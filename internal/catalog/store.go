package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Store persists the product catalog.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a catalog store on top of an open database handle.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// UpsertResult summarizes one bulk import.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// UpsertProducts inserts or updates products in one transaction. Records
// with an empty SKU are skipped and counted, not fatal: one bad row must
// not abort a feed import. Category memberships are replaced wholesale for
// each product that carries a category list.
func (s *Store) UpsertProducts(ctx context.Context, products []Product) (UpsertResult, error) {
	var res UpsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO products (
			sku, name, price, oldprice, discount, gender, image_url,
			available, sale_start_date,
			sessions, product_views, cart_additions, checkout_starts,
			orders_gross, orders_net, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			oldprice = excluded.oldprice,
			discount = excluded.discount,
			gender = excluded.gender,
			image_url = excluded.image_url,
			available = excluded.available,
			sale_start_date = excluded.sale_start_date,
			sessions = excluded.sessions,
			product_views = excluded.product_views,
			cart_additions = excluded.cart_additions,
			checkout_starts = excluded.checkout_starts,
			orders_gross = excluded.orders_gross,
			orders_net = excluded.orders_net,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return res, fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range products {
		sku := strings.TrimSpace(p.SKU)
		if sku == "" {
			res.Skipped++
			continue
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM products WHERE sku = ?)`, sku,
		).Scan(&exists); err != nil {
			return res, fmt.Errorf("check product %s: %w", sku, err)
		}

		if _, err := upsert.ExecContext(ctx,
			sku, p.Name, p.Price, p.OldPrice, p.DiscountPct, p.Gender,
			p.ImageURL, p.Available, p.SaleStartDate,
			p.Metrics.Sessions, p.Metrics.Views, p.Metrics.CartAdditions,
			p.Metrics.CheckoutStarts, p.Metrics.OrdersGross, p.Metrics.OrdersNet,
			now,
		); err != nil {
			return res, fmt.Errorf("upsert product %s: %w", sku, err)
		}

		if p.Categories != nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM product_categories WHERE sku = ?`, sku,
			); err != nil {
				return res, fmt.Errorf("clear categories for %s: %w", sku, err)
			}
			for _, cid := range p.Categories {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO product_categories (sku, category_id)
					VALUES (?, ?)
					ON CONFLICT(sku, category_id) DO NOTHING
				`, sku, cid); err != nil {
					return res, fmt.Errorf("link %s to category %d: %w", sku, cid, err)
				}
			}
		}

		if exists {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("catalog upsert complete",
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped)
	return res, nil
}

// List returns products matched by the filter, with category memberships
// attached. Ordering is left to the ranking engine.
func (s *Store) List(ctx context.Context, f Filter) ([]Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`
		SELECT p.sku, p.name, p.price, p.oldprice, p.discount, p.gender,
		       p.image_url, p.available, p.sale_start_date,
		       p.sessions, p.product_views, p.cart_additions,
		       p.checkout_starts, p.orders_gross, p.orders_net,
		       (SELECT GROUP_CONCAT(pc2.category_id)
		          FROM product_categories pc2
		         WHERE pc2.sku = p.sku) AS category_ids
		  FROM products p`)

	var where []string
	if f.CategoryID != 0 {
		query.WriteString(`
		  JOIN product_categories pc ON pc.sku = p.sku`)
		where = append(where, "pc.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.HideNoPrice {
		where = append(where, "p.price > 0")
	}
	if f.Gender != "" && f.Gender != "all" {
		where = append(where, "p.gender = ?")
		args = append(args, f.Gender)
	}
	if f.SKU != "" {
		where = append(where, "p.sku = ?")
		args = append(args, f.SKU)
	}
	if f.Search != "" {
		where = append(where, "(p.name LIKE ? COLLATE NOCASE OR p.sku LIKE ? COLLATE NOCASE)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(where) > 0 {
		query.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one product by SKU, or ErrProductNotFound.
func (s *Store) Get(ctx context.Context, sku string) (Product, error) {
	products, err := s.List(ctx, Filter{SKU: sku})
	if err != nil {
		return Product{}, err
	}
	if len(products) == 0 {
		return Product{}, ErrProductNotFound
	}
	return products[0], nil
}

// MissingSKUs returns the subset of the given SKUs that do not exist in
// the catalog, preserving input order. Used to validate override imports
// before any write happens.
func (s *Store) MissingSKUs(ctx context.Context, skus []string) ([]string, error) {
	if len(skus) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(skus))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(skus))
	for i, sku := range skus {
		args[i] = sku
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sku FROM products WHERE sku IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("check skus: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(skus))
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, err
		}
		found[sku] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	seen := make(map[string]bool, len(skus))
	for _, sku := range skus {
		if !found[sku] && !seen[sku] {
			missing = append(missing, sku)
			seen[sku] = true
		}
	}
	return missing, nil
}

// InCategory reports whether a SKU belongs to a category.
func (s *Store) InCategory(ctx context.Context, sku string, categoryID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM product_categories
			WHERE sku = ? AND category_id = ?
		)`, sku, categoryID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check category membership: %w", err)
	}
	return exists, nil
}

// SaveCategories inserts or updates category records.
func (s *Store) SaveCategories(ctx context.Context, categories []Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, is_active)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				is_active = excluded.is_active
		`, c.ID, c.Name, c.IsActive); err != nil {
			return fmt.Errorf("save category %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Categories returns all active categories ordered by name.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_active
		FROM categories
		WHERE is_active = 1
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of catalog products.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func scanProduct(rows *sql.Rows) (Product, error) {
	var (
		p           Product
		categoryIDs sql.NullString
	)
	if err := rows.Scan(
		&p.SKU, &p.Name, &p.Price, &p.OldPrice, &p.DiscountPct, &p.Gender,
		&p.ImageURL, &p.Available, &p.SaleStartDate,
		&p.Metrics.Sessions, &p.Metrics.Views, &p.Metrics.CartAdditions,
		&p.Metrics.CheckoutStarts, &p.Metrics.OrdersGross, &p.Metrics.OrdersNet,
		&categoryIDs,
	); err != nil {
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	if categoryIDs.Valid && categoryIDs.String != "" {
		for _, raw := range strings.Split(categoryIDs.String, ",") {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			p.Categories = append(p.Categories, id)
		}
	}
	return p, nil
}
