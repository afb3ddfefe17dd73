// Package db provides database connection handling for the product wall.
// The catalog, weight log, and manual overrides live in a single SQLite
// database accessed through the pure-Go modernc driver.
package db

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

var memSeq atomic.Int64

// Open opens (or creates) the SQLite database at dbPath and ensures the
// schema exists. Uses WAL mode for better concurrent read performance on
// file-based databases.
func Open(dbPath string) (*sql.DB, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// A named in-memory database with shared cache: every pooled
		// connection of this handle sees the same data, while separate
		// Open calls stay isolated from each other.
		connStr = fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", memSeq.Add(1))
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

// createTables creates the required tables and indexes if they don't exist.
func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		sku TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		oldprice REAL NOT NULL DEFAULT 0,
		discount REAL NOT NULL DEFAULT 0,
		gender TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		available INTEGER NOT NULL DEFAULT 0,
		sale_start_date TEXT NOT NULL DEFAULT '',
		sessions INTEGER NOT NULL DEFAULT 0,
		product_views INTEGER NOT NULL DEFAULT 0,
		cart_additions INTEGER NOT NULL DEFAULT 0,
		checkout_starts INTEGER NOT NULL DEFAULT 0,
		orders_gross INTEGER NOT NULL DEFAULT 0,
		orders_net INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS product_categories (
		sku TEXT NOT NULL REFERENCES products(sku) ON DELETE CASCADE,
		category_id INTEGER NOT NULL,
		PRIMARY KEY (sku, category_id)
	);

	CREATE INDEX IF NOT EXISTS idx_product_categories_category
		ON product_categories(category_id);

	CREATE TABLE IF NOT EXISTS weights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sessions_weight REAL NOT NULL DEFAULT 1.0,
		views_weight REAL NOT NULL DEFAULT 1.0,
		cart_weight REAL NOT NULL DEFAULT 1.0,
		checkout_weight REAL NOT NULL DEFAULT 1.0,
		orders_gross_weight REAL NOT NULL DEFAULT 1.0,
		orders_net_weight REAL NOT NULL DEFAULT 1.0,
		discount_penalty REAL NOT NULL DEFAULT 0.0,
		dnp_weight REAL NOT NULL DEFAULT 1.0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS category_order (
		sku TEXT NOT NULL,
		category_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (sku, category_id)
	);

	CREATE INDEX IF NOT EXISTS idx_category_order_category
		ON category_order(category_id);
	`

	_, err := db.Exec(schema)
	return err
}
