/*
Package sqlite opens the SQL store on SQLite.

PURPOSE:
  Builds the DSN, sizes the pool and supplies the SQLite dialect (schema,
  TEXT timestamps, INSERT OR IGNORE, unique-violation detection) to sqlstore.

DSN OPTIONS:
  _foreign_keys=on     cascades from products to links and ledger rows
  _journal_mode=WAL    readers don't block the single writer
  _txlock=immediate    every unit of work takes the write lock at BEGIN
  _busy_timeout=N      contenders wait N ms for the lock instead of failing

IN-MEMORY:
  ":memory:" gives each connection its own database, so the pool is pinned
  to one connection that never expires.

USAGE:
  store, err := sqlite.New("./inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlstore: the shared implementation
  - store/mysql: the MySQL dialect
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/inventory-ledger/store/sqlstore"
)

// Config configures Open.
type Config struct {
	Path        string
	BusyTimeout time.Duration
	Pool        sqlstore.PoolConfig
}

const defaultBusyTimeout = 5 * time.Second

// New opens a SQLite store with default settings.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*sqlstore.Store, error) {
	return Open(context.Background(), Config{Path: dbPath})
}

// Open opens and migrates a SQLite store.
func Open(ctx context.Context, cfg Config) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite3", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if isMemory(cfg.Path) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		cfg.Pool.Apply(db)
	}

	store, err := sqlstore.Open(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// DSN appends the driver options to the configured path.
func DSN(cfg Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=%d",
		cfg.Path, sep, busy.Milliseconds())
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Dialect is the SQLite dialect for sqlstore. It needs no LockClause:
// _txlock=immediate takes the database write lock at BEGIN.
var Dialect = sqlstore.Dialect{
	Name:                  "sqlite",
	Schema:                schema,
	InsertIgnore:          "INSERT OR IGNORE",
	FormatTime:            sqlstore.FormatTextTime,
	IsUniqueViolation:     isUniqueConstraintError,
	IsForeignKeyViolation: isForeignKeyError,
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// Timestamps are TEXT in sqlstore.TextTimeLayout; price is TEXT holding a
// two-place decimal.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		sku TEXT NOT NULL UNIQUE,
		price TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_categories (
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		PRIMARY KEY (product_id, category_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_categories_category
		ON product_categories(category_id)`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL,
		transaction_type TEXT NOT NULL
			CHECK (transaction_type IN ('receiving', 'shipping', 'adjustment')),
		notes TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_product_created
		ON inventory_transactions(product_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_created
		ON inventory_transactions(created_at DESC)`,
}
