/*
Package sqlstore provides the database/sql implementation of inventory.Store.

PURPOSE:
  One implementation of the product, category and ledger repositories that
  runs on any database/sql driver. Dialect differences (DDL, time encoding,
  insert-or-ignore, unique-violation detection) are injected through Dialect
  by the driver packages.

INTERFACES IMPLEMENTED:
  inventory.Store: repositories, WithTx, Close

KEY TABLES:
  products:               catalog rows, quantity owned by the ledger
  categories:             unique names
  product_categories:     (product_id, category_id) link, cascades on delete
  inventory_transactions: append-only ledger, cascades on product delete

CONCURRENCY:
  No application lock. A unit of work relies on the database:
  - SQLite: BEGIN IMMEDIATE (_txlock=immediate) takes the write lock up front
  - MySQL:  the UPDATE in ApplyDelta takes the InnoDB row lock
  Code running inside WithTx must only use the *sql.Tx. Touching s.db there
  can deadlock a pool of one connection (in-memory SQLite).

MIGRATION:
  Schema is applied on Open with CREATE TABLE IF NOT EXISTS.

USAGE:
  store, err := sqlite.New("./inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := inventory.NewLedger(store)

SEE ALSO:
  - store/sqlite, store/mysql: dialects and DSN handling
  - inventory/store.go: interface definitions
  - store/memory: in-memory implementation for tests
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/inventory-ledger/inventory"
)

// Store implements inventory.Store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ inventory.Store = (*Store)(nil)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Apply sets the pool limits on db. Zero values leave the driver defaults.
func (c PoolConfig) Apply(db *sql.DB) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
}

// Open wraps db, applies the dialect's schema and returns the store. The
// store owns db from here on; Close closes it.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	store := &Store{db: db, dialect: dialect}
	if err := store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect returns the dialect name ("sqlite", "mysql").
func (s *Store) Dialect() string {
	return s.dialect.Name
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"inventory_transactions", "product_categories", "products", "categories"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx inventory.LedgerTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx, parent: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	q      querier
	parent *Store
}

func (ts *txStore) LockProduct(ctx context.Context, id inventory.ProductID) (int64, error) {
	return ts.parent.lockProduct(ctx, ts.q, id)
}

func (ts *txStore) InsertEntry(ctx context.Context, e inventory.NewEntry) (*inventory.LedgerEntry, error) {
	return ts.parent.insertEntry(ctx, ts.q, e)
}

func (ts *txStore) ApplyDelta(ctx context.Context, id inventory.ProductID, delta int64) (int64, error) {
	return ts.parent.applyDelta(ctx, ts.q, id, delta)
}

// =============================================================================
// HELPERS
// =============================================================================

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// now is the timestamp written for created_at / updated_at. Truncated to the
// precision both dialects store.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
