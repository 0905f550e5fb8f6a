/*
Package mysql opens the SQL store on MySQL (InnoDB).

PURPOSE:
  Normalizes the DSN, sizes the pool and supplies the MySQL dialect to
  sqlstore. Every unit of work opens with SELECT ... FOR UPDATE on the
  product row, so writers for one product queue on that exclusive lock. The
  ledger INSERT's foreign-key check would otherwise take a shared lock first,
  and two writers upgrading shared locks deadlock (error 1213).

DSN:
  Any go-sql-driver DSN. parseTime is forced on and loc to UTC so DATETIME(6)
  columns round-trip as UTC time.Time.

SEE ALSO:
  - store/sqlstore: the shared implementation
*/
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/warp/inventory-ledger/store/sqlstore"
)

// Config configures Open.
type Config struct {
	DSN  string
	Pool sqlstore.PoolConfig
}

const errDupEntry = 1062

// ER_NO_REFERENCED_ROW_2: child row insert with no parent.
const errNoReferencedRow = 1452

// Open connects, checks reachability and migrates.
func Open(ctx context.Context, cfg Config) (*sqlstore.Store, error) {
	dsn, err := NormalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	cfg.Pool.Apply(db)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store, err := sqlstore.Open(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NormalizeDSN forces parseTime and UTC.
func NormalizeDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}

// Dialect is the MySQL dialect for sqlstore.
var Dialect = sqlstore.Dialect{
	Name:                  "mysql",
	Schema:                schema,
	InsertIgnore:          "INSERT IGNORE",
	IsUniqueViolation:     isDuplicateEntry,
	IsForeignKeyViolation: isMissingParent,
	LockClause:            " FOR UPDATE",
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errNoReferencedRow
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NULL,
		sku VARCHAR(100) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		quantity BIGINT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_products_sku (sku)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_categories_name (name)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS product_categories (
		product_id BIGINT NOT NULL,
		category_id BIGINT NOT NULL,
		PRIMARY KEY (product_id, category_id),
		KEY idx_product_categories_category (category_id),
		CONSTRAINT fk_pc_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
		CONSTRAINT fk_pc_category FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		quantity BIGINT NOT NULL,
		transaction_type VARCHAR(20) NOT NULL,
		notes TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_transactions_product_created (product_id, created_at),
		KEY idx_transactions_created (created_at),
		CONSTRAINT chk_transaction_type CHECK (transaction_type IN ('receiving', 'shipping', 'adjustment')),
		CONSTRAINT fk_tx_product FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}
