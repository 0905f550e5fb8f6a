package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// PRODUCT STORE (inventory.ProductStore)
// =============================================================================

const productColumns = `p.id, p.name, p.description, p.sku, p.price, p.quantity, p.created_at, p.updated_at`

func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	return s.queryProducts(ctx,
		"SELECT "+productColumns+" FROM products p ORDER BY p.name, p.id")
}

func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	return s.getProduct(ctx, s.db, id)
}

func (s *Store) getProduct(ctx context.Context, q querier, id inventory.ProductID) (*inventory.Product, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products p WHERE p.id = ?", id)

	p, err := scanProduct(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a product and reads it back so the caller sees the
// stored price scale and timestamps.
func (s *Store) CreateProduct(ctx context.Context, in inventory.NewProduct) (*inventory.Product, error) {
	ts := s.dialect.timeArg(now())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, description, sku, price, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Name, nullString(in.Description), in.SKU, priceArg(in.Price), in.Quantity, ts, ts,
	)
	if s.dialect.isUnique(err) {
		return nil, &inventory.ConflictError{Entity: "Product", Field: "sku", Value: in.SKU}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read product id: %w", err)
	}
	return s.getProduct(ctx, s.db, inventory.ProductID(id))
}

func (s *Store) UpdateProduct(ctx context.Context, id inventory.ProductID, patch inventory.Patch) (*inventory.Product, error) {
	set, args := s.dialect.setClause(patch, "updated_at")
	args = append(args, id)

	_, err := s.db.ExecContext(ctx, "UPDATE products SET "+set+" WHERE id = ?", args...)
	if s.dialect.isUnique(err) {
		sku, _ := patch.Value("sku")
		return nil, &inventory.ConflictError{Entity: "Product", Field: "sku", Value: fmt.Sprint(sku)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return s.getProduct(ctx, s.db, id)
}

func (s *Store) DeleteProduct(ctx context.Context, id inventory.ProductID) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return affected(res)
}

func (s *Store) ListProductsByCategory(ctx context.Context, id inventory.CategoryID) ([]inventory.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN product_categories pc ON pc.product_id = p.id
		WHERE pc.category_id = ?
		ORDER BY p.name, p.id`, id)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]inventory.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []inventory.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// lockProduct runs first inside a unit of work. With a LockClause the SELECT
// takes the exclusive row lock before the ledger INSERT takes its shared
// foreign-key lock on the same row.
func (s *Store) lockProduct(ctx context.Context, q querier, id inventory.ProductID) (int64, error) {
	var quantity int64
	err := q.QueryRowContext(ctx,
		"SELECT quantity FROM products WHERE id = ?"+s.dialect.LockClause, id).Scan(&quantity)
	if isNoRows(err) {
		return 0, &inventory.NotFoundError{Entity: "Product", ID: int64(id)}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock product: %w", err)
	}
	return quantity, nil
}

// applyDelta runs inside a unit of work. The UPDATE takes the row lock; the
// SELECT reads the value this transaction just wrote.
func (s *Store) applyDelta(ctx context.Context, q querier, id inventory.ProductID, delta int64) (int64, error) {
	_, err := q.ExecContext(ctx,
		"UPDATE products SET quantity = quantity + ?, updated_at = ? WHERE id = ?",
		delta, s.dialect.timeArg(now()), id,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to apply quantity delta: %w", err)
	}

	var quantity int64
	err = q.QueryRowContext(ctx, "SELECT quantity FROM products WHERE id = ?", id).Scan(&quantity)
	if isNoRows(err) {
		return 0, &inventory.NotFoundError{Entity: "Product", ID: int64(id)}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quantity: %w", err)
	}
	return quantity, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (inventory.Product, error) {
	var (
		p           inventory.Product
		description sql.NullString
	)
	err := r.Scan(
		&p.ID, &p.Name, &description, &p.SKU, &p.Price, &p.Quantity,
		timeScanner{&p.CreatedAt}, timeScanner{&p.UpdatedAt},
	)
	if err != nil {
		return p, err
	}
	p.Description = stringPtr(description)
	return p, nil
}
