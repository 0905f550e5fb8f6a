package sqlstore

import (
	"context"
	"fmt"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// CATEGORY STORE (inventory.CategoryStore)
// =============================================================================

func (s *Store) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM categories ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []inventory.Category
	for rows.Next() {
		var c inventory.Category
		if err := rows.Scan(&c.ID, &c.Name, timeScanner{&c.CreatedAt}); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, id inventory.CategoryID) (*inventory.Category, error) {
	var c inventory.Category
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, timeScanner{&c.CreatedAt})

	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*inventory.Category, error) {
	created := now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name, created_at) VALUES (?, ?)",
		name, s.dialect.timeArg(created),
	)
	if s.dialect.isUnique(err) {
		return nil, &inventory.ConflictError{Entity: "Category", Field: "name", Value: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read category id: %w", err)
	}
	return &inventory.Category{ID: inventory.CategoryID(id), Name: name, CreatedAt: created}, nil
}

// UpdateCategory applies the patch. Categories have no updated_at column.
func (s *Store) UpdateCategory(ctx context.Context, id inventory.CategoryID, patch inventory.Patch) (*inventory.Category, error) {
	set, args := s.dialect.setClause(patch, "")
	args = append(args, id)

	_, err := s.db.ExecContext(ctx, "UPDATE categories SET "+set+" WHERE id = ?", args...)
	if s.dialect.isUnique(err) {
		name, _ := patch.Value("name")
		return nil, &inventory.ConflictError{Entity: "Category", Field: "name", Value: fmt.Sprint(name)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return s.GetCategory(ctx, id)
}

func (s *Store) DeleteCategory(ctx context.Context, id inventory.CategoryID) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}
	return affected(res)
}

func (s *Store) LinkProduct(ctx context.Context, categoryID inventory.CategoryID, productID inventory.ProductID) error {
	_, err := s.db.ExecContext(ctx,
		s.dialect.InsertIgnore+" INTO product_categories (product_id, category_id) VALUES (?, ?)",
		productID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to link product: %w", err)
	}
	return nil
}

func (s *Store) UnlinkProduct(ctx context.Context, categoryID inventory.CategoryID, productID inventory.ProductID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM product_categories WHERE product_id = ? AND category_id = ?",
		productID, categoryID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to unlink product: %w", err)
	}
	return affected(res)
}
