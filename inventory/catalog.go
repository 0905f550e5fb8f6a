/*
catalog.go - Product and category operations

PURPOSE:
  Thin layer over ProductStore and CategoryStore. Validates input before any
  store access and turns missing rows into NotFoundError. None of these
  operations touch the ledger; product quantity can only be set at creation.

SEE ALSO:
  - ledger.go: the only writer of quantity after creation
  - patch.go:  ProductPatch / CategoryPatch
*/
package inventory

import (
	"context"
	"fmt"
	"strings"
)

type Catalog struct {
	store Store
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (c *Catalog) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return nonNil(products), nil
}

func (c *Catalog) GetProduct(ctx context.Context, id ProductID) (*Product, error) {
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	if p == nil {
		return nil, productNotFound(id)
	}
	return p, nil
}

func (c *Catalog) CreateProduct(ctx context.Context, in NewProduct) (*Product, error) {
	if err := validateNewProduct(in); err != nil {
		return nil, err
	}
	if in.Description != nil && *in.Description == "" {
		in.Description = nil
	}
	p, err := c.store.CreateProduct(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct applies a partial update. Quantity is rejected; use the
// ledger. An empty patch returns the product unchanged.
func (c *Catalog) UpdateProduct(ctx context.Context, id ProductID, changes Changes) (*Product, error) {
	patch, err := ProductPatch.Build(changes)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return c.GetProduct(ctx, id)
	}
	p, err := c.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	if p == nil {
		return nil, productNotFound(id)
	}
	return p, nil
}

// DeleteProduct reports whether the product existed.
func (c *Catalog) DeleteProduct(ctx context.Context, id ProductID) (bool, error) {
	ok, err := c.store.DeleteProduct(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete product %d: %w", id, err)
	}
	return ok, nil
}

func (c *Catalog) ProductsInCategory(ctx context.Context, id CategoryID) ([]Product, error) {
	products, err := c.store.ListProductsByCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list products in category %d: %w", id, err)
	}
	return nonNil(products), nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (c *Catalog) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories, nil
}

func (c *Catalog) GetCategory(ctx context.Context, id CategoryID) (*Category, error) {
	cat, err := c.store.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	if cat == nil {
		return nil, categoryNotFound(id)
	}
	return cat, nil
}

func (c *Catalog) CreateCategory(ctx context.Context, name string) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	cat, err := c.store.CreateCategory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}

func (c *Catalog) UpdateCategory(ctx context.Context, id CategoryID, changes Changes) (*Category, error) {
	patch, err := CategoryPatch.Build(changes)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return c.GetCategory(ctx, id)
	}
	cat, err := c.store.UpdateCategory(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	if cat == nil {
		return nil, categoryNotFound(id)
	}
	return cat, nil
}

func (c *Catalog) DeleteCategory(ctx context.Context, id CategoryID) (bool, error) {
	ok, err := c.store.DeleteCategory(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete category %d: %w", id, err)
	}
	return ok, nil
}

// AddProduct links a product to a category. Linking an existing pair is a
// no-op. Both ids must exist.
func (c *Catalog) AddProduct(ctx context.Context, categoryID CategoryID, productID ProductID) error {
	if _, err := c.GetCategory(ctx, categoryID); err != nil {
		return err
	}
	if _, err := c.GetProduct(ctx, productID); err != nil {
		return err
	}
	if err := c.store.LinkProduct(ctx, categoryID, productID); err != nil {
		return fmt.Errorf("link product %d to category %d: %w", productID, categoryID, err)
	}
	return nil
}

// RemoveProduct reports whether the link existed.
func (c *Catalog) RemoveProduct(ctx context.Context, categoryID CategoryID, productID ProductID) (bool, error) {
	ok, err := c.store.UnlinkProduct(ctx, categoryID, productID)
	if err != nil {
		return false, fmt.Errorf("unlink product %d from category %d: %w", productID, categoryID, err)
	}
	return ok, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validateNewProduct(in NewProduct) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case strings.TrimSpace(in.SKU) == "":
		return &ValidationError{Field: "sku", Reason: "is required"}
	case in.Price.IsNegative():
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	case in.Quantity < 0:
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	return nil
}

func productNotFound(id ProductID) error {
	return &NotFoundError{Entity: "Product", ID: int64(id)}
}

func categoryNotFound(id CategoryID) error {
	return &NotFoundError{Entity: "Category", ID: int64(id)}
}

func nonNil(products []Product) []Product {
	if products == nil {
		return []Product{}
	}
	return products
}
