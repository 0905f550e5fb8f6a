package dispatch

import (
	"context"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// PRODUCT ACTIONS
// =============================================================================

func (d *Dispatcher) productRoutes() map[string]operation {
	return map[string]operation{
		"list": {fail: "Failed to fetch products", run: func(ctx context.Context, _ params) (any, string, error) {
			products, err := d.catalog.ListProducts(ctx)
			return products, "", err
		}},

		"get": {fail: "Failed to fetch product", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			product, err := d.catalog.GetProduct(ctx, inventory.ProductID(id))
			return product, "", err
		}},

		"create": {fail: "Failed to create product", run: func(ctx context.Context, p params) (any, string, error) {
			in, err := p.newProduct()
			if err != nil {
				return nil, "", err
			}
			product, err := d.catalog.CreateProduct(ctx, in)
			return product, "Product created successfully", err
		}},

		"update": {fail: "Failed to update product", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			changes, err := p.changes()
			if err != nil {
				return nil, "", err
			}
			product, err := d.catalog.UpdateProduct(ctx, inventory.ProductID(id), changes)
			return product, "Product updated successfully", err
		}},

		"delete": {fail: "Failed to delete product", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			ok, err := d.catalog.DeleteProduct(ctx, inventory.ProductID(id))
			if err == nil && !ok {
				err = &inventory.NotFoundError{Entity: "Product", ID: id}
			}
			return nil, "Product deleted successfully", err
		}},
	}
}

// =============================================================================
// CATEGORY ACTIONS
// =============================================================================

func (d *Dispatcher) categoryRoutes() map[string]operation {
	return map[string]operation{
		"list": {fail: "Failed to fetch categories", run: func(ctx context.Context, _ params) (any, string, error) {
			categories, err := d.catalog.ListCategories(ctx)
			return categories, "", err
		}},

		"get": {fail: "Failed to fetch category", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			category, err := d.catalog.GetCategory(ctx, inventory.CategoryID(id))
			return category, "", err
		}},

		"create": {fail: "Failed to create category", run: func(ctx context.Context, p params) (any, string, error) {
			name, err := p.requireString("name")
			if err != nil {
				return nil, "", err
			}
			category, err := d.catalog.CreateCategory(ctx, name)
			return category, "Category created successfully", err
		}},

		"update": {fail: "Failed to update category", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			changes, err := p.changes()
			if err != nil {
				return nil, "", err
			}
			category, err := d.catalog.UpdateCategory(ctx, inventory.CategoryID(id), changes)
			return category, "Category updated successfully", err
		}},

		"delete": {fail: "Failed to delete category", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			ok, err := d.catalog.DeleteCategory(ctx, inventory.CategoryID(id))
			if err == nil && !ok {
				err = &inventory.NotFoundError{Entity: "Category", ID: id}
			}
			return nil, "Category deleted successfully", err
		}},

		"addProduct": {fail: "Error adding product to category", run: func(ctx context.Context, p params) (any, string, error) {
			categoryID, productID, err := linkIDs(p)
			if err != nil {
				return nil, "", err
			}
			err = d.catalog.AddProduct(ctx, categoryID, productID)
			return nil, "Product added to category successfully", err
		}},

		"removeProduct": {fail: "Error removing product from category", run: func(ctx context.Context, p params) (any, string, error) {
			categoryID, productID, err := linkIDs(p)
			if err != nil {
				return nil, "", err
			}
			ok, err := d.catalog.RemoveProduct(ctx, categoryID, productID)
			if err == nil && !ok {
				err = &notLinkedError{}
			}
			return nil, "Product removed from category successfully", err
		}},

		"products": {fail: "Failed to fetch products by category", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.firstInt("id", "categoryId")
			if err != nil {
				return nil, "", err
			}
			products, err := d.catalog.ProductsInCategory(ctx, inventory.CategoryID(id))
			return products, "", err
		}},
	}
}

func linkIDs(p params) (inventory.CategoryID, inventory.ProductID, error) {
	categoryID, err := p.requireInt("categoryId")
	if err != nil {
		return 0, 0, err
	}
	productID, err := p.requireInt("productId")
	if err != nil {
		return 0, 0, err
	}
	return inventory.CategoryID(categoryID), inventory.ProductID(productID), nil
}

// =============================================================================
// TRANSACTION ACTIONS
// =============================================================================

func (d *Dispatcher) transactionRoutes() map[string]operation {
	return map[string]operation{
		"list": {fail: "Failed to fetch transactions", run: func(ctx context.Context, p params) (any, string, error) {
			var filter inventory.EntryFilter
			if p.has("product_id") {
				id, err := p.requireInt("product_id")
				if err != nil {
					return nil, "", err
				}
				pid := inventory.ProductID(id)
				filter.ProductID = &pid
			}
			entries, err := d.ledger.ListTransactions(ctx, filter)
			return entries, "", err
		}},

		"get": {fail: "Failed to fetch transaction", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			entry, err := d.ledger.GetTransaction(ctx, inventory.EntryID(id))
			return entry, "", err
		}},

		"create": {fail: "Failed to create transaction", run: func(ctx context.Context, p params) (any, string, error) {
			in, err := p.newTransaction()
			if err != nil {
				return nil, "", err
			}
			entry, err := d.ledger.RecordTransaction(ctx, in.productID, in.magnitude, in.kind, in.notes)
			return entry, "Inventory transaction created successfully", err
		}},

		"update": {fail: "Failed to update transaction", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.requireInt("id")
			if err != nil {
				return nil, "", err
			}
			changes, err := p.changes()
			if err != nil {
				return nil, "", err
			}
			entry, err := d.ledger.UpdateTransaction(ctx, inventory.EntryID(id), changes)
			return entry, "Transaction updated successfully", err
		}},

		"byProduct": {fail: "Failed to fetch product transactions", run: func(ctx context.Context, p params) (any, string, error) {
			id, err := p.firstInt("productId", "product_id")
			if err != nil {
				return nil, "", err
			}
			entries, err := d.ledger.TransactionsByProduct(ctx, inventory.ProductID(id))
			return entries, "", err
		}},
	}
}
