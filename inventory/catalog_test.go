package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/store/memory"
)

func TestCatalog_CreateProductValidation(t *testing.T) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(memory.New())

	tests := []struct {
		name  string
		in    inventory.NewProduct
		field string
	}{
		{"missing name", inventory.NewProduct{SKU: "X"}, "name"},
		{"missing sku", inventory.NewProduct{Name: "X"}, "sku"},
		{"negative price", inventory.NewProduct{Name: "X", SKU: "X", Price: decimal.NewFromInt(-1)}, "price"},
		{"negative quantity", inventory.NewProduct{Name: "X", SKU: "X", Quantity: -1}, "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.CreateProduct(ctx, tt.in)
			var verr *inventory.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCatalog_EmptyDescriptionStoredAsNull(t *testing.T) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(memory.New())
	empty := ""

	p, err := catalog.CreateProduct(ctx, inventory.NewProduct{Name: "Pen", SKU: "PEN-1", Description: &empty})
	require.NoError(t, err)
	assert.Nil(t, p.Description)
}

func TestCatalog_EmptyPatchReturnsCurrent(t *testing.T) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(memory.New())
	p, err := catalog.CreateProduct(ctx, inventory.NewProduct{Name: "Pen", SKU: "PEN-1"})
	require.NoError(t, err)

	got, err := catalog.UpdateProduct(ctx, p.ID, inventory.Changes{})
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	_, err = catalog.UpdateProduct(ctx, 77, inventory.Changes{})
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestCatalog_AddProductToMissingCategory(t *testing.T) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(memory.New())
	p, err := catalog.CreateProduct(ctx, inventory.NewProduct{Name: "Pen", SKU: "PEN-1"})
	require.NoError(t, err)

	err = catalog.AddProduct(ctx, 55, p.ID)
	var nf *inventory.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Category", nf.Entity)
}

func TestCatalog_CreateCategoryRequiresName(t *testing.T) {
	_, err := inventory.NewCatalog(memory.New()).CreateCategory(context.Background(), " ")
	assert.ErrorIs(t, err, inventory.ErrValidation)
}

func TestCatalog_EmptyListsAreNotNil(t *testing.T) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(memory.New())

	products, err := catalog.ListProducts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, products)

	categories, err := catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotNil(t, categories)

	inCat, err := catalog.ProductsInCategory(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, inCat)
}
