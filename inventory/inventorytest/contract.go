// Package inventorytest holds the behaviour every inventory.Store must have.
// Store packages call RunStoreContract from their own tests.
package inventorytest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/inventory"
)

// Factory returns a fresh, empty store. The contract closes it.
type Factory func(t *testing.T) inventory.Store

// RunStoreContract runs the shared store tests against newStore.
func RunStoreContract(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store inventory.Store)
	}{
		{"ProductRoundTrip", testProductRoundTrip},
		{"ProductsOrderedByName", testProductsOrderedByName},
		{"ProductPatch", testProductPatch},
		{"DuplicateSKU", testDuplicateSKU},
		{"DeleteProductCascades", testDeleteProductCascades},
		{"CategoryCRUD", testCategoryCRUD},
		{"LinkIdempotent", testLinkIdempotent},
		{"ShippingRejected", testShippingRejected},
		{"QuantityInvariant", testQuantityInvariant},
		{"RollbackOnFailure", testRollbackOnFailure},
		{"EntryImmutable", testEntryImmutable},
		{"EntriesNewestFirst", testEntriesNewestFirst},
		{"ConcurrentShipping", testConcurrentShipping},
		{"QuantityOverflow", testQuantityOverflow},
		{"LockMissingProduct", testLockMissingProduct},
		{"InsertEntryMissingProduct", testInsertEntryMissingProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			t.Cleanup(func() { store.Close() })
			tt.fn(t, store)
		})
	}
}

// CreateProduct is a fixture helper.
func CreateProduct(t *testing.T, store inventory.Store, name, sku string, quantity int64) *inventory.Product {
	t.Helper()
	p, err := inventory.NewCatalog(store).CreateProduct(context.Background(), inventory.NewProduct{
		Name:     name,
		SKU:      sku,
		Price:    decimal.RequireFromString("9.99"),
		Quantity: quantity,
	})
	require.NoError(t, err)
	return p
}

// =============================================================================
// PRODUCTS
// =============================================================================

func testProductRoundTrip(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(store)
	desc := "Stainless, 500ml"

	// GIVEN: a new product
	created, err := catalog.CreateProduct(ctx, inventory.NewProduct{
		Name:        "Water Bottle",
		Description: &desc,
		SKU:         "WB-500",
		Price:       decimal.RequireFromString("19.99"),
		Quantity:    12,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	// WHEN: it is read back
	got, err := catalog.GetProduct(ctx, created.ID)
	require.NoError(t, err)

	// THEN: every supplied field matches
	assert.Equal(t, "Water Bottle", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	assert.Equal(t, "WB-500", got.SKU)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")), "price %s", got.Price)
	assert.Equal(t, int64(12), got.Quantity)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
}

func testProductsOrderedByName(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	CreateProduct(t, store, "Wrench", "W-1", 0)
	CreateProduct(t, store, "Anvil", "A-1", 0)
	CreateProduct(t, store, "Hammer", "H-1", 0)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Anvil", products[0].Name)
	assert.Equal(t, "Hammer", products[1].Name)
	assert.Equal(t, "Wrench", products[2].Name)
}

func testProductPatch(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(store)
	p := CreateProduct(t, store, "Widget", "WID-1", 4)

	// WHEN: only price and description change
	updated, err := catalog.UpdateProduct(ctx, p.ID, inventory.Changes{
		"price":       []byte(`"12.50"`),
		"description": []byte(`"blue"`),
	})
	require.NoError(t, err)

	// THEN: untouched fields keep their values
	assert.Equal(t, "Widget", updated.Name)
	assert.Equal(t, "WID-1", updated.SKU)
	assert.Equal(t, int64(4), updated.Quantity)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("12.5")))
	require.NotNil(t, updated.Description)
	assert.Equal(t, "blue", *updated.Description)
	assert.False(t, updated.UpdatedAt.Before(p.UpdatedAt))

	// AND: null clears the description
	cleared, err := catalog.UpdateProduct(ctx, p.ID, inventory.Changes{"description": []byte(`null`)})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)

	// AND: quantity cannot be patched
	_, err = catalog.UpdateProduct(ctx, p.ID, inventory.Changes{"quantity": []byte(`100`)})
	assert.ErrorIs(t, err, inventory.ErrImmutable)

	// AND: unknown id is NotFound
	_, err = catalog.UpdateProduct(ctx, 999999, inventory.Changes{"name": []byte(`"x"`)})
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func testDuplicateSKU(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(store)
	CreateProduct(t, store, "First", "DUP-1", 0)
	second := CreateProduct(t, store, "Second", "DUP-2", 0)

	_, err := catalog.CreateProduct(ctx, inventory.NewProduct{Name: "Third", SKU: "DUP-1"})
	assert.ErrorIs(t, err, inventory.ErrConflict)

	_, err = catalog.UpdateProduct(ctx, second.ID, inventory.Changes{"sku": []byte(`"DUP-1"`)})
	assert.ErrorIs(t, err, inventory.ErrConflict)
}

func testDeleteProductCascades(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(store)
	ledger := inventory.NewLedger(store)

	p := CreateProduct(t, store, "Doomed", "DOOM-1", 3)
	cat, err := catalog.CreateCategory(ctx, "Tools")
	require.NoError(t, err)
	require.NoError(t, catalog.AddProduct(ctx, cat.ID, p.ID))
	entry, err := ledger.RecordTransaction(ctx, p.ID, 2, inventory.KindReceiving, nil)
	require.NoError(t, err)

	// WHEN: the product is deleted
	ok, err := catalog.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// THEN: its links and ledger rows are gone
	inCat, err := catalog.ProductsInCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Empty(t, inCat)
	_, err = ledger.GetTransaction(ctx, entry.ID)
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	// AND: deleting again reports nothing was there
	ok, err = catalog.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// CATEGORIES
// =============================================================================

func testCategoryCRUD(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(store)

	garden, err := catalog.CreateCategory(ctx, "Garden")
	require.NoError(t, err)
	_, err = catalog.CreateCategory(ctx, "Bath")
	require.NoError(t, err)

	_, err = catalog.CreateCategory(ctx, "Garden")
	assert.ErrorIs(t, err, inventory.ErrConflict)

	list, err := catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bath", list[0].Name)

	renamed, err := catalog.UpdateCategory(ctx, garden.ID, inventory.Changes{"name": []byte(`"Outdoor"`)})
	require.NoError(t, err)
	assert.Equal(t, "Outdoor", renamed.Name)

	ok, err := catalog.DeleteCategory(ctx, garden.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = catalog.GetCategory(ctx, garden.ID)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func testLinkIdempotent(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	catalog := inventory.NewCatalog(store)
	p := CreateProduct(t, store, "Rake", "RAKE-1", 0)
	cat, err := catalog.CreateCategory(ctx, "Garden")
	require.NoError(t, err)

	// WHEN: the same pair is linked twice
	require.NoError(t, catalog.AddProduct(ctx, cat.ID, p.ID))
	require.NoError(t, catalog.AddProduct(ctx, cat.ID, p.ID))

	// THEN: the link set holds it once
	products, err := catalog.ProductsInCategory(ctx, cat.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)

	// AND: linking a missing product is NotFound
	err = catalog.AddProduct(ctx, cat.ID, 999999)
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	ok, err := catalog.RemoveProduct(ctx, cat.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = catalog.RemoveProduct(ctx, cat.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// LEDGER
// =============================================================================

func testShippingRejected(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	ledger := inventory.NewLedger(store)

	// GIVEN: a product with quantity 5
	p := CreateProduct(t, store, "Crate", "CRATE-1", 5)

	// WHEN: shipping 10
	_, err := ledger.RecordTransaction(ctx, p.ID, 10, inventory.KindShipping, nil)

	// THEN: rejected, quantity unchanged, no ledger row
	require.ErrorIs(t, err, inventory.ErrNegativeInventory)
	var neg *inventory.NegativeInventoryError
	require.True(t, errors.As(err, &neg))
	assert.Equal(t, int64(-5), neg.Resulting)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Quantity)

	entries, err := ledger.TransactionsByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testQuantityInvariant(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	ledger := inventory.NewLedger(store)
	p := CreateProduct(t, store, "Bolt", "BOLT-1", 10)

	moves := []struct {
		kind      inventory.Kind
		magnitude int64
	}{
		{inventory.KindReceiving, 5},
		{inventory.KindShipping, 3},
		{inventory.KindShipping, -2}, // normalized, still ships 2
		{inventory.KindAdjustment, -4},
		{inventory.KindAdjustment, 1},
		{inventory.KindShipping, 50}, // rejected
	}
	for _, m := range moves {
		_, _ = ledger.RecordTransaction(ctx, p.ID, m.magnitude, m.kind, nil)
	}

	entries, err := ledger.TransactionsByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	sum := int64(10)
	for _, e := range entries {
		effect, err := inventory.Effect(e.Kind, e.Quantity)
		require.NoError(t, err)
		sum += effect
	}

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Quantity)
	assert.Equal(t, sum, got.Quantity)
}

func testRollbackOnFailure(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	p := CreateProduct(t, store, "Fragile", "FRAG-1", 5)

	// GIVEN: a store whose quantity update fails after the insert succeeded
	boom := errors.New("disk on fire")
	ledger := inventory.NewLedger(&FailingStore{Store: store, ApplyDeltaErr: boom})

	// WHEN: recording a movement
	_, err := ledger.RecordTransaction(ctx, p.ID, 2, inventory.KindReceiving, nil)

	// THEN: the failure surfaces and neither write is visible
	require.ErrorIs(t, err, boom)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Quantity)

	entries, err := store.ListEntries(ctx, inventory.EntryFilter{ProductID: &p.ID})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testEntryImmutable(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	ledger := inventory.NewLedger(store)
	p := CreateProduct(t, store, "Gear", "GEAR-1", 0)
	entry, err := ledger.RecordTransaction(ctx, p.ID, 8, inventory.KindReceiving, nil)
	require.NoError(t, err)

	_, err = ledger.UpdateTransaction(ctx, entry.ID, inventory.Changes{"quantity": []byte(`99`)})
	assert.ErrorIs(t, err, inventory.ErrImmutable)
	_, err = ledger.UpdateTransaction(ctx, entry.ID, inventory.Changes{"transaction_type": []byte(`"shipping"`)})
	assert.ErrorIs(t, err, inventory.ErrImmutable)

	updated, err := ledger.UpdateTransaction(ctx, entry.ID, inventory.Changes{"notes": []byte(`"x"`)})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "x", *updated.Notes)
	assert.Equal(t, int64(8), updated.Quantity)
	assert.Equal(t, inventory.KindReceiving, updated.Kind)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Quantity)

	_, err = ledger.UpdateTransaction(ctx, 999999, inventory.Changes{"notes": []byte(`"x"`)})
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func testEntriesNewestFirst(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	ledger := inventory.NewLedger(store)
	a := CreateProduct(t, store, "A", "A-1", 0)
	b := CreateProduct(t, store, "B", "B-1", 0)

	first, err := ledger.RecordTransaction(ctx, a.ID, 1, inventory.KindReceiving, nil)
	require.NoError(t, err)
	_, err = ledger.RecordTransaction(ctx, b.ID, 1, inventory.KindReceiving, nil)
	require.NoError(t, err)
	last, err := ledger.RecordTransaction(ctx, a.ID, 1, inventory.KindReceiving, nil)
	require.NoError(t, err)

	all, err := ledger.ListTransactions(ctx, inventory.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, last.ID, all[0].ID)

	forA, err := ledger.TransactionsByProduct(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, forA, 2)
	assert.Equal(t, last.ID, forA[0].ID)
	assert.Equal(t, first.ID, forA[1].ID)
}

func testConcurrentShipping(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	ledger := inventory.NewLedger(store)

	// GIVEN: quantity 5 and two shipments of 3
	p := CreateProduct(t, store, "Hot Item", "HOT-1", 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.RecordTransaction(ctx, p.ID, 3, inventory.KindShipping, nil)
		}(i)
	}
	wg.Wait()

	// THEN: exactly one succeeds
	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, inventory.ErrNegativeInventory):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Quantity)
}

func testQuantityOverflow(t *testing.T, store inventory.Store) {
	ctx := context.Background()
	ledger := inventory.NewLedger(store)

	// GIVEN: a product with quantity 5
	p := CreateProduct(t, store, "Bulk", "BULK-1", 5)

	// WHEN: receiving enough to pass the int64 maximum
	_, err := ledger.RecordTransaction(ctx, p.ID, math.MaxInt64, inventory.KindReceiving, nil)

	// THEN: a validation error, not a negative-inventory one, and nothing written
	require.ErrorIs(t, err, inventory.ErrValidation)
	assert.NotErrorIs(t, err, inventory.ErrNegativeInventory)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Quantity)

	entries, err := ledger.TransactionsByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// AND: the largest receipt that fits still succeeds
	_, err = ledger.RecordTransaction(ctx, p.ID, math.MaxInt64-5, inventory.KindReceiving, nil)
	require.NoError(t, err)
	got, err = store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.Quantity)
}

func testLockMissingProduct(t *testing.T, store inventory.Store) {
	ctx := context.Background()

	// WHEN: a unit of work locks a product that does not exist
	err := store.WithTx(ctx, func(tx inventory.LedgerTx) error {
		_, err := tx.LockProduct(ctx, 424242)
		return err
	})

	// THEN
	assert.True(t, inventory.IsNotFound(err), "got %v", err)
}

// A product deleted after RecordTransaction's existence check still reports
// NotFound when the entry insert reaches the store.
func testInsertEntryMissingProduct(t *testing.T, store inventory.Store) {
	ctx := context.Background()

	// GIVEN: a product that has been deleted
	p := CreateProduct(t, store, "Gone", "GONE-1", 1)
	deleted, err := store.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	// WHEN: inserting an entry for it
	err = store.WithTx(ctx, func(tx inventory.LedgerTx) error {
		_, err := tx.InsertEntry(ctx, inventory.NewEntry{
			ProductID: p.ID,
			Quantity:  1,
			Kind:      inventory.KindReceiving,
		})
		return err
	})

	// THEN: NotFound for the product, not a generic store failure
	var nf *inventory.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Product", nf.Entity)
	assert.Equal(t, int64(p.ID), nf.ID)
}

// =============================================================================
// FAILURE INJECTION
// =============================================================================

// FailingStore wraps a store so that ApplyDelta fails inside the unit of
// work, after InsertEntry has already run.
type FailingStore struct {
	inventory.Store
	ApplyDeltaErr error
}

func (f *FailingStore) WithTx(ctx context.Context, fn func(inventory.LedgerTx) error) error {
	return f.Store.WithTx(ctx, func(tx inventory.LedgerTx) error {
		return fn(&failingTx{LedgerTx: tx, err: f.ApplyDeltaErr})
	})
}

type failingTx struct {
	inventory.LedgerTx
	err error
}

func (f *failingTx) ApplyDelta(context.Context, inventory.ProductID, int64) (int64, error) {
	return 0, f.err
}
