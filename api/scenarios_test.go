/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario sets up the expected state: categories exist,
	products are linked, and every quantity equals the sum of its ledger.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/dispatch"
	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewHandler(store, dispatch.New(store), nil)
}

func TestScenario_HardwareStore(t *testing.T) {
	// GIVEN: the hardware store scenario
	handler := setupTestHandler(t)
	ctx := context.Background()

	// WHEN: loading it
	require.NoError(t, handler.loadScenario(ctx, "hardware-store"))

	// THEN: products are listed by name with quantities net of every movement
	products, err := handler.catalog.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 4)

	want := map[string]int64{
		"Anchor Kit":             32,
		"Claw Hammer":            28,
		"Cordless Drill":         6,
		"Wood Screws 4x40 (200)": 175,
	}
	for _, p := range products {
		assert.Equal(t, want[p.Name], p.Quantity, p.Name)
	}
	assert.Equal(t, "Anchor Kit", products[0].Name)

	categories, err := handler.catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)

	// Anchor Kit sits in both categories
	for _, c := range categories {
		inCategory, err := handler.catalog.ProductsInCategory(ctx, c.ID)
		require.NoError(t, err)
		names := make([]string, len(inCategory))
		for i, p := range inCategory {
			names[i] = p.Name
		}
		assert.Contains(t, names, "Anchor Kit", c.Name)
	}
}

func TestScenario_QuantityMatchesLedger(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, handler.loadScenario(ctx, "hardware-store"))

	products, err := handler.catalog.ListProducts(ctx)
	require.NoError(t, err)
	for _, p := range products {
		entries, err := handler.ledger.TransactionsByProduct(ctx, p.ID)
		require.NoError(t, err)
		var sum int64
		for _, e := range entries {
			effect, err := inventory.Effect(e.Kind, e.Quantity)
			require.NoError(t, err)
			sum += effect
		}
		assert.Equal(t, sum, p.Quantity, p.Name)
	}
}

func TestScenario_LowStockRejectsShipping(t *testing.T) {
	// GIVEN: one unit left
	handler := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, handler.loadScenario(ctx, "low-stock"))

	products, err := handler.catalog.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, int64(1), products[0].Quantity)

	// WHEN: shipping two
	_, err = handler.ledger.RecordTransaction(ctx, products[0].ID, 2, inventory.KindShipping, nil)

	// THEN
	assert.ErrorIs(t, err, inventory.ErrNegativeInventory)
}

func TestScenario_ReloadReplacesData(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, handler.loadScenario(ctx, "hardware-store"))
	require.NoError(t, handler.loadScenario(ctx, "empty"))

	products, err := handler.catalog.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)

	categories, err := handler.catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 3)
}

func TestScenario_Unknown(t *testing.T) {
	handler := setupTestHandler(t)

	rec := do(t, NewRouter(handler), http.MethodPost, "/api/scenarios/load", `{"scenario_id":"nope"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	handler := setupTestHandler(t)
	router := NewRouter(handler)

	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"`+s.ID+`"}`)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}
