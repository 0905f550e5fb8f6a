package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/inventory/inventorytest"
)

func TestMemory_Contract(t *testing.T) {
	inventorytest.RunStoreContract(t, func(t *testing.T) inventory.Store {
		return New()
	})
}

func TestMemory_WithTxRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	m := New()
	p := inventorytest.CreateProduct(t, m, "Box", "BOX-1", 1)

	// WHEN: a unit of work writes and then fails
	err := m.WithTx(ctx, func(tx inventory.LedgerTx) error {
		_, err := tx.InsertEntry(ctx, inventory.NewEntry{ProductID: p.ID, Quantity: 4, Kind: inventory.KindReceiving})
		require.NoError(t, err)
		_, err = tx.ApplyDelta(ctx, p.ID, 4)
		require.NoError(t, err)
		return inventory.ErrValidation
	})
	require.ErrorIs(t, err, inventory.ErrValidation)

	// THEN: both writes are gone and ids are not consumed
	got, err := m.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Quantity)

	entries, err := m.ListEntries(ctx, inventory.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	next := inventorytest.CreateProduct(t, m, "Lid", "LID-1", 0)
	assert.Equal(t, p.ID+1, next.ID)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := New()
	desc := "original"
	p, err := m.CreateProduct(ctx, inventory.NewProduct{Name: "Cup", SKU: "CUP-1", Description: &desc})
	require.NoError(t, err)

	*p.Description = "mutated"

	got, err := m.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", *got.Description)
}
