package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return New(memory.New())
}

func invoke(t *testing.T, d *Dispatcher, action, params string) Response {
	t.Helper()
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	return d.Invoke(context.Background(), action, raw)
}

func mustSucceed(t *testing.T, resp Response) Response {
	t.Helper()
	require.True(t, resp.Success, "unexpected failure: %s (%v)", resp.Message, resp.Err)
	return resp
}

// brokenStore fails every product listing.
type brokenStore struct {
	inventory.Store
}

func (brokenStore) ListProducts(context.Context) ([]inventory.Product, error) {
	return nil, errors.New("connection refused: 10.0.0.5:3306")
}

// =============================================================================
// ROUTING
// =============================================================================

func TestInvoke_MissingAction(t *testing.T) {
	resp := invoke(t, newTestDispatcher(t), "  ", "")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "Action is required", resp.Message)
	assert.ErrorIs(t, resp.Err, inventory.ErrValidation)
}

func TestInvoke_UnknownEntityAndOperation(t *testing.T) {
	d := newTestDispatcher(t)

	resp := invoke(t, d, "warehouse.list", "")
	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown entity: warehouse", resp.Message)

	resp = invoke(t, d, "product.explode", "")
	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown operation: explode", resp.Message)
}

func TestInvoke_ParamsMustBeObject(t *testing.T) {
	resp := invoke(t, newTestDispatcher(t), "product.get", `[1,2]`)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, inventory.ErrValidation)
}

func TestActions(t *testing.T) {
	actions := newTestDispatcher(t).Actions()
	assert.Len(t, actions, 18)
	assert.Contains(t, actions, "category.addProduct")
	assert.Contains(t, actions, "transaction.byProduct")
}

// =============================================================================
// PRODUCTS
// =============================================================================

func TestProductLifecycle(t *testing.T) {
	d := newTestDispatcher(t)

	// GIVEN: a created product
	resp := mustSucceed(t, invoke(t, d, "product.create",
		`{"name":"Desk","sku":"DESK-1","price":"149.90","quantity":3}`))
	assert.Equal(t, "Product created successfully", resp.Message)
	created := resp.Data.(*inventory.Product)

	// WHEN: fetched
	resp = mustSucceed(t, invoke(t, d, "product.get", `{"id":1}`))
	assert.Equal(t, "Operation successful", resp.Message)
	assert.Equal(t, created.ID, resp.Data.(*inventory.Product).ID)

	// AND: updated through "changes"
	resp = mustSucceed(t, invoke(t, d, "product.update", `{"id":1,"changes":{"name":"Standing Desk"}}`))
	assert.Equal(t, "Product updated successfully", resp.Message)
	assert.Equal(t, "Standing Desk", resp.Data.(*inventory.Product).Name)

	// AND: updated with flat params
	resp = mustSucceed(t, invoke(t, d, "product.update", `{"id":1,"price":99}`))
	assert.Equal(t, "99", resp.Data.(*inventory.Product).Price.String())

	// THEN: delete succeeds once, then reports not found
	resp = mustSucceed(t, invoke(t, d, "product.delete", `{"id":1}`))
	assert.Equal(t, "Product deleted successfully", resp.Message)
	assert.Nil(t, resp.Data)

	resp = invoke(t, d, "product.delete", `{"id":1}`)
	assert.False(t, resp.Success)
	assert.Equal(t, "Product with ID 1 not found", resp.Message)
}

func TestProductGet_NotFound(t *testing.T) {
	resp := invoke(t, newTestDispatcher(t), "product.get", `{"id":"42"}`)

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "Product with ID 42 not found", resp.Message)
	assert.True(t, inventory.IsNotFound(resp.Err))
}

func TestProductUpdate_QuantityImmutable(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"Desk","sku":"DESK-1","price":1}`))

	resp := invoke(t, d, "product.update", `{"id":1,"changes":{"quantity":50}}`)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, inventory.ErrImmutable)
	assert.Contains(t, resp.Message, "Failed to update product: ")
}

func TestProductCreate_DuplicateSKU(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"Desk","sku":"DESK-1","price":1}`))

	resp := invoke(t, d, "product.create", `{"name":"Other","sku":"DESK-1","price":1}`)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, inventory.ErrConflict)
	assert.Equal(t, `Failed to create product: Product with sku "DESK-1" already exists`, resp.Message)
}

func TestProductCreate_MissingName(t *testing.T) {
	resp := invoke(t, newTestDispatcher(t), "product.create", `{"sku":"X"}`)
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to create product: invalid name: is required", resp.Message)
}

// =============================================================================
// CATEGORIES
// =============================================================================

func TestCategoryLinking(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"Desk","sku":"DESK-1","price":1}`))
	resp := mustSucceed(t, invoke(t, d, "category.create", `{"name":"Office"}`))
	assert.Equal(t, "Category created successfully", resp.Message)
	cat := resp.Data.(*inventory.Category)

	link := `{"categoryId":` + jsonInt(int64(cat.ID)) + `,"productId":1}`

	// WHEN: linked twice
	resp = mustSucceed(t, invoke(t, d, "category.addProduct", link))
	assert.Equal(t, "Product added to category successfully", resp.Message)
	mustSucceed(t, invoke(t, d, "category.addProduct", link))

	// THEN: listed once
	resp = mustSucceed(t, invoke(t, d, "category.products", `{"id":`+jsonInt(int64(cat.ID))+`}`))
	assert.Len(t, resp.Data.([]inventory.Product), 1)

	// AND: removal reports whether the link existed
	resp = mustSucceed(t, invoke(t, d, "category.removeProduct", link))
	assert.Equal(t, "Product removed from category successfully", resp.Message)

	resp = invoke(t, d, "category.removeProduct", link)
	assert.False(t, resp.Success)
	assert.Equal(t, "Product was not in the specified category", resp.Message)
	assert.True(t, inventory.IsNotFound(resp.Err))
}

func TestCategoryAddProduct_MissingIDs(t *testing.T) {
	resp := invoke(t, newTestDispatcher(t), "category.addProduct", `{"categoryId":1}`)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, inventory.ErrValidation)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactionCreate_AppliesEffect(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"Desk","sku":"DESK-1","price":1,"quantity":5}`))

	resp := mustSucceed(t, invoke(t, d, "transaction.create",
		`{"product_id":1,"quantity":2,"transaction_type":"shipping","notes":"order 7"}`))
	assert.Equal(t, "Inventory transaction created successfully", resp.Message)
	entry := resp.Data.(*inventory.LedgerEntry)
	assert.Equal(t, inventory.KindShipping, entry.Kind)

	resp = mustSucceed(t, invoke(t, d, "product.get", `{"id":1}`))
	assert.Equal(t, int64(3), resp.Data.(*inventory.Product).Quantity)
}

func TestTransactionCreate_NegativeInventory(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"Desk","sku":"DESK-1","price":1,"quantity":5}`))

	resp := invoke(t, d, "transaction.create", `{"product_id":1,"quantity":10,"transaction_type":"shipping"}`)

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.ErrorIs(t, resp.Err, inventory.ErrNegativeInventory)
	assert.Contains(t, resp.Message, "Failed to create transaction: transaction would cause negative inventory")

	list := mustSucceed(t, invoke(t, d, "transaction.byProduct", `{"productId":1}`))
	assert.Empty(t, list.Data.([]inventory.LedgerEntry))
}

func TestTransactionCreate_BadKind(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"Desk","sku":"DESK-1","price":1}`))

	resp := invoke(t, d, "transaction.create", `{"product_id":1,"quantity":1,"transaction_type":"theft"}`)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, inventory.ErrValidation)
}

func TestTransactionUpdate_NotesOnly(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"Desk","sku":"DESK-1","price":1}`))
	mustSucceed(t, invoke(t, d, "transaction.create", `{"product_id":1,"quantity":4,"transaction_type":"receiving"}`))

	resp := invoke(t, d, "transaction.update", `{"id":2,"changes":{"quantity":99}}`)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Err, inventory.ErrImmutable)

	resp = mustSucceed(t, invoke(t, d, "transaction.update", `{"id":2,"changes":{"notes":"recounted"}}`))
	assert.Equal(t, "Transaction updated successfully", resp.Message)
	entry := resp.Data.(*inventory.LedgerEntry)
	assert.Equal(t, "recounted", *entry.Notes)
	assert.Equal(t, int64(4), entry.Quantity)
}

func TestTransactionList_FilterByProduct(t *testing.T) {
	d := newTestDispatcher(t)
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"A","sku":"A","price":1}`))
	mustSucceed(t, invoke(t, d, "product.create", `{"name":"B","sku":"B","price":1}`))
	mustSucceed(t, invoke(t, d, "transaction.create", `{"product_id":1,"quantity":1,"transaction_type":"receiving"}`))
	mustSucceed(t, invoke(t, d, "transaction.create", `{"product_id":2,"quantity":1,"transaction_type":"receiving"}`))

	all := mustSucceed(t, invoke(t, d, "transaction.list", ""))
	assert.Len(t, all.Data.([]inventory.LedgerEntry), 2)

	one := mustSucceed(t, invoke(t, d, "transaction.list", `{"product_id":2}`))
	assert.Len(t, one.Data.([]inventory.LedgerEntry), 1)
}

// =============================================================================
// FAILURES, LOGGING, TRACING
// =============================================================================

func TestStoreFailure_GenericMessageAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	d := New(brokenStore{Store: memory.New()}, WithLogger(zap.New(core)))

	resp := invoke(t, d, "product.list", "")

	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to fetch products", resp.Message)
	assert.NotContains(t, resp.Message, "10.0.0.5")
	assert.False(t, inventory.IsClientError(resp.Err))

	entries := logs.FilterMessage("action failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "product.list", entries[0].ContextMap()["action"])
}

func TestInvoke_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	d := New(memory.New(), WithTracer(tp.Tracer("test")))

	invoke(t, d, "product.list", "")
	invoke(t, d, "product.get", `{"id":9}`)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "dispatch.product.list", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "dispatch.product.get", spans[1].Name())
	assert.NotEqual(t, codes.Error, spans[1].Status().Code)
}

func TestInvoke_IgnoresCallerCancellation(t *testing.T) {
	d := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := d.Invoke(ctx, "product.create", json.RawMessage(`{"name":"Desk","sku":"DESK-1","price":1}`))
	assert.True(t, resp.Success)
}

func TestSchema(t *testing.T) {
	s := newTestDispatcher(t).Schema()

	assert.Equal(t, "InventoryManagementSystem", s.Name)
	assert.Contains(t, s.Types, "Product")
	assert.Contains(t, s.Types, "InventoryTransaction")
	require.Len(t, s.Actions, 18)
	for _, a := range s.Actions {
		if a.Name == "transaction.create" {
			assert.Contains(t, a.Params, "transaction_type")
		}
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
