/*
handlers_test.go - Unit tests for API handlers

Tests for:
- POST /action envelope and status codes
- REST routes and their error status mapping
- /schema and /health
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/dispatch"
	"github.com/warp/inventory-ledger/store/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(setupTestHandler(t))
}

// createProduct posts a product and returns its id.
func createProduct(t *testing.T, router http.Handler, sku string, qty int) int64 {
	t.Helper()
	body := `{"name":"Widget ` + sku + `","sku":"` + sku + `","price":"9.99","quantity":` + itoa(qty) + `}`
	rec := do(t, router, http.MethodPost, "/api/products", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &p))
	return p.ID
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// =============================================================================
// POST /action
// =============================================================================

func TestAction_Success(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/action",
		`{"action":"product.create","params":{"name":"Bolt","sku":"B-1","price":0.25}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Product created successfully", env.Message)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAction_BusinessFailureIs200(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/action", `{"action":"product.get","params":{"id":42}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Product with ID 42 not found", env.Message)
	assert.Equal(t, "null", string(env.Data))
}

func TestAction_BadRequests(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"action":`},
		{"missing action", `{"params":{}}`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/action", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decode(t, rec).Success)
		})
	}
}

// =============================================================================
// REST
// =============================================================================

func TestProducts_CRUD(t *testing.T) {
	router := newRouter(t)

	// GIVEN: a product
	id := createProduct(t, router, "W-1", 3)
	path := "/api/products/" + itoa(int(id))

	// WHEN: renaming it
	rec := do(t, router, http.MethodPatch, path, `{"name":"Renamed"}`)

	// THEN: the new name is returned and readable
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"Renamed"`)

	// Delete, then it is gone
	rec = do(t, router, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", decode(t, rec).Message)

	rec = do(t, router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_StatusMapping(t *testing.T) {
	router := newRouter(t)
	id := createProduct(t, router, "W-1", 5)
	path := "/api/products/" + itoa(int(id))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"duplicate sku", http.MethodPost, "/api/products", `{"name":"Dup","sku":"W-1","price":"1.00"}`, http.StatusConflict},
		{"quantity immutable", http.MethodPatch, path, `{"quantity":99}`, http.StatusUnprocessableEntity},
		{"missing name", http.MethodPost, "/api/products", `{"sku":"W-2","price":"1.00"}`, http.StatusBadRequest},
		{"non-numeric id", http.MethodGet, "/api/products/abc", "", http.StatusBadRequest},
		{"unknown id", http.MethodDelete, "/api/products/999", "", http.StatusNotFound},
		{"body not an object", http.MethodPost, "/api/products", `[1,2]`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.False(t, decode(t, rec).Success)
		})
	}
}

func TestTransactions_ShippingRejectedWith422(t *testing.T) {
	router := newRouter(t)

	// GIVEN: 5 on hand
	id := createProduct(t, router, "W-1", 5)

	// WHEN: shipping 10
	rec := do(t, router, http.MethodPost, "/api/transactions",
		`{"product_id":`+itoa(int(id))+`,"quantity":10,"transaction_type":"shipping"}`)

	// THEN: rejected, quantity unchanged, no ledger row
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/products/"+itoa(int(id)), "")
	assert.Contains(t, string(decode(t, rec).Data), `"quantity":5`)

	rec = do(t, router, http.MethodGet, "/api/products/"+itoa(int(id))+"/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(decode(t, rec).Data))
}

func TestTransactions_CreateListUpdate(t *testing.T) {
	router := newRouter(t)
	a := createProduct(t, router, "A", 0)
	b := createProduct(t, router, "B", 0)

	rec := do(t, router, http.MethodPost, "/api/transactions",
		`{"product_id":`+itoa(int(a))+`,"quantity":10,"transaction_type":"receiving","notes":"PO-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &entry))

	rec = do(t, router, http.MethodPost, "/api/transactions",
		`{"product_id":`+itoa(int(b))+`,"quantity":2,"transaction_type":"receiving"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Filter by product
	rec = do(t, router, http.MethodGet, "/api/transactions?product_id="+itoa(int(a)), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "PO-1", entries[0]["notes"])

	// Notes are editable, quantity is not
	txPath := "/api/transactions/" + itoa(int(entry.ID))
	rec = do(t, router, http.MethodPatch, txPath, `{"notes":"PO-1 corrected"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPatch, txPath, `{"quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCategories_Membership(t *testing.T) {
	router := newRouter(t)
	pid := createProduct(t, router, "W-1", 0)

	rec := do(t, router, http.MethodPost, "/api/categories", `{"name":"Tools"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var c struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &c))
	linkPath := "/api/categories/" + itoa(int(c.ID)) + "/products/" + itoa(int(pid))

	// Linking twice is fine
	for i := 0; i < 2; i++ {
		rec = do(t, router, http.MethodPut, linkPath, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/api/categories/"+itoa(int(c.ID))+"/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &products))
	assert.Len(t, products, 1)

	rec = do(t, router, http.MethodDelete, linkPath, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second unlink reports the missing link
	rec = do(t, router, http.MethodDelete, linkPath, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product was not in the specified category", decode(t, rec).Message)

	rec = do(t, router, http.MethodPost, "/api/categories", `{"name":"Tools"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// SCHEMA / HEALTH / RESET
// =============================================================================

func TestSchema(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/schema", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var schema dispatch.Schema
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Contains(t, schema.Types, "Product")
	assert.NotEmpty(t, schema.Actions)
}

func TestHealth(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var h HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "sqlite", h.Database)
}

type downStore struct{ *memory.Memory }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_Unavailable(t *testing.T) {
	store := downStore{memory.New()}
	router := NewRouter(NewHandler(store, dispatch.New(store), nil))

	rec := do(t, router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestResetDatabase(t *testing.T) {
	router := newRouter(t)
	createProduct(t, router, "W-1", 1)

	rec := do(t, router, http.MethodPost, "/api/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/products", "")
	assert.Equal(t, "[]", string(decode(t, rec).Data))
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/action", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
