/*
handlers.go - HTTP API handlers for the inventory ledger

PURPOSE:
  Exposes the dispatcher over HTTP. The REST routes are thin: each one
  assembles the action parameters from the path and body, invokes the
  dispatcher and picks a status code from the outcome. Every body is the
  {success, data, message} envelope.

ENDPOINTS:
  Generic:
    POST   /action                                 {action, params}
    GET    /schema                                 Self-description
    GET    /health                                 Database ping

  Products:
    GET    /api/products                           product.list
    POST   /api/products                           product.create
    GET    /api/products/{id}                      product.get
    PATCH  /api/products/{id}                      product.update
    DELETE /api/products/{id}                      product.delete
    GET    /api/products/{id}/transactions         transaction.byProduct

  Categories:
    GET    /api/categories                         category.list
    POST   /api/categories                         category.create
    GET    /api/categories/{id}                    category.get
    PATCH  /api/categories/{id}                    category.update
    DELETE /api/categories/{id}                    category.delete
    GET    /api/categories/{id}/products           category.products
    PUT    /api/categories/{id}/products/{pid}     category.addProduct
    DELETE /api/categories/{id}/products/{pid}     category.removeProduct

  Transactions:
    GET    /api/transactions[?product_id=N]        transaction.list
    POST   /api/transactions                       transaction.create
    GET    /api/transactions/{id}                  transaction.get
    PATCH  /api/transactions/{id}                  transaction.update

ERROR HANDLING:
  POST /action answers 200 whenever the dispatcher ran, 400 when the body
  is unreadable or has no action. REST routes map the failure kind:
  - 400: Validation errors, invalid input
  - 404: Product, category or transaction not found
  - 409: Duplicate SKU or category name
  - 422: Negative inventory, immutable ledger field
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/dispatch"
	"github.com/warp/inventory-ledger/inventory"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the HTTP layer needs beyond the dispatcher.
type Store interface {
	inventory.Store
	Ping(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store      Store
	dispatcher *dispatch.Dispatcher
	catalog    *inventory.Catalog
	ledger     *inventory.Ledger
	logger     *zap.Logger
}

// NewHandler creates a handler over store. d must be built on the same store.
func NewHandler(store Store, d *dispatch.Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:      store,
		dispatcher: d,
		catalog:    inventory.NewCatalog(store),
		ledger:     inventory.NewLedger(store),
		logger:     logger,
	}
}

// =============================================================================
// GENERIC HANDLERS
// =============================================================================

// Action runs one {action, params} call.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dispatch.Response{Message: "Invalid request body: " + err.Error()})
		return
	}

	resp := h.dispatcher.Invoke(r.Context(), req.Action, req.Params)
	status := http.StatusOK
	if req.Action == "" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

// Schema returns the self-description.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dispatcher.Schema())
}

// Health pings the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: databaseName(h.store)}
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		resp.Status = "unavailable"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func databaseName(s Store) string {
	if d, ok := s.(interface{ Dialect() string }); ok {
		return d.Dialect()
	}
	return "memory"
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "product.list", nil, http.StatusOK)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := readParams(w, r)
	if !ok {
		return
	}
	h.invoke(w, r, "product.create", p, http.StatusCreated)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "product.get", pathParams(r, "id", "id"), http.StatusOK)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "product.update")
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "product.delete", pathParams(r, "id", "id"), http.StatusOK)
}

func (h *Handler) ProductTransactions(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "transaction.byProduct", pathParams(r, "productId", "id"), http.StatusOK)
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "category.list", nil, http.StatusOK)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := readParams(w, r)
	if !ok {
		return
	}
	h.invoke(w, r, "category.create", p, http.StatusCreated)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "category.get", pathParams(r, "id", "id"), http.StatusOK)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "category.update")
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "category.delete", pathParams(r, "id", "id"), http.StatusOK)
}

func (h *Handler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "category.products", pathParams(r, "id", "id"), http.StatusOK)
}

func (h *Handler) LinkProduct(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "category.addProduct", pathParams(r, "categoryId", "id", "productId", "productID"), http.StatusOK)
}

func (h *Handler) UnlinkProduct(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "category.removeProduct", pathParams(r, "categoryId", "id", "productId", "productID"), http.StatusOK)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	p := map[string]json.RawMessage{}
	if pid := r.URL.Query().Get("product_id"); pid != "" {
		p["product_id"] = quote(pid)
	}
	h.invoke(w, r, "transaction.list", p, http.StatusOK)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := readParams(w, r)
	if !ok {
		return
	}
	h.invoke(w, r, "transaction.create", p, http.StatusCreated)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "transaction.get", pathParams(r, "id", "id"), http.StatusOK)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "transaction.update")
}

// =============================================================================
// HELPERS
// =============================================================================

// update sends the body as the changes of the entity named by {id}.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, action string) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	p := pathParams(r, "id", "id")
	p["changes"] = body
	h.invoke(w, r, action, p, http.StatusOK)
}

func (h *Handler) invoke(w http.ResponseWriter, r *http.Request, action string, p map[string]json.RawMessage, okStatus int) {
	var raw json.RawMessage
	if p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode parameters", err)
			return
		}
		raw = b
	}

	resp := h.dispatcher.Invoke(r.Context(), action, raw)
	if resp.Success {
		writeJSON(w, okStatus, resp)
		return
	}
	writeJSON(w, statusFor(resp.Err), resp)
}

// statusFor maps a dispatcher failure onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrNegativeInventory), errors.Is(err, inventory.ErrImmutable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// pathParams builds parameters from URL segments given as key, urlParam pairs.
func pathParams(r *http.Request, pairs ...string) map[string]json.RawMessage {
	p := make(map[string]json.RawMessage, len(pairs)/2+1)
	for i := 0; i+1 < len(pairs); i += 2 {
		p[pairs[i]] = quote(chi.URLParam(r, pairs[i+1]))
	}
	return p
}

// quote encodes s as a JSON string. The dispatcher accepts numeric strings for
// ids and rejects anything else as a validation error.
func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// readBody returns the raw JSON body, writing a 400 if it is not valid JSON.
func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dispatch.Response{Message: "Invalid request body: " + err.Error()})
		return nil, false
	}
	if !json.Valid(b) {
		writeJSON(w, http.StatusBadRequest, dispatch.Response{Message: "Invalid request body: not JSON"})
		return nil, false
	}
	return b, true
}

// readParams decodes a JSON object body.
func readParams(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	var p map[string]json.RawMessage
	if err := json.Unmarshal(body, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, dispatch.Response{Message: "Invalid request body: must be a JSON object"})
		return nil, false
	}
	if p == nil {
		p = map[string]json.RawMessage{}
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
