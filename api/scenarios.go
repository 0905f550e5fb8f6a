/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos and manual testing. Each scenario creates products,
	categories and ledger movements through the same engine as the API, so
	quantities are always the sum of the ledger.

AVAILABLE SCENARIOS:

	hardware-store: A few products across two categories, received and partly sold
	low-stock:      One product with a single unit left, for shipping rejections
	empty:          Categories only, no products

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create categories
 3. Create products and link them
 4. Record receiving, shipping and adjustment movements

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "hardware-store"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - server.go: scenario routes
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "hardware-store",
		Name:        "Hardware Store",
		Description: "Tools and fasteners in two categories, stocked and partly sold",
	},
	{
		ID:          "low-stock",
		Name:        "Low Stock",
		Description: "A single product with one unit on hand",
	},
	{
		ID:          "empty",
		Name:        "Empty Catalog",
		Description: "Categories with no products",
	},
}

var errUnknownScenario = errors.New("unknown scenario")

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if err := h.loadScenario(ctx, req.ScenarioID); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusNotFound, "Unknown scenario", err)
			return
		}
		h.logger.Error("scenario load failed", zap.String("scenario", req.ScenarioID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "hardware-store":
		load = h.loadHardwareStoreScenario
	case "low-stock":
		load = h.loadLowStockScenario
	case "empty":
		load = h.loadEmptyScenario
	default:
		return fmt.Errorf("scenario %q: %w", id, errUnknownScenario)
	}

	if err := h.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return load(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seedProduct struct {
	name, sku, price string
	categories       []string
	// movements are applied in order after creation
	movements []seedMovement
}

type seedMovement struct {
	kind  inventory.Kind
	qty   int64
	notes string
}

func (h *Handler) loadHardwareStoreScenario(ctx context.Context) error {
	return h.seed(ctx, []string{"Tools", "Fasteners"}, []seedProduct{
		{
			name: "Claw Hammer", sku: "TL-HAM-16", price: "24.99",
			categories: []string{"Tools"},
			movements: []seedMovement{
				{inventory.KindReceiving, 40, "Initial stock"},
				{inventory.KindShipping, 12, "Order #1001"},
			},
		},
		{
			name: "Cordless Drill", sku: "TL-DRL-18V", price: "129.00",
			categories: []string{"Tools"},
			movements: []seedMovement{
				{inventory.KindReceiving, 10, "Initial stock"},
				{inventory.KindShipping, 3, "Order #1002"},
				{inventory.KindAdjustment, -1, "Damaged in warehouse"},
			},
		},
		{
			name: "Wood Screws 4x40 (200)", sku: "FS-WS-440", price: "7.49",
			categories: []string{"Fasteners"},
			movements: []seedMovement{
				{inventory.KindReceiving, 250, "Initial stock"},
				{inventory.KindShipping, 75, "Order #1003"},
			},
		},
		{
			name: "Anchor Kit", sku: "FS-ANK-01", price: "12.50",
			categories: []string{"Tools", "Fasteners"},
			movements: []seedMovement{
				{inventory.KindReceiving, 30, "Initial stock"},
				{inventory.KindAdjustment, 2, "Cycle count"},
			},
		},
	})
}

func (h *Handler) loadLowStockScenario(ctx context.Context) error {
	return h.seed(ctx, []string{"Clearance"}, []seedProduct{
		{
			name: "Last Lantern", sku: "CL-LAN-01", price: "19.95",
			categories: []string{"Clearance"},
			movements: []seedMovement{
				{inventory.KindReceiving, 5, "Initial stock"},
				{inventory.KindShipping, 4, "Order #2001"},
			},
		},
	})
}

func (h *Handler) loadEmptyScenario(ctx context.Context) error {
	return h.seed(ctx, []string{"Tools", "Fasteners", "Garden"}, nil)
}

func (h *Handler) seed(ctx context.Context, categoryNames []string, products []seedProduct) error {
	categories := make(map[string]inventory.CategoryID, len(categoryNames))
	for _, name := range categoryNames {
		c, err := h.catalog.CreateCategory(ctx, name)
		if err != nil {
			return fmt.Errorf("create category %s: %w", name, err)
		}
		categories[name] = c.ID
	}

	for _, sp := range products {
		p, err := h.catalog.CreateProduct(ctx, inventory.NewProduct{
			Name:  sp.name,
			SKU:   sp.sku,
			Price: decimal.RequireFromString(sp.price),
		})
		if err != nil {
			return fmt.Errorf("create product %s: %w", sp.sku, err)
		}
		for _, c := range sp.categories {
			if err := h.catalog.AddProduct(ctx, categories[c], p.ID); err != nil {
				return fmt.Errorf("link %s to %s: %w", sp.sku, c, err)
			}
		}
		for _, m := range sp.movements {
			notes := m.notes
			if _, err := h.ledger.RecordTransaction(ctx, p.ID, m.qty, m.kind, &notes); err != nil {
				return fmt.Errorf("%s %s: %w", m.kind, sp.sku, err)
			}
		}
	}
	return nil
}
