/*
Package inventory provides the inventory ledger and consistency engine.

PURPOSE:
  Tracks on-hand stock for a catalog of products. Every stock movement is
  recorded as a ledger entry, and the product's quantity is derived from
  those entries inside the same unit of work. The package holds the domain
  types, the error taxonomy, the storage contracts and the two services that
  sit on top of them (Ledger and Catalog).

KEY CONCEPTS IN THIS FILE (types.go):
  - Product:     catalog item with a derived, never-negative Quantity
  - Category:    named grouping, many-to-many with products
  - LedgerEntry: append-only record of one stock movement
  - Kind:        receiving | shipping | adjustment
  - Effect:      pure mapping from (kind, magnitude) to a signed delta

INVARIANTS:
  1. Product.Quantity = initial quantity + sum of Effect over its entries
  2. Product.Quantity >= 0 at every observable point
  3. LedgerEntry.Quantity and LedgerEntry.Kind never change after commit

SEE ALSO:
  - ledger.go: RecordTransaction and the note-only update path
  - store.go:  Repository and unit-of-work interfaces
  - errors.go: NotFound, NegativeInventory, Immutable, Validation, Conflict
*/
package inventory

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID int64
type CategoryID int64
type EntryID int64

// =============================================================================
// PRODUCT
// =============================================================================

// Product is a catalog item. Quantity is owned by the Ledger: the product
// repository stores it but only the ledger's unit of work changes it.
type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProduct is the input for creating a product. Quantity is the initial
// on-hand value; later changes go through the ledger.
type NewProduct struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
}

// =============================================================================
// CATEGORY
// =============================================================================

type Category struct {
	ID        CategoryID `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
}

// =============================================================================
// LEDGER ENTRY
// =============================================================================

// Kind is the type of stock movement.
type Kind string

const (
	KindReceiving  Kind = "receiving"
	KindShipping   Kind = "shipping"
	KindAdjustment Kind = "adjustment"
)

// Kinds lists every valid Kind, in display order.
var Kinds = []Kind{KindReceiving, KindShipping, KindAdjustment}

// ParseKind validates a transaction type string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindReceiving, KindShipping, KindAdjustment:
		return k, nil
	}
	return "", &ValidationError{
		Field:  "transaction_type",
		Reason: fmt.Sprintf("must be one of receiving, shipping, adjustment (got %q)", s),
	}
}

// Effect returns the signed change a movement applies to on-hand quantity.
//
//	receiving  -> +magnitude
//	shipping   -> -|magnitude|
//	adjustment -> magnitude, sign as given
func Effect(kind Kind, magnitude int64) (int64, error) {
	switch kind {
	case KindReceiving:
		return magnitude, nil
	case KindShipping:
		if magnitude == math.MinInt64 {
			return 0, errQuantityRange
		}
		if magnitude < 0 {
			return magnitude, nil
		}
		return -magnitude, nil
	case KindAdjustment:
		return magnitude, nil
	}
	_, err := ParseKind(string(kind))
	return 0, err
}

var errQuantityRange = &ValidationError{Field: "quantity", Reason: "out of range"}

// ApplyEffect returns quantity+effect, or a ValidationError when the sum does
// not fit in an int64.
func ApplyEffect(quantity, effect int64) (int64, error) {
	if (effect > 0 && quantity > math.MaxInt64-effect) ||
		(effect < 0 && quantity < math.MinInt64-effect) {
		return 0, errQuantityRange
	}
	return quantity + effect, nil
}

// LedgerEntry is one committed stock movement. Quantity is the magnitude as
// the caller entered it, not the signed effect.
type LedgerEntry struct {
	ID        EntryID   `json:"id"`
	ProductID ProductID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Kind      Kind      `json:"transaction_type"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry is a proposed ledger entry handed to the unit of work.
type NewEntry struct {
	ProductID ProductID
	Quantity  int64
	Kind      Kind
	Notes     *string
}

// EntryFilter narrows ListTransactions. A nil ProductID lists everything.
type EntryFilter struct {
	ProductID *ProductID
}
