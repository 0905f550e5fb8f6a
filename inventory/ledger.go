/*
ledger.go - Stock movement ledger with derived on-hand quantity

PURPOSE:
  The Ledger records stock movements and keeps each product's quantity in
  step with them. Recording a movement is one unit of work: the ledger row
  and the quantity change commit together or not at all.

CRITICAL INVARIANTS:
  1. quantity(P) = initial(P) + sum(Effect(e)) over P's committed entries
  2. quantity(P) >= 0; an entry that would break this is never committed
  3. Committed entries are append-only; only notes may change

RECORD FLOW:
  1. Effect(kind, magnitude)           - pure, rejects unknown kinds
  2. product exists?                   - NotFound, no unit of work opened
  3. WithTx: LockProduct               - row lock, current quantity
  4. quantity + effect fits in int64?  - ValidationError otherwise
  5. InsertEntry, ApplyDelta           - ledger row, then quantity
  6. resulting < 0                     - abort, NegativeInventoryError
  7. commit                            - return the persisted entry

ENTRY LIFECYCLE:
  Proposed -> Committed (terminal, notes editable)
  Proposed -> Rejected  (terminal, never persisted)
  There is no cancel or reverse. A wrong entry is corrected by recording a
  compensating adjustment.

EXAMPLE:
  ledger := inventory.NewLedger(store)
  entry, err := ledger.RecordTransaction(ctx, 7, 10, inventory.KindShipping, nil)
  if errors.Is(err, inventory.ErrNegativeInventory) {
      // stock unchanged, no ledger row written
  }

SEE ALSO:
  - types.go: Effect
  - store.go: WithTx / LedgerTx
*/
package inventory

import (
	"context"
	"fmt"
)

// =============================================================================
// LEDGER - Append-only movement log that owns product quantity
// =============================================================================

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// RecordTransaction commits one stock movement and applies its effect to the
// product's quantity atomically.
func (l *Ledger) RecordTransaction(ctx context.Context, productID ProductID, magnitude int64, kind Kind, notes *string) (*LedgerEntry, error) {
	effect, err := Effect(kind, magnitude)
	if err != nil {
		return nil, err
	}

	product, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}
	if product == nil {
		return nil, &NotFoundError{Entity: "Product", ID: int64(productID)}
	}

	var committed *LedgerEntry
	err = l.store.WithTx(ctx, func(tx LedgerTx) error {
		current, err := tx.LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		if _, err := ApplyEffect(current, effect); err != nil {
			return err
		}

		entry, err := tx.InsertEntry(ctx, NewEntry{
			ProductID: productID,
			Quantity:  magnitude,
			Kind:      kind,
			Notes:     normalizeNotes(notes),
		})
		if err != nil {
			return err
		}

		resulting, err := tx.ApplyDelta(ctx, productID, effect)
		if err != nil {
			return err
		}
		if resulting < 0 {
			return &NegativeInventoryError{
				ProductID: productID,
				Effect:    effect,
				Resulting: resulting,
			}
		}

		committed = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// UpdateTransaction edits a committed entry. Only notes can change; quantity,
// transaction_type and product_id are rejected with ImmutableFieldError and
// any other key is ignored.
func (l *Ledger) UpdateTransaction(ctx context.Context, id EntryID, changes Changes) (*LedgerEntry, error) {
	patch, err := EntryPatch.Build(changes)
	if err != nil {
		return nil, err
	}

	var entry *LedgerEntry
	if patch.Empty() {
		entry, err = l.store.GetEntry(ctx, id)
	} else {
		entry, err = l.store.UpdateEntry(ctx, id, patch)
	}
	if err != nil {
		return nil, fmt.Errorf("update transaction %d: %w", id, err)
	}
	if entry == nil {
		return nil, &NotFoundError{Entity: "Transaction", ID: int64(id)}
	}
	return entry, nil
}

// ListTransactions returns entries newest first.
func (l *Ledger) ListTransactions(ctx context.Context, filter EntryFilter) ([]LedgerEntry, error) {
	entries, err := l.store.ListEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if entries == nil {
		entries = []LedgerEntry{}
	}
	return entries, nil
}

// TransactionsByProduct returns a product's entries newest first. An unknown
// product yields an empty list.
func (l *Ledger) TransactionsByProduct(ctx context.Context, productID ProductID) ([]LedgerEntry, error) {
	return l.ListTransactions(ctx, EntryFilter{ProductID: &productID})
}

func (l *Ledger) GetTransaction(ctx context.Context, id EntryID) (*LedgerEntry, error) {
	entry, err := l.store.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	if entry == nil {
		return nil, &NotFoundError{Entity: "Transaction", ID: int64(id)}
	}
	return entry, nil
}

// normalizeNotes stores an empty note as NULL.
func normalizeNotes(notes *string) *string {
	if notes == nil || *notes == "" {
		return nil
	}
	return notes
}
