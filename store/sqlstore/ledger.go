package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// LEDGER STORE (inventory.LedgerStore)
// =============================================================================
//
// inventory_transactions is append-only:
//   - INSERT only inside WithTx (insertEntry)
//   - UPDATE only touches notes
//   - DELETE only through the product cascade

const entryColumns = `id, product_id, quantity, transaction_type, notes, created_at`

func (s *Store) ListEntries(ctx context.Context, filter inventory.EntryFilter) ([]inventory.LedgerEntry, error) {
	query := "SELECT " + entryColumns + " FROM inventory_transactions"
	var args []any
	if filter.ProductID != nil {
		query += " WHERE product_id = ?"
		args = append(args, *filter.ProductID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var entries []inventory.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) GetEntry(ctx context.Context, id inventory.EntryID) (*inventory.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM inventory_transactions WHERE id = ?", id)

	e, err := scanEntry(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, id inventory.EntryID, patch inventory.Patch) (*inventory.LedgerEntry, error) {
	set, args := s.dialect.setClause(patch, "")
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, "UPDATE inventory_transactions SET "+set+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return s.GetEntry(ctx, id)
}

func (s *Store) insertEntry(ctx context.Context, q querier, e inventory.NewEntry) (*inventory.LedgerEntry, error) {
	created := now()
	res, err := q.ExecContext(ctx, `
		INSERT INTO inventory_transactions (product_id, quantity, transaction_type, notes, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ProductID, e.Quantity, string(e.Kind), nullString(e.Notes), s.dialect.timeArg(created),
	)
	if s.dialect.isForeignKey(err) {
		return nil, &inventory.NotFoundError{Entity: "Product", ID: int64(e.ProductID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction id: %w", err)
	}

	return &inventory.LedgerEntry{
		ID:        inventory.EntryID(id),
		ProductID: e.ProductID,
		Quantity:  e.Quantity,
		Kind:      e.Kind,
		Notes:     e.Notes,
		CreatedAt: created,
	}, nil
}

func scanEntry(r rowScanner) (inventory.LedgerEntry, error) {
	var (
		e     inventory.LedgerEntry
		kind  string
		notes sql.NullString
	)
	err := r.Scan(&e.ID, &e.ProductID, &e.Quantity, &kind, &notes, timeScanner{&e.CreatedAt})
	if err != nil {
		return e, err
	}
	e.Kind = inventory.Kind(kind)
	e.Notes = stringPtr(notes)
	return e, nil
}
