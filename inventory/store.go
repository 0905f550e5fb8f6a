/*
store.go - Persistence interfaces for products, categories and the ledger

PURPOSE:
  Defines the boundary between the engine and the row store. The store is
  constructed once at process start and passed to NewLedger / NewCatalog;
  Close releases its connection pool at shutdown.

KEY INTERFACES:
  ProductStore:  single-table CRUD plus the category join
  CategoryStore: category CRUD and the product link table
  LedgerStore:   reads of ledger entries and the note-only update
  LedgerTx:      the two writes of a unit of work (insert + apply delta)
  Store:         all of the above plus WithTx and Close

LOOKUP CONVENTION:
  Get* and Update* return (nil, nil) when the row does not exist. The
  services turn that into a NotFoundError.

UNIT OF WORK:
  WithTx runs fn inside one database transaction. If fn returns an error the
  transaction is rolled back; otherwise it commits. Two units of work touching
  the same product are serialized by the store, so ApplyDelta always returns
  the quantity as seen after the lock is taken.

IMPLEMENTATIONS:
  - store/sqlite: SQLite (default)
  - store/mysql:  MySQL/InnoDB
  - store/memory: in-memory, for tests and dev

SEE ALSO:
  - ledger.go: the only caller of WithTx
  - inventorytest/contract.go: behaviour every implementation must pass
*/
package inventory

import "context"

// =============================================================================
// REPOSITORIES
// =============================================================================

type ProductStore interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	CreateProduct(ctx context.Context, p NewProduct) (*Product, error)

	// UpdateProduct applies the patch and refreshes updated_at.
	UpdateProduct(ctx context.Context, id ProductID, patch Patch) (*Product, error)

	// DeleteProduct reports whether a row existed. Ledger entries and
	// category links go with it.
	DeleteProduct(ctx context.Context, id ProductID) (bool, error)

	ListProductsByCategory(ctx context.Context, id CategoryID) ([]Product, error)
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id CategoryID) (*Category, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
	UpdateCategory(ctx context.Context, id CategoryID, patch Patch) (*Category, error)
	DeleteCategory(ctx context.Context, id CategoryID) (bool, error)

	// LinkProduct is idempotent.
	LinkProduct(ctx context.Context, categoryID CategoryID, productID ProductID) error

	// UnlinkProduct reports whether a link existed.
	UnlinkProduct(ctx context.Context, categoryID CategoryID, productID ProductID) (bool, error)
}

type LedgerStore interface {
	// ListEntries returns entries newest first.
	ListEntries(ctx context.Context, filter EntryFilter) ([]LedgerEntry, error)
	GetEntry(ctx context.Context, id EntryID) (*LedgerEntry, error)

	// UpdateEntry applies an EntryPatch. It never touches quantity or kind.
	UpdateEntry(ctx context.Context, id EntryID, patch Patch) (*LedgerEntry, error)
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// LedgerTx is the view of the store inside WithTx.
type LedgerTx interface {
	// LockProduct takes the product's row lock for the rest of the unit of
	// work and returns its current quantity. Returns a NotFoundError if the
	// product is gone. Called first, so every writer for one product queues
	// on the same lock.
	LockProduct(ctx context.Context, id ProductID) (int64, error)

	// InsertEntry appends a ledger row and returns it with id and timestamp.
	InsertEntry(ctx context.Context, e NewEntry) (*LedgerEntry, error)

	// ApplyDelta adds delta to the product's quantity, refreshes updated_at
	// and returns the resulting quantity. Returns a NotFoundError if the
	// product is gone.
	ApplyDelta(ctx context.Context, id ProductID, delta int64) (int64, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	ProductStore
	CategoryStore
	LedgerStore

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error

	Close() error
}
