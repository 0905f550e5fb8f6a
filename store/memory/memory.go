// Package memory provides an in-memory inventory.Store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/inventory-ledger/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	products   map[inventory.ProductID]inventory.Product
	categories map[inventory.CategoryID]inventory.Category
	links      map[link]struct{}
	entries    map[inventory.EntryID]inventory.LedgerEntry
	seq        int64
}

var _ inventory.Store = (*Memory)(nil)

type link struct {
	ProductID  inventory.ProductID
	CategoryID inventory.CategoryID
}

func New() *Memory {
	return &Memory{
		products:   make(map[inventory.ProductID]inventory.Product),
		categories: make(map[inventory.CategoryID]inventory.Category),
		links:      make(map[link]struct{}),
		entries:    make(map[inventory.EntryID]inventory.LedgerEntry),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Ping(context.Context) error { return nil }

// Reset clears all data. Ids keep counting up, as they do in SQL stores.
func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = make(map[inventory.ProductID]inventory.Product)
	m.categories = make(map[inventory.CategoryID]inventory.Category)
	m.links = make(map[link]struct{})
	m.entries = make(map[inventory.EntryID]inventory.LedgerEntry)
	return nil
}

func (m *Memory) nextID() int64 {
	m.seq++
	return m.seq
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *Memory) ListProducts(_ context.Context) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, cloneProduct(p))
	}
	sortProducts(result)
	return result, nil
}

func (m *Memory) GetProduct(_ context.Context, id inventory.ProductID) (*inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	p = cloneProduct(p)
	return &p, nil
}

func (m *Memory) CreateProduct(_ context.Context, in inventory.NewProduct) (*inventory.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.skuTaken(in.SKU, 0) {
		return nil, &inventory.ConflictError{Entity: "Product", Field: "sku", Value: in.SKU}
	}

	ts := now()
	p := inventory.Product{
		ID:          inventory.ProductID(m.nextID()),
		Name:        in.Name,
		Description: copyString(in.Description),
		SKU:         in.SKU,
		Price:       in.Price.Round(2),
		Quantity:    in.Quantity,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	m.products[p.ID] = p
	p = cloneProduct(p)
	return &p, nil
}

func (m *Memory) UpdateProduct(_ context.Context, id inventory.ProductID, patch inventory.Patch) (*inventory.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}

	for _, col := range patch.Columns() {
		v, _ := patch.Value(col)
		switch col {
		case "name":
			p.Name = v.(string)
		case "description":
			p.Description = copyString(v.(*string))
		case "sku":
			sku := v.(string)
			if m.skuTaken(sku, id) {
				return nil, &inventory.ConflictError{Entity: "Product", Field: "sku", Value: sku}
			}
			p.SKU = sku
		case "price":
			p.Price = v.(decimal.Decimal).Round(2)
		}
	}
	p.UpdatedAt = now()
	m.products[id] = p
	p = cloneProduct(p)
	return &p, nil
}

func (m *Memory) DeleteProduct(_ context.Context, id inventory.ProductID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)

	// Cascade, as the SQL schema does.
	for l := range m.links {
		if l.ProductID == id {
			delete(m.links, l)
		}
	}
	for eid, e := range m.entries {
		if e.ProductID == id {
			delete(m.entries, eid)
		}
	}
	return true, nil
}

func (m *Memory) ListProductsByCategory(_ context.Context, id inventory.CategoryID) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []inventory.Product{}
	for l := range m.links {
		if l.CategoryID != id {
			continue
		}
		if p, ok := m.products[l.ProductID]; ok {
			result = append(result, cloneProduct(p))
		}
	}
	sortProducts(result)
	return result, nil
}

func (m *Memory) skuTaken(sku string, except inventory.ProductID) bool {
	for id, p := range m.products {
		if id != except && p.SKU == sku {
			return true
		}
	}
	return false
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (m *Memory) ListCategories(_ context.Context) ([]inventory.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]inventory.Category, 0, len(m.categories))
	for _, c := range m.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) GetCategory(_ context.Context, id inventory.CategoryID) (*inventory.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) CreateCategory(_ context.Context, name string) (*inventory.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.categoryNameTaken(name, 0) {
		return nil, &inventory.ConflictError{Entity: "Category", Field: "name", Value: name}
	}
	c := inventory.Category{ID: inventory.CategoryID(m.nextID()), Name: name, CreatedAt: now()}
	m.categories[c.ID] = c
	return &c, nil
}

func (m *Memory) UpdateCategory(_ context.Context, id inventory.CategoryID, patch inventory.Patch) (*inventory.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	if v, ok := patch.Value("name"); ok {
		name := v.(string)
		if m.categoryNameTaken(name, id) {
			return nil, &inventory.ConflictError{Entity: "Category", Field: "name", Value: name}
		}
		c.Name = name
	}
	m.categories[id] = c
	return &c, nil
}

func (m *Memory) DeleteCategory(_ context.Context, id inventory.CategoryID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.categories[id]; !ok {
		return false, nil
	}
	delete(m.categories, id)
	for l := range m.links {
		if l.CategoryID == id {
			delete(m.links, l)
		}
	}
	return true, nil
}

func (m *Memory) LinkProduct(_ context.Context, categoryID inventory.CategoryID, productID inventory.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[link{ProductID: productID, CategoryID: categoryID}] = struct{}{}
	return nil
}

func (m *Memory) UnlinkProduct(_ context.Context, categoryID inventory.CategoryID, productID inventory.ProductID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := link{ProductID: productID, CategoryID: categoryID}
	if _, ok := m.links[l]; !ok {
		return false, nil
	}
	delete(m.links, l)
	return true, nil
}

func (m *Memory) categoryNameTaken(name string, except inventory.CategoryID) bool {
	for id, c := range m.categories {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *Memory) ListEntries(_ context.Context, filter inventory.EntryFilter) ([]inventory.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []inventory.LedgerEntry{}
	for _, e := range m.entries {
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		result = append(result, cloneEntry(e))
	}
	// Newest first.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *Memory) GetEntry(_ context.Context, id inventory.EntryID) (*inventory.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	e = cloneEntry(e)
	return &e, nil
}

func (m *Memory) UpdateEntry(_ context.Context, id inventory.EntryID, patch inventory.Patch) (*inventory.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	if v, ok := patch.Value("notes"); ok {
		e.Notes = copyString(v.(*string))
	}
	m.entries[id] = e
	e = cloneEntry(e)
	return &e, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + restore on error
// =============================================================================

// WithTx executes fn within a transaction. The store lock is held for the
// whole call, so units of work are serialized; on error the snapshot taken
// at the start is restored.
func (m *Memory) WithTx(_ context.Context, fn func(inventory.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	products map[inventory.ProductID]inventory.Product
	entries  map[inventory.EntryID]inventory.LedgerEntry
	seq      int64
}

// snapshot copies what a unit of work can change: products and entries.
func (m *Memory) snapshot() memorySnapshot {
	products := make(map[inventory.ProductID]inventory.Product, len(m.products))
	for k, v := range m.products {
		products[k] = v
	}
	entries := make(map[inventory.EntryID]inventory.LedgerEntry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	return memorySnapshot{products: products, entries: entries, seq: m.seq}
}

func (m *Memory) restore(s memorySnapshot) {
	m.products = s.products
	m.entries = s.entries
	m.seq = s.seq
}

// txView writes directly; the caller holds m.mu.
type txView struct {
	parent *Memory
}

// LockProduct reads the quantity; m.mu is already held for the whole unit.
func (tv *txView) LockProduct(_ context.Context, id inventory.ProductID) (int64, error) {
	p, ok := tv.parent.products[id]
	if !ok {
		return 0, &inventory.NotFoundError{Entity: "Product", ID: int64(id)}
	}
	return p.Quantity, nil
}

func (tv *txView) InsertEntry(_ context.Context, in inventory.NewEntry) (*inventory.LedgerEntry, error) {
	m := tv.parent
	if _, ok := m.products[in.ProductID]; !ok {
		return nil, &inventory.NotFoundError{Entity: "Product", ID: int64(in.ProductID)}
	}
	e := inventory.LedgerEntry{
		ID:        inventory.EntryID(m.nextID()),
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Kind:      in.Kind,
		Notes:     copyString(in.Notes),
		CreatedAt: now(),
	}
	m.entries[e.ID] = e
	e = cloneEntry(e)
	return &e, nil
}

func (tv *txView) ApplyDelta(_ context.Context, id inventory.ProductID, delta int64) (int64, error) {
	m := tv.parent
	p, ok := m.products[id]
	if !ok {
		return 0, &inventory.NotFoundError{Entity: "Product", ID: int64(id)}
	}
	p.Quantity += delta
	p.UpdatedAt = now()
	m.products[id] = p
	return p.Quantity, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func sortProducts(ps []inventory.Product) {
	sort.Slice(ps, func(i, j int) bool {
		if c := strings.Compare(ps[i].Name, ps[j].Name); c != 0 {
			return c < 0
		}
		return ps[i].ID < ps[j].ID
	})
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneProduct(p inventory.Product) inventory.Product {
	p.Description = copyString(p.Description)
	return p
}

func cloneEntry(e inventory.LedgerEntry) inventory.LedgerEntry {
	e.Notes = copyString(e.Notes)
	return e
}
