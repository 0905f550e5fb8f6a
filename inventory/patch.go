/*
patch.go - Partial updates as data

PURPOSE:
  A partial update arrives as a set of named changes. A PatchSchema describes
  which names an entity accepts, how each value is decoded, and which names
  are immutable. Build turns raw changes into a Patch (column -> typed value)
  that stores apply generically: the SQL store renders it as a SET clause,
  the memory store assigns fields by column.

  Adding an updatable field is one entry in the schema map.

RULES:
  - Names not in the schema are ignored.
  - Immutable names are rejected with ImmutableFieldError.
  - Values are decoded per FieldKind; bad values give ValidationError.

SEE ALSO:
  - store/sqlstore/sqlstore.go: setClause renders a Patch
  - ledger.go: EntryPatch (notes only)
*/
package inventory

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Changes is a raw partial update keyed by field name.
type Changes map[string]json.RawMessage

type FieldKind int

const (
	// FieldString is a required, non-blank string.
	FieldString FieldKind = iota
	// FieldOptionalString is a string that may be set to null.
	FieldOptionalString
	// FieldPrice is a non-negative decimal, given as a number or a string.
	FieldPrice
)

// FieldRule describes one updatable (or explicitly immutable) field.
type FieldRule struct {
	Column    string
	Kind      FieldKind
	Immutable bool
}

// PatchSchema is the set of field rules for one entity.
type PatchSchema struct {
	Entity string
	Fields map[string]FieldRule
}

var (
	ProductPatch = PatchSchema{
		Entity: "Product",
		Fields: map[string]FieldRule{
			"name":        {Column: "name", Kind: FieldString},
			"description": {Column: "description", Kind: FieldOptionalString},
			"sku":         {Column: "sku", Kind: FieldString},
			"price":       {Column: "price", Kind: FieldPrice},
			"quantity":    {Immutable: true},
		},
	}

	CategoryPatch = PatchSchema{
		Entity: "Category",
		Fields: map[string]FieldRule{
			"name": {Column: "name", Kind: FieldString},
		},
	}

	// EntryPatch only lets notes through. Quantity and kind were already
	// applied to the product aggregate when the entry committed.
	EntryPatch = PatchSchema{
		Entity: "Transaction",
		Fields: map[string]FieldRule{
			"notes":            {Column: "notes", Kind: FieldOptionalString},
			"quantity":         {Immutable: true},
			"transaction_type": {Immutable: true},
			"product_id":       {Immutable: true},
		},
	}
)

// Patch maps column names to decoded values. The zero Patch is empty.
type Patch struct {
	values map[string]any
}

// Build validates changes against the schema and decodes their values.
func (s PatchSchema) Build(changes Changes) (Patch, error) {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	p := Patch{values: make(map[string]any, len(names))}
	for _, name := range names {
		rule, ok := s.Fields[name]
		if !ok {
			continue
		}
		if rule.Immutable {
			return Patch{}, &ImmutableFieldError{Entity: s.Entity, Field: name}
		}
		v, err := rule.decode(name, changes[name])
		if err != nil {
			return Patch{}, err
		}
		p.values[rule.Column] = v
	}
	return p, nil
}

func (r FieldRule) decode(name string, raw json.RawMessage) (any, error) {
	isNull := len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))

	switch r.Kind {
	case FieldString:
		var s string
		if isNull || json.Unmarshal(raw, &s) != nil {
			return nil, &ValidationError{Field: name, Reason: "must be a string"}
		}
		if strings.TrimSpace(s) == "" {
			return nil, &ValidationError{Field: name, Reason: "must not be empty"}
		}
		return s, nil

	case FieldOptionalString:
		if isNull {
			return (*string)(nil), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ValidationError{Field: name, Reason: "must be a string or null"}
		}
		return &s, nil

	case FieldPrice:
		var d decimal.Decimal
		if isNull || d.UnmarshalJSON(raw) != nil {
			return nil, &ValidationError{Field: name, Reason: "must be a decimal number"}
		}
		if d.IsNegative() {
			return nil, &ValidationError{Field: name, Reason: "must not be negative"}
		}
		return d, nil
	}
	return nil, &ValidationError{Field: name, Reason: "unsupported field"}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return len(p.values) == 0 }

// Columns returns the changed columns in a stable order.
func (p Patch) Columns() []string {
	cols := make([]string, 0, len(p.values))
	for c := range p.values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Value returns the decoded value for a column.
func (p Patch) Value(column string) (any, bool) {
	v, ok := p.values[column]
	return v, ok
}
