package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/inventory-ledger/inventory"
)

// Dialect carries what differs between databases.
type Dialect struct {
	Name string

	// Schema statements, run in order by Open. Must be idempotent.
	Schema []string

	// InsertIgnore is the statement prefix that skips duplicate keys,
	// e.g. "INSERT OR IGNORE" or "INSERT IGNORE".
	InsertIgnore string

	// FormatTime encodes a UTC timestamp for a write. Nil passes time.Time
	// through to the driver.
	FormatTime func(time.Time) any

	// IsUniqueViolation reports whether err is a unique-key failure.
	IsUniqueViolation func(error) bool

	// IsForeignKeyViolation reports whether err is a missing-parent failure.
	IsForeignKeyViolation func(error) bool

	// LockClause is appended to the SELECT that opens a unit of work, e.g.
	// " FOR UPDATE". Empty where the transaction already holds the write lock.
	LockClause string
}

func (d Dialect) timeArg(t time.Time) any {
	if d.FormatTime == nil {
		return t
	}
	return d.FormatTime(t)
}

func (d Dialect) isUnique(err error) bool {
	return err != nil && d.IsUniqueViolation != nil && d.IsUniqueViolation(err)
}

func (d Dialect) isForeignKey(err error) bool {
	return err != nil && d.IsForeignKeyViolation != nil && d.IsForeignKeyViolation(err)
}

// TextTimeLayout is fixed width so TEXT columns sort chronologically.
const TextTimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTextTime is a FormatTime for databases that store time as TEXT.
func FormatTextTime(t time.Time) any {
	return t.UTC().Format(TextTimeLayout)
}

var timeLayouts = []string{
	TextTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// timeScanner reads a timestamp stored either natively or as text.
type timeScanner struct {
	dst *time.Time
}

func (ts timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.dst = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.dst = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (ts timeScanner) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*ts.dst = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

// =============================================================================
// PATCH RENDERING
// =============================================================================

// setClause renders a patch as "col = ?, ..." plus its arguments. Column
// names come from the PatchSchema, never from input.
func (d Dialect) setClause(patch inventory.Patch, touch string) (string, []any) {
	cols := patch.Columns()
	parts := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		v, _ := patch.Value(col)
		parts = append(parts, col+" = ?")
		args = append(args, columnValue(v))
	}
	if touch != "" {
		parts = append(parts, touch+" = ?")
		args = append(args, d.timeArg(now()))
	}
	return strings.Join(parts, ", "), args
}

func columnValue(v any) driver.Value {
	switch x := v.(type) {
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case decimal.Decimal:
		return priceArg(x)
	}
	return v
}

func priceArg(d decimal.Decimal) string {
	return d.StringFixed(2)
}
