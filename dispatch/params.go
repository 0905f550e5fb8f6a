package dispatch

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/inventory-ledger/inventory"
)

// params is the decoded parameter bag of one action.
type params map[string]json.RawMessage

func parseParams(raw json.RawMessage) (params, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return params{}, nil
	}
	var p params
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &inventory.ValidationError{Field: "params", Reason: "must be a JSON object"}
	}
	if p == nil {
		p = params{}
	}
	return p, nil
}

func (p params) has(key string) bool {
	v, ok := p[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// requireInt reads a required integer. Numeric strings are accepted.
func (p params) requireInt(key string) (int64, error) {
	if !p.has(key) {
		return 0, &inventory.ValidationError{Field: key, Reason: "is required"}
	}
	var n json.Number
	if err := json.Unmarshal(p[key], &n); err != nil {
		var s string
		if json.Unmarshal(p[key], &s) != nil {
			return 0, &inventory.ValidationError{Field: key, Reason: "must be an integer"}
		}
		n = json.Number(s)
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, &inventory.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return v, nil
}

// firstInt reads the first present key, for actions that accept aliases.
func (p params) firstInt(keys ...string) (int64, error) {
	for _, k := range keys {
		if p.has(k) {
			return p.requireInt(k)
		}
	}
	return 0, &inventory.ValidationError{Field: keys[0], Reason: "is required"}
}

func (p params) requireString(key string) (string, error) {
	var s string
	if !p.has(key) {
		return "", &inventory.ValidationError{Field: key, Reason: "is required"}
	}
	if err := json.Unmarshal(p[key], &s); err != nil {
		return "", &inventory.ValidationError{Field: key, Reason: "must be a string"}
	}
	return s, nil
}

// optionalString returns nil when key is absent or null.
func (p params) optionalString(key string) (*string, error) {
	if !p.has(key) {
		return nil, nil
	}
	s, err := p.requireString(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// changes returns params["changes"] when present, otherwise every key except
// id.
func (p params) changes() (inventory.Changes, error) {
	if p.has("changes") {
		var c inventory.Changes
		if err := json.Unmarshal(p["changes"], &c); err != nil {
			return nil, &inventory.ValidationError{Field: "changes", Reason: "must be a JSON object"}
		}
		return c, nil
	}
	c := make(inventory.Changes, len(p))
	for k, v := range p {
		if k != "id" {
			c[k] = v
		}
	}
	return c, nil
}

// =============================================================================
// CREATE PAYLOADS
// =============================================================================

func (p params) newProduct() (inventory.NewProduct, error) {
	var in inventory.NewProduct
	var err error

	if in.Name, err = p.requireString("name"); err != nil {
		return in, err
	}
	if in.SKU, err = p.requireString("sku"); err != nil {
		return in, err
	}
	if in.Description, err = p.optionalString("description"); err != nil {
		return in, err
	}
	if p.has("price") {
		if err := in.Price.UnmarshalJSON(p["price"]); err != nil {
			return in, &inventory.ValidationError{Field: "price", Reason: "must be a decimal number"}
		}
	} else {
		in.Price = decimal.Zero
	}
	if p.has("quantity") {
		if in.Quantity, err = p.requireInt("quantity"); err != nil {
			return in, err
		}
	}
	return in, nil
}

type newTransaction struct {
	productID inventory.ProductID
	magnitude int64
	kind      inventory.Kind
	notes     *string
}

func (p params) newTransaction() (newTransaction, error) {
	var in newTransaction

	id, err := p.requireInt("product_id")
	if err != nil {
		return in, err
	}
	in.productID = inventory.ProductID(id)

	if in.magnitude, err = p.requireInt("quantity"); err != nil {
		return in, err
	}

	kind, err := p.requireString("transaction_type")
	if err != nil {
		return in, err
	}
	if in.kind, err = inventory.ParseKind(kind); err != nil {
		return in, err
	}

	if in.notes, err = p.optionalString("notes"); err != nil {
		return in, err
	}
	return in, nil
}
