package dispatch

// Schema is the self-description served at /schema and as an MCP resource.
type Schema struct {
	Name        string                `json:"name"`
	Version     string                `json:"version"`
	Description string                `json:"description"`
	Types       map[string]TypeSchema `json:"types"`
	Actions     []ActionSchema        `json:"actions"`
}

type TypeSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Fields      map[string]FieldSchema `json:"fields"`
}

type FieldSchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Nullable    bool     `json:"nullable,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type ActionSchema struct {
	Name   string   `json:"name"`
	Params []string `json:"params,omitempty"`
}

// SchemaVersion is reported in the schema document.
const SchemaVersion = "1.0.0"

// actionParams documents the parameters each action reads. Optional ones end
// in "?".
var actionParams = map[string][]string{
	"product.get":            {"id"},
	"product.create":         {"name", "sku", "price", "quantity?", "description?"},
	"product.update":         {"id", "changes"},
	"product.delete":         {"id"},
	"category.get":           {"id"},
	"category.create":        {"name"},
	"category.update":        {"id", "changes"},
	"category.delete":        {"id"},
	"category.addProduct":    {"categoryId", "productId"},
	"category.removeProduct": {"categoryId", "productId"},
	"category.products":      {"id"},
	"transaction.list":       {"product_id?"},
	"transaction.get":        {"id"},
	"transaction.create":     {"product_id", "quantity", "transaction_type", "notes?"},
	"transaction.update":     {"id", "changes"},
	"transaction.byProduct":  {"productId"},
}

// Schema describes the types and every registered action.
func (d *Dispatcher) Schema() Schema {
	actions := d.Actions()
	described := make([]ActionSchema, len(actions))
	for i, a := range actions {
		described[i] = ActionSchema{Name: a, Params: actionParams[a]}
	}

	return Schema{
		Name:        "InventoryManagementSystem",
		Version:     SchemaVersion,
		Description: "Inventory ledger: products, categories and stock movements",
		Types: map[string]TypeSchema{
			"Product": {
				Name:        "Product",
				Description: "Inventory product item",
				Fields: map[string]FieldSchema{
					"id":          {Type: "number", Description: "Unique identifier"},
					"name":        {Type: "string", Description: "Product name"},
					"description": {Type: "string", Description: "Product description", Nullable: true},
					"sku":         {Type: "string", Description: "Stock keeping unit - unique product code"},
					"price":       {Type: "decimal", Description: "Unit price, two decimal places"},
					"quantity":    {Type: "number", Description: "On-hand quantity, changed only by transactions"},
					"created_at":  {Type: "date", Description: "Creation timestamp"},
					"updated_at":  {Type: "date", Description: "Last update timestamp"},
				},
			},
			"Category": {
				Name:        "Category",
				Description: "Product category",
				Fields: map[string]FieldSchema{
					"id":         {Type: "number", Description: "Unique identifier"},
					"name":       {Type: "string", Description: "Unique category name"},
					"created_at": {Type: "date", Description: "Creation timestamp"},
				},
			},
			"InventoryTransaction": {
				Name:        "InventoryTransaction",
				Description: "Stock movement. Only notes can change after creation.",
				Fields: map[string]FieldSchema{
					"id":         {Type: "number", Description: "Unique identifier"},
					"product_id": {Type: "number", Description: "Product the movement applies to"},
					"quantity":   {Type: "number", Description: "Magnitude as entered"},
					"transaction_type": {
						Type:        "string",
						Description: "receiving adds, shipping removes, adjustment applies its sign",
						Enum:        []string{"receiving", "shipping", "adjustment"},
					},
					"notes":      {Type: "string", Description: "Free text", Nullable: true},
					"created_at": {Type: "date", Description: "Creation timestamp"},
				},
			},
		},
		Actions: described,
	}
}
