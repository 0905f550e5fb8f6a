package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-ledger/dispatch"
	"github.com/warp/inventory-ledger/store/sqlite"
)

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return dispatch.New(store)
}

func callTool(t *testing.T, d *dispatch.Dispatcher, args map[string]any) (*mcplib.CallToolResult, map[string]any) {
	t.Helper()
	req := mcplib.CallToolRequest{}
	req.Params.Name = ToolName
	req.Params.Arguments = args

	result, err := handleAction(d)(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	var envelope map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &envelope))
	return result, envelope
}

func TestNewServer_RegistersTool(t *testing.T) {
	s := NewServer(newDispatcher(t), "test")
	require.NotNil(t, s)

	tools := s.ListTools()
	assert.Len(t, tools, 1)
	_, ok := tools[ToolName]
	assert.True(t, ok, "tool %q should be registered", ToolName)
}

func TestInventoryAction_CreateAndShip(t *testing.T) {
	d := newDispatcher(t)

	// GIVEN: a product created through the tool
	result, envelope := callTool(t, d, map[string]any{
		"action": "product.create",
		"params": map[string]any{"name": "Bolt", "sku": "B-1", "price": 0.25, "quantity": 3},
	})
	require.False(t, result.IsError)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "Product created successfully", envelope["message"])
	product := envelope["data"].(map[string]any)
	id := product["id"]

	// WHEN: shipping more than is on hand
	result, envelope = callTool(t, d, map[string]any{
		"action": "transaction.create",
		"params": map[string]any{"product_id": id, "quantity": 5, "transaction_type": "shipping"},
	})

	// THEN: the tool reports an error envelope
	assert.True(t, result.IsError)
	assert.Equal(t, false, envelope["success"])
	assert.Nil(t, envelope["data"])
	assert.Contains(t, envelope["message"], "Failed to create transaction")
}

func TestInventoryAction_MissingAction(t *testing.T) {
	d := newDispatcher(t)

	result, envelope := callTool(t, d, map[string]any{})

	assert.True(t, result.IsError)
	assert.Equal(t, "Action is required", envelope["message"])
}

func TestInventoryAction_NoParams(t *testing.T) {
	d := newDispatcher(t)

	result, envelope := callTool(t, d, map[string]any{"action": "category.list"})

	require.False(t, result.IsError)
	assert.Equal(t, "Operation successful", envelope["message"])
	assert.Equal(t, []any{}, envelope["data"])
}

func TestSchemaResource(t *testing.T) {
	d := newDispatcher(t)

	contents, err := handleSchema(d)(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, SchemaURI, text.URI)

	var schema dispatch.Schema
	require.NoError(t, json.Unmarshal([]byte(text.Text), &schema))
	assert.Equal(t, "InventoryManagementSystem", schema.Name)
	assert.Len(t, schema.Actions, len(d.Actions()))
}
