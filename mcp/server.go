/*
Package mcp exposes the dispatcher over the Model Context Protocol.

PURPOSE:
  One tool, inventory_action, forwards {action, params} to the dispatcher and
  returns the envelope as JSON text. One resource, inventory://schema, serves
  the self-description. Served over stdio, so nothing else may write to
  stdout while it runs.

SEE ALSO:
  - dispatch/dispatcher.go: action routing
  - cli/mcp.go: the command that starts it
*/
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/warp/inventory-ledger/dispatch"
)

const (
	ServerName = "inventory-ledger"
	ToolName   = "inventory_action"
	SchemaURI  = "inventory://schema"
)

// NewServer registers the action tool and the schema resource.
func NewServer(d *dispatch.Dispatcher, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.AddTool(
		mcplib.NewTool(ToolName,
			mcplib.WithDescription("Run one inventory action, e.g. product.create or transaction.create. Returns {success, data, message}."),
			mcplib.WithString("action",
				mcplib.Required(),
				mcplib.Description("entity.operation, see "+SchemaURI+" for the list"),
			),
			mcplib.WithObject("params",
				mcplib.Description("Parameters of the action"),
			),
		),
		handleAction(d),
	)

	s.AddResource(
		mcplib.NewResource(
			SchemaURI,
			"Inventory Schema",
			mcplib.WithResourceDescription("Types and actions understood by "+ToolName),
			mcplib.WithMIMEType("application/json"),
		),
		handleSchema(d),
	)

	return s
}

// Serve blocks serving s on stdin/stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func handleAction(d *dispatch.Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		// A missing action still goes through the dispatcher so the client
		// sees the usual envelope.
		action := request.GetString("action", "")

		var raw json.RawMessage
		if p, ok := request.GetArguments()["params"]; ok && p != nil {
			b, err := json.Marshal(p)
			if err != nil {
				return mcplib.NewToolResultError(fmt.Sprintf("encoding params: %v", err)), nil
			}
			raw = b
		}

		resp := d.Invoke(ctx, action, raw)
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling response: %w", err)
		}
		return &mcplib.CallToolResult{
			Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
			IsError: !resp.Success,
		}, nil
	}
}

func handleSchema(d *dispatch.Dispatcher) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		data, err := json.MarshalIndent(d.Schema(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling schema: %w", err)
		}
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      SchemaURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
