/*
Package dispatch maps "entity.operation" actions onto the inventory services.

PURPOSE:
  Single entry point shared by every transport (HTTP, MCP, CLI). Parses the
  parameter bag, calls the Ledger or Catalog and normalizes the outcome into
  the {success, data, message} envelope. No error escapes Invoke.

ACTIONS:
  product.list|get|create|update|delete
  category.list|get|create|update|delete|addProduct|removeProduct|products
  transaction.list|get|create|update|byProduct

ERROR MAPPING:
  NotFound           - message is the entity message ("Product with ID 3 not found")
  other client error - "<Failed to ...>: <reason>"
  store failure      - "<Failed to ...>" only; the cause goes to the log
  The underlying error stays on Response.Err for transports that pick a status.

CANCELLATION:
  Store calls run on context.WithoutCancel: a caller hanging up mid-request
  does not abort a unit of work halfway through its commit.

SEE ALSO:
  - params.go: parameter decoding
  - schema.go: self-description
  - inventory/errors.go: the taxonomy mapped here
*/
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/inventory"
)

const tracerName = "github.com/warp/inventory-ledger/dispatch"

const (
	msgOK             = "Operation successful"
	msgActionRequired = "Action is required"
)

// Response is the envelope returned for every action.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`

	// Err is the failure behind a success=false response, nil otherwise.
	Err error `json:"-"`
}

// handler runs one operation. An empty message means msgOK.
type handler func(ctx context.Context, p params) (data any, message string, err error)

type operation struct {
	fail string
	run  handler
}

// Dispatcher routes actions to the Ledger and Catalog.
type Dispatcher struct {
	ledger  *inventory.Ledger
	catalog *inventory.Catalog
	logger  *zap.Logger
	tracer  trace.Tracer
	routes  map[string]map[string]operation
}

type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// New builds a dispatcher over store.
func New(store inventory.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ledger:  inventory.NewLedger(store),
		catalog: inventory.NewCatalog(store),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.routes = map[string]map[string]operation{
		"product":     d.productRoutes(),
		"category":    d.categoryRoutes(),
		"transaction": d.transactionRoutes(),
	}
	return d
}

// Actions lists every registered action, sorted.
func (d *Dispatcher) Actions() []string {
	var actions []string
	for entity, ops := range d.routes {
		for op := range ops {
			actions = append(actions, entity+"."+op)
		}
	}
	sort.Strings(actions)
	return actions
}

// Invoke runs one action. params may be nil or a JSON object.
func (d *Dispatcher) Invoke(ctx context.Context, action string, raw json.RawMessage) Response {
	ctx = context.WithoutCancel(ctx)

	spanName := "dispatch"
	if _, ok := d.lookup(action); ok {
		spanName = "dispatch." + action
	}
	ctx, span := d.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("inventory.action", action))

	resp := d.invoke(ctx, action, raw)

	span.SetAttributes(attribute.Bool("inventory.success", resp.Success))
	switch {
	case resp.Success:
		span.SetStatus(codes.Ok, "")
	case inventory.IsClientError(resp.Err):
		d.logger.Info("action rejected",
			zap.String("action", action),
			zap.String("message", resp.Message),
		)
	default:
		span.RecordError(resp.Err)
		span.SetStatus(codes.Error, resp.Message)
		d.logger.Error("action failed",
			zap.String("action", action),
			zap.Error(resp.Err),
		)
	}
	return resp
}

func (d *Dispatcher) invoke(ctx context.Context, action string, raw json.RawMessage) Response {
	if strings.TrimSpace(action) == "" {
		return failure(&inventory.ValidationError{Reason: msgActionRequired}, msgActionRequired)
	}

	entity, opName, _ := strings.Cut(action, ".")
	ops, ok := d.routes[entity]
	if !ok {
		msg := "Unknown entity: " + entity
		return failure(&inventory.ValidationError{Reason: msg}, msg)
	}
	op, ok := ops[opName]
	if !ok {
		msg := "Unknown operation: " + opName
		return failure(&inventory.ValidationError{Reason: msg}, msg)
	}

	p, err := parseParams(raw)
	if err != nil {
		return failure(err, op.fail+": "+err.Error())
	}

	data, msg, err := op.run(ctx, p)
	if err != nil {
		return failure(err, failureMessage(op.fail, err))
	}
	if msg == "" {
		msg = msgOK
	}
	return Response{Success: true, Data: data, Message: msg}
}

func (d *Dispatcher) lookup(action string) (operation, bool) {
	entity, opName, _ := strings.Cut(action, ".")
	op, ok := d.routes[entity][opName]
	return op, ok
}

func failure(err error, msg string) Response {
	return Response{Success: false, Data: nil, Message: msg, Err: err}
}

// failureMessage hides store details and strips wrapping from client errors.
func failureMessage(fail string, err error) string {
	if !inventory.IsClientError(err) {
		return fail
	}
	var nf *inventory.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	var nl *notLinkedError
	if errors.As(err, &nl) {
		return nl.Error()
	}
	return fail + ": " + clientReason(err)
}

func clientReason(err error) string {
	var (
		neg *inventory.NegativeInventoryError
		imm *inventory.ImmutableFieldError
		val *inventory.ValidationError
		con *inventory.ConflictError
	)
	switch {
	case errors.As(err, &neg):
		return neg.Error()
	case errors.As(err, &imm):
		return imm.Error()
	case errors.As(err, &val):
		return val.Error()
	case errors.As(err, &con):
		return con.Error()
	}
	return err.Error()
}

// notLinkedError is the removeProduct miss. It classifies as NotFound.
type notLinkedError struct{}

func (*notLinkedError) Error() string { return "Product was not in the specified category" }

func (*notLinkedError) Unwrap() error { return inventory.ErrNotFound }
