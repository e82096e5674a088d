package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/observability"
)

// Tool represents an operation the assistant can call
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`

	schema *jsonschema.Schema
}

// Schema returns the JSON encoding of the tool's input schema.
func (t Tool) Schema() json.RawMessage {
	raw, err := json.Marshal(t.Parameters)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return raw
}

// ToolResult is the outcome of one tool call. Data holds the report text on
// success, Error the message on failure.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Text renders the result the way it is shown to the assistant.
func (r *ToolResult) Text() string {
	if r.Success {
		return r.Data
	}
	return "❌ " + r.Error
}

func ok(format string, args ...any) *ToolResult {
	return &ToolResult{Success: true, Data: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) *ToolResult {
	return &ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// ToolHandler executes a tool. Arguments have already passed the schema.
type ToolHandler func(ctx context.Context, args Args) (*ToolResult, error)

// Registry manages available tools
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	handlers map[string]ToolHandler

	backend Backend
	log     *logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Registry)

func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) { r.log = log.Named("tools") }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// WithClock overrides the wall clock used for report headers and periods.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry holding every built-in tool bound to b.
func NewRegistry(b Backend, opts ...Option) (*Registry, error) {
	r := &Registry{
		tools:    make(map[string]Tool),
		handlers: make(map[string]ToolHandler),
		backend:  b,
		log:      logger.Nop(),
		tracer:   noop.NewTracerProvider().Tracer("tools"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.registerBuiltinTools(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a tool to the registry. The parameter schema is compiled up
// front so a broken schema fails at startup rather than on first call.
func (r *Registry) Register(tool Tool, handler ToolHandler) error {
	if tool.Parameters == nil {
		tool.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	raw, err := json.Marshal(tool.Parameters)
	if err != nil {
		return fmt.Errorf("tool %s: encode schema: %w", tool.Name, err)
	}
	compiler := jsonschema.NewCompiler()
	url := tool.Name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("tool %s: add schema: %w", tool.Name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("tool %s: compile schema: %w", tool.Name, err)
	}
	tool.schema = schema

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
	r.handlers[tool.Name] = handler
	return nil
}

// List returns every registered tool ordered by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Execute runs a tool with the given arguments. The only error returned is
// for an unknown tool; every other failure is carried by the result.
func (r *Registry) Execute(ctx context.Context, toolName string, params map[string]any) (res *ToolResult, err error) {
	r.mu.RLock()
	tool, exists := r.tools[toolName]
	handler := r.handlers[toolName]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}

	callID := uuid.NewString()
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tool."+toolName, trace.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("tool.call_id", callID),
	))
	outcome := "success"

	defer func() {
		if p := recover(); p != nil {
			outcome = "panic"
			r.log.Errorw("tool panicked", "tool", toolName, "call_id", callID, "panic", p)
			res, err = fail("Internal error in %s: %v", toolName, p), nil
		}
		res.CallID = callID
		if !res.Success && outcome == "success" {
			outcome = "failure"
		}
		if outcome != "success" {
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
		elapsed := time.Since(start)
		observability.ObserveToolCall(toolName, outcome, elapsed)
		r.log.Infow("tool call", "tool", toolName, "call_id", callID, "outcome", outcome, "duration", elapsed)
	}()

	args, verr := normalize(params)
	if verr == nil {
		verr = tool.schema.Validate(map[string]any(args))
	}
	if verr != nil {
		outcome = "invalid"
		r.log.Warnw("tool arguments rejected", "tool", toolName, "call_id", callID, "error", verr)
		return fail("Invalid arguments for %s: %s", toolName, describeValidation(verr)), nil
	}

	res, herr := handler(ctx, args)
	if herr != nil {
		return fail("Error executing %s: %v", toolName, herr), nil
	}
	if res == nil {
		return fail("Tool %s returned no result", toolName), nil
	}
	return res, nil
}

// normalize round-trips params through JSON so handlers and the validator
// only ever see float64, string, bool, []any and map[string]any.
func normalize(params map[string]any) (Args, error) {
	if params == nil {
		return Args{}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return Args(out), nil
}

// describeValidation flattens a jsonschema error tree to its leaf messages.
func describeValidation(err error) string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return strings.Join(msgs, "; ")
}
