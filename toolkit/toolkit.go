// Package toolkit defines the tool contract and the dispatcher that routes
// model-issued tool calls to registered implementations.
package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/quillhq/quill/llm"
)

// ErrSkipTool is returned by a tool builder at load time to opt the tool out
// of registration without failing the agent load.
var ErrSkipTool = errors.New("tool skipped")

// Tool is implemented by every callable tool.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Call(ctx context.Context, args json.RawMessage) Result
}

// Result is the outcome of one tool call. A failure carries its message in
// Output with IsError set; Summary and Brief are short human-readable labels
// for success and failure respectively.
type Result struct {
	Output  string
	Summary string
	Brief   string
	IsError bool
}

// Ok builds a success Result.
func Ok(output, summary string) Result {
	return Result{Output: output, Summary: summary}
}

// Fail builds a failure Result.
func Fail(message, brief string) Result {
	return Result{Output: message, Brief: brief, IsError: true}
}

type currentCallKey struct{}

// WithCurrentCall attaches the in-flight tool call to the context.
func WithCurrentCall(ctx context.Context, call llm.ToolCall) context.Context {
	return context.WithValue(ctx, currentCallKey{}, call)
}

// CurrentCall reports the tool call the surrounding dispatch is satisfying.
// It is scoped to one dispatch: the value is only visible inside the Call
// invocation it was set for, so concurrent dispatches cannot observe each
// other's calls.
func CurrentCall(ctx context.Context) (llm.ToolCall, bool) {
	call, ok := ctx.Value(currentCallKey{}).(llm.ToolCall)
	return call, ok
}

// Dispatcher routes tool calls to registered tools. The tool set is frozen
// at construction; lookups after that are read-only.
type Dispatcher struct {
	tools      map[string]Tool
	charLimits map[string]int
	lineLimits map[string]int
	mu         sync.RWMutex
}

// NewDispatcher validates and registers the given tools. Duplicate names and
// nil schemas are registration errors so a bad tool set fails before any
// conversation turn begins.
func NewDispatcher(tools []Tool) (*Dispatcher, error) {
	d := &Dispatcher{
		tools:      make(map[string]Tool, len(tools)),
		charLimits: DefaultToolCharLimits,
		lineLimits: DefaultToolLineLimits,
	}
	for _, tool := range tools {
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := d.tools[name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		if tool.Schema() == nil {
			return nil, fmt.Errorf("tool %q declares no parameter schema", name)
		}
		d.tools[name] = tool
	}
	return d, nil
}

// Handle resolves and executes one tool call, returning exactly one Result.
// An unknown tool name yields a failure Result, never an error, so the run
// loop continues the turn. Panics inside a tool are recovered into a failure.
func (d *Dispatcher) Handle(ctx context.Context, call llm.ToolCall) (result Result) {
	d.mu.RLock()
	tool, ok := d.tools[call.Name]
	d.mu.RUnlock()
	if !ok {
		return Fail(fmt.Sprintf("unknown tool: %s", call.Name), "unknown tool")
	}

	defer func() {
		if r := recover(); r != nil {
			result = Fail(fmt.Sprintf("tool %s panicked: %v", call.Name, r), "tool panic")
		}
		if !result.IsError {
			result.Output = TruncateToolOutput(result.Output, call.Name, d.charLimits, d.lineLimits)
		}
	}()

	callCtx := WithCurrentCall(ctx, call)
	return tool.Call(callCtx, call.Arguments)
}

// Get returns a registered tool by name, or nil if not found.
func (d *Dispatcher) Get(name string) Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tools[name]
}

// Definitions returns the tool definitions to advertise to the model,
// sorted by name for a stable request shape.
func (d *Dispatcher) Definitions() []llm.ToolDefinition {
	d.mu.RLock()
	defer d.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(d.tools))
	for _, tool := range d.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the names of all registered tools, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (d *Dispatcher) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tools)
}

// ParseArguments unmarshals tool call arguments into a map.
func ParseArguments(raw json.RawMessage) (map[string]any, error) {
	var args map[string]any
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

// StringArg extracts a string argument from parsed tool arguments.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntArg extracts an integer argument from parsed tool arguments.
func IntArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// BoolArg extracts a boolean argument from parsed tool arguments.
func BoolArg(args map[string]any, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
