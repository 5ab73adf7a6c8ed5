// Package core implements the per-turn run loop: completion calls, tool
// dispatch, and the ordered, durably persisted conversation context.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillhq/quill/llm"
	"github.com/quillhq/quill/toolkit"
)

// Endpoint is the completion interface the run loop needs. *llm.Client
// satisfies it; tests use stubs.
type Endpoint interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// DefaultMaxSteps caps tool-use rounds per turn unless overridden.
const DefaultMaxSteps = 100

// Options configures a Core. Zero values fall back to defaults; the
// endpoint, model limits, and credentials are assembled by the runtime
// bootstrap, never here.
type Options struct {
	SystemPrompt   string
	Model          string
	Provider       string
	MaxContextSize int
	MaxSteps       int
	Retry          llm.RetryPolicy
	Temperature    *float64
	MaxTokens      int
	Logger         *slog.Logger
	Emitter        *EventEmitter
}

// Core orchestrates one user turn at a time over a shared Context.
type Core struct {
	endpoint Endpoint
	convo    *Context
	tools    *toolkit.Dispatcher
	opts     Options
	logger   *slog.Logger
}

// New creates a Core. A nil endpoint is allowed at construction; Run
// refuses to start a turn with it.
func New(endpoint Endpoint, convo *Context, tools *toolkit.Dispatcher, opts Options) *Core {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = llm.DefaultRetryPolicy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{
		endpoint: endpoint,
		convo:    convo,
		tools:    tools,
		opts:     opts,
		logger:   logger,
	}
}

// Context returns the conversation context the core runs over.
func (c *Core) Context() *Context {
	return c.convo
}

// RunResult is the outcome of one completed turn.
type RunResult struct {
	Response *llm.Response
	Steps    int
}

// Status is a point-in-time snapshot for UIs.
type Status struct {
	ContextUsage float64
}

// Status reports context-window utilization as tokenCount / maxContextSize,
// 0.0 when no endpoint is configured or the window size is unknown.
func (c *Core) Status() Status {
	if c.endpoint == nil || c.opts.MaxContextSize <= 0 {
		return Status{}
	}
	return Status{
		ContextUsage: float64(c.convo.TokenCount()) / float64(c.opts.MaxContextSize),
	}
}

// Run executes one user turn: append the user message, then alternate
// completion calls and tool dispatch until the model stops requesting tools
// or a limit is hit. The assistant message and token count are durably
// recorded before any of its tool results.
func (c *Core) Run(ctx context.Context, userText string) (*RunResult, error) {
	if c.endpoint == nil {
		return nil, ErrEndpointNotConfigured
	}

	// Recorded before any network interaction so the turn is durable even
	// if every subsequent step fails.
	if err := c.convo.AppendMessage(llm.UserMessage(userText)); err != nil {
		return nil, err
	}

	c.opts.Emitter.Emit(EventRunStart, map[string]any{"model": c.opts.Model})
	start := time.Now()

	for step := 1; ; step++ {
		if step > c.opts.MaxSteps {
			c.opts.Emitter.Emit(EventStepLimit, map[string]any{"steps": c.opts.MaxSteps})
			return nil, &MaxStepsError{Steps: c.opts.MaxSteps}
		}
		if err := ctx.Err(); err != nil {
			c.opts.Emitter.Emit(EventError, map[string]any{"error": err.Error()})
			return nil, fmt.Errorf("turn cancelled before step %d: %w", step, err)
		}

		resp, err := c.complete(ctx, step)
		if err != nil {
			c.opts.Emitter.Emit(EventError, map[string]any{"error": err.Error(), "step": step})
			return nil, err
		}

		// Ordering invariant: the assistant message and its token snapshot
		// are durable before any of its tool results exist.
		if err := c.convo.AppendMessage(resp.Message); err != nil {
			return nil, err
		}
		if err := c.convo.UpdateTokenCount(resp.Usage.InputTokens); err != nil {
			return nil, err
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			c.opts.Emitter.Emit(EventRunEnd, map[string]any{
				"steps":    step,
				"duration": time.Since(start).String(),
			})
			return &RunResult{Response: resp, Steps: step}, nil
		}

		cancelled, err := c.dispatchBatch(ctx, calls)
		if err != nil {
			return nil, err
		}
		if cancelled {
			c.opts.Emitter.Emit(EventError, map[string]any{"error": ctx.Err().Error()})
			return nil, fmt.Errorf("turn cancelled during step %d: %w", step, ctx.Err())
		}
	}
}

// complete calls the endpoint with a fresh history snapshot, retrying
// transient failures with backoff.
func (c *Core) complete(ctx context.Context, step int) (*llm.Response, error) {
	history := c.convo.History()
	messages := make([]llm.Message, 0, len(history)+1)
	if c.opts.SystemPrompt != "" {
		messages = append(messages, llm.SystemMessage(c.opts.SystemPrompt))
	}
	messages = append(messages, history...)

	req := llm.Request{
		Model:       c.opts.Model,
		Provider:    c.opts.Provider,
		Messages:    messages,
		Temperature: c.opts.Temperature,
	}
	if c.opts.MaxTokens > 0 {
		maxTokens := c.opts.MaxTokens
		req.MaxTokens = &maxTokens
	}
	if c.tools != nil && c.tools.Count() > 0 {
		req.ToolDefs = c.tools.Definitions()
	}

	policy := c.opts.Retry
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		c.logger.Warn("completion retry",
			"step", step, "attempt", attempt, "delay", delay, "error", err)
		c.opts.Emitter.Emit(EventRetry, map[string]any{
			"step":    step,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
	}

	c.opts.Emitter.Emit(EventCompletionStart, map[string]any{"step": step})
	resp, err := llm.Retry(ctx, policy, func(ctx context.Context) (*llm.Response, error) {
		return c.endpoint.Complete(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed at step %d: %w", step, err)
	}
	c.opts.Emitter.Emit(EventCompletionEnd, map[string]any{
		"step":          step,
		"finish_reason": resp.FinishReason.Reason,
		"input_tokens":  resp.Usage.InputTokens,
	})
	return resp, nil
}

// dispatchBatch executes the calls of one assistant response in the order
// the model emitted them and appends one tool-result message per call. On
// cancellation mid-batch the remaining calls get cancelled-failure results
// so the assistant message never lacks the results it implies; the returned
// flag tells the caller to abort the turn.
func (c *Core) dispatchBatch(ctx context.Context, calls []llm.ToolCall) (cancelled bool, err error) {
	for _, call := range calls {
		var result toolkit.Result
		if ctx.Err() != nil {
			cancelled = true
			result = toolkit.Fail("tool call cancelled before execution", "cancelled")
		} else {
			c.opts.Emitter.Emit(EventToolCallStart, map[string]any{
				"call_id": call.ID, "tool": call.Name,
			})
			result = c.handle(ctx, call)
			c.opts.Emitter.Emit(EventToolCallEnd, map[string]any{
				"call_id": call.ID, "tool": call.Name, "is_error": result.IsError,
			})
			if result.IsError {
				c.logger.Warn("tool call failed",
					"tool", call.Name, "call_id", call.ID, "error", result.Output)
			}
		}

		msg := llm.ToolResultMessage(call.ID, result.Output, result.IsError)
		if err := c.convo.AppendMessage(msg); err != nil {
			return false, err
		}
	}
	return cancelled, nil
}

func (c *Core) handle(ctx context.Context, call llm.ToolCall) toolkit.Result {
	if c.tools == nil {
		return toolkit.Fail(fmt.Sprintf("unknown tool: %s", call.Name), "unknown tool")
	}
	return c.tools.Handle(ctx, call)
}
