package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

// Tool is one operation the model can invoke. Call decodes its own arguments
// into a typed value before touching the backend.
type Tool interface {
	Name() domain.ToolName
	Declaration() domain.ToolDeclaration
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error codes carried back to the model in domain.ToolError.
const (
	CodeUnknownTool      = "unknown_tool"
	CodeInvalidArguments = "invalid_arguments"
	CodeToolFailed       = "tool_failed"
	CodeToolPanic        = "tool_panic"
)

// Dispatcher maps tool calls onto the business backend. It never returns an
// error or panics: every failure becomes a structured ToolResult.
type Dispatcher struct {
	tools map[domain.ToolName]Tool
	order []domain.ToolName
}

// NewDispatcher registers the closed set of support tools. notifier may be nil.
func NewDispatcher(data domain.BusinessData, notifier domain.HandoffNotifier) *Dispatcher {
	d := &Dispatcher{tools: make(map[domain.ToolName]Tool)}
	d.register(
		&orderStatusTool{data: data},
		&userOrdersTool{data: data},
		&findProductsTool{data: data},
		&submitFeedbackTool{data: data, now: time.Now},
		&userTransactionsTool{data: data},
		&contactSupportTool{data: data, notifier: notifier, now: time.Now},
	)
	return d
}

func (d *Dispatcher) register(tools ...Tool) {
	for _, t := range tools {
		d.tools[t.Name()] = t
		d.order = append(d.order, t.Name())
	}
}

// Declarations describes every registered tool, in registration order.
func (d *Dispatcher) Declarations() []domain.ToolDeclaration {
	out := make([]domain.ToolDeclaration, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name].Declaration())
	}
	return out
}

// ExecuteAll runs a batch of calls in order and returns one result per call.
func (d *Dispatcher) ExecuteAll(ctx context.Context, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, d.Execute(ctx, call))
	}
	return results
}

// Execute runs a single call.
func (d *Dispatcher) Execute(ctx context.Context, call domain.ToolCall) (res domain.ToolResult) {
	log := observability.LoggerFromContext(ctx).With(
		slog.String("tool", string(call.Name)),
		slog.String("call_id", call.ID),
	)

	res = domain.ToolResult{CallID: call.ID, Name: call.Name}

	tool, ok := d.tools[call.Name]
	if !ok {
		log.Warn("model requested unknown tool")
		res.Err = &domain.ToolError{
			Code:    CodeUnknownTool,
			Message: fmt.Sprintf("unknown tool %q", call.Name),
		}
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("tool panicked", "panic", r)
			res.Output = nil
			res.Err = &domain.ToolError{
				Code:    CodeToolPanic,
				Message: fmt.Sprintf("tool %s failed unexpectedly", call.Name),
			}
		}
	}()

	out, err := tool.Call(ctx, call.Args)
	if err != nil {
		code := CodeToolFailed
		if errors.Is(err, errInvalidArguments) {
			code = CodeInvalidArguments
		}
		log.Error("tool call failed", "error", err, "code", code)
		res.Err = &domain.ToolError{Code: code, Message: err.Error()}
		return res
	}

	log.Debug("tool call succeeded")
	res.Output = out
	return res
}
