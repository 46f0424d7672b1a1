package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"salon-agent/internal/domain"
)

// CallerContext carries request-scoped fields merged into tool arguments for
// handlers that declare they accept them.
type CallerContext struct {
	UserID string
}

// Outcome is the result of one dispatch. Known=false is the sentinel for a
// tool name absent from the registry; it is a condition, not an error.
type Outcome struct {
	Name    string
	Known   bool
	Payload json.RawMessage
}

// Dispatcher routes tool calls from the model to registered handlers.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.New("tools: registry must not be nil")
	}
	return &Dispatcher{registry: registry}, nil
}

// Dispatch looks up the handler for the call and invokes it. Whatever the
// handler returns is treated as an opaque success payload; only a missing
// handler is a dispatch-level condition.
func (d *Dispatcher) Dispatch(ctx context.Context, call domain.ToolCallRequest, caller CallerContext) Outcome {
	h, ok := d.registry.Lookup(call.Name)
	if !ok {
		slog.Warn("model requested unknown tool", "tool", call.Name)
		return Outcome{Name: call.Name, Known: false}
	}

	args := make(map[string]any, len(call.Arguments)+1)
	for k, v := range call.Arguments {
		args[k] = v
	}
	if h.AcceptsCallerID() {
		args["userId"] = caller.UserID
	}

	slog.Info("dispatching tool", "tool", call.Name)
	return Outcome{Name: call.Name, Known: true, Payload: h.Invoke(ctx, args)}
}
