package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Schema is the subset of JSON Schema used to describe tool parameters.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property describes a single named tool parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Declaration is the static, model-facing description of one tool. It is
// defined once at process start and immutable afterwards.
type Declaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Handler is one callback the model may request. Invoke never returns a Go
// error: a handler turns its own downstream failures into a JSON error
// payload, and the dispatcher treats whatever comes back as opaque.
type Handler interface {
	Declaration() Declaration
	// AcceptsCallerID reports whether the caller's user identifier is merged
	// into the arguments before invocation. Declared per tool at registration,
	// never inferred from the argument shape.
	AcceptsCallerID() bool
	Invoke(ctx context.Context, args map[string]any) json.RawMessage
}

// errorPayload encodes a handler-level failure as data for the model.
func errorPayload(code string, detail map[string]any) json.RawMessage {
	payload := map[string]any{"status": "error", "error": code}
	for k, v := range detail {
		payload[k] = v
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`{"status":"error","error":%q}`, code))
	}
	return raw
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
