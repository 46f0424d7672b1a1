package domain

import "encoding/json"

// ChatRequest is one inbound chat message. It is created per request and
// discarded after the reply is produced.
type ChatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// ToolCallRequest is a structured request from the model naming a tool and
// supplying its arguments. It is consumed exactly once by the dispatcher.
type ToolCallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"args"`
}

// ModelReply is the parsed outcome of one model round trip. Exactly one of
// Text or Call is populated. Raw carries the model's candidate content
// verbatim so a tool-result follow-up can echo it back unchanged.
type ModelReply struct {
	Text string
	Call *ToolCallRequest
	Raw  json.RawMessage
}

// IsToolCall reports whether the model requested a tool invocation.
func (r ModelReply) IsToolCall() bool {
	return r.Call != nil
}

// ToolResult is a dispatched tool's outcome handed back to the model on the
// second round, tagged with the tool's name. The payload is opaque here.
type ToolResult struct {
	Name    string
	Payload json.RawMessage
}

// ConversationTurn is the provider-agnostic input to one model round trip.
// The first round carries only UserMessage; the tool-result round also
// carries the model's prior reply and the tool outcome.
type ConversationTurn struct {
	UserMessage string
	PriorReply  *ModelReply
	ToolResult  *ToolResult
}
