package dto

// Backend-agnostic model protocol. The vertex adapter translates these into
// genai types; tests drive the conversation loop with fakes.

type ToolSchema struct {
	Name        string
	Description string
	Parameters  *Schema
}

type Schema struct {
	Type        string
	Description string
	Enum        []string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
}

// ModelReply is what a conversation turn yields: either final text or one or
// more pending tool calls.
type ModelReply struct {
	Text      string
	ToolCalls []ToolCall
}
