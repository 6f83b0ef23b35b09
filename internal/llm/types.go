package llm

import (
	"context"
	"encoding/json"
)

// Message represents one chat message threaded through the reasoning loop.
type Message struct {
	Role             string     `json:"role"` // "system", "user", "assistant", "tool"
	Content          string     `json:"content"`
	ReasoningContent string     `json:"reasoning_content,omitempty"` // native thinking output (e.g. DeepSeek-R1)
	ToolCallID       string     `json:"tool_call_id,omitempty"`      // set on role=tool messages
	Name             string     `json:"name,omitempty"`              // tool name, set alongside ToolCallID
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`        // set on role=assistant when the model requests tools
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolDefinition is one function schema offered to the model for function
// calling (options.tools in spec.md §6's InferenceGateway contract).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON-schema-shaped
}

// ToolCall is one function invocation the model asked for.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Usage mirrors the gateway's reported token accounting.
type Usage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// FinishReason enumerates why the model stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishOther     FinishReason = "other"
)

// ChatOptions configures one Chat call. Tools is nil or empty when no
// function calling is offered this turn. MaxTokens, when
// set, is mapped by the implementation to whichever token-limit field the
// underlying provider expects — newer reasoning models use a
// "max completion tokens" field distinct from the legacy max_tokens.
type ChatOptions struct {
	Tools     []ToolDefinition
	MaxTokens int
}

// ChatResponse is the complete result of one InferenceGateway.Chat call.
type ChatResponse struct {
	ID           string
	Model        string
	Message      Message
	ToolCalls    []ToolCall
	Usage        Usage
	FinishReason FinishReason
}

// InferenceGateway is the contract the reasoning loop's inference node
// consumes (spec.md §6). Implementations may wrap any OpenAI-compatible
// endpoint; internal/llm/openai provides the reference implementation used
// in production.
type InferenceGateway interface {
	Chat(ctx context.Context, messages []Message, options ChatOptions) (ChatResponse, error)

	// SetLowComputeMode switches the gateway between its default model and
	// a cheaper one with a reduced token budget (spec.md §4.3 tier effects).
	// Safe for concurrent use: the reasoning loop and heartbeat daemon both
	// observe and set this flag.
	SetLowComputeMode(enabled bool)

	// GetDefaultModel returns the model identifier used when low-compute
	// mode is disabled.
	GetDefaultModel() string
}
