package openai

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pocketomega/automaton/internal/llm"
	openailib "github.com/sashabaranov/go-openai"
)

// Client implements llm.InferenceGateway using the OpenAI-compatible
// protocol. Works with any endpoint that supports the chat completions API.
type Client struct {
	client     *openailib.Client
	config     *Config
	lowCompute atomic.Bool
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientConfig := openailib.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	// Prevent indefinite hangs when the API is unresponsive.
	httpTimeout := time.Duration(config.HTTPTimeout) * time.Second
	clientConfig.HTTPClient = &http.Client{Timeout: httpTimeout}

	return &Client{
		client: openailib.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// NewClientFromEnv creates a client using environment variables.
func NewClientFromEnv() (*Client, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return NewClient(config)
}

// SetLowComputeMode switches between the default and cheap-tier model.
func (c *Client) SetLowComputeMode(enabled bool) {
	c.lowCompute.Store(enabled)
}

// GetDefaultModel returns the default-tier model identifier.
func (c *Client) GetDefaultModel() string {
	return c.config.Model
}

func (c *Client) activeModel() string {
	if c.lowCompute.Load() {
		return c.config.LowComputeModel
	}
	return c.config.Model
}

func (c *Client) activeMaxTokens(requested int) int {
	if c.lowCompute.Load() {
		if requested <= 0 || requested > c.config.LowComputeMaxTokens {
			return c.config.LowComputeMaxTokens
		}
		return requested
	}
	if requested > 0 {
		return requested
	}
	return c.config.MaxTokens
}

// Chat sends messages (and, if supplied, tool schemas) to the active model
// and returns the assembled response. finish_reason is normalized to the
// spec's enumeration; tool_calls is populated when the model requests
// function calls instead of (or alongside) direct text.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, options llm.ChatOptions) (llm.ChatResponse, error) {
	if len(messages) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("llm/openai: no messages to send")
	}

	model := c.activeModel()
	req := openailib.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	if c.config.Temperature != nil {
		req.Temperature = *c.config.Temperature
	}

	maxTokens := c.activeMaxTokens(options.MaxTokens)
	// Reasoning-capable models expose a "max completion tokens" field
	// distinct from the legacy max_tokens; DetectThinkingCapability tells
	// us which family this model belongs to.
	if maxTokens > 0 {
		if llm.DetectThinkingCapability(model).SupportsNativeThinking {
			req.MaxCompletionTokens = maxTokens
		} else {
			req.MaxTokens = maxTokens
		}
	}
	if len(options.Tools) > 0 {
		req.Tools = toOpenAITools(options.Tools)
	}

	resp, err := c.createWithRetry(ctx, req)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("llm/openai: no choices returned")
	}

	choice := resp.Choices[0]
	out := llm.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Message: llm.Message{
			Role:             llm.RoleAssistant,
			Content:          choice.Message.Content,
			ReasoningContent: choice.Message.ReasoningContent,
		},
		Usage: llm.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		FinishReason: normalizeFinishReason(choice.FinishReason),
	}

	if len(choice.Message.ToolCalls) > 0 {
		out.ToolCalls = make([]llm.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			out.ToolCalls[i] = llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: []byte(tc.Function.Arguments),
			}
		}
		out.Message.ToolCalls = out.ToolCalls
		out.FinishReason = llm.FinishToolCalls
	}

	return out, nil
}

func (c *Client) createWithRetry(ctx context.Context, req openailib.ChatCompletionRequest) (openailib.ChatCompletionResponse, error) {
	var resp openailib.ChatCompletionResponse
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			return resp, nil
		}
		if attempt < c.config.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[LLM] retry %d/%d after %v, error: %v", attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return openailib.ChatCompletionResponse{}, ctx.Err()
			}
		}
	}
	return openailib.ChatCompletionResponse{}, fmt.Errorf("llm/openai: call failed after %d retries: %w", c.config.MaxRetries, lastErr)
}

func toOpenAIMessages(messages []llm.Message) []openailib.ChatCompletionMessage {
	out := make([]openailib.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		m := openailib.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		if msg.Role == llm.RoleTool && msg.ToolCallID != "" {
			m.ToolCallID = msg.ToolCallID
			m.Name = msg.Name
		}
		if msg.Role == llm.RoleAssistant && len(msg.ToolCalls) > 0 {
			tcs := make([]openailib.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				tcs[j] = openailib.ToolCall{
					ID:   tc.ID,
					Type: openailib.ToolTypeFunction,
					Function: openailib.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
			m.ToolCalls = tcs
		}
		out[i] = m
	}
	return out
}

func toOpenAITools(tools []llm.ToolDefinition) []openailib.Tool {
	out := make([]openailib.Tool, len(tools))
	for i, t := range tools {
		out[i] = openailib.Tool{
			Type: openailib.ToolTypeFunction,
			Function: &openailib.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

func normalizeFinishReason(r openailib.FinishReason) llm.FinishReason {
	switch r {
	case openailib.FinishReasonStop:
		return llm.FinishStop
	case openailib.FinishReasonToolCalls, openailib.FinishReasonFunctionCall:
		return llm.FinishToolCalls
	case openailib.FinishReasonLength:
		return llm.FinishLength
	default:
		return llm.FinishOther
	}
}
