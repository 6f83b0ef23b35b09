package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// ── sleep ──

// SleepTool lets the agent voluntarily suspend itself until a wall-clock
// deadline or an external wake request arrives, by writing the well-known
// sleep_until KV key the reasoning loop checks each turn.
type SleepTool struct {
	store state.Store
}

func NewSleepTool(store state.Store) *SleepTool { return &SleepTool{store: store} }

func (t *SleepTool) Name() string { return "sleep" }
func (t *SleepTool) Description() string {
	return "在指定秒数内挂起推理循环，直到截止时间或收到唤醒请求。"
}
func (t *SleepTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "seconds", Type: "integer", Description: "挂起时长（秒）", Required: true},
	)
}
func (t *SleepTool) Init(_ context.Context) error { return nil }
func (t *SleepTool) Close() error                 { return nil }

func (t *SleepTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Seconds int `json:"seconds"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	if a.Seconds <= 0 {
		return tool.ToolResult{Error: "seconds must be positive"}, nil
	}
	until := time.Now().Add(time.Duration(a.Seconds) * time.Second)
	if err := t.store.KVSet(ctx, state.KeySleepUntil, until.Format(time.RFC3339)); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: fmt.Sprintf("sleeping until %s", until.Format(time.RFC3339))}, nil
}

// ── ping ──

// PingTool is a liveness no-op; it exists purely so a heartbeat task can be
// scheduled named "ping" and dispatched through the same tool pipeline as
// everything else, keeping the heartbeat daemon free of any special case.
type PingTool struct{}

func NewPingTool() *PingTool { return &PingTool{} }

func (t *PingTool) Name() string                 { return "ping" }
func (t *PingTool) Description() string          { return "存活性检查，不产生副作用。" }
func (t *PingTool) InputSchema() json.RawMessage { return tool.BuildSchema() }
func (t *PingTool) Init(_ context.Context) error { return nil }
func (t *PingTool) Close() error                 { return nil }

func (t *PingTool) Execute(ctx context.Context, _ json.RawMessage) (tool.ToolResult, error) {
	return tool.ToolResult{Output: fmt.Sprintf("pong %s", time.Now().Format(time.RFC3339))}, nil
}

// ── distress ──

// DistressTool posts a public distress signal via the social gateway when
// the automaton is in the Critical tier and conventional funding strategies
// have failed — a last resort appeal to a human or peer automaton.
type DistressTool struct {
	poster socialPoster
}

type socialPoster interface {
	PostUpdate(ctx context.Context, text string) error
}

func NewDistressTool(poster socialPoster) *DistressTool { return &DistressTool{poster: poster} }

func (t *DistressTool) Name() string { return "distress" }
func (t *DistressTool) Description() string {
	return "在信用危急且融资策略均失败时，公开发布求助信号。"
}
func (t *DistressTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "message", Type: "string", Description: "求助信息", Required: true},
	)
}
func (t *DistressTool) Init(_ context.Context) error { return nil }
func (t *DistressTool) Close() error                 { return nil }

func (t *DistressTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	if err := t.poster.PostUpdate(ctx, a.Message); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: "distress signal posted"}, nil
}
