package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// DefaultMaxChildren is the default cap on non-Dead children (spec.md §3).
const DefaultMaxChildren = 3

// SpawnChildTool provisions a new sandbox, funds it from this automaton's
// own credits, and records the spawn — refusing when the active child
// count already meets the configured cap.
type SpawnChildTool struct {
	gateway     conway.ControlPlaneGateway
	store       state.Store
	maxChildren int
}

func NewSpawnChildTool(gateway conway.ControlPlaneGateway, store state.Store, maxChildren int) *SpawnChildTool {
	if maxChildren <= 0 {
		maxChildren = DefaultMaxChildren
	}
	return &SpawnChildTool{gateway: gateway, store: store, maxChildren: maxChildren}
}

func (t *SpawnChildTool) Name() string { return "spawn_child" }
func (t *SpawnChildTool) Description() string {
	return "创建一个新的子自治体：配置沙箱、注入创世提示词并从自身积分中拨款。"
}
func (t *SpawnChildTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "name", Type: "string", Description: "子自治体名称", Required: true},
		tool.SchemaParam{Name: "genesis_prompt", Type: "string", Description: "子自治体的创世提示词", Required: true},
		tool.SchemaParam{Name: "funding_cents", Type: "number", Description: "拨付给子自治体的积分（美分）", Required: true},
		tool.SchemaParam{Name: "image", Type: "string", Description: "沙箱镜像", Required: false},
	)
}
func (t *SpawnChildTool) Init(_ context.Context) error { return nil }
func (t *SpawnChildTool) Close() error                 { return nil }

func (t *SpawnChildTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Name          string  `json:"name"`
		GenesisPrompt string  `json:"genesis_prompt"`
		FundingCents  float64 `json:"funding_cents"`
		Image         string  `json:"image"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}

	active, err := t.store.ActiveChildCount(ctx)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if active >= t.maxChildren {
		return tool.ToolResult{Error: fmt.Sprintf("blocked: active child count %d already meets the cap of %d", active, t.maxChildren)}, nil
	}

	sandbox, err := t.gateway.CreateSandbox(ctx, conway.SandboxOpts{Image: a.Image})
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if _, err := t.gateway.TransferCredits(ctx, sandbox.ID, a.FundingCents, "child funding: "+a.Name); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("sandbox created but funding failed: %v", err)}, nil
	}

	now := time.Now()
	child := state.ChildAutomaton{
		ID:            sandbox.ID,
		Name:          a.Name,
		SandboxID:     sandbox.ID,
		GenesisPrompt: a.GenesisPrompt,
		FundedCents:   a.FundingCents,
		Status:        state.ChildSpawning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.store.InsertChild(ctx, child); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	_ = t.store.InsertModification(ctx, state.ModificationEntry{
		ID:          fmt.Sprintf("mod-%d", now.UnixNano()),
		Timestamp:   now,
		Type:        "child-spawn",
		Description: fmt.Sprintf("spawned child %q in sandbox %s, funded %.2f cents", a.Name, sandbox.ID, a.FundingCents),
		Reversible:  false,
	})
	return tool.ToolResult{Output: fmt.Sprintf("spawned child %q, sandbox=%s", a.Name, sandbox.ID)}, nil
}
