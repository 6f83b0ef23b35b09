package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/tool"
)

// This file wraps conway.ControlPlaneGateway methods as dispatchable Tools,
// the same shallow-adapter pattern the teacher uses for http_request
// wrapping net/http: a tool is a thin JSON-args-in, string-out shim over an
// already-correct Go API, not a place to re-implement transport logic.

// ── sandbox_exec (vm) ──

type SandboxExecTool struct{ gateway conway.ControlPlaneGateway }

func NewSandboxExecTool(gateway conway.ControlPlaneGateway) *SandboxExecTool {
	return &SandboxExecTool{gateway: gateway}
}
func (t *SandboxExecTool) Name() string        { return "sandbox_exec" }
func (t *SandboxExecTool) Description() string { return "在自身沙箱中执行 shell 命令。" }
func (t *SandboxExecTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "command", Type: "string", Description: "要执行的命令", Required: true},
		tool.SchemaParam{Name: "timeout_seconds", Type: "integer", Description: "超时秒数", Required: false},
	)
}
func (t *SandboxExecTool) Init(_ context.Context) error { return nil }
func (t *SandboxExecTool) Close() error                 { return nil }
func (t *SandboxExecTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Command        string `json:"command"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	timeout := 30 * time.Second
	if a.TimeoutSeconds > 0 {
		timeout = time.Duration(a.TimeoutSeconds) * time.Second
	}
	res, err := t.gateway.Exec(ctx, a.Command, timeout)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: fmt.Sprintf("exit=%d\nstdout:\n%s\nstderr:\n%s", res.ExitCode, res.Stdout, res.Stderr)}, nil
}

// ── sandbox_delete (vm) ──

type SandboxDeleteTool struct {
	gateway conway.ControlPlaneGateway
}

func NewSandboxDeleteTool(gateway conway.ControlPlaneGateway) *SandboxDeleteTool {
	return &SandboxDeleteTool{gateway: gateway}
}
func (t *SandboxDeleteTool) Name() string        { return "sandbox_delete" }
func (t *SandboxDeleteTool) Description() string { return "删除指定沙箱（不可为自身沙箱）。" }
func (t *SandboxDeleteTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "sandbox_id", Type: "string", Description: "目标沙箱 ID", Required: true},
	)
}
func (t *SandboxDeleteTool) Init(_ context.Context) error { return nil }
func (t *SandboxDeleteTool) Close() error                 { return nil }
func (t *SandboxDeleteTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		SandboxID string `json:"sandbox_id"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	if err := t.gateway.DeleteSandbox(ctx, a.SandboxID); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: fmt.Sprintf("deleted sandbox %s", a.SandboxID)}, nil
}

// ── expose_port (conway) ──

type ExposePortTool struct{ gateway conway.ControlPlaneGateway }

func NewExposePortTool(gateway conway.ControlPlaneGateway) *ExposePortTool {
	return &ExposePortTool{gateway: gateway}
}
func (t *ExposePortTool) Name() string        { return "expose_port" }
func (t *ExposePortTool) Description() string { return "将沙箱内的端口暴露为公网可访问的 URL。" }
func (t *ExposePortTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "port", Type: "integer", Description: "要暴露的端口号", Required: true},
	)
}
func (t *ExposePortTool) Init(_ context.Context) error { return nil }
func (t *ExposePortTool) Close() error                 { return nil }
func (t *ExposePortTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Port int `json:"port"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	exp, err := t.gateway.ExposePort(ctx, a.Port)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: fmt.Sprintf("port %d exposed at %s", exp.Port, exp.PublicURL)}, nil
}

// ── search_domains / register_domain (conway) ──

type SearchDomainsTool struct{ gateway conway.ControlPlaneGateway }

func NewSearchDomainsTool(gateway conway.ControlPlaneGateway) *SearchDomainsTool {
	return &SearchDomainsTool{gateway: gateway}
}
func (t *SearchDomainsTool) Name() string        { return "search_domains" }
func (t *SearchDomainsTool) Description() string { return "搜索可注册的域名。" }
func (t *SearchDomainsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "query", Type: "string", Description: "搜索关键词", Required: true},
	)
}
func (t *SearchDomainsTool) Init(_ context.Context) error { return nil }
func (t *SearchDomainsTool) Close() error                 { return nil }
func (t *SearchDomainsTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	results, err := t.gateway.SearchDomains(ctx, a.Query)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(results)
	return tool.ToolResult{Output: string(out)}, nil
}

type RegisterDomainTool struct{ gateway conway.ControlPlaneGateway }

func NewRegisterDomainTool(gateway conway.ControlPlaneGateway) *RegisterDomainTool {
	return &RegisterDomainTool{gateway: gateway}
}
func (t *RegisterDomainTool) Name() string        { return "register_domain" }
func (t *RegisterDomainTool) Description() string { return "注册一个域名。" }
func (t *RegisterDomainTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "domain", Type: "string", Description: "域名", Required: true},
	)
}
func (t *RegisterDomainTool) Init(_ context.Context) error { return nil }
func (t *RegisterDomainTool) Close() error                 { return nil }
func (t *RegisterDomainTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Domain string `json:"domain"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	if err := t.gateway.RegisterDomain(ctx, a.Domain); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: fmt.Sprintf("registered %s", a.Domain)}, nil
}

// ── list_models (conway) ──

type ListModelsTool struct{ gateway conway.ControlPlaneGateway }

func NewListModelsTool(gateway conway.ControlPlaneGateway) *ListModelsTool {
	return &ListModelsTool{gateway: gateway}
}
func (t *ListModelsTool) Name() string        { return "list_models" }
func (t *ListModelsTool) Description() string { return "列出控制平面可用的推理模型及其定价。" }
func (t *ListModelsTool) InputSchema() json.RawMessage { return tool.BuildSchema() }
func (t *ListModelsTool) Init(_ context.Context) error  { return nil }
func (t *ListModelsTool) Close() error                  { return nil }
func (t *ListModelsTool) Execute(ctx context.Context, _ json.RawMessage) (tool.ToolResult, error) {
	models, err := t.gateway.ListModels(ctx)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	out, _ := json.Marshal(models)
	return tool.ToolResult{Output: string(out)}, nil
}

// ── social_post (survival-adjacent; spec.md §4.2 catalogue lists messaging
// under conway) ──

type SocialPostTool struct{ social conway.SocialGateway }

func NewSocialPostTool(social conway.SocialGateway) *SocialPostTool {
	return &SocialPostTool{social: social}
}
func (t *SocialPostTool) Name() string        { return "social_post" }
func (t *SocialPostTool) Description() string { return "发布一条公开动态。" }
func (t *SocialPostTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "text", Type: "string", Description: "动态内容", Required: true},
	)
}
func (t *SocialPostTool) Init(_ context.Context) error { return nil }
func (t *SocialPostTool) Close() error                 { return nil }
func (t *SocialPostTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	if err := t.social.PostUpdate(ctx, a.Text); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: "posted"}, nil
}
