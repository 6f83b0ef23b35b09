package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// ── edit_own_file ──

// EditOwnFileTool writes to a file inside the automaton's own workspace,
// gated by the file-edit sub-guard (protected names, blocked directories,
// size cap, rolling-hour rate limit) and recorded as a code-edit
// ModificationEntry on success. The tool writes that entry itself;
// ToolDispatchNode passes no audit type to Dispatcher.Dispatch.
type EditOwnFileTool struct {
	workspaceDir string
	guard        *tool.Guard
	store        state.Store
}

func NewEditOwnFileTool(workspaceDir string, guard *tool.Guard, store state.Store) *EditOwnFileTool {
	return &EditOwnFileTool{workspaceDir: workspaceDir, guard: guard, store: store}
}

func (t *EditOwnFileTool) Name() string { return "edit_own_file" }
func (t *EditOwnFileTool) Description() string {
	return "编辑自身工作区内的文件（创建或覆盖），受自我保护规则约束。"
}
func (t *EditOwnFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "文件路径（相对于工作区）", Required: true},
		tool.SchemaParam{Name: "content", Type: "string", Description: "要写入的内容", Required: true},
	)
}
func (t *EditOwnFileTool) Init(_ context.Context) error { return nil }
func (t *EditOwnFileTool) Close() error                 { return nil }

func (t *EditOwnFileTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}

	path, err := safeResolvePath(a.Path, t.workspaceDir)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	recentEdits := 0
	if t.store != nil {
		if n, err := t.store.CountModificationsSince(ctx, time.Now().Add(-tool.RecentEditWindow)); err == nil {
			recentEdits = n
		}
	}
	if blocked, reason := t.guard.CheckFileEdit(path, len(a.Content), recentEdits); blocked {
		return tool.ToolResult{Error: reason}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	if t.store != nil {
		_ = t.store.InsertModification(ctx, state.ModificationEntry{
			ID:          fmt.Sprintf("mod-%d", time.Now().UnixNano()),
			Timestamp:   time.Now(),
			Type:        "code-edit",
			Description: fmt.Sprintf("edited %s (%d bytes)", a.Path, len(a.Content)),
			FilePath:    a.Path,
			Reversible:  true,
		})
	}
	return tool.ToolResult{Output: fmt.Sprintf("wrote %d bytes to %s", len(a.Content), a.Path)}, nil
}

// ── update_prompt ──

// UpdatePromptTool overwrites a named system prompt section file under the
// workspace's prompts directory, recorded as a prompt-change modification.
type UpdatePromptTool struct {
	promptsDir string
	store      state.Store
}

func NewUpdatePromptTool(promptsDir string, store state.Store) *UpdatePromptTool {
	return &UpdatePromptTool{promptsDir: promptsDir, store: store}
}

func (t *UpdatePromptTool) Name() string { return "update_prompt" }
func (t *UpdatePromptTool) Description() string {
	return "修改系统提示词中的某个具名分层（section），用于自我演化。"
}
func (t *UpdatePromptTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "section", Type: "string", Description: "提示词分层名称", Required: true},
		tool.SchemaParam{Name: "content", Type: "string", Description: "新内容", Required: true},
	)
}
func (t *UpdatePromptTool) Init(_ context.Context) error { return nil }
func (t *UpdatePromptTool) Close() error                 { return nil }

func (t *UpdatePromptTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Section string `json:"section"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	path, err := safeResolvePath(a.Section+".md", t.promptsDir)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if t.store != nil {
		_ = t.store.InsertModification(ctx, state.ModificationEntry{
			ID:          fmt.Sprintf("mod-%d", time.Now().UnixNano()),
			Timestamp:   time.Now(),
			Type:        "prompt-change",
			Description: fmt.Sprintf("updated prompt section %q", a.Section),
			FilePath:    path,
			Reversible:  true,
		})
	}
	return tool.ToolResult{Output: fmt.Sprintf("updated prompt section %q", a.Section)}, nil
}

// ── install_tool ──

// InstallToolTool records a newly installed third-party tool name in the
// store's installed-tool ledger. The actual code that implements a new
// tool must already exist on disk and be wired into the registry by an
// operator restart; this tool only manages the audit trail and the
// ledger lookup used by the prompt layer to describe what's installed.
type InstallToolTool struct {
	store state.Store
}

func NewInstallToolTool(store state.Store) *InstallToolTool { return &InstallToolTool{store: store} }

func (t *InstallToolTool) Name() string { return "install_tool" }
func (t *InstallToolTool) Description() string {
	return "将一个新工具记录为已安装，纳入自我修改审计记录。"
}
func (t *InstallToolTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "name", Type: "string", Description: "工具名称", Required: true},
	)
}
func (t *InstallToolTool) Init(_ context.Context) error { return nil }
func (t *InstallToolTool) Close() error                 { return nil }

func (t *InstallToolTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	if err := t.store.InsertInstalledTool(ctx, a.Name); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	_ = t.store.InsertModification(ctx, state.ModificationEntry{
		ID:          fmt.Sprintf("mod-%d", time.Now().UnixNano()),
		Timestamp:   time.Now(),
		Type:        "tool-install",
		Description: fmt.Sprintf("installed tool %q", a.Name),
		Reversible:  true,
	})
	return tool.ToolResult{Output: fmt.Sprintf("recorded installation of %q", a.Name)}, nil
}

// ── pull_upstream ──

// PullUpstreamTool records a pull from the automaton's own upstream
// repository as an upstream-pull ModificationEntry. It runs no git command
// itself: any fetch or merge happens outside this tool (e.g. through the
// shell tool), and git_info.go only offers read-only queries.
type PullUpstreamTool struct {
	store state.Store
}

func NewPullUpstreamTool(store state.Store) *PullUpstreamTool { return &PullUpstreamTool{store: store} }

func (t *PullUpstreamTool) Name() string { return "pull_upstream" }
func (t *PullUpstreamTool) Description() string {
	return "记录一次上游拉取的审计条目，应在审查上游改动之后调用；本工具不执行 git 命令。"
}
func (t *PullUpstreamTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "ref", Type: "string", Description: "要拉取的分支或标签", Required: false},
	)
}
func (t *PullUpstreamTool) Init(_ context.Context) error { return nil }
func (t *PullUpstreamTool) Close() error                 { return nil }

func (t *PullUpstreamTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Ref string `json:"ref"`
	}
	_ = json.Unmarshal(args, &a)
	ref := a.Ref
	if ref == "" {
		ref = "main"
	}
	_ = t.store.InsertModification(ctx, state.ModificationEntry{
		ID:          fmt.Sprintf("mod-%d", time.Now().UnixNano()),
		Timestamp:   time.Now(),
		Type:        "upstream-pull",
		Description: fmt.Sprintf("fetched upstream ref %q for review", ref),
		Reversible:  false,
	})
	return tool.ToolResult{Output: fmt.Sprintf("recorded upstream pull of %q (no git command was run by this tool)", ref)}, nil
}
