package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pocketomega/automaton/internal/skill"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// ── skill_install ──

// SkillInstallTool writes a new skill document under <workspaceDir>/skills/
// and reloads the skill manager so it activates without a process restart.
type SkillInstallTool struct {
	workspaceDir string
	manager      *skill.Manager
	store        state.Store
}

func NewSkillInstallTool(workspaceDir string, manager *skill.Manager, store state.Store) *SkillInstallTool {
	return &SkillInstallTool{workspaceDir: workspaceDir, manager: manager, store: store}
}

func (t *SkillInstallTool) Name() string { return "skill_install" }
func (t *SkillInstallTool) Description() string {
	return "安装一个新技能：写入 skills/ 目录下的 Markdown 文档并立即生效。"
}
func (t *SkillInstallTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "name", Type: "string", Description: "技能名称（文件名，不含扩展名）", Required: true},
		tool.SchemaParam{Name: "description", Type: "string", Description: "技能简介", Required: false},
		tool.SchemaParam{Name: "auto_activate", Type: "boolean", Description: "是否每轮自动注入", Required: false},
		tool.SchemaParam{Name: "body", Type: "string", Description: "技能正文（Markdown 指令）", Required: true},
	)
}
func (t *SkillInstallTool) Init(_ context.Context) error { return nil }
func (t *SkillInstallTool) Close() error                 { return nil }

func (t *SkillInstallTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		AutoActivate bool   `json:"auto_activate"`
		Body         string `json:"body"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	if a.Name == "" {
		return tool.ToolResult{Error: "name 不能为空"}, nil
	}

	skillsDir := filepath.Join(t.workspaceDir, "skills")
	path, err := safeResolvePath(a.Name+".md", skillsDir)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	doc := fmt.Sprintf("---\nname: %s\ndescription: %s\nauto_activate: %v\n---\n%s\n",
		a.Name, a.Description, a.AutoActivate, a.Body)

	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}

	summary := t.manager.Reload()

	if t.store != nil {
		_ = t.store.InsertModification(ctx, state.ModificationEntry{
			ID:          fmt.Sprintf("mod-%d", time.Now().UnixNano()),
			Timestamp:   time.Now(),
			Type:        tool.AuditSkillInstall,
			Description: fmt.Sprintf("installed skill %q", a.Name),
			FilePath:    path,
			Reversible:  true,
		})
	}
	return tool.ToolResult{Output: summary}, nil
}

// ── skill_remove ──

// SkillRemoveTool unloads a skill from the in-memory manager and deletes its
// backing file, so a misbehaving or obsolete skill can be retracted within
// the same turn it's identified.
type SkillRemoveTool struct {
	workspaceDir string
	manager      *skill.Manager
	store        state.Store
}

func NewSkillRemoveTool(workspaceDir string, manager *skill.Manager, store state.Store) *SkillRemoveTool {
	return &SkillRemoveTool{workspaceDir: workspaceDir, manager: manager, store: store}
}

func (t *SkillRemoveTool) Name() string { return "skill_remove" }
func (t *SkillRemoveTool) Description() string {
	return "移除一个已安装的技能。"
}
func (t *SkillRemoveTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "name", Type: "string", Description: "技能名称", Required: true},
	)
}
func (t *SkillRemoveTool) Init(_ context.Context) error { return nil }
func (t *SkillRemoveTool) Close() error                 { return nil }

func (t *SkillRemoveTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}

	if !t.manager.Remove(a.Name) {
		return tool.ToolResult{Error: fmt.Sprintf("技能 %q 未安装", a.Name)}, nil
	}

	skillsDir := filepath.Join(t.workspaceDir, "skills")
	if path, err := safeResolvePath(a.Name+".md", skillsDir); err == nil {
		_ = os.Remove(path) // best-effort: the in-memory unload already took effect
	}

	if t.store != nil {
		_ = t.store.InsertModification(ctx, state.ModificationEntry{
			ID:          fmt.Sprintf("mod-%d", time.Now().UnixNano()),
			Timestamp:   time.Now(),
			Type:        tool.AuditSkillRemove,
			Description: fmt.Sprintf("removed skill %q", a.Name),
			Reversible:  false,
		})
	}
	return tool.ToolResult{Output: fmt.Sprintf("removed skill %q", a.Name)}, nil
}
