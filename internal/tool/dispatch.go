package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/automaton/internal/state"
)

// auditRequired names the ModificationEntry types produced by tool dispatch
// side effects (spec.md §4.2: "code edits, package installs, MCP installs,
// prompt changes, heartbeat changes, child spawns, upstream pulls — each
// produces a ModificationEntry atomically"). A tool declares which of these
// it performs via AuditType on its Dispatch call; empty means no audit
// record is produced.
const (
	AuditCodeEdit        = "code-edit"
	AuditToolInstall     = "tool-install"
	AuditMCPInstall      = "mcp-install"
	AuditConfigChange    = "config-change"
	AuditHeartbeatChange = "heartbeat-change"
	AuditPromptChange    = "prompt-change"
	AuditSkillInstall    = "skill-install"
	AuditSkillRemove     = "skill-remove"
	AuditChildSpawn      = "child-spawn"
	AuditUpstreamPull    = "upstream-pull"
)

// GuardCheck is one pre-dispatch rejection check. Dispatcher runs every
// registered check before invoking the tool; the first non-empty reason
// short-circuits execution.
type GuardCheck func(toolName string, args json.RawMessage) (blocked bool, reason string)

// Dispatcher implements the dispatch contract (spec.md §4.2): assign a
// fresh result id, capture start time, run the target tool, always record
// duration, and surface a human-readable reason when a Guard check rejects
// the call rather than silently failing.
type Dispatcher struct {
	registry *Registry
	store    state.Store
	checks   []GuardCheck
}

// NewDispatcher builds a Dispatcher bound to registry and store. Additional
// guard checks (beyond whatever the caller wires from Guard) can be passed
// directly; at minimum callers should pass the Guard's CheckShellCommand /
// CheckWritePath / CheckSandboxDelete / CheckTransferCredits checks adapted
// to the GuardCheck signature for the tools they apply to.
func NewDispatcher(registry *Registry, store state.Store, checks ...GuardCheck) *Dispatcher {
	return &Dispatcher{registry: registry, store: store, checks: checks}
}

// Dispatch runs toolName with args, applying every guard check first. When
// auditType is non-empty and the call succeeds, a ModificationEntry is
// inserted atomically alongside the result.
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, args json.RawMessage, auditType, filePath string) state.ToolCallResult {
	id := uuid.NewString()
	start := time.Now()

	for _, check := range d.checks {
		if blocked, reason := check(toolName, args); blocked {
			return state.ToolCallResult{
				ID:       id,
				Name:     toolName,
				Error:    reason,
				Duration: time.Since(start),
			}
		}
	}

	t, ok := d.registry.Get(toolName)
	if !ok {
		return state.ToolCallResult{
			ID:       id,
			Name:     toolName,
			Error:    fmt.Sprintf("unknown tool %q", toolName),
			Duration: time.Since(start),
		}
	}

	argMap := decodeArgsForAudit(args)
	result, err := t.Execute(ctx, args)
	duration := time.Since(start)

	if err != nil {
		return state.ToolCallResult{
			ID:        id,
			Name:      toolName,
			Arguments: argMap,
			Error:     err.Error(),
			Duration:  duration,
		}
	}
	if result.Error != "" {
		return state.ToolCallResult{
			ID:        id,
			Name:      toolName,
			Arguments: argMap,
			Error:     result.Error,
			Duration:  duration,
		}
	}

	if auditType != "" && d.store != nil {
		_ = d.store.InsertModification(ctx, state.ModificationEntry{
			ID:          uuid.NewString(),
			Timestamp:   time.Now(),
			Type:        auditType,
			Description: fmt.Sprintf("tool %s produced a %s side effect", toolName, auditType),
			FilePath:    filePath,
			Reversible:  auditType != AuditUpstreamPull,
		})
	}

	return state.ToolCallResult{
		ID:        id,
		Name:      toolName,
		Arguments: argMap,
		Result:    result.Output,
		Duration:  duration,
	}
}

func decodeArgsForAudit(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
