package tool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pocketomega/automaton/internal/state"
)

type echoTool struct{ name string }

func (e *echoTool) Name() string                 { return e.name }
func (e *echoTool) Description() string          { return "echoes its input" }
func (e *echoTool) InputSchema() json.RawMessage { return BuildSchema() }
func (e *echoTool) Init(ctx context.Context) error { return nil }
func (e *echoTool) Close() error                 { return nil }
func (e *echoTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return ToolResult{Output: string(args)}, nil
}

func TestDispatchSuccessRecordsDurationAndAudit(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&echoTool{name: "echo"})
	store := newFakeStore()
	d := NewDispatcher(reg, store)

	result := d.Dispatch(context.Background(), "echo", json.RawMessage(`{"x":1}`), AuditCodeEdit, "main.go")
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.ID == "" {
		t.Fatalf("expected a fresh result id")
	}
	if result.Result == "" {
		t.Fatalf("expected a result string")
	}
	if len(store.mods) != 1 || store.mods[0].Type != AuditCodeEdit {
		t.Fatalf("expected one code-edit audit entry, got %+v", store.mods)
	}
}

func TestDispatchBlockedByGuardNeverRuns(t *testing.T) {
	reg := NewRegistry()
	ran := false
	reg.Register(&fnTool{name: "danger", fn: func(ctx context.Context, args json.RawMessage) (ToolResult, error) {
		ran = true
		return ToolResult{Output: "should not run"}, nil
	}})
	store := newFakeStore()
	blockAll := func(toolName string, args json.RawMessage) (bool, string) {
		return true, "blocked: test guard"
	}
	d := NewDispatcher(reg, store, blockAll)

	result := d.Dispatch(context.Background(), "danger", nil, "", "")
	if result.Error == "" {
		t.Fatalf("expected a block reason")
	}
	if ran {
		t.Fatalf("tool must not execute when a guard check blocks it")
	}
	if len(store.mods) != 0 {
		t.Fatalf("blocked calls must not produce an audit entry")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry()
	store := newFakeStore()
	d := NewDispatcher(reg, store)
	result := d.Dispatch(context.Background(), "nope", nil, "", "")
	if result.Error == "" {
		t.Fatalf("expected an error for an unknown tool")
	}
}

type fnTool struct {
	name string
	fn   func(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

func (f *fnTool) Name() string                 { return f.name }
func (f *fnTool) Description() string          { return "test tool" }
func (f *fnTool) InputSchema() json.RawMessage { return BuildSchema() }
func (f *fnTool) Init(ctx context.Context) error { return nil }
func (f *fnTool) Close() error                 { return nil }
func (f *fnTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return f.fn(ctx, args)
}

// fakeStore is a minimal state.Store stub recording only what these tests
// assert on; every other method is a no-op.
type fakeStore struct {
	mods []state.ModificationEntry
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (s *fakeStore) GetAgentState(ctx context.Context) (state.AgentState, error) { return "", nil }
func (s *fakeStore) SetAgentState(ctx context.Context, st state.AgentState) error { return nil }
func (s *fakeStore) InsertTurn(ctx context.Context, turn state.AgentTurn) error  { return nil }
func (s *fakeStore) RecentTurns(ctx context.Context, limit int) ([]state.AgentTurn, error) {
	return nil, nil
}
func (s *fakeStore) TurnCount(ctx context.Context) (int, error) { return 0, nil }
func (s *fakeStore) GetFinancialState(ctx context.Context) (state.FinancialState, error) {
	return state.FinancialState{}, nil
}
func (s *fakeStore) SetFinancialState(ctx context.Context, fs state.FinancialState) error {
	return nil
}
func (s *fakeStore) InsertModification(ctx context.Context, m state.ModificationEntry) error {
	s.mods = append(s.mods, m)
	return nil
}
func (s *fakeStore) RecentModifications(ctx context.Context, limit int) ([]state.ModificationEntry, error) {
	return s.mods, nil
}
func (s *fakeStore) CountModificationsSince(ctx context.Context, since time.Time) (int, error) {
	return len(s.mods), nil
}
func (s *fakeStore) ListHeartbeatEntries(ctx context.Context) ([]state.HeartbeatEntry, error) {
	return nil, nil
}
func (s *fakeStore) UpsertHeartbeatEntry(ctx context.Context, e state.HeartbeatEntry) error {
	return nil
}
func (s *fakeStore) MarkHeartbeatRun(ctx context.Context, name string, at time.Time) error {
	return nil
}
func (s *fakeStore) SetHeartbeatEnabled(ctx context.Context, name string, enabled bool) error {
	return nil
}
func (s *fakeStore) InsertChild(ctx context.Context, c state.ChildAutomaton) error { return nil }
func (s *fakeStore) ListChildren(ctx context.Context) ([]state.ChildAutomaton, error) {
	return nil, nil
}
func (s *fakeStore) UpdateChildStatus(ctx context.Context, id string, status state.ChildStatus) error {
	return nil
}
func (s *fakeStore) ActiveChildCount(ctx context.Context) (int, error) { return 0, nil }
func (s *fakeStore) EnqueueInboxMessage(ctx context.Context, m state.InboxMessage) error {
	return nil
}
func (s *fakeStore) UnprocessedInbox(ctx context.Context, limit int) ([]state.InboxMessage, error) {
	return nil, nil
}
func (s *fakeStore) MarkInboxProcessed(ctx context.Context, ids []string) error { return nil }
func (s *fakeStore) KVGet(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}
func (s *fakeStore) KVSet(ctx context.Context, key, value string) error { return nil }
func (s *fakeStore) ListInstalledTools(ctx context.Context) ([]string, error) { return nil, nil }
func (s *fakeStore) InsertInstalledTool(ctx context.Context, name string) error { return nil }
func (s *fakeStore) GetRegistryEntry(ctx context.Context) (*state.RegistryEntry, error) {
	return nil, nil
}
func (s *fakeStore) SetRegistryEntry(ctx context.Context, e state.RegistryEntry) error { return nil }
func (s *fakeStore) CacheReputation(ctx context.Context, r state.ReputationSnapshot) error {
	return nil
}
func (s *fakeStore) GetReputation(ctx context.Context, subject string) (*state.ReputationSnapshot, error) {
	return nil, nil
}

var _ state.Store = (*fakeStore)(nil)
