package turn

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/state"
)

func TestToolDispatchNodeDispatchesEachCallPreservingID(t *testing.T) {
	store := state.NewMemoryStore()
	dispatcher := newTestDispatcher(store, &fakeTool{name: "ping", output: "pong"})

	s := &TurnState{
		Dispatcher: dispatcher,
		Response: llm.ChatResponse{
			ToolCalls: []llm.ToolCall{
				{ID: "call-1", Name: "ping", Arguments: json.RawMessage(`{}`)},
			},
		},
	}

	node := NewToolDispatchNode()
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionDefault {
		t.Fatalf("expected ActionDefault, got %v", action)
	}
	if len(s.ToolResults) != 1 {
		t.Fatalf("expected 1 tool result, got %d", len(s.ToolResults))
	}
	if s.ToolResults[0].ID != "call-1" {
		t.Fatalf("expected dispatch result id to match the inference call id, got %q", s.ToolResults[0].ID)
	}
	if s.ToolResults[0].Result != "pong" {
		t.Fatalf("expected tool output %q, got %q", "pong", s.ToolResults[0].Result)
	}
}

func TestToolDispatchNodeCapsCallsPerTurn(t *testing.T) {
	store := state.NewMemoryStore()
	dispatcher := newTestDispatcher(store, &fakeTool{name: "ping", output: "pong"})

	calls := make([]llm.ToolCall, 0, MaxToolCallsPerTurn+3)
	for i := 0; i < MaxToolCallsPerTurn+3; i++ {
		calls = append(calls, llm.ToolCall{ID: "c", Name: "ping", Arguments: json.RawMessage(`{}`)})
	}

	s := &TurnState{
		Dispatcher: dispatcher,
		Response:   llm.ChatResponse{ToolCalls: calls},
	}

	node := NewToolDispatchNode()
	prep := node.Prep(s)
	if len(prep[0].Calls) != MaxToolCallsPerTurn {
		t.Fatalf("expected calls to be capped at %d, got %d", MaxToolCallsPerTurn, len(prep[0].Calls))
	}
}

func TestToolDispatchNodeUnknownToolProducesErrorResult(t *testing.T) {
	store := state.NewMemoryStore()
	dispatcher := newTestDispatcher(store)

	s := &TurnState{
		Dispatcher: dispatcher,
		Response: llm.ChatResponse{
			ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "nonexistent", Arguments: json.RawMessage(`{}`)}},
		},
	}

	node := NewToolDispatchNode()
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	node.Post(s, prep, exec)

	if s.ToolResults[0].Error == "" {
		t.Fatalf("expected an error result for an unknown tool")
	}
}
