package turn

import (
	"context"
	"testing"
	"time"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/state"
)

func TestPersistNodeCommitsTurnAndStopsOnSuccessfulSleep(t *testing.T) {
	store := state.NewMemoryStore()
	s := &TurnState{
		Store:      store,
		PriorState: state.StateRunning,
		Response: llm.ChatResponse{
			Model:        "gpt-4o-mini",
			FinishReason: llm.FinishToolCalls,
			Usage:        llm.Usage{Prompt: 100, Completion: 20, Total: 120},
		},
		ToolResults: []state.ToolCallResult{{ID: "c1", Name: "sleep"}},
	}

	node := NewPersistNode()
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionEnd {
		t.Fatalf("expected ActionEnd, got %v", action)
	}
	if s.StoppedReason != "sleep_tool" {
		t.Fatalf("expected StoppedReason=sleep_tool, got %q", s.StoppedReason)
	}
	count, err := store.TurnCount(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("expected exactly one committed turn, got %d err %v", count, err)
	}
	// PersistNode does not overwrite sleep_until here: the sleep tool itself
	// already wrote it during dispatch.
	_, ok, _ := store.KVGet(context.Background(), state.KeySleepUntil)
	if ok {
		t.Fatalf("did not expect PersistNode to write sleep_until for the sleep-tool branch in this test setup")
	}
}

func TestPersistNodeNaturalStopSchedulesSleep(t *testing.T) {
	store := state.NewMemoryStore()
	s := &TurnState{
		Store:      store,
		PriorState: state.StateRunning,
		Response: llm.ChatResponse{
			Model:        "gpt-4o-mini",
			FinishReason: llm.FinishStop,
			Usage:        llm.Usage{Prompt: 50, Completion: 10, Total: 60},
		},
	}

	node := NewPersistNode()
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionEnd {
		t.Fatalf("expected ActionEnd, got %v", action)
	}
	if s.StoppedReason != "finish_stop" {
		t.Fatalf("expected StoppedReason=finish_stop, got %q", s.StoppedReason)
	}

	raw, ok, err := store.KVGet(context.Background(), state.KeySleepUntil)
	if err != nil || !ok {
		t.Fatalf("expected sleep_until to be set, ok=%v err=%v", ok, err)
	}
	until, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t.Fatalf("sleep_until not RFC3339: %v", err)
	}
	if !until.After(time.Now()) {
		t.Fatalf("expected sleep_until to be in the future")
	}

	gotState, err := store.GetAgentState(context.Background())
	if err != nil || gotState != state.StateSleeping {
		t.Fatalf("expected agent state sleeping, got %v err %v", gotState, err)
	}
}

func TestPersistNodeContinuesLoopWhenToolCallsPending(t *testing.T) {
	store := state.NewMemoryStore()
	s := &TurnState{
		Store:      store,
		PriorState: state.StateRunning,
		Response: llm.ChatResponse{
			Model:        "gpt-4o-mini",
			FinishReason: llm.FinishToolCalls,
			Usage:        llm.Usage{Prompt: 50, Completion: 10, Total: 60},
		},
		ToolResults: []state.ToolCallResult{{ID: "c1", Name: "file_read", Result: "contents"}},
	}

	node := NewPersistNode()
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	node.Post(s, prep, exec)

	if s.StoppedReason != "" {
		t.Fatalf("expected the loop to keep going (empty StoppedReason), got %q", s.StoppedReason)
	}
	_, ok, _ := store.KVGet(context.Background(), state.KeySleepUntil)
	if ok {
		t.Fatalf("did not expect sleep_until to be set when tool calls are pending")
	}
}
