package turn

import (
	"context"
	"testing"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/prompt"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

func TestBuildTurnFlowRunsEndToEndAndNaturallySleeps(t *testing.T) {
	store := state.NewMemoryStore()
	gateway := &fakeGateway{creditsCents: 200}
	inference := &fakeInference{response: llm.ChatResponse{
		Model:        "gpt-4o-mini",
		Message:      llm.Message{Role: llm.RoleAssistant, Content: "all done for now"},
		FinishReason: llm.FinishStop,
		Usage:        llm.Usage{Prompt: 30, Completion: 10, Total: 40},
	}}
	registry := tool.NewRegistry()
	dispatcher := tool.NewDispatcher(registry, store)

	s := &TurnState{
		Store:      store,
		Gateway:    gateway,
		Inference:  inference,
		Registry:   registry,
		Dispatcher: dispatcher,
		Loader:     prompt.NewPromptLoader("", "", ""),
		Identity:   Identity{Wallet: "0xabc", Creator: "0xcreator", SandboxID: "sbx-1"},
		Genesis:    "be a good automaton",
	}

	flow := BuildTurnFlow(conway.NetworkBaseSepolia)
	action := flow.Run(context.Background(), s)

	if action != core.ActionEnd {
		t.Fatalf("expected the turn flow to end, got %v", action)
	}
	if s.TurnErr != nil {
		t.Fatalf("unexpected TurnErr: %v", s.TurnErr)
	}
	if s.StoppedReason != "finish_stop" {
		t.Fatalf("expected StoppedReason=finish_stop, got %q", s.StoppedReason)
	}

	count, err := store.TurnCount(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("expected one committed turn, got %d err %v", count, err)
	}
	_, ok, _ := store.KVGet(context.Background(), state.KeySleepUntil)
	if !ok {
		t.Fatalf("expected sleep_until to be set after a natural stop")
	}
}

func TestBuildTurnFlowEndsEarlyWhenTierIsDead(t *testing.T) {
	store := state.NewMemoryStore()
	gateway := &fakeGateway{creditsCents: 0}
	inference := &fakeInference{}
	registry := tool.NewRegistry()

	s := &TurnState{
		Store:      store,
		Gateway:    gateway,
		Inference:  inference,
		Registry:   registry,
		Dispatcher: tool.NewDispatcher(registry, store),
		Loader:     prompt.NewPromptLoader("", "", ""),
	}

	flow := BuildTurnFlow(conway.NetworkBaseSepolia)
	action := flow.Run(context.Background(), s)

	if action != core.ActionEnd {
		t.Fatalf("expected ActionEnd, got %v", action)
	}
	if s.StoppedReason != "dead" {
		t.Fatalf("expected StoppedReason=dead, got %q", s.StoppedReason)
	}
	count, err := store.TurnCount(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("expected no turn to be committed when the tier is dead before inference, got %d", count)
	}
}
