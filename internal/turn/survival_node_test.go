package turn

import (
	"context"
	"testing"
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/state"
)

func TestSurvivalNodeNormalTierContinues(t *testing.T) {
	store := state.NewMemoryStore()
	gateway := &fakeGateway{creditsCents: 100}
	chain := &fakeChain{balance: 5}
	inference := &fakeInference{}

	s := &TurnState{
		Store:     store,
		Gateway:   gateway,
		Chain:     chain,
		Inference: inference,
		Identity:  Identity{Wallet: "0xabc"},
	}

	node := NewSurvivalNode(conway.NetworkBaseSepolia)
	prep := node.Prep(s)
	if len(prep) != 1 {
		t.Fatalf("expected exactly one prep result, got %d", len(prep))
	}
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionDefault {
		t.Fatalf("expected ActionDefault for normal tier, got %v", action)
	}
	if s.Tier != state.TierNormal {
		t.Fatalf("expected TierNormal, got %v", s.Tier)
	}
	if inference.lowComputeSeen {
		t.Fatalf("normal tier must not enable low-compute mode")
	}
	got, err := store.GetAgentState(context.Background())
	if err != nil || got != state.StateRunning {
		t.Fatalf("expected agent state running, got %v err %v", got, err)
	}
}

func TestSurvivalNodeDeadTierEndsFlowWithoutCallingInference(t *testing.T) {
	store := state.NewMemoryStore()
	gateway := &fakeGateway{creditsCents: 0}
	inference := &fakeInference{}

	s := &TurnState{
		Store:     store,
		Gateway:   gateway,
		Inference: inference,
	}

	node := NewSurvivalNode(conway.NetworkBaseSepolia)
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionEnd {
		t.Fatalf("expected ActionEnd for dead tier, got %v", action)
	}
	if s.StoppedReason != "dead" {
		t.Fatalf("expected StoppedReason=dead, got %q", s.StoppedReason)
	}
}

func TestSurvivalNodeStillSleepingEndsFlow(t *testing.T) {
	store := state.NewMemoryStore()
	until := time.Now().Add(time.Hour)
	if err := store.KVSet(context.Background(), state.KeySleepUntil, until.Format(time.RFC3339)); err != nil {
		t.Fatalf("seed sleep_until: %v", err)
	}
	gateway := &fakeGateway{creditsCents: 100}

	s := &TurnState{Store: store, Gateway: gateway, Inference: &fakeInference{}}
	node := NewSurvivalNode(conway.NetworkBaseSepolia)
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionEnd {
		t.Fatalf("expected ActionEnd while still sleeping, got %v", action)
	}
	if s.StoppedReason != "sleeping" {
		t.Fatalf("expected StoppedReason=sleeping, got %q", s.StoppedReason)
	}
}

func TestSurvivalNodeFoldsInboxWhenNoInputQueued(t *testing.T) {
	store := state.NewMemoryStore()
	gateway := &fakeGateway{creditsCents: 100}
	ctx := context.Background()
	if err := store.EnqueueInboxMessage(ctx, state.InboxMessage{
		ID: "m1", Sender: "0xfriend", Content: "hello", ReceivedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed inbox: %v", err)
	}

	s := &TurnState{Store: store, Gateway: gateway, Inference: &fakeInference{}}
	node := NewSurvivalNode(conway.NetworkBaseSepolia)
	prep := node.Prep(s)
	exec, err := node.Exec(ctx, prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	node.Post(s, prep, exec)

	if !s.HasInput {
		t.Fatalf("expected inbox message to produce pending input")
	}
	if s.PendingInput == "" {
		t.Fatalf("expected non-empty folded input")
	}
	unprocessed, err := store.UnprocessedInbox(ctx, 10)
	if err != nil {
		t.Fatalf("read unprocessed inbox: %v", err)
	}
	if len(unprocessed) != 0 {
		t.Fatalf("expected inbox message to be marked processed, got %d remaining", len(unprocessed))
	}
}
