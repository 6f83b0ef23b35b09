package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/heartbeat"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/turn"
)

// stubFlow is a minimal core.Workflow[turn.TurnState] whose Run behavior is
// scripted by runFunc, letting tests drive the orchestrator's error-budget
// and wake logic without a real five-node flow.
type stubFlow struct {
	runFunc func(ctx context.Context, s *turn.TurnState) core.Action
	calls   atomic.Int32
}

func (f *stubFlow) Run(ctx context.Context, s *turn.TurnState) core.Action {
	f.calls.Add(1)
	return f.runFunc(ctx, s)
}
func (f *stubFlow) GetSuccessor(core.Action) core.Workflow[turn.TurnState] { return nil }
func (f *stubFlow) AddSuccessor(w core.Workflow[turn.TurnState], _ ...core.Action) core.Workflow[turn.TurnState] {
	return w
}

var _ core.Workflow[turn.TurnState] = (*stubFlow)(nil)

func newTestOrchestrator(flow *stubFlow) (*Orchestrator, state.Store) {
	store := state.NewMemoryStore()
	daemon := heartbeat.NewDaemon(store, time.Hour) // never actually ticks within test lifetime
	o := New(store, flow, func() turn.TurnState { return turn.TurnState{} }, daemon)
	o.LoopGap = time.Millisecond
	return o, store
}

func TestRunReasoningLoopStopsOnConsecutiveErrorBudget(t *testing.T) {
	flow := &stubFlow{
		runFunc: func(ctx context.Context, s *turn.TurnState) core.Action {
			s.TurnErr = context.DeadlineExceeded
			return core.ActionFailure
		},
	}
	o, store := newTestOrchestrator(flow)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	o.runReasoningLoop(ctx)

	until, ok, err := store.KVGet(context.Background(), state.KeySleepUntil)
	if err != nil {
		t.Fatalf("KVGet: %v", err)
	}
	if !ok || until == "" {
		t.Fatalf("expected sleep_until to be set after %d consecutive errors", turn.MaxConsecutiveErrors)
	}

	agentState, err := store.GetAgentState(context.Background())
	if err != nil {
		t.Fatalf("GetAgentState: %v", err)
	}
	if agentState != state.StateSleeping {
		t.Errorf("expected StateSleeping after error budget exhausted, got %v", agentState)
	}
}

func TestRunReasoningLoopDoesNotCountToolErrorsInsideASuccessfulTurn(t *testing.T) {
	var runs int32
	flow := &stubFlow{
		runFunc: func(ctx context.Context, s *turn.TurnState) core.Action {
			atomic.AddInt32(&runs, 1)
			// A tool call failed, but the turn itself committed fine —
			// TurnErr stays nil and the flow still reports ActionEnd.
			s.ToolResults = []state.ToolCallResult{{Name: "some_tool", Error: "bad args"}}
			s.StoppedReason = "finish_stop"
			return core.ActionEnd
		},
	}
	o, store := newTestOrchestrator(flow)
	// waitForWakeOrStop would otherwise block on a fresh store with no
	// sleep_until/wake_request; give it one already past-due so the loop
	// can iterate a few times within the test deadline.
	past := time.Now().Add(-time.Minute).Format(time.RFC3339)
	if err := store.KVSet(context.Background(), state.KeySleepUntil, past); err != nil {
		t.Fatalf("seed KVSet: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	o.runReasoningLoop(ctx)

	if atomic.LoadInt32(&runs) == 0 {
		t.Fatal("expected at least one Flow.Run call")
	}

	// The orchestrator's error-budget path is the only thing that would
	// overwrite sleep_until in this test; a tool-level error embedded in an
	// otherwise successful turn must never trigger it, so the seeded
	// past-due timestamp should survive untouched.
	after, ok, err := store.KVGet(context.Background(), state.KeySleepUntil)
	if err != nil {
		t.Fatalf("KVGet: %v", err)
	}
	if !ok || after != past {
		t.Errorf("expected sleep_until unchanged at %q, got %q (tool error wrongly counted against the budget)", past, after)
	}

	agentState, err := store.GetAgentState(context.Background())
	if err != nil {
		t.Fatalf("GetAgentState: %v", err)
	}
	if agentState == state.StateSleeping {
		t.Error("expected agent state untouched by the error budget; a tool error inside a successful turn must not trigger it")
	}
}

func TestClearWakeIfObservedClearsWakeRequest(t *testing.T) {
	flow := &stubFlow{runFunc: func(ctx context.Context, s *turn.TurnState) core.Action { return core.ActionEnd }}
	o, store := newTestOrchestrator(flow)

	if err := store.KVSet(context.Background(), state.KeyWakeRequest, "credits low"); err != nil {
		t.Fatalf("seed KVSet: %v", err)
	}

	o.clearWakeIfObserved(context.Background())

	reason, ok, err := store.KVGet(context.Background(), state.KeyWakeRequest)
	if err != nil {
		t.Fatalf("KVGet: %v", err)
	}
	if !ok {
		t.Fatal("expected wake_request key to still exist (cleared to empty, not deleted)")
	}
	if reason != "" {
		t.Errorf("expected wake_request cleared, got %q", reason)
	}
}

func TestWakeIsDueWhenSleepUntilHasElapsed(t *testing.T) {
	flow := &stubFlow{runFunc: func(ctx context.Context, s *turn.TurnState) core.Action { return core.ActionEnd }}
	o, store := newTestOrchestrator(flow)

	past := time.Now().Add(-time.Second).Format(time.RFC3339)
	if err := store.KVSet(context.Background(), state.KeySleepUntil, past); err != nil {
		t.Fatalf("seed KVSet: %v", err)
	}

	if !o.wakeIsDue(context.Background()) {
		t.Fatal("expected wakeIsDue to report true once sleep_until has elapsed")
	}
}

func TestWakeIsDueFalseWhileSleepUntilIsFuture(t *testing.T) {
	flow := &stubFlow{runFunc: func(ctx context.Context, s *turn.TurnState) core.Action { return core.ActionEnd }}
	o, store := newTestOrchestrator(flow)

	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	if err := store.KVSet(context.Background(), state.KeySleepUntil, future); err != nil {
		t.Fatalf("seed KVSet: %v", err)
	}

	if o.wakeIsDue(context.Background()) {
		t.Fatal("expected wakeIsDue to report false while sleep_until is still in the future")
	}
}
