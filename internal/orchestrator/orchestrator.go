// Package orchestrator runs the two cooperative top-level tasks of a live
// automaton: the reasoning loop (repeated turn.BuildTurnFlow runs) and the
// heartbeat daemon. Both are clients of the same state store and gateways
// (spec.md §4.4 concurrency contract); this package owns nothing that either
// task doesn't already expose — it only sequences them and owns the
// consecutive-error budget that spans turns.
package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/heartbeat"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/turn"
)

// Orchestrator wires the reasoning loop and the heartbeat daemon together
// and runs them as two goroutines sharing one *state.Store.
type Orchestrator struct {
	Store   state.Store
	Flow    core.Workflow[turn.TurnState]
	Seed    func() turn.TurnState // builds a fresh TurnState for the next Flow.Run
	Daemon  *heartbeat.Daemon
	LoopGap time.Duration // pause between turns when the loop keeps going; default 2s
}

// New constructs an Orchestrator. flow is typically turn.BuildTurnFlow(network);
// seed must return a TurnState with the fixed collaborators populated and the
// transient fields zeroed — SurvivalNode fills in PendingInput/Tier/etc. itself.
func New(store state.Store, flow core.Workflow[turn.TurnState], seed func() turn.TurnState, daemon *heartbeat.Daemon) *Orchestrator {
	return &Orchestrator{Store: store, Flow: flow, Seed: seed, Daemon: daemon, LoopGap: 2 * time.Second}
}

// Run blocks until ctx is cancelled, running the reasoning loop and the
// heartbeat daemon in parallel. Both goroutines are joined with a
// sync.WaitGroup so Run only returns once both have actually stopped.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		o.runReasoningLoop(ctx)
	}()

	go func() {
		defer wg.Done()
		o.Daemon.Run(ctx)
	}()

	wg.Wait()
}

// runReasoningLoop repeatedly runs one Flow.Run (one AgentTurn) until ctx is
// cancelled or a turn stops with StoppedReason "dead". It owns the
// consecutive-error counter from spec.md §4.1 step 10: only a turn-level
// failure (TurnState.TurnErr set by a node's own Post) counts against the
// budget — a tool call that merely returned an error inside an otherwise
// successfully persisted turn does not (spec.md §7's error-kind taxonomy:
// malformed tool arguments are a tool error, not a loop failure).
func (o *Orchestrator) runReasoningLoop(ctx context.Context) {
	consecutiveErrors := 0
	sleepAlreadySet := false

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		o.clearWakeIfObserved(ctx)

		s := o.Seed()
		action := o.Flow.Run(ctx, &s)

		if s.TurnErr != nil {
			if !sleepAlreadySet {
				consecutiveErrors++
				log.Printf("[Orchestrator] turn failure (%d/%d consecutive): %v", consecutiveErrors, turn.MaxConsecutiveErrors, s.TurnErr)
			}
			if consecutiveErrors >= turn.MaxConsecutiveErrors && !sleepAlreadySet {
				o.sleepOnConsecutiveErrors(ctx)
				sleepAlreadySet = true
			}
		} else {
			consecutiveErrors = 0
			sleepAlreadySet = false
		}

		if action == core.ActionFailure && s.TurnErr == nil {
			// A node ended the flow without populating TurnErr — treat as a
			// bare turn failure so the budget still tracks it.
			consecutiveErrors++
		}

		switch s.StoppedReason {
		case "dead":
			// The Dead tier is terminal: the reasoning loop stops here.
			return
		case "sleeping":
			// SurvivalNode already found sleep_until in the future; no turn
			// was persisted this iteration.
			o.waitForWakeOrStop(ctx)
		case "sleep_tool", "finish_stop":
			o.waitForWakeOrStop(ctx)
		default:
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.gap()):
			}
		}
	}
}

func (o *Orchestrator) gap() time.Duration {
	if o.LoopGap <= 0 {
		return 2 * time.Second
	}
	return o.LoopGap
}

// sleepOnConsecutiveErrors persists the 300-second error sleep and the
// Sleeping transition (spec.md §4.1 step 10). Failures here are logged, not
// retried — the next iteration's SurvivalNode will simply see a stale or
// absent sleep_until and try again.
func (o *Orchestrator) sleepOnConsecutiveErrors(ctx context.Context) {
	until := time.Now().Add(turn.ConsecutiveErrorSleep)
	if err := o.Store.KVSet(ctx, state.KeySleepUntil, until.Format(time.RFC3339)); err != nil {
		log.Printf("[Orchestrator] failed to persist error-budget sleep_until: %v", err)
		return
	}
	if err := o.Store.SetAgentState(ctx, state.StateSleeping); err != nil {
		log.Printf("[Orchestrator] failed to persist Sleeping state after error budget: %v", err)
	}
}

// waitForWakeOrStop blocks until a wake_request appears, sleep_until elapses,
// or ctx is cancelled — whichever comes first — polling at a fixed interval.
// This is the reasoning loop's idle period between turns once it has put
// itself to sleep; the heartbeat daemon is the only thing that can shorten it.
func (o *Orchestrator) waitForWakeOrStop(ctx context.Context) {
	const pollInterval = 5 * time.Second
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if o.wakeIsDue(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// wakeIsDue reports whether the loop should resume: either a heartbeat task
// left a wake_request, or a persisted sleep_until has elapsed.
func (o *Orchestrator) wakeIsDue(ctx context.Context) bool {
	if reason, ok, err := o.Store.KVGet(ctx, state.KeyWakeRequest); err == nil && ok && reason != "" {
		return true
	}
	until, ok, err := o.Store.KVGet(ctx, state.KeySleepUntil)
	if err != nil || !ok || until == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, until)
	if err != nil {
		return true
	}
	return !time.Now().Before(t)
}

// clearWakeIfObserved implements the orchestrator's side of spec.md §4.4's
// cross-task signaling contract: "the orchestrator clears sleep_until and
// wake_request when it observes a wake." SurvivalNode independently clears a
// past-due sleep_until as part of step 1; this clears wake_request, which is
// only ever written by the heartbeat daemon and only ever cleared here.
func (o *Orchestrator) clearWakeIfObserved(ctx context.Context) {
	reason, ok, err := o.Store.KVGet(ctx, state.KeyWakeRequest)
	if err != nil || !ok || reason == "" {
		return
	}
	log.Printf("[Orchestrator] observed wake request: %s", reason)
	if err := o.Store.KVSet(ctx, state.KeyWakeRequest, ""); err != nil {
		log.Printf("[Orchestrator] failed to clear wake_request: %v", err)
	}
}
