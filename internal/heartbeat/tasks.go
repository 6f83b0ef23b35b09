package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/state"
)

// NewPingTask is a pure liveness check; it touches nothing but the clock.
func NewPingTask() Task {
	return func(ctx context.Context, store state.Store) (Result, error) {
		return Result{}, nil
	}
}

// NewCreditCheckTask refreshes the cached credits balance from the control
// plane gateway and requests a wake if the balance has dropped to zero or
// below while the cached snapshot was still positive.
func NewCreditCheckTask(gateway conway.ControlPlaneGateway) Task {
	return func(ctx context.Context, store state.Store) (Result, error) {
		balance, err := gateway.GetCreditsBalance(ctx)
		if err != nil {
			return Result{}, err
		}
		fs, err := store.GetFinancialState(ctx)
		if err != nil {
			return Result{}, err
		}
		wake := balance <= 0 && fs.CreditsCents > 0
		fs.CreditsCents = balance
		fs.LastChecked = time.Now()
		if err := store.SetFinancialState(ctx, fs); err != nil {
			return Result{}, err
		}
		if wake {
			return Result{ShouldWake: true, WakeReason: "credits dropped to zero or below"}, nil
		}
		return Result{}, nil
	}
}

// NewChainBalanceTask refreshes the on-chain USDC balance snapshot.
func NewChainBalanceTask(chain conway.ChainProvider, address, network string) Task {
	return func(ctx context.Context, store state.Store) (Result, error) {
		balance, err := chain.USDCBalance(ctx, address, network)
		if err != nil {
			return Result{}, err
		}
		fs, err := store.GetFinancialState(ctx)
		if err != nil {
			return Result{}, err
		}
		fs.USDCBalance = balance
		fs.LastChecked = time.Now()
		return Result{}, store.SetFinancialState(ctx, fs)
	}
}

// NewInboxPollTask fetches new mentions from the social gateway and
// enqueues them as inbox messages, waking the reasoning loop if any are
// new (at-least-once delivery; EnqueueInboxMessage is idempotent on id).
func NewInboxPollTask(social conway.SocialGateway) Task {
	return func(ctx context.Context, store state.Store) (Result, error) {
		messages, err := social.FetchMentions(ctx)
		if err != nil {
			return Result{}, err
		}
		enqueued := 0
		for _, m := range messages {
			before, err := store.UnprocessedInbox(ctx, 0)
			if err != nil {
				return Result{}, err
			}
			if err := store.EnqueueInboxMessage(ctx, m); err != nil {
				return Result{}, err
			}
			after, err := store.UnprocessedInbox(ctx, 0)
			if err != nil {
				return Result{}, err
			}
			if len(after) > len(before) {
				enqueued++
			}
		}
		if enqueued > 0 {
			return Result{ShouldWake: true, WakeReason: fmt.Sprintf("%d new inbox message(s)", enqueued)}, nil
		}
		return Result{}, nil
	}
}

// NewUpstreamCheckTask records an upstream-update-status KV entry the
// status block surfaces. It never fetches or diffs, so the heartbeat stays
// read-only; pull_upstream only records an audit entry, and no
// review_upstream_changes tool is registered.
func NewUpstreamCheckTask(checker func(ctx context.Context) (string, error)) Task {
	return func(ctx context.Context, store state.Store) (Result, error) {
		status, err := checker(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{}, store.KVSet(ctx, "upstream_status", status)
	}
}

// NewHealthCheckTask verifies the store itself answers, which is the only
// thing an internal health check can meaningfully assert without reaching
// out to an external dependency already covered by the other tasks.
func NewHealthCheckTask() Task {
	return func(ctx context.Context, store state.Store) (Result, error) {
		_, err := store.GetAgentState(ctx)
		return Result{}, err
	}
}
