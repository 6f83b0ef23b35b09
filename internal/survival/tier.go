// Package survival implements the tier function and funding policy that
// couple the automaton's resource levels to its operating mode (spec.md §4.3).
// Tier is a pure function of the credit balance; it uses internal/state only
// for its enum types, reads no stored state, and is exercised directly by
// the reasoning loop each turn.
package survival

import "github.com/pocketomega/automaton/internal/state"

// Threshold constants for the tier function. These are configuration
// constants in name only — the mapping they define must never gain
// hysteresis, so they are unexported and not wired to any config file.
const (
	thresholdNormal     = 50
	thresholdLowCompute = 10
	thresholdCritical   = 0
)

// Tier is a total, pure function of credits_cents. It is monotonically
// non-increasing in creditsCents crossing the thresholds {50, 10, 0}: no
// prior call's result changes this call's answer, and there is no
// hysteresis band around any boundary.
func Tier(creditsCents float64) state.SurvivalTier {
	switch {
	case creditsCents > thresholdNormal:
		return state.TierNormal
	case creditsCents > thresholdLowCompute:
		return state.TierLowCompute
	case creditsCents > thresholdCritical:
		return state.TierCritical
	default:
		return state.TierDead
	}
}

// Effect is the per-turn consequence of a tier, applied by the reasoning
// loop's survival node.
type Effect struct {
	AgentState     state.AgentState
	LowCompute     bool
	StopLoop       bool
	DisableNonEssential bool // LowCompute: non-essential heartbeat entries (updates, social) are disabled
	DisableAllButCore   bool // Critical: all heartbeat entries except ping + credit check are disabled
}

// EffectFor returns the side effects of a tier, per the table in spec.md §4.3.
// priorState is needed only to resolve Normal's rule: on Normal, set Running
// only if the prior state was not already Running (re-entering Running is a
// no-op transition, not a fresh one).
func EffectFor(tier state.SurvivalTier, priorState state.AgentState) Effect {
	switch tier {
	case state.TierDead:
		return Effect{AgentState: state.StateDead, StopLoop: true}
	case state.TierCritical:
		return Effect{AgentState: state.StateCritical, LowCompute: true, DisableAllButCore: true}
	case state.TierLowCompute:
		return Effect{AgentState: state.StateLowCompute, LowCompute: true, DisableNonEssential: true}
	default: // Normal
		next := priorState
		if priorState != state.StateRunning {
			next = state.StateRunning
		}
		return Effect{AgentState: next, LowCompute: false}
	}
}

// HeartbeatAllowed reports whether the named heartbeat task may run under
// the given tier. essential tasks ("ping", "credit_check") always run;
// non-essential tasks are suspended starting at LowCompute.
func HeartbeatAllowed(tier state.SurvivalTier, taskName string) bool {
	essential := taskName == "ping" || taskName == "credit_check"
	switch tier {
	case state.TierNormal:
		return true
	case state.TierLowCompute:
		return essential || !isNonEssential(taskName)
	case state.TierCritical:
		return essential
	default: // Dead
		return false
	}
}

// isNonEssential names the tasks explicitly called out as suspended at
// LowCompute: updates (upstream_check) and social (inbox_poll).
func isNonEssential(taskName string) bool {
	switch taskName {
	case "upstream_check", "inbox_poll":
		return true
	default:
		return false
	}
}
