package survival

import (
	"testing"

	"github.com/pocketomega/automaton/internal/state"
)

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		credits float64
		want    state.SurvivalTier
	}{
		{51, state.TierNormal},
		{50, state.TierLowCompute},
		{11, state.TierLowCompute},
		{10, state.TierCritical},
		{1, state.TierCritical},
		{0, state.TierDead},
		{-5, state.TierDead},
	}
	for _, c := range cases {
		got := Tier(c.credits)
		if got != c.want {
			t.Errorf("Tier(%v) = %v, want %v", c.credits, got, c.want)
		}
	}
}

func TestEffectForNormalReentry(t *testing.T) {
	eff := EffectFor(state.TierNormal, state.StateRunning)
	if eff.AgentState != state.StateRunning || eff.LowCompute {
		t.Fatalf("unexpected effect for already-running normal tier: %+v", eff)
	}
	eff = EffectFor(state.TierNormal, state.StateLowCompute)
	if eff.AgentState != state.StateRunning {
		t.Fatalf("expected transition to Running, got %+v", eff)
	}
}

func TestEffectForDeadStopsLoop(t *testing.T) {
	eff := EffectFor(state.TierDead, state.StateRunning)
	if !eff.StopLoop || eff.AgentState != state.StateDead {
		t.Fatalf("expected stopped loop in Dead state, got %+v", eff)
	}
}

func TestHeartbeatAllowed(t *testing.T) {
	if !HeartbeatAllowed(state.TierLowCompute, "ping") {
		t.Fatal("ping must always run at LowCompute")
	}
	if HeartbeatAllowed(state.TierLowCompute, "upstream_check") {
		t.Fatal("upstream_check is non-essential and must be suspended at LowCompute")
	}
	if HeartbeatAllowed(state.TierCritical, "internal_health_check") {
		t.Fatal("only ping and credit_check may run at Critical")
	}
	if !HeartbeatAllowed(state.TierCritical, "credit_check") {
		t.Fatal("credit_check must run at Critical")
	}
	if HeartbeatAllowed(state.TierDead, "ping") {
		t.Fatal("nothing runs once Dead")
	}
}
