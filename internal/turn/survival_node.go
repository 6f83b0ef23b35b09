package turn

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/sanitize"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/survival"
)

// SurvivalNode implements BaseNode[TurnState, SurvivalPrep, SurvivalExec].
// It covers spec.md §4.1 steps 1-4: resolve or clear sleep_until, fold
// pending inbox input, refresh FinancialState, compute SurvivalTier, and
// apply its side effects.
type SurvivalNode struct {
	chainNetwork string // CAIP-2 network ChainProvider.USDCBalance is queried against
}

// NewSurvivalNode creates a SurvivalNode that reads the chain balance on
// the given network (one of conway.NetworkBase / conway.NetworkBaseSepolia).
func NewSurvivalNode(chainNetwork string) *SurvivalNode {
	return &SurvivalNode{chainNetwork: chainNetwork}
}

// SurvivalPrep carries the shared collaborators Exec needs; gathering them
// here (rather than in Exec) keeps the ctx-bearing I/O entirely inside Exec,
// the same split the teacher's DecidePrep/ToolPrep use.
type SurvivalPrep struct {
	Store        state.Store
	Gateway      conway.ControlPlaneGateway
	Chain        conway.ChainProvider
	Inference    llm.InferenceGateway
	Identity     Identity
	ChainNetwork string
	AlreadyInput bool
	ExistingText string
}

// SurvivalExec is the outcome of steps 1-4.
type SurvivalExec struct {
	StillSleeping bool

	PendingInput string
	InputSource  state.InputSource
	HasInput     bool

	PriorState state.AgentState
	FinState   state.FinancialState
	Tier       state.SurvivalTier
	Effect     survival.Effect

	Err error
}

func (n *SurvivalNode) Prep(s *TurnState) []SurvivalPrep {
	return []SurvivalPrep{{
		Store:        s.Store,
		Gateway:      s.Gateway,
		Chain:        s.Chain,
		Inference:    s.Inference,
		Identity:     s.Identity,
		ChainNetwork: n.chainNetwork,
		AlreadyInput: s.HasInput,
		ExistingText: s.PendingInput,
	}}
}

func (n *SurvivalNode) Exec(ctx context.Context, p SurvivalPrep) (SurvivalExec, error) {
	// Step 1: sleep_until.
	sleepUntilStr, ok, err := p.Store.KVGet(ctx, state.KeySleepUntil)
	if err != nil {
		return SurvivalExec{}, fmt.Errorf("read sleep_until: %w", err)
	}
	if ok && sleepUntilStr != "" {
		if until, perr := time.Parse(time.RFC3339, sleepUntilStr); perr == nil && until.After(time.Now()) {
			return SurvivalExec{StillSleeping: true}, nil
		}
	}
	if ok && sleepUntilStr != "" {
		if err := p.Store.KVSet(ctx, state.KeySleepUntil, ""); err != nil {
			return SurvivalExec{}, fmt.Errorf("clear sleep_until: %w", err)
		}
	}
	// wake_request is cleared by the orchestrator when it observes a wake,
	// not by this node (spec.md §4.4 concurrency contract).

	// Step 2: fold pending inbox input, unless one is already queued.
	pendingInput := p.ExistingText
	inputSource := state.SourceAgent
	hasInput := p.AlreadyInput
	if !hasInput {
		msgs, err := p.Store.UnprocessedInbox(ctx, MaxInboxFold)
		if err != nil {
			return SurvivalExec{}, fmt.Errorf("read inbox: %w", err)
		}
		if len(msgs) > 0 {
			var sb strings.Builder
			ids := make([]string, 0, len(msgs))
			for i, m := range msgs {
				sanitized := sanitize.Sanitize(m.Content, fmt.Sprintf("inbox:%s", m.ID))
				if i > 0 {
					sb.WriteString("\n\n")
				}
				fmt.Fprintf(&sb, "from %s: %s", m.Sender, sanitized.Content)
				ids = append(ids, m.ID)
			}
			if err := p.Store.MarkInboxProcessed(ctx, ids); err != nil {
				return SurvivalExec{}, fmt.Errorf("mark inbox processed: %w", err)
			}
			pendingInput = sb.String()
			inputSource = state.SourceAgent
			hasInput = true
		}
	}

	// Step 3: refresh FinancialState and compute tier.
	priorState, err := p.Store.GetAgentState(ctx)
	if err != nil {
		return SurvivalExec{}, fmt.Errorf("read agent state: %w", err)
	}

	creditsCents, err := p.Gateway.GetCreditsBalance(ctx)
	if err != nil {
		return SurvivalExec{}, fmt.Errorf("get credits balance: %w", err)
	}
	var usdcBalance float64
	if p.Chain != nil && p.Identity.Wallet != "" {
		usdcBalance, err = p.Chain.USDCBalance(ctx, p.Identity.Wallet, p.ChainNetwork)
		if err != nil {
			return SurvivalExec{}, fmt.Errorf("get usdc balance: %w", err)
		}
	}
	fs := state.FinancialState{CreditsCents: creditsCents, USDCBalance: usdcBalance, LastChecked: time.Now()}
	if err := p.Store.SetFinancialState(ctx, fs); err != nil {
		return SurvivalExec{}, fmt.Errorf("persist financial state: %w", err)
	}

	tier := survival.Tier(fs.CreditsCents)
	effect := survival.EffectFor(tier, priorState)

	// Step 4: apply tier side effects.
	if err := p.Store.SetAgentState(ctx, effect.AgentState); err != nil {
		return SurvivalExec{}, fmt.Errorf("persist agent state: %w", err)
	}
	if p.Inference != nil {
		p.Inference.SetLowComputeMode(effect.LowCompute)
	}

	return SurvivalExec{
		PendingInput: pendingInput,
		InputSource:  inputSource,
		HasInput:     hasInput,
		PriorState:   priorState,
		FinState:     fs,
		Tier:         tier,
		Effect:       effect,
	}, nil
}

func (n *SurvivalNode) ExecFallback(err error) SurvivalExec {
	log.Printf("[Turn:Survival] ExecFallback: %v", err)
	return SurvivalExec{Err: err}
}

func (n *SurvivalNode) Post(s *TurnState, _ []SurvivalPrep, results ...SurvivalExec) core.Action {
	if len(results) == 0 {
		return core.ActionFailure
	}
	r := results[0]

	if r.Err != nil {
		s.TurnErr = r.Err
		log.Printf("[Turn:Survival] error: %v", r.Err)
		return core.ActionFailure
	}
	if r.StillSleeping {
		s.StoppedReason = "sleeping"
		return core.ActionEnd
	}

	s.PendingInput = r.PendingInput
	s.InputSource = r.InputSource
	s.HasInput = r.HasInput
	s.PriorState = r.PriorState
	s.FinState = r.FinState
	s.Tier = r.Tier

	if r.Effect.StopLoop {
		s.StoppedReason = "dead"
		log.Printf("[Turn:Survival] tier=dead, stopping loop without calling the inference gateway")
		return core.ActionEnd
	}

	return core.ActionDefault
}
