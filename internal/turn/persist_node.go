package turn

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/state"
)

// PersistNode implements BaseNode[TurnState, PersistPrep, PersistExec]. It
// covers spec.md §4.1 steps 8-9: commit the AgentTurn atomically with its
// tool-call results, then decide whether this turn ends the loop — either
// because the agent called sleep, or because the model answered with no
// further tool calls and the loop takes its natural pause.
//
// This node is always the terminal node of one Flow.Run (one AgentTurn ==
// one flow run); the consecutive-error counter and its 300-second sleep
// belong to the orchestrator wrapping repeated Flow.Run calls, not here.
type PersistNode struct{}

func NewPersistNode() *PersistNode { return &PersistNode{} }

type PersistPrep struct {
	Store        state.Store
	PriorState   state.AgentState
	PendingInput string
	InputSource  state.InputSource
	HasInput     bool
	Response     llm.ChatResponse
	ToolResults  []state.ToolCallResult
}

type PersistExec struct {
	SleptByTool  bool
	SleptNatural bool
	Err          error
}

func (n *PersistNode) Prep(s *TurnState) []PersistPrep {
	return []PersistPrep{{
		Store:        s.Store,
		PriorState:   s.PriorState,
		PendingInput: s.PendingInput,
		InputSource:  s.InputSource,
		HasInput:     s.HasInput,
		Response:     s.Response,
		ToolResults:  s.ToolResults,
	}}
}

func (n *PersistNode) Exec(ctx context.Context, p PersistPrep) (PersistExec, error) {
	calledSleepOK := false
	for _, r := range p.ToolResults {
		if r.Name == "sleep" && r.Error == "" {
			calledSleepOK = true
			break
		}
	}

	turn := state.AgentTurn{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		AgentState:  p.PriorState,
		Input:       p.PendingInput,
		InputSource: p.InputSource,
		HasInput:    p.HasInput,
		Thinking:    p.Response.Message.Content,
		ToolCalls:   p.ToolResults,
		TokenUsage: state.TokenUsage{
			Prompt:     p.Response.Usage.Prompt,
			Completion: p.Response.Usage.Completion,
			Total:      p.Response.Usage.Total,
		},
		CostCents: llm.EstimateCostCents(p.Response.Model, p.Response.Usage),
	}
	if err := p.Store.InsertTurn(ctx, turn); err != nil {
		return PersistExec{}, fmt.Errorf("insert turn: %w", err)
	}

	naturalStop := p.Response.FinishReason == llm.FinishStop && len(p.ToolResults) == 0

	if calledSleepOK {
		return PersistExec{SleptByTool: true}, nil
	}
	if naturalStop {
		until := time.Now().Add(NaturalPauseSleep)
		if err := p.Store.KVSet(ctx, state.KeySleepUntil, until.Format(time.RFC3339)); err != nil {
			return PersistExec{}, fmt.Errorf("persist natural-pause sleep_until: %w", err)
		}
		if err := p.Store.SetAgentState(ctx, state.StateSleeping); err != nil {
			return PersistExec{}, fmt.Errorf("persist agent state: %w", err)
		}
		return PersistExec{SleptNatural: true}, nil
	}

	return PersistExec{}, nil
}

func (n *PersistNode) ExecFallback(err error) PersistExec {
	log.Printf("[Turn:Persist] ExecFallback: %v", err)
	return PersistExec{Err: err}
}

func (n *PersistNode) Post(s *TurnState, _ []PersistPrep, results ...PersistExec) core.Action {
	if len(results) == 0 {
		return core.ActionFailure
	}
	r := results[0]
	if r.Err != nil {
		s.TurnErr = r.Err
		log.Printf("[Turn:Persist] error: %v", r.Err)
		return core.ActionFailure
	}

	switch {
	case r.SleptByTool:
		s.StoppedReason = "sleep_tool"
	case r.SleptNatural:
		s.StoppedReason = "finish_stop"
	}

	return core.ActionEnd
}
