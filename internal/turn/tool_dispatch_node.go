package turn

import (
	"context"
	"log"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// ToolDispatchNode implements BaseNode[TurnState, ToolDispatchPrep,
// ToolDispatchExec]. It covers spec.md §4.1 step 7: dispatch every tool call
// the inference response asked for, in order, up to MaxToolCallsPerTurn —
// looping internally rather than through the flow graph, since a single
// inference response can request several calls in one turn. Audit entries
// are each tool's own responsibility (self_mod tools call
// Store.InsertModification directly); Dispatch is called with an empty
// audit type here.
type ToolDispatchNode struct{}

func NewToolDispatchNode() *ToolDispatchNode { return &ToolDispatchNode{} }

type ToolDispatchPrep struct {
	Dispatcher *tool.Dispatcher
	Calls      []llm.ToolCall
}

type ToolDispatchExec struct {
	Results []state.ToolCallResult
	Err     error
}

func (n *ToolDispatchNode) Prep(s *TurnState) []ToolDispatchPrep {
	calls := s.Response.ToolCalls
	if len(calls) > MaxToolCallsPerTurn {
		log.Printf("[Turn:ToolDispatch] inference requested %d tool calls, discarding %d beyond the per-turn cap",
			len(calls), len(calls)-MaxToolCallsPerTurn)
		calls = calls[:MaxToolCallsPerTurn]
	}
	return []ToolDispatchPrep{{Dispatcher: s.Dispatcher, Calls: calls}}
}

func (n *ToolDispatchNode) Exec(ctx context.Context, p ToolDispatchPrep) (ToolDispatchExec, error) {
	results := make([]state.ToolCallResult, 0, len(p.Calls))
	for _, call := range p.Calls {
		result := p.Dispatcher.Dispatch(ctx, call.Name, call.Arguments, "", "")
		// Dispatch mints its own result id; overwrite it with the id the
		// inference response used so the next turn's transcript replay
		// (PromptNode) can thread tool responses back to their calls.
		result.ID = call.ID
		results = append(results, result)
	}
	return ToolDispatchExec{Results: results}, nil
}

func (n *ToolDispatchNode) ExecFallback(err error) ToolDispatchExec {
	log.Printf("[Turn:ToolDispatch] ExecFallback: %v", err)
	return ToolDispatchExec{Err: err}
}

func (n *ToolDispatchNode) Post(s *TurnState, _ []ToolDispatchPrep, results ...ToolDispatchExec) core.Action {
	if len(results) == 0 {
		return core.ActionFailure
	}
	r := results[0]
	if r.Err != nil {
		s.TurnErr = r.Err
		log.Printf("[Turn:ToolDispatch] error: %v", r.Err)
		return core.ActionFailure
	}
	s.ToolResults = r.Results
	return core.ActionDefault
}
