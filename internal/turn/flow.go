package turn

import (
	"github.com/pocketomega/automaton/internal/core"
)

// BuildTurnFlow assembles the linear per-turn pipeline (spec.md §4.1):
//
//	SurvivalNode ──→ PromptNode ──→ InferenceNode ──→ ToolDispatchNode ──→ PersistNode ──→ End
//
// SurvivalNode can also end the flow directly — still sleeping, or the
// credit tier forces a stop before the inference gateway is ever called
// (ActionEnd has no successor in either case).
func BuildTurnFlow(chainNetwork string) core.Workflow[TurnState] {
	survivalNode := core.NewNode[TurnState, SurvivalPrep, SurvivalExec](
		NewSurvivalNode(chainNetwork), 1,
	)
	promptNode := core.NewNode[TurnState, PromptPrep, PromptExec](
		NewPromptNode(), 1,
	)
	inferenceNode := core.NewNode[TurnState, InferencePrep, InferenceExec](
		NewInferenceNode(), 2,
	)
	toolDispatchNode := core.NewNode[TurnState, ToolDispatchPrep, ToolDispatchExec](
		NewToolDispatchNode(), 1,
	)
	persistNode := core.NewNode[TurnState, PersistPrep, PersistExec](
		NewPersistNode(), 1,
	)

	survivalNode.AddSuccessor(promptNode) // ActionDefault
	promptNode.AddSuccessor(inferenceNode)
	inferenceNode.AddSuccessor(toolDispatchNode)
	toolDispatchNode.AddSuccessor(persistNode)

	// SurvivalNode's ActionEnd (still sleeping / tier forces a stop) and
	// PersistNode's ActionEnd (turn committed) both have no successor, so
	// Flow.Run ends there. Any node's ActionFailure likewise has no
	// successor registered, ending the flow for the orchestrator to read
	// TurnState.TurnErr.

	return core.NewFlow[TurnState](survivalNode)
}
