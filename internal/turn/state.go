// Package turn implements the reasoning loop's per-turn flow (spec.md §4.1)
// as a core.Flow[TurnState] of five nodes — SurvivalNode, PromptNode,
// InferenceNode, ToolDispatchNode, PersistNode — the same Prep/Exec/Post
// decomposition the teacher uses for its Decide/Tool/Think/Answer ReAct
// graph, generalized from "loop until answer" to "run exactly one turn".
package turn

import (
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/prompt"
	"github.com/pocketomega/automaton/internal/skill"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/survival"
	"github.com/pocketomega/automaton/internal/tool"
)

// MaxToolCallsPerTurn caps the number of tool calls ToolDispatchNode will
// execute from a single inference response; any beyond this are logged and
// discarded (spec.md §4.1 step 7, §8 boundary behavior).
const MaxToolCallsPerTurn = 10

// MaxInboxFold is the maximum number of unprocessed inbox messages folded
// into one synthesized turn input (spec.md §5 back-pressure, N = 5).
const MaxInboxFold = 5

// RecentTurnWindow is how many persisted turns are replayed into the chat
// transcript each turn (spec.md §4.1 step 5).
const RecentTurnWindow = 20

// Identity names the fixed facts this automaton reports in every prompt.
type Identity struct {
	Wallet    string
	Creator   string
	SandboxID string
}

// TurnState is the state threaded through one Flow.Run — one AgentTurn.
// Not goroutine-safe, matching the teacher's AgentState: the orchestrator
// guarantees single-goroutine access for the whole reasoning loop.
type TurnState struct {
	// Fixed collaborators, set once by the caller building the flow.
	Store      state.Store
	Gateway    conway.ControlPlaneGateway
	Chain      conway.ChainProvider
	Inference  llm.InferenceGateway
	Registry   *tool.Registry
	Dispatcher *tool.Dispatcher
	Loader     *prompt.PromptLoader
	Skills     *skill.Manager
	Identity   Identity
	Genesis    string // the creator's genesis prompt, verbatim

	// Transient, node-to-node fields — rebuilt fresh on every Flow.Run.
	PendingInput  string
	InputSource   state.InputSource
	HasInput      bool
	Tier          state.SurvivalTier
	PriorState    state.AgentState
	FinState      state.FinancialState
	Transcript    []llm.Message
	Response      llm.ChatResponse
	ToolResults   []state.ToolCallResult
	TurnErr       error  // set by any node that fails; read by the orchestrator
	StoppedReason string // "sleep_tool", "finish_stop", "dead", empty == keep looping
}

// SleepDuration values spec.md §4.1 step 9 and step 10 apply.
const (
	NaturalPauseSleep     = 60 * time.Second
	ConsecutiveErrorSleep = 300 * time.Second
)

// MaxConsecutiveErrors is the error budget from spec.md §4.1 step 10; the
// counter itself is orchestrator-level state wrapping repeated Flow.Run
// calls, not part of TurnState (spec.md §4.1's "unchanged ten-step
// sequence" note: the counter spans turns, a single turn does not own it).
const MaxConsecutiveErrors = 5

// EffectForTier is a thin re-export so callers building a flow don't need
// a separate import just to read tier side effects.
func EffectForTier(tier state.SurvivalTier, prior state.AgentState) survival.Effect {
	return survival.EffectFor(tier, prior)
}
