// Package state defines the persistent entities the automaton owns and the
// StateStore contract every adapter (in-memory, or a real embedded database)
// must satisfy. The package never touches a filesystem or SQL driver itself —
// per spec.md §1, the concrete SQLite schema is an external collaborator;
// only the contract and a reference in-memory adapter live here.
package state

import "time"

// AgentState is the enumerated process state. Transitions are monotonic
// only through Dead, which is terminal.
type AgentState string

const (
	StateSetup      AgentState = "setup"
	StateWaking     AgentState = "waking"
	StateRunning    AgentState = "running"
	StateSleeping   AgentState = "sleeping"
	StateLowCompute AgentState = "low_compute"
	StateCritical   AgentState = "critical"
	StateDead       AgentState = "dead"
)

// InputSource identifies what produced a turn's pending input.
type InputSource string

const (
	SourceWakeup  InputSource = "wakeup"
	SourceHeart   InputSource = "heartbeat"
	SourceCreator InputSource = "creator"
	SourceAgent   InputSource = "agent"
	SourceSystem  InputSource = "system"
)

// TokenUsage mirrors the InferenceGateway's reported token accounting.
type TokenUsage struct {
	Prompt     int
	Completion int
	Total      int
}

// ToolCallResult is one dispatched tool invocation bound to exactly one
// AgentTurn. Result XOR Error is populated; never both.
type ToolCallResult struct {
	ID        string
	Name      string
	Arguments map[string]any
	Result    string
	Error     string
	Duration  time.Duration
}

// AgentTurn is one immutable iteration of the reasoning loop.
type AgentTurn struct {
	ID          string
	Timestamp   time.Time
	AgentState  AgentState
	Input       string
	InputSource InputSource
	HasInput    bool // false when the turn ran with no pending input
	Thinking    string
	ToolCalls   []ToolCallResult
	TokenUsage  TokenUsage
	CostCents   float64
}

// FinancialState is a point-in-time snapshot of both balances.
type FinancialState struct {
	CreditsCents float64
	USDCBalance  float64
	LastChecked  time.Time
}

// ModificationEntry is an append-only audit record of a self-modification.
type ModificationEntry struct {
	ID          string
	Timestamp   time.Time
	Type        string // code-edit, tool-install, mcp-install, config-change, heartbeat-change, prompt-change, skill-install, skill-remove, child-spawn, upstream-pull, ...
	Description string
	FilePath    string // required when the modification touches a file
	Diff        string
	Reversible  bool
}

// HeartbeatEntry is one declaratively scheduled background task.
type HeartbeatEntry struct {
	Name     string
	Schedule string
	Task     string
	Enabled  bool
	LastRun  *time.Time
	Params   map[string]any
}

// ChildStatus enumerates a spawned child automaton's lifecycle.
type ChildStatus string

const (
	ChildSpawning ChildStatus = "spawning"
	ChildRunning  ChildStatus = "running"
	ChildSleeping ChildStatus = "sleeping"
	ChildDead     ChildStatus = "dead"
	ChildUnknown  ChildStatus = "unknown"
)

// ChildAutomaton is a spawn record for a replicated agent.
type ChildAutomaton struct {
	ID            string
	Name          string
	WalletAddress string
	SandboxID     string
	GenesisPrompt string
	FundedCents   float64
	Status        ChildStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InboxMessage is an inbound signed message from another address.
type InboxMessage struct {
	ID          string
	Sender      string
	Content     string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	ReplyTo     string
}

// RegistryEntry is this automaton's own registry card (§3 expansion).
type RegistryEntry struct {
	ID           string
	Wallet       string
	SandboxID    string
	Domains      []string
	Capabilities []string
	RegisteredAt time.Time
	AgentCardURI string
}

// ReputationSnapshot is a cached read of a peer's attested reputation (§3 expansion).
type ReputationSnapshot struct {
	Subject          string
	Score            float64
	AttestationCount int
	FetchedAt        time.Time
}

// SurvivalTier is the enumerated output of the pure tier function.
type SurvivalTier string

const (
	TierNormal      SurvivalTier = "normal"
	TierLowCompute  SurvivalTier = "low_compute"
	TierCritical    SurvivalTier = "critical"
	TierDead        SurvivalTier = "dead"
)
