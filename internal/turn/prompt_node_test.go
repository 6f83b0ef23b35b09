package turn

import (
	"context"
	"strings"
	"testing"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/prompt"
	"github.com/pocketomega/automaton/internal/state"
)

func TestPromptNodeAssemblesTranscriptWithPendingInput(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	if err := store.InsertTurn(ctx, state.AgentTurn{
		ID: "t1", AgentState: state.StateRunning, HasInput: true,
		Input: "ping from creator", InputSource: state.SourceCreator, Thinking: "ack",
	}); err != nil {
		t.Fatalf("seed turn: %v", err)
	}

	s := &TurnState{
		Store:        store,
		Loader:       prompt.NewPromptLoader("", "", ""),
		Identity:     Identity{Wallet: "0xabc", Creator: "0xcreator", SandboxID: "sbx-1"},
		Genesis:      "stay alive and be useful",
		PendingInput: "what should I do next?",
		InputSource:  state.SourceAgent,
		HasInput:     true,
	}

	node := NewPromptNode()
	prep := node.Prep(s)
	exec, err := node.Exec(ctx, prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionDefault {
		t.Fatalf("expected ActionDefault, got %v", action)
	}
	if len(s.Transcript) == 0 {
		t.Fatalf("expected a non-empty transcript")
	}
	if s.Transcript[0].Role != "system" {
		t.Fatalf("expected first message to be the system prompt, got role %q", s.Transcript[0].Role)
	}
	if !strings.Contains(s.Transcript[0].Content, "stay alive and be useful") {
		t.Fatalf("expected the genesis prompt to appear in the system message")
	}
	last := s.Transcript[len(s.Transcript)-1]
	if !strings.Contains(last.Content, "what should I do next?") {
		t.Fatalf("expected the pending input to be the final transcript message, got %q", last.Content)
	}
}

func TestPromptNodeOmitsPendingInputWhenNoneQueued(t *testing.T) {
	store := state.NewMemoryStore()
	s := &TurnState{
		Store:  store,
		Loader: prompt.NewPromptLoader("", "", ""),
	}

	node := NewPromptNode()
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	node.Post(s, prep, exec)

	last := s.Transcript[len(s.Transcript)-1]
	if last.Role != "system" {
		t.Fatalf("with no pending input and no prior turns, the transcript should contain only the system message")
	}
}
