package turn

import (
	"context"
	"errors"
	"testing"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/tool"
)

func TestInferenceNodeRoutesResponseIntoState(t *testing.T) {
	inference := &fakeInference{response: llm.ChatResponse{
		Model:        "gpt-4o-mini",
		Message:      llm.Message{Role: llm.RoleAssistant, Content: "thinking out loud"},
		FinishReason: llm.FinishStop,
		Usage:        llm.Usage{Prompt: 10, Completion: 5, Total: 15},
	}}

	s := &TurnState{
		Inference:  inference,
		Registry:   tool.NewRegistry(),
		Transcript: []llm.Message{{Role: llm.RoleSystem, Content: "sys"}},
	}

	node := NewInferenceNode()
	prep := node.Prep(s)
	exec, err := node.Exec(context.Background(), prep[0])
	if err != nil {
		t.Fatalf("Exec returned error: %v", err)
	}
	action := node.Post(s, prep, exec)

	if action != core.ActionDefault {
		t.Fatalf("expected ActionDefault, got %v", action)
	}
	if s.Response.Message.Content != "thinking out loud" {
		t.Fatalf("expected response to be recorded in TurnState, got %+v", s.Response)
	}
}

func TestInferenceNodeFailureRoutesToActionFailure(t *testing.T) {
	inference := &fakeInference{err: errors.New("upstream unavailable")}
	s := &TurnState{Inference: inference, Registry: tool.NewRegistry()}

	node := NewInferenceNode()
	prep := node.Prep(s)
	_, err := node.Exec(context.Background(), prep[0])
	if err == nil {
		t.Fatalf("expected Exec to surface the gateway error")
	}
	exec := node.ExecFallback(err)
	action := node.Post(s, prep, exec)

	if action != core.ActionFailure {
		t.Fatalf("expected ActionFailure, got %v", action)
	}
	if s.TurnErr == nil {
		t.Fatalf("expected TurnErr to be set")
	}
}
