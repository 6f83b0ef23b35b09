package turn

import (
	"context"
	"fmt"
	"log"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/tool"
)

// InferenceNode implements BaseNode[TurnState, InferencePrep, InferenceExec].
// It covers spec.md §4.1 step 6: a single call to the inference gateway with
// the transcript PromptNode built and the tool definitions the registry
// currently exposes.
type InferenceNode struct{}

func NewInferenceNode() *InferenceNode { return &InferenceNode{} }

type InferencePrep struct {
	Inference  llm.InferenceGateway
	Registry   *tool.Registry
	Transcript []llm.Message
}

type InferenceExec struct {
	Response llm.ChatResponse
	Err      error
}

func (n *InferenceNode) Prep(s *TurnState) []InferencePrep {
	return []InferencePrep{{
		Inference:  s.Inference,
		Registry:   s.Registry,
		Transcript: s.Transcript,
	}}
}

func (n *InferenceNode) Exec(ctx context.Context, p InferencePrep) (InferenceExec, error) {
	var tools []llm.ToolDefinition
	if p.Registry != nil {
		tools = p.Registry.GenerateToolDefinitions()
	}

	resp, err := p.Inference.Chat(ctx, p.Transcript, llm.ChatOptions{Tools: tools})
	if err != nil {
		return InferenceExec{}, fmt.Errorf("inference chat: %w", err)
	}
	return InferenceExec{Response: resp}, nil
}

func (n *InferenceNode) ExecFallback(err error) InferenceExec {
	log.Printf("[Turn:Inference] ExecFallback: %v", err)
	return InferenceExec{Err: err}
}

func (n *InferenceNode) Post(s *TurnState, _ []InferencePrep, results ...InferenceExec) core.Action {
	if len(results) == 0 {
		return core.ActionFailure
	}
	r := results[0]
	if r.Err != nil {
		s.TurnErr = r.Err
		log.Printf("[Turn:Inference] error: %v", r.Err)
		return core.ActionFailure
	}
	s.Response = r.Response
	return core.ActionDefault
}
