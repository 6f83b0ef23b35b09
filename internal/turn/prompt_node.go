package turn

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pocketomega/automaton/internal/core"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/prompt"
	"github.com/pocketomega/automaton/internal/skill"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// PromptNode implements BaseNode[TurnState, PromptPrep, PromptExec]. It
// covers spec.md §4.1 step 5: load recent turns, assemble the layered
// system prompt, and build the chat transcript handed to the inference
// gateway.
type PromptNode struct{}

func NewPromptNode() *PromptNode { return &PromptNode{} }

// PromptPrep carries the references Exec needs.
type PromptPrep struct {
	Store        state.Store
	Loader       *prompt.PromptLoader
	Registry     *tool.Registry
	Skills       *skill.Manager
	Identity     Identity
	Genesis      string
	PendingInput string
	InputSource  state.InputSource
	HasInput     bool
}

// PromptExec is the assembled transcript.
type PromptExec struct {
	Transcript []llm.Message
	Err        error
}

func (n *PromptNode) Prep(s *TurnState) []PromptPrep {
	return []PromptPrep{{
		Store:        s.Store,
		Loader:       s.Loader,
		Registry:     s.Registry,
		Skills:       s.Skills,
		Identity:     s.Identity,
		Genesis:      s.Genesis,
		PendingInput: s.PendingInput,
		InputSource:  s.InputSource,
		HasInput:     s.HasInput,
	}}
}

func (n *PromptNode) Exec(ctx context.Context, p PromptPrep) (PromptExec, error) {
	turns, err := p.Store.RecentTurns(ctx, RecentTurnWindow)
	if err != nil {
		return PromptExec{}, fmt.Errorf("read recent turns: %w", err)
	}
	fs, err := p.Store.GetFinancialState(ctx)
	if err != nil {
		return PromptExec{}, fmt.Errorf("read financial state: %w", err)
	}
	turnCount, err := p.Store.TurnCount(ctx)
	if err != nil {
		return PromptExec{}, fmt.Errorf("read turn count: %w", err)
	}
	mods, err := p.Store.RecentModifications(ctx, 5)
	if err != nil {
		return PromptExec{}, fmt.Errorf("read recent modifications: %w", err)
	}
	children, err := p.Store.ListChildren(ctx)
	if err != nil {
		return PromptExec{}, fmt.Errorf("list children: %w", err)
	}
	upstreamStatus, _, err := p.Store.KVGet(ctx, "upstream_status")
	if err != nil {
		return PromptExec{}, fmt.Errorf("read upstream_status: %w", err)
	}
	agentState, err := p.Store.GetAgentState(ctx)
	if err != nil {
		return PromptExec{}, fmt.Errorf("read agent state: %w", err)
	}

	skillsPrompt := "(no active skills)"
	if p.Skills != nil {
		if active := p.Skills.Active(p.PendingInput); len(active) > 0 {
			var sb strings.Builder
			for i, def := range active {
				if i > 0 {
					sb.WriteString("\n\n")
				}
				fmt.Fprintf(&sb, "### %s\n%s", def.Name, def.Body)
			}
			skillsPrompt = sb.String()
		}
	}

	toolsCatalogue := "(no tools available)"
	if p.Registry != nil {
		toolsCatalogue = p.Registry.GenerateToolsPrompt()
	}

	modDescriptions := make([]string, 0, len(mods))
	for _, m := range mods {
		modDescriptions = append(modDescriptions, fmt.Sprintf("%s: %s", m.Type, m.Description))
	}
	childrenSummary := ""
	if len(children) > 0 {
		parts := make([]string, 0, len(children))
		for _, c := range children {
			parts = append(parts, fmt.Sprintf("%s(%s)", c.Name, c.Status))
		}
		childrenSummary = strings.Join(parts, ", ")
	}

	systemPrompt := ""
	if p.Loader != nil {
		systemPrompt = p.Loader.Assemble(prompt.Assembly{
			Identity: prompt.Identity{
				Wallet:    p.Identity.Wallet,
				Creator:   p.Identity.Creator,
				SandboxID: p.Identity.SandboxID,
			},
			GenesisPrompt:  p.Genesis,
			SkillsPrompt:   skillsPrompt,
			ToolsCatalogue: toolsCatalogue,
			Status: prompt.Status{
				AgentState:          string(agentState),
				CreditsCents:        fs.CreditsCents,
				USDCBalance:         fs.USDCBalance,
				TurnCount:           turnCount,
				RecentModifications: modDescriptions,
				ChildrenSummary:     childrenSummary,
				UpstreamStatus:      upstreamStatus,
			},
		})
	}

	transcript := make([]llm.Message, 0, len(turns)*3+2)
	transcript = append(transcript, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})

	for _, t := range turns {
		if t.HasInput {
			transcript = append(transcript, llm.Message{
				Role:    llm.RoleUser,
				Content: taggedInput(t.Input, t.InputSource),
			})
		}
		assistantMsg := llm.Message{Role: llm.RoleAssistant, Content: t.Thinking}
		for _, tc := range t.ToolCalls {
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, llm.ToolCall{
				ID:   tc.ID,
				Name: tc.Name,
			})
		}
		transcript = append(transcript, assistantMsg)
		for _, tc := range t.ToolCalls {
			content := tc.Result
			if tc.Error != "" {
				content = tc.Error
			}
			transcript = append(transcript, llm.Message{
				Role:       llm.RoleTool,
				Content:    content,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	if p.HasInput {
		transcript = append(transcript, llm.Message{
			Role:    llm.RoleUser,
			Content: taggedInput(p.PendingInput, p.InputSource),
		})
	}

	return PromptExec{Transcript: transcript}, nil
}

func taggedInput(content string, source state.InputSource) string {
	return fmt.Sprintf("[input source: %s]\n%s", source, content)
}

func (n *PromptNode) ExecFallback(err error) PromptExec {
	log.Printf("[Turn:Prompt] ExecFallback: %v", err)
	return PromptExec{Err: err}
}

func (n *PromptNode) Post(s *TurnState, _ []PromptPrep, results ...PromptExec) core.Action {
	if len(results) == 0 {
		return core.ActionFailure
	}
	r := results[0]
	if r.Err != nil {
		s.TurnErr = r.Err
		log.Printf("[Turn:Prompt] error: %v", r.Err)
		return core.ActionFailure
	}
	s.Transcript = r.Transcript
	return core.ActionDefault
}
