package builtin

import (
	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/skill"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// Dependencies bundles everything RegisterAll needs to construct and
// categorize the full builtin tool catalogue. Fields left as the zero
// value skip the tools that depend on them (e.g. a deployment without a
// SocialGateway configured simply won't register social_post/distress).
type Dependencies struct {
	WorkspaceDir  string
	PromptsDir    string
	MCPConfigPath string
	ShellEnabled  bool
	AllowInternal bool
	MaxChildren   int

	Store   state.Store
	Guard   *tool.Guard
	Gateway conway.ControlPlaneGateway
	Social  conway.SocialGateway
	Skills  *skill.Manager
}

// RegisterAll wires the full builtin tool catalogue into reg, tagging every
// tool with its spec.md §4.2 category and dangerous flag. This is the one
// place that enumerates the whole catalogue; cmd/automaton/main.go calls it
// once at startup.
func RegisterAll(reg *tool.Registry, d Dependencies) {
	// vm: sandbox exec/filesystem/ports.
	reg.RegisterWithMeta(NewShellTool(d.WorkspaceDir, d.ShellEnabled), tool.Meta{Category: tool.CategoryVM, Dangerous: true})
	reg.RegisterWithMeta(NewFileReadTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM})
	reg.RegisterWithMeta(NewFileWriteTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM, Dangerous: true})
	reg.RegisterWithMeta(NewFileListTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM})
	reg.RegisterWithMeta(NewFileFindTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM})
	reg.RegisterWithMeta(NewFileGrepTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM})
	reg.RegisterWithMeta(NewFileMoveTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM, Dangerous: true})
	reg.RegisterWithMeta(NewFileDeleteTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM, Dangerous: true})
	reg.RegisterWithMeta(NewFilePatchTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryVM, Dangerous: true})
	reg.RegisterWithMeta(NewWebReaderTool(), tool.Meta{Category: tool.CategoryVM})
	reg.RegisterWithMeta(NewHTTPRequestTool(d.AllowInternal), tool.Meta{Category: tool.CategoryVM})

	if d.Gateway != nil {
		reg.RegisterWithMeta(NewSandboxExecTool(d.Gateway), tool.Meta{Category: tool.CategoryVM, Dangerous: true})
		reg.RegisterWithMeta(NewSandboxDeleteTool(d.Gateway), tool.Meta{Category: tool.CategoryVM, Dangerous: true})

		// conway: credits, sandbox lifecycle, domains, models, messaging.
		reg.RegisterWithMeta(NewExposePortTool(d.Gateway), tool.Meta{Category: tool.CategoryConway})
		reg.RegisterWithMeta(NewSearchDomainsTool(d.Gateway), tool.Meta{Category: tool.CategoryConway})
		reg.RegisterWithMeta(NewRegisterDomainTool(d.Gateway), tool.Meta{Category: tool.CategoryConway, Dangerous: true})
		reg.RegisterWithMeta(NewListModelsTool(d.Gateway), tool.Meta{Category: tool.CategoryConway})

		// financial: credit transfer, paid HTTP fetch.
		reg.RegisterWithMeta(NewTransferCreditsTool(d.Gateway, d.Store), tool.Meta{Category: tool.CategoryFinancial, Dangerous: true})

		// replication.
		reg.RegisterWithMeta(NewSpawnChildTool(d.Gateway, d.Store, d.MaxChildren), tool.Meta{Category: tool.CategoryReplication, Dangerous: true})
	}
	if hg, ok := d.Gateway.(urlFetcher); ok {
		reg.RegisterWithMeta(NewPaidFetchTool(hg), tool.Meta{Category: tool.CategoryFinancial})
	}
	if d.Social != nil {
		reg.RegisterWithMeta(NewSocialPostTool(d.Social), tool.Meta{Category: tool.CategoryConway})
		reg.RegisterWithMeta(NewDistressTool(d.Social), tool.Meta{Category: tool.CategorySurvival})
	}

	reg.RegisterWithMeta(NewCheckBalanceTool(d.Store), tool.Meta{Category: tool.CategoryFinancial})

	// self_mod: editing own files, installing packages, updating prompt,
	// pulling upstream.
	if d.Guard != nil {
		reg.RegisterWithMeta(NewEditOwnFileTool(d.WorkspaceDir, d.Guard, d.Store), tool.Meta{Category: tool.CategorySelfMod, Dangerous: true})
	}
	reg.RegisterWithMeta(NewUpdatePromptTool(d.PromptsDir, d.Store), tool.Meta{Category: tool.CategorySelfMod, Dangerous: true})
	reg.RegisterWithMeta(NewInstallToolTool(d.Store), tool.Meta{Category: tool.CategorySelfMod, Dangerous: true})
	reg.RegisterWithMeta(NewPullUpstreamTool(d.Store), tool.Meta{Category: tool.CategorySelfMod})
	reg.RegisterWithMeta(NewConfigEditTool(nil), tool.Meta{Category: tool.CategorySelfMod, Dangerous: true})
	if d.MCPConfigPath != "" {
		reg.RegisterWithMeta(NewMCPServerAddTool(d.MCPConfigPath), tool.Meta{Category: tool.CategorySelfMod, Dangerous: true})
		reg.RegisterWithMeta(NewMCPServerRemoveTool(d.MCPConfigPath), tool.Meta{Category: tool.CategorySelfMod, Dangerous: true})
		reg.RegisterWithMeta(NewMCPServerListTool(d.MCPConfigPath), tool.Meta{Category: tool.CategorySelfMod})
	}

	// skills: install/remove workspace skill documents.
	if d.Skills != nil {
		reg.RegisterWithMeta(NewSkillInstallTool(d.WorkspaceDir, d.Skills, d.Store), tool.Meta{Category: tool.CategorySkills, Dangerous: true})
		reg.RegisterWithMeta(NewSkillRemoveTool(d.WorkspaceDir, d.Skills, d.Store), tool.Meta{Category: tool.CategorySkills})
	}

	// git.
	reg.RegisterWithMeta(NewGitInfoTool(d.WorkspaceDir), tool.Meta{Category: tool.CategoryGit})

	// registry: peer lookup, cached reputation. No live fetcher is wired
	// yet (see DESIGN.md); registry_lookup still serves cached entries.
	reg.RegisterWithMeta(NewRegistryLookupTool(d.Store, nil), tool.Meta{Category: tool.CategoryRegistry})

	// survival: sleep, ping, distress (distress registered above when a
	// SocialGateway is configured), low-compute is a mode not a tool.
	reg.RegisterWithMeta(NewSleepTool(d.Store), tool.Meta{Category: tool.CategorySurvival})
	reg.RegisterWithMeta(NewPingTool(), tool.Meta{Category: tool.CategorySurvival})
}
