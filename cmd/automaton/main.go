package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pocketomega/automaton/internal/config"
	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/heartbeat"
	"github.com/pocketomega/automaton/internal/llm/openai"
	"github.com/pocketomega/automaton/internal/mcp"
	"github.com/pocketomega/automaton/internal/orchestrator"
	"github.com/pocketomega/automaton/internal/prompt"
	"github.com/pocketomega/automaton/internal/skill"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
	"github.com/pocketomega/automaton/internal/tool/builtin"
	"github.com/pocketomega/automaton/internal/turn"
	"github.com/pocketomega/automaton/internal/wallet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "automaton",
		Short: "A sovereign, long-lived LLM agent runtime",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()
		},
	}
	root.AddCommand(newInitCmd(), newProvisionCmd(), newSetupCmd(), newStatusCmd(), newRunCmd())
	return root
}

func workspaceDir() string {
	if d := os.Getenv("WORKSPACE_DIR"); d != "" {
		return d
	}
	d, _ := os.Getwd()
	return d
}

// newInitCmd generates the automaton's wallet if none exists yet and
// prints its address — the first of the CLI's five mutually exclusive
// modes (spec.md §4.6).
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the automaton's wallet and print its address",
		RunE: func(cmd *cobra.Command, args []string) error {
			walletPath := filepath.Join(workspaceDir(), "wallet.json")
			w, err := wallet.Load(walletPath)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			fmt.Printf("🔑 Wallet address: %s\n", w.Address.Hex())
			fmt.Printf("📄 Persisted to: %s\n", walletPath)
			return nil
		},
	}
}

// newProvisionCmd runs the SIWE handshake against the control plane and
// persists the resulting API key to config.json.
func newProvisionCmd() *cobra.Command {
	var baseURL, domain string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision an API key from the control plane via SIWE",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := workspaceDir()
			w, err := wallet.Load(filepath.Join(ws, "wallet.json"))
			if err != nil {
				return fmt.Errorf("provision: load wallet: %w", err)
			}
			if baseURL == "" {
				baseURL = os.Getenv("CONTROL_PLANE_URL")
			}
			if baseURL == "" {
				return fmt.Errorf("provision: --base-url or CONTROL_PLANE_URL is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			apiKey, err := conway.Provision(ctx, baseURL, w, domain)
			if err != nil {
				return fmt.Errorf("provision: %w", err)
			}

			p := &config.Provisioned{APIKey: apiKey, WalletAddress: w.Address.Hex(), ProvisionedAt: time.Now()}
			if err := p.Save(filepath.Join(ws, "config.json")); err != nil {
				return fmt.Errorf("provision: %w", err)
			}
			fmt.Println("✅ Provisioned and saved config.json")
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "control plane base URL (default: $CONTROL_PLANE_URL)")
	cmd.Flags().StringVar(&domain, "domain", "automaton.local", "SIWE domain field")
	return cmd
}

// newSetupCmd is a minimal interactive wizard: it only collects the handful
// of values a first run needs (workspace dir confirmation, genesis prompt)
// and writes the genesis prompt to genesis.md in the workspace — no guided
// UX beyond that is in scope.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively configure the genesis prompt and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := workspaceDir()
			reader := bufio.NewReader(os.Stdin)

			fmt.Printf("Workspace directory [%s]: ", ws)
			if line, _ := reader.ReadString('\n'); len(line) > 1 {
				ws = filepath.Clean(line[:len(line)-1])
			}

			fmt.Println("Genesis prompt (the creator's instructions to this automaton, single line):")
			genesis, _ := reader.ReadString('\n')

			genesisPath := filepath.Join(ws, "genesis.md")
			if err := os.WriteFile(genesisPath, []byte(genesis), 0o644); err != nil {
				return fmt.Errorf("setup: write genesis prompt: %w", err)
			}
			fmt.Printf("✅ Wrote %s\n", genesisPath)
			return nil
		},
	}
}

// newStatusCmd prints a point-in-time summary without starting the loop.
// Since the reasoning loop's turn history lives in an in-memory store that
// doesn't survive a restart (spec.md §9's SQLite schema is out of scope),
// status reports what's durable on disk: wallet identity, provisioning,
// and loaded skills.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a summary of this automaton's on-disk state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := workspaceDir()
			w, err := wallet.Load(filepath.Join(ws, "wallet.json"))
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			p, err := config.LoadProvisioned(filepath.Join(ws, "config.json"))
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			skillMgr := skill.NewManager(ws)
			n, _ := skillMgr.Load()

			fmt.Printf("Wallet:       %s\n", w.Address.Hex())
			fmt.Printf("Provisioned:  %v\n", p.IsProvisioned())
			if p.IsProvisioned() {
				fmt.Printf("Provisioned at: %s\n", p.ProvisionedAt.Format(time.RFC3339))
			}
			fmt.Printf("Workspace:    %s\n", ws)
			fmt.Printf("Skills:       %d loaded\n", n)
			return nil
		},
	}
}

// newRunCmd wires every collaborator and starts the orchestrator: the
// reasoning loop and the heartbeat daemon, running until a termination
// signal arrives.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the reasoning loop and heartbeat daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	ws := workspaceDir()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║            automaton                  ║")
	fmt.Println("║   sovereign reasoning loop · Go        ║")
	fmt.Println("╚══════════════════════════════════════╝")
	fmt.Printf("📂 Workspace: %s\n", ws)

	w, err := wallet.Load(filepath.Join(ws, "wallet.json"))
	if err != nil {
		return fmt.Errorf("run: load wallet: %w", err)
	}
	fmt.Printf("🔑 Wallet: %s\n", w.Address.Hex())

	provisioned, err := config.LoadProvisioned(filepath.Join(ws, "config.json"))
	if err != nil {
		return fmt.Errorf("run: load config: %w", err)
	}
	if !provisioned.IsProvisioned() {
		return fmt.Errorf("run: not provisioned; run `automaton provision` first")
	}

	baseURL := os.Getenv("CONTROL_PLANE_URL")
	if baseURL == "" {
		return fmt.Errorf("run: CONTROL_PLANE_URL is required")
	}
	gateway := conway.NewHTTPGateway(baseURL, provisioned.APIKey, w)

	chainNetwork := os.Getenv("CHAIN_NETWORK")
	if chainNetwork == "" {
		chainNetwork = conway.NetworkBase
	}
	var chain conway.ChainProvider
	if rpcURL := os.Getenv("CHAIN_RPC_URL"); rpcURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c, err := conway.NewEthChainProvider(ctx, map[string]string{chainNetwork: rpcURL})
		cancel()
		if err != nil {
			log.Printf("⚠️  chain provider unavailable, USDC balance will read as zero: %v", err)
		} else {
			chain = c
		}
	}

	llmClient, err := openai.NewClientFromEnv()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	fmt.Printf("🤖 LLM: %s\n", llmClient.GetDefaultModel())

	store := state.NewMemoryStore()

	sandboxID := os.Getenv("SANDBOX_ID")
	registry := tool.NewRegistry()
	guard := tool.NewGuard(sandboxID)
	promptsDir := filepath.Join(ws, "prompts")
	skillMgr := skill.NewManager(ws)
	if n, errs := skillMgr.Load(); n > 0 || len(errs) > 0 {
		fmt.Printf("🧩 Skills: %d loaded\n", n)
		for _, e := range errs {
			log.Printf("⚠️  skill load: %v", e)
		}
	}

	var social conway.SocialGateway
	if s, ok := any(gateway).(conway.SocialGateway); ok {
		social = s
	}
	builtin.RegisterAll(registry, builtin.Dependencies{
		WorkspaceDir:  ws,
		PromptsDir:    promptsDir,
		MCPConfigPath: os.Getenv("MCP_CONFIG"),
		ShellEnabled:  os.Getenv("TOOL_SHELL_ENABLED") != "false",
		AllowInternal: os.Getenv("TOOL_HTTP_ALLOW_INTERNAL") == "true",
		MaxChildren:   maxChildrenFromEnv(),
		Store:         store,
		Guard:         guard,
		Gateway:       gateway,
		Social:        social,
		Skills:        skillMgr,
	})
	if err := registry.InitAll(context.Background()); err != nil {
		return fmt.Errorf("run: init tools: %w", err)
	}
	defer registry.CloseAll()
	fmt.Printf("🛠️  Tools: %d registered\n", len(registry.List()))

	mcpConfigPath := os.Getenv("MCP_CONFIG")
	if mcpConfigPath == "" {
		mcpConfigPath = "mcp.json"
	}
	if _, statErr := os.Stat(mcpConfigPath); statErr == nil {
		mcpMgr := mcp.NewManager(mcpConfigPath)
		n, errs := mcpMgr.ConnectAll(context.Background())
		for _, e := range errs {
			log.Printf("⚠️  MCP connect: %v", e)
		}
		if n > 0 {
			if err := mcpMgr.RegisterTools(context.Background(), registry); err != nil {
				log.Printf("⚠️  MCP register tools: %v", err)
			}
			fmt.Printf("🔌 MCP: %d server(s) connected\n", n)
		}
		defer mcpMgr.CloseAll()
	}

	rulesPath := filepath.Join(ws, "rules.md")
	soulPath := filepath.Join(ws, "soul.md")
	promptLoader := prompt.NewPromptLoader(promptsDir, rulesPath, soulPath)

	genesis := ""
	if data, err := os.ReadFile(filepath.Join(ws, "genesis.md")); err == nil {
		genesis = string(data)
	}

	dispatcher := tool.NewDispatcher(registry, store, selfPreservationChecks(guard, store)...)

	identity := turn.Identity{Wallet: w.Address.Hex(), Creator: os.Getenv("CREATOR_ADDRESS"), SandboxID: sandboxID}

	flow := turn.BuildTurnFlow(chainNetwork)
	seed := func() turn.TurnState {
		return turn.TurnState{
			Store:      store,
			Gateway:    gateway,
			Chain:      chain,
			Inference:  llmClient,
			Registry:   registry,
			Dispatcher: dispatcher,
			Loader:     promptLoader,
			Skills:     skillMgr,
			Identity:   identity,
			Genesis:    genesis,
		}
	}

	daemon := heartbeat.NewDaemon(store, 30*time.Second)
	daemon.RegisterTask(heartbeat.TaskPing, heartbeat.NewPingTask())
	daemon.RegisterTask(heartbeat.TaskCreditCheck, heartbeat.NewCreditCheckTask(gateway))
	daemon.RegisterTask(heartbeat.TaskHealthCheck, heartbeat.NewHealthCheckTask())
	if chain != nil && identity.Wallet != "" {
		daemon.RegisterTask(heartbeat.TaskChainBalance, heartbeat.NewChainBalanceTask(chain, identity.Wallet, chainNetwork))
	}
	if social != nil {
		daemon.RegisterTask(heartbeat.TaskInboxPoll, heartbeat.NewInboxPollTask(social))
	}
	if _, err := os.Stat(filepath.Join(ws, ".git")); err == nil {
		daemon.RegisterTask(heartbeat.TaskUpstreamCheck, heartbeat.NewUpstreamCheckTask(upstreamChecker(ws)))
	}
	seedHeartbeatSchedule(context.Background(), store)

	orch := orchestrator.New(store, flow, seed, daemon)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("⚡ received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	fmt.Println("🧠 Reasoning loop and heartbeat daemon starting")
	orch.Run(ctx)
	fmt.Println("✅ Stopped gracefully")
	return nil
}

// seedHeartbeatSchedule installs the default cron schedule for the tasks
// registered in run() the first time this workspace starts; it is a no-op
// once entries already exist (UpsertHeartbeatEntry is idempotent on name).
func seedHeartbeatSchedule(ctx context.Context, store state.Store) {
	defaults := []state.HeartbeatEntry{
		{Name: heartbeat.TaskPing, Schedule: "@every 1m", Task: heartbeat.TaskPing, Enabled: true},
		{Name: heartbeat.TaskCreditCheck, Schedule: "@every 5m", Task: heartbeat.TaskCreditCheck, Enabled: true},
		{Name: heartbeat.TaskHealthCheck, Schedule: "@every 10m", Task: heartbeat.TaskHealthCheck, Enabled: true},
		{Name: heartbeat.TaskChainBalance, Schedule: "@every 15m", Task: heartbeat.TaskChainBalance, Enabled: true},
		{Name: heartbeat.TaskInboxPoll, Schedule: "@every 2m", Task: heartbeat.TaskInboxPoll, Enabled: true},
		{Name: heartbeat.TaskUpstreamCheck, Schedule: "@every 30m", Task: heartbeat.TaskUpstreamCheck, Enabled: true},
	}
	existing, err := store.ListHeartbeatEntries(ctx)
	if err != nil {
		log.Printf("⚠️  list heartbeat entries: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}
	for _, e := range defaults {
		if err := store.UpsertHeartbeatEntry(ctx, e); err != nil {
			log.Printf("⚠️  seed heartbeat entry %s: %v", e.Name, err)
		}
	}
}

// selfPreservationChecks adapts Guard's typed rule methods to the
// dispatcher's GuardCheck signature (spec.md §4.2): shell commands, sandbox
// deletion, writes to protected file names, and credit transfers all pass
// through Guard before the underlying tool ever runs, regardless of which
// tool implements the call.
func selfPreservationChecks(guard *tool.Guard, store state.Store) []tool.GuardCheck {
	return []tool.GuardCheck{
		func(toolName string, args json.RawMessage) (bool, string) {
			if toolName != "shell_exec" {
				return false, ""
			}
			var a struct {
				Command string `json:"command"`
			}
			_ = json.Unmarshal(args, &a)
			return guard.CheckShellCommand(a.Command)
		},
		func(toolName string, args json.RawMessage) (bool, string) {
			if toolName != "sandbox_delete" {
				return false, ""
			}
			var a struct {
				SandboxID string `json:"sandbox_id"`
			}
			_ = json.Unmarshal(args, &a)
			return guard.CheckSandboxDelete(a.SandboxID)
		},
		func(toolName string, args json.RawMessage) (bool, string) {
			var paths []string
			switch toolName {
			case "file_write":
				var a struct {
					Path string `json:"path"`
				}
				_ = json.Unmarshal(args, &a)
				paths = []string{a.Path}
			case "file_move":
				var a struct {
					Source      string `json:"source"`
					Destination string `json:"destination"`
				}
				_ = json.Unmarshal(args, &a)
				paths = []string{a.Source, a.Destination}
			case "file_delete", "file_patch":
				var a struct {
					Path string `json:"path"`
				}
				_ = json.Unmarshal(args, &a)
				paths = []string{a.Path}
			default:
				return false, ""
			}
			for _, p := range paths {
				if blocked, reason := guard.CheckWritePath(p); blocked {
					return true, reason
				}
			}
			return false, ""
		},
		func(toolName string, args json.RawMessage) (bool, string) {
			if toolName != "transfer_credits" {
				return false, ""
			}
			var a struct {
				AmountCents float64 `json:"amount_cents"`
			}
			_ = json.Unmarshal(args, &a)
			fs, err := store.GetFinancialState(context.Background())
			if err != nil {
				return true, fmt.Sprintf("blocked: could not verify current balance: %v", err)
			}
			return guard.CheckTransferCredits(a.AmountCents, fs.CreditsCents)
		},
	}
}

// upstreamChecker reports whether origin/HEAD has moved since the last local
// fetch, by comparing `git ls-remote` against the local ref — no merge, no
// working-tree changes. Nothing else in the binary fetches or merges either:
// pull_upstream only records an audit entry, and no review_upstream_changes
// tool is registered. This only feeds the status line the heartbeat surfaces.
func upstreamChecker(ws string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		remote, err := exec.CommandContext(ctx, "git", "-C", ws, "ls-remote", "origin", "HEAD").Output()
		if err != nil {
			return "", fmt.Errorf("git ls-remote: %w", err)
		}
		local, err := exec.CommandContext(ctx, "git", "-C", ws, "rev-parse", "HEAD").Output()
		if err != nil {
			return "", fmt.Errorf("git rev-parse: %w", err)
		}
		remoteSHA := strings.Fields(string(remote))
		if len(remoteSHA) == 0 {
			return "unknown", nil
		}
		if strings.TrimSpace(remoteSHA[0]) == strings.TrimSpace(string(local)) {
			return "up-to-date", nil
		}
		return "update-available", nil
	}
}

func maxChildrenFromEnv() int {
	if v := os.Getenv("MAX_CHILDREN"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n >= 0 {
			return n
		}
	}
	return 3
}
