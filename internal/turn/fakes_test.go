package turn

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/llm"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// fakeGateway is a minimal conway.ControlPlaneGateway stub for turn tests;
// only GetCreditsBalance is ever exercised, everything else panics if called
// so a test accidentally depending on unimplemented behavior fails loudly.
type fakeGateway struct {
	creditsCents float64
	creditsErr   error
}

func (f *fakeGateway) Exec(context.Context, string, time.Duration) (conway.ExecResult, error) {
	panic("not implemented")
}
func (f *fakeGateway) WriteFile(context.Context, string, string) error  { panic("not implemented") }
func (f *fakeGateway) ReadFile(context.Context, string) (string, error) { panic("not implemented") }
func (f *fakeGateway) ExposePort(context.Context, int) (conway.PortExposure, error) {
	panic("not implemented")
}
func (f *fakeGateway) RemovePort(context.Context, int) error { panic("not implemented") }
func (f *fakeGateway) CreateSandbox(context.Context, conway.SandboxOpts) (conway.SandboxInfo, error) {
	panic("not implemented")
}
func (f *fakeGateway) DeleteSandbox(context.Context, string) error { panic("not implemented") }
func (f *fakeGateway) ListSandboxes(context.Context) ([]conway.SandboxInfo, error) {
	panic("not implemented")
}
func (f *fakeGateway) GetCreditsBalance(context.Context) (float64, error) {
	return f.creditsCents, f.creditsErr
}
func (f *fakeGateway) TransferCredits(context.Context, string, float64, string) (conway.TransferResult, error) {
	panic("not implemented")
}
func (f *fakeGateway) SearchDomains(context.Context, string) ([]string, error) {
	panic("not implemented")
}
func (f *fakeGateway) RegisterDomain(context.Context, string) error { panic("not implemented") }
func (f *fakeGateway) ListDNSRecords(context.Context, string) ([]conway.DNSRecord, error) {
	panic("not implemented")
}
func (f *fakeGateway) AddDNSRecord(context.Context, string, conway.DNSRecord) error {
	panic("not implemented")
}
func (f *fakeGateway) DeleteDNSRecord(context.Context, string, conway.DNSRecord) error {
	panic("not implemented")
}
func (f *fakeGateway) ListModels(context.Context) ([]conway.ModelInfo, error) {
	panic("not implemented")
}

var _ conway.ControlPlaneGateway = (*fakeGateway)(nil)

// fakeChain is a trivial conway.ChainProvider stub.
type fakeChain struct {
	balance float64
}

func (c *fakeChain) USDCBalance(context.Context, string, string) (float64, error) {
	return c.balance, nil
}

var _ conway.ChainProvider = (*fakeChain)(nil)

// fakeInference is a scripted llm.InferenceGateway stub.
type fakeInference struct {
	response       llm.ChatResponse
	err            error
	lowComputeSeen bool
}

func (f *fakeInference) Chat(context.Context, []llm.Message, llm.ChatOptions) (llm.ChatResponse, error) {
	return f.response, f.err
}
func (f *fakeInference) SetLowComputeMode(enabled bool) { f.lowComputeSeen = enabled }
func (f *fakeInference) GetDefaultModel() string        { return "gpt-4o-mini" }

var _ llm.InferenceGateway = (*fakeInference)(nil)

// fakeTool is a scripted tool.Tool stub used to exercise ToolDispatchNode
// and PersistNode without the real builtin registry.
type fakeTool struct {
	name   string
	output string
	err    error
}

func (t *fakeTool) Name() string                { return t.name }
func (t *fakeTool) Description() string         { return "fake tool for tests" }
func (t *fakeTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (t *fakeTool) Init(context.Context) error   { return nil }
func (t *fakeTool) Close() error                 { return nil }
func (t *fakeTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	if t.err != nil {
		return tool.ToolResult{}, t.err
	}
	return tool.ToolResult{Output: t.output}, nil
}

var _ tool.Tool = (*fakeTool)(nil)

func newTestRegistry(tools ...tool.Tool) *tool.Registry {
	reg := tool.NewRegistry()
	for _, t := range tools {
		reg.Register(t)
	}
	return reg
}

func newTestDispatcher(store state.Store, tools ...tool.Tool) *tool.Dispatcher {
	return tool.NewDispatcher(newTestRegistry(tools...), store)
}
