package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/automaton/internal/conway"
	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// ── transfer_credits ──

// TransferCreditsTool moves control-plane credits to another agent or
// wallet. The half-balance cap is enforced upstream by the Guard, not here —
// this tool trusts it has already been cleared to run.
type TransferCreditsTool struct {
	gateway conway.ControlPlaneGateway
	store   state.Store
}

func NewTransferCreditsTool(gateway conway.ControlPlaneGateway, store state.Store) *TransferCreditsTool {
	return &TransferCreditsTool{gateway: gateway, store: store}
}

func (t *TransferCreditsTool) Name() string { return "transfer_credits" }
func (t *TransferCreditsTool) Description() string {
	return "向指定收款地址转账控制平面积分，用于向其他自治体支付服务费用。"
}
func (t *TransferCreditsTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "to", Type: "string", Description: "收款地址", Required: true},
		tool.SchemaParam{Name: "amount_cents", Type: "number", Description: "转账金额（美分）", Required: true},
		tool.SchemaParam{Name: "memo", Type: "string", Description: "备注", Required: false},
	)
}
func (t *TransferCreditsTool) Init(_ context.Context) error { return nil }
func (t *TransferCreditsTool) Close() error                 { return nil }

type transferCreditsArgs struct {
	To          string  `json:"to"`
	AmountCents float64 `json:"amount_cents"`
	Memo        string  `json:"memo"`
}

func (t *TransferCreditsTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a transferCreditsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	result, err := t.gateway.TransferCredits(ctx, a.To, a.AmountCents, a.Memo)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: fmt.Sprintf("transfer %s: %s, balance_after=%.2f", result.TransferID, result.Status, result.BalanceAfter)}, nil
}

// ── check_balance ──

// CheckBalanceTool reads the cached FinancialState snapshot without hitting
// any network — the heartbeat daemon is responsible for refreshing it.
type CheckBalanceTool struct {
	store state.Store
}

func NewCheckBalanceTool(store state.Store) *CheckBalanceTool { return &CheckBalanceTool{store: store} }

func (t *CheckBalanceTool) Name() string        { return "check_balance" }
func (t *CheckBalanceTool) Description() string { return "读取最近一次刷新的积分与 USDC 余额快照。" }
func (t *CheckBalanceTool) InputSchema() json.RawMessage { return tool.BuildSchema() }
func (t *CheckBalanceTool) Init(_ context.Context) error { return nil }
func (t *CheckBalanceTool) Close() error                 { return nil }

func (t *CheckBalanceTool) Execute(ctx context.Context, _ json.RawMessage) (tool.ToolResult, error) {
	fs, err := t.store.GetFinancialState(ctx)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: fmt.Sprintf(
		"credits_cents=%.2f usdc_balance=%.4f last_checked=%s",
		fs.CreditsCents, fs.USDCBalance, fs.LastChecked.Format(time.RFC3339),
	)}, nil
}

// ── paid_fetch ──

// urlFetcher is the narrow capability PaidFetchTool needs; *conway.HTTPGateway
// satisfies it via FetchURL.
type urlFetcher interface {
	FetchURL(ctx context.Context, url string) (string, error)
}

// PaidFetchTool issues an HTTP GET against a URL that may respond 402,
// settling payment via the x402 flow transparently. It is the agent's
// general-purpose way to consume a paid API without hand-building the
// payment envelope itself.
type PaidFetchTool struct {
	fetcher urlFetcher
}

func NewPaidFetchTool(fetcher urlFetcher) *PaidFetchTool {
	return &PaidFetchTool{fetcher: fetcher}
}

func (t *PaidFetchTool) Name() string { return "paid_fetch" }
func (t *PaidFetchTool) Description() string {
	return "请求一个可能要求 x402 微支付的资源，自动完成支付并返回内容。"
}
func (t *PaidFetchTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "url", Type: "string", Description: "资源 URL", Required: true},
	)
}
func (t *PaidFetchTool) Init(_ context.Context) error { return nil }
func (t *PaidFetchTool) Close() error                 { return nil }

func (t *PaidFetchTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}
	out, err := t.fetcher.FetchURL(ctx, a.URL)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: out}, nil
}
