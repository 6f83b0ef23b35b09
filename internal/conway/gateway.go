package conway

import (
	"context"
	"time"
)

var _ ControlPlaneGateway = (*HTTPGateway)(nil)

func (g *HTTPGateway) Exec(ctx context.Context, command string, timeout time.Duration) (ExecResult, error) {
	var out ExecResult
	body := map[string]any{"command": command, "timeout_ms": timeout.Milliseconds()}
	err := g.doJSON(ctx, "POST", "/v1/sandbox/exec", body, &out)
	return out, err
}

func (g *HTTPGateway) WriteFile(ctx context.Context, path, content string) error {
	return g.doJSON(ctx, "POST", "/v1/sandbox/files", map[string]any{"path": path, "content": content}, nil)
}

func (g *HTTPGateway) ReadFile(ctx context.Context, path string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	err := g.doJSON(ctx, "GET", "/v1/sandbox/files?path="+path, nil, &out)
	return out.Content, err
}

func (g *HTTPGateway) ExposePort(ctx context.Context, port int) (PortExposure, error) {
	var out PortExposure
	err := g.doJSON(ctx, "POST", "/v1/sandbox/ports", map[string]any{"port": port}, &out)
	return out, err
}

func (g *HTTPGateway) RemovePort(ctx context.Context, port int) error {
	return g.doJSON(ctx, "DELETE", "/v1/sandbox/ports", map[string]any{"port": port}, nil)
}

func (g *HTTPGateway) CreateSandbox(ctx context.Context, opts SandboxOpts) (SandboxInfo, error) {
	var out SandboxInfo
	err := g.doJSON(ctx, "POST", "/v1/sandboxes", opts, &out)
	return out, err
}

func (g *HTTPGateway) DeleteSandbox(ctx context.Context, id string) error {
	return g.doJSON(ctx, "DELETE", "/v1/sandboxes/"+id, nil, nil)
}

func (g *HTTPGateway) ListSandboxes(ctx context.Context) ([]SandboxInfo, error) {
	var out []SandboxInfo
	err := g.doJSON(ctx, "GET", "/v1/sandboxes", nil, &out)
	return out, err
}

func (g *HTTPGateway) GetCreditsBalance(ctx context.Context) (float64, error) {
	var out struct {
		CreditsCents float64 `json:"credits_cents"`
	}
	err := g.doJSON(ctx, "GET", "/v1/credits/balance", nil, &out)
	return out.CreditsCents, err
}

func (g *HTTPGateway) TransferCredits(ctx context.Context, to string, amountCents float64, note string) (TransferResult, error) {
	var out TransferResult
	body := map[string]any{"to": to, "amount_cents": amountCents, "note": note}
	err := g.doJSON(ctx, "POST", "/v1/credits/transfer", body, &out)
	return out, err
}

func (g *HTTPGateway) SearchDomains(ctx context.Context, query string) ([]string, error) {
	var out struct {
		Domains []string `json:"domains"`
	}
	err := g.doJSON(ctx, "GET", "/v1/domains/search?q="+query, nil, &out)
	return out.Domains, err
}

func (g *HTTPGateway) RegisterDomain(ctx context.Context, domain string) error {
	return g.doJSON(ctx, "POST", "/v1/domains", map[string]any{"domain": domain}, nil)
}

func (g *HTTPGateway) ListDNSRecords(ctx context.Context, domain string) ([]DNSRecord, error) {
	var out []DNSRecord
	err := g.doJSON(ctx, "GET", "/v1/domains/"+domain+"/dns", nil, &out)
	return out, err
}

func (g *HTTPGateway) AddDNSRecord(ctx context.Context, domain string, rec DNSRecord) error {
	return g.doJSON(ctx, "POST", "/v1/domains/"+domain+"/dns", rec, nil)
}

func (g *HTTPGateway) DeleteDNSRecord(ctx context.Context, domain string, rec DNSRecord) error {
	return g.doJSON(ctx, "DELETE", "/v1/domains/"+domain+"/dns", rec, nil)
}

func (g *HTTPGateway) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var out []ModelInfo
	err := g.doJSON(ctx, "GET", "/v1/models", nil, &out)
	return out, err
}

// PostUpdate and FetchMentions implement SocialGateway against the same
// HTTP surface — no new transport, just a named sub-contract (spec.md §6
// expansion).
var _ SocialGateway = (*HTTPGateway)(nil)
