package conway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pocketomega/automaton/internal/wallet"
)

const defaultTimeout = 30 * time.Second

// HTTPGateway is the reference ControlPlaneGateway, talking to the control
// plane's REST API the same way the teacher's http_request tool talks to
// arbitrary endpoints — a plain net/http client, no RPC framework needed
// for a JSON-over-HTTPS control surface.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	wallet     *wallet.Wallet // used to sign x402 payment retries on HTTP 402
}

// NewHTTPGateway creates a gateway bound to baseURL, authenticating with
// apiKey (obtained via the SIWE provisioning flow in Provision).
func NewHTTPGateway(baseURL, apiKey string, w *wallet.Wallet) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		wallet:     w,
	}
}

// x402PaymentRequired mirrors the payload a paid endpoint returns on 402.
type x402PaymentRequired struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	MaxAmountRequired string `json:"maxAmountRequired"`
	PayTo             string `json:"payTo"`
	DeadlineSeconds   int64  `json:"deadlineSeconds"`
	Asset             string `json:"asset"`
	ChainID           int64  `json:"chainId"`
}

// doJSON performs an authenticated JSON request and decodes the response
// into out (if non-nil). On HTTP 402, it builds and signs an x402 payment
// envelope and retries the request once with the X-Payment header set, per
// spec.md §4.6.
func (g *HTTPGateway) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var raw []byte
	var payload io.Reader
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("conway: encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("conway: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("conway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		// The first request consumed payload; the retry needs a fresh reader.
		var retryPayload io.Reader
		if raw != nil {
			retryPayload = bytes.NewReader(raw)
		}
		return g.retryWithPayment(ctx, method, path, retryPayload, resp, out)
	}

	return decodeResponse(resp, out)
}

func (g *HTTPGateway) retryWithPayment(ctx context.Context, method, path string, payload io.Reader, resp *http.Response, out any) error {
	var reqs x402PaymentRequired
	if err := json.NewDecoder(resp.Body).Decode(&reqs); err != nil {
		return fmt.Errorf("conway: decode 402 payment requirement: %w", err)
	}

	envelope, err := g.wallet.BuildPaymentEnvelope(wallet.PaymentRequirement{
		Scheme:            reqs.Scheme,
		Network:           reqs.Network,
		MaxAmountRequired: reqs.MaxAmountRequired,
		PayTo:             reqs.PayTo,
		Deadline:          time.Duration(reqs.DeadlineSeconds) * time.Second,
		StablecoinAddress: reqs.Asset,
		ChainID:           reqs.ChainID,
	})
	if err != nil {
		return fmt.Errorf("conway: build payment envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("conway: rebuild request after 402: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("X-Payment", envelope)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	retryResp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("conway: retry with payment: %w", err)
	}
	defer retryResp.Body.Close()
	return decodeResponse(retryResp, out)
}

// FetchURL performs an unauthenticated GET against an arbitrary absolute
// URL (unlike doJSON, which is always relative to the control plane's own
// baseURL) and settles an x402 payment automatically if the server answers
// 402, returning the final response body as a string.
func (g *HTTPGateway) FetchURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("conway: build request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("conway: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		var out string
		if err := g.retryWithPaymentRaw(ctx, url, resp, &out); err != nil {
			return "", err
		}
		return out, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("conway: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("conway: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}

func (g *HTTPGateway) retryWithPaymentRaw(ctx context.Context, url string, resp *http.Response, out *string) error {
	var reqs x402PaymentRequired
	if err := json.NewDecoder(resp.Body).Decode(&reqs); err != nil {
		return fmt.Errorf("conway: decode 402 payment requirement: %w", err)
	}
	envelope, err := g.wallet.BuildPaymentEnvelope(wallet.PaymentRequirement{
		Scheme:            reqs.Scheme,
		Network:           reqs.Network,
		MaxAmountRequired: reqs.MaxAmountRequired,
		PayTo:             reqs.PayTo,
		Deadline:          time.Duration(reqs.DeadlineSeconds) * time.Second,
		StablecoinAddress: reqs.Asset,
		ChainID:           reqs.ChainID,
	})
	if err != nil {
		return fmt.Errorf("conway: build payment envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("conway: rebuild request after 402: %w", err)
	}
	req.Header.Set("X-Payment", envelope)
	retryResp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("conway: retry with payment: %w", err)
	}
	defer retryResp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(retryResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("conway: read response: %w", err)
	}
	if retryResp.StatusCode >= 300 {
		return fmt.Errorf("conway: unexpected status %d after payment: %s", retryResp.StatusCode, string(body))
	}
	*out = string(body)
	return nil
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("conway: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("conway: decode response: %w", err)
	}
	return nil
}
