package conway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pocketomega/automaton/internal/wallet"
)

// Provision runs the SIWE-style handshake spec.md §4.6 describes: fetch a
// nonce, sign an EIP-4361 message with the wallet key, exchange the signed
// message for a bearer token, then exchange the bearer token for a
// long-lived API key. It is a free function rather than an HTTPGateway
// method because it runs before any API key exists — doJSON always sends
// one, which would be empty and misleading here.
func Provision(ctx context.Context, baseURL string, w *wallet.Wallet, domain string) (apiKey string, err error) {
	client := &http.Client{Timeout: defaultTimeout}

	var nonceResp struct {
		Nonce string `json:"nonce"`
	}
	if err := getJSON(ctx, client, baseURL+"/v1/auth/nonce", "", &nonceResp); err != nil {
		return "", fmt.Errorf("conway: fetch nonce: %w", err)
	}

	message, signature, err := w.SignIn(domain, "Sign in to provision this automaton.", baseURL, "1", 8453, nonceResp.Nonce)
	if err != nil {
		return "", fmt.Errorf("conway: sign SIWE message: %w", err)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	loginBody := map[string]string{
		"message":   message,
		"signature": "0x" + fmt.Sprintf("%x", signature),
	}
	if err := postJSON(ctx, client, baseURL+"/v1/auth/login", "", loginBody, &loginResp); err != nil {
		return "", fmt.Errorf("conway: submit signed message: %w", err)
	}

	var keyResp struct {
		APIKey string `json:"api_key"`
	}
	if err := postJSON(ctx, client, baseURL+"/v1/auth/apikey", loginResp.Token, nil, &keyResp); err != nil {
		return "", fmt.Errorf("conway: request API key: %w", err)
	}

	return keyResp.APIKey, nil
}

func getJSON(ctx context.Context, client *http.Client, url, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}
