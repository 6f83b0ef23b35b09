package wallet

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadGeneratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	w1, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w1.Address.Hex() == "" {
		t.Fatalf("expected a derived address")
	}

	w2, err := Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if w1.Address != w2.Address {
		t.Fatalf("wallet regenerated instead of reloaded: %s != %s", w1.Address, w2.Address)
	}
}

func TestSignPersonalRoundTrips(t *testing.T) {
	w, err := Load(filepath.Join(t.TempDir(), "wallet.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sig, err := w.SignPersonal([]byte("hello"))
	if err != nil {
		t.Fatalf("SignPersonal: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(sig))
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("expected normalized recovery id 27/28, got %d", sig[64])
	}
}

func TestSIWEMessageFieldOrder(t *testing.T) {
	w, err := Load(filepath.Join(t.TempDir(), "wallet.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	msg, sig, err := w.SignIn("automaton.example", "Sign in to provision API access.", "https://automaton.example", "1", 8453, "abc123")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte sig, got %d", len(sig))
	}
	if !strings.Contains(msg, "Chain ID: 8453") || !strings.Contains(msg, "Nonce: abc123") {
		t.Fatalf("message missing required fields: %s", msg)
	}
}

func TestParseAmountHumanAndAtomic(t *testing.T) {
	atomic, err := parseAmount("1500000")
	if err != nil || atomic.String() != "1500000" {
		t.Fatalf("parseAmount atomic: %v %v", atomic, err)
	}
	human, err := parseAmount("1.5")
	if err != nil || human.String() != "1500000" {
		t.Fatalf("parseAmount human: %v %v", human, err)
	}
}
