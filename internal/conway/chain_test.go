package conway

import "testing"

func TestStablecoinAddressFor(t *testing.T) {
	addr, ok := StablecoinAddressFor(NetworkBase)
	if !ok || addr != "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913" {
		t.Fatalf("unexpected Base USDC address: %q ok=%v", addr, ok)
	}
	addr, ok = StablecoinAddressFor(NetworkBaseSepolia)
	if !ok || addr != "0x036CbD53842c5426634e7929541eC2318f3dCF7e" {
		t.Fatalf("unexpected Base-Sepolia USDC address: %q ok=%v", addr, ok)
	}
	if _, ok := StablecoinAddressFor("eip155:1"); ok {
		t.Fatalf("expected no stablecoin address for unconfigured network")
	}
}

func TestLeftPad32(t *testing.T) {
	got := leftPad32([]byte{0xAB, 0xCD})
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars (32 bytes), got %d", len(got))
	}
	if got[len(got)-4:] != "abcd" {
		t.Fatalf("expected trailing bytes preserved, got %q", got)
	}
}
