package llm

import (
	"math"
	"testing"
)

func TestEstimateCostCentsKnownModel(t *testing.T) {
	usage := Usage{Prompt: 1_000_000, Completion: 0, Total: 1_000_000}
	got := EstimateCostCents("gpt-4o", usage)
	want := 2.50 * costMarkup * 100 // = 325, already an integer
	if got != math.Ceil(want) {
		t.Fatalf("EstimateCostCents = %v, want %v", got, want)
	}
}

func TestEstimateCostCentsRoundsUp(t *testing.T) {
	usage := Usage{Prompt: 1, Completion: 0, Total: 1}
	got := EstimateCostCents("gpt-4o", usage)
	if got < 1 {
		t.Fatalf("expected cost to round up to at least 1 cent, got %v", got)
	}
}

func TestEstimateCostCentsUnknownModelUsesGenericRate(t *testing.T) {
	usage := Usage{Prompt: 1_000_000, Completion: 0}
	got := EstimateCostCents("some-unlisted-model", usage)
	if got <= 0 {
		t.Fatalf("expected positive cost for unknown model, got %v", got)
	}
}

func TestEstimateCostCentsProviderPrefixStripped(t *testing.T) {
	a := EstimateCostCents("gpt-4o", Usage{Prompt: 500_000, Completion: 500_000})
	b := EstimateCostCents("Pro/openai/gpt-4o", Usage{Prompt: 500_000, Completion: 500_000})
	if a != b {
		t.Fatalf("expected provider-prefixed model to match same pricing: %v != %v", a, b)
	}
}
