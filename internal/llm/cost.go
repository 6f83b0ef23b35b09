package llm

import (
	"math"
	"strings"
)

// modelPricing is per-million-token USD pricing. Purely advisory — spec.md
// §4.1.2 is explicit that estimated cost is never used for control flow,
// only persisted alongside an AgentTurn for observability.
type modelPricing struct {
	inputPerMillion  float64
	outputPerMillion float64
}

// pricingTable holds known rates for common model name prefixes. Matching
// is prefix-based against the lowercased, provider-stripped model name, the
// same normalization DetectThinkingCapability uses.
var pricingTable = map[string]modelPricing{
	"gpt-4o":            {inputPerMillion: 2.50, outputPerMillion: 10.00},
	"gpt-4o-mini":       {inputPerMillion: 0.15, outputPerMillion: 0.60},
	"gpt-4.1":           {inputPerMillion: 2.00, outputPerMillion: 8.00},
	"gpt-4.1-mini":      {inputPerMillion: 0.40, outputPerMillion: 1.60},
	"o1":                {inputPerMillion: 15.00, outputPerMillion: 60.00},
	"o1-mini":           {inputPerMillion: 1.10, outputPerMillion: 4.40},
	"o3-mini":           {inputPerMillion: 1.10, outputPerMillion: 4.40},
	"claude-sonnet-4-5": {inputPerMillion: 3.00, outputPerMillion: 15.00},
	"claude-3-7-sonnet": {inputPerMillion: 3.00, outputPerMillion: 15.00},
	"deepseek-chat":     {inputPerMillion: 0.27, outputPerMillion: 1.10},
	"deepseek-reasoner": {inputPerMillion: 0.55, outputPerMillion: 2.19},
}

// genericRate is used when a model has no entry in pricingTable.
var genericRate = modelPricing{inputPerMillion: 1.00, outputPerMillion: 3.00}

// costMarkup is applied on top of raw provider pricing to cover the margin
// the control plane charges above its own upstream inference cost.
const costMarkup = 1.3

func lookupPricing(model string) modelPricing {
	lower := strings.ToLower(model)
	base := lower
	if idx := strings.LastIndex(lower, "/"); idx >= 0 {
		base = lower[idx+1:]
	}
	var best modelPricing
	bestLen := -1
	for prefix, p := range pricingTable {
		if strings.HasPrefix(base, prefix) && len(prefix) > bestLen {
			best = p
			bestLen = len(prefix)
		}
	}
	if bestLen < 0 {
		return genericRate
	}
	return best
}

// EstimateCostCents computes the advisory cost, in whole cents (rounded
// up), of a completed Chat call given its reported usage and model.
func EstimateCostCents(model string, usage Usage) float64 {
	pricing := lookupPricing(model)
	dollars := float64(usage.Prompt)/1_000_000*pricing.inputPerMillion +
		float64(usage.Completion)/1_000_000*pricing.outputPerMillion
	dollars *= costMarkup
	cents := dollars * 100
	return math.Ceil(cents)
}
