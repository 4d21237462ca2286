package model

import "strings"

// FactorKind identifies one analysis dimension scored by a provider.
type FactorKind string

const (
	FactorTechnical   FactorKind = "technical"
	FactorEconomic    FactorKind = "economic"
	FactorMarket      FactorKind = "market"
	FactorRisk        FactorKind = "risk"
	FactorOperational FactorKind = "operational"
	FactorLegal       FactorKind = "legal"
)

// KnownFactors lists every factor the system can be configured to request,
// in canonical order.
var KnownFactors = []FactorKind{
	FactorTechnical,
	FactorEconomic,
	FactorMarket,
	FactorRisk,
	FactorOperational,
	FactorLegal,
}

// DefaultFactors is the factor set applied when a request names none.
var DefaultFactors = []FactorKind{
	FactorTechnical,
	FactorEconomic,
	FactorMarket,
	FactorRisk,
}

// ParseFactor normalizes a user-supplied factor name. The second return
// reports whether the name is a known factor.
func ParseFactor(s string) (FactorKind, bool) {
	k := FactorKind(strings.ToLower(strings.TrimSpace(s)))
	for _, f := range KnownFactors {
		if f == k {
			return f, true
		}
	}
	return "", false
}

// FactorLabel returns the human-readable label used in prompts and reports.
func FactorLabel(k FactorKind) string {
	switch k {
	case FactorTechnical:
		return "Technical Viability"
	case FactorEconomic:
		return "Economic Viability"
	case FactorMarket:
		return "Market Viability"
	case FactorRisk:
		return "Risk Exposure"
	case FactorOperational:
		return "Operational Viability"
	case FactorLegal:
		return "Legal & Regulatory Viability"
	default:
		return string(k)
	}
}
