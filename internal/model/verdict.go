package model

import "strings"

// Verdict is the model's categorical judgement of a project.
type Verdict string

const (
	VerdictHighlyViable          Verdict = "highly_viable"
	VerdictViableWithAdjustments Verdict = "viable_with_adjustments"
	VerdictHighRisk              Verdict = "high_risk"
	VerdictNotViable             Verdict = "not_viable"
)

// verdictAliases maps the free-form labels providers tend to emit onto the
// canonical verdict set.
var verdictAliases = map[string]Verdict{
	"highly viable":           VerdictHighlyViable,
	"highly_viable":           VerdictHighlyViable,
	"viable":                  VerdictHighlyViable,
	"viable with adjustments": VerdictViableWithAdjustments,
	"viable_with_adjustments": VerdictViableWithAdjustments,
	"promising":               VerdictViableWithAdjustments,
	"high risk":               VerdictHighRisk,
	"high_risk":               VerdictHighRisk,
	"risky":                   VerdictHighRisk,
	"not viable":              VerdictNotViable,
	"not_viable":              VerdictNotViable,
	"unviable":                VerdictNotViable,
}

// NormalizeVerdict maps a raw verdict string onto the canonical set.
// Unrecognized labels return an empty verdict rather than an error so a
// sloppy provider does not fail an otherwise valid analysis.
func NormalizeVerdict(s string) Verdict {
	key := strings.ToLower(strings.TrimSpace(s))
	if v, ok := verdictAliases[key]; ok {
		return v
	}
	return ""
}
