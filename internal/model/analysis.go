package model

import "time"

// AnalysisRequest is one caller-submitted evaluation job. Immutable once
// submitted; the engine consumes it exactly once.
type AnalysisRequest struct {
	User              string       `json:"user"`
	Description       string       `json:"description"`
	Factors           []FactorKind `json:"factors"`
	PreferredProvider ProviderKind `json:"preferred_provider,omitempty"`
}

// FactorScore is one scored analysis dimension.
type FactorScore struct {
	Factor        FactorKind `json:"factor"`
	Value         float64    `json:"value"`
	Justification string     `json:"justification"`
}

// Radar holds the five-axis chart data the frontend renders. Values are
// integers on a 1-10 scale, one per label.
type Radar struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// RadarLabels is the fixed axis set requested from providers.
var RadarLabels = []string{
	"Market Demand",
	"Technical Feasibility",
	"Profitability",
	"Competitive Advantage",
	"Execution Simplicity",
}

// AnalysisResult is the validated outcome of one engine invocation.
// Created exactly once per successful analysis and never mutated; a
// correction is a new result.
type AnalysisResult struct {
	OverallScore    float64       `json:"overall_score"`
	FactorScores    []FactorScore `json:"factor_scores"`
	ProviderUsed    ProviderKind  `json:"provider_used"`
	Model           string        `json:"model,omitempty"`
	Verdict         Verdict       `json:"verdict,omitempty"`
	Title           string        `json:"title,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Radar           *Radar        `json:"radar,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Score returns the value recorded for factor k, or -1 when the factor is
// not part of the result.
func (r *AnalysisResult) Score(k FactorKind) float64 {
	for _, fs := range r.FactorScores {
		if fs.Factor == k {
			return fs.Value
		}
	}
	return -1
}

// Analysis is a stored analysis record: the request that produced it, the
// validated result, and provenance. Append-only from the engine's side;
// category is the one column reclassification may rewrite.
type Analysis struct {
	ID          string         `json:"id"`
	User        string         `json:"user"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	Provider    ProviderKind   `json:"provider"`
	Result      AnalysisResult `json:"result"`
	CreatedAt   time.Time      `json:"created_at"`
}
