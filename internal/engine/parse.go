package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feasai/viability-engine/internal/model"
)

// maxRecommendations caps the recommendations carried into the result.
const maxRecommendations = 5

// Parsed is the validated substructure recovered from raw model output.
// Overall is nil when the provider omitted it; the scoring aggregator
// computes it in that case.
type Parsed struct {
	Overall         *float64
	Scores          []model.FactorScore
	Verdict         model.Verdict
	Title           string
	Summary         string
	Recommendations []string
	Radar           *model.Radar
}

type rawFactor struct {
	Score         any    `json:"score"`
	Justification string `json:"justification"`
}

type rawRadar struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type rawAnalysis struct {
	Title           string               `json:"title"`
	Summary         string               `json:"summary"`
	Verdict         string               `json:"verdict"`
	Factors         map[string]rawFactor `json:"factors"`
	OverallScore    any                  `json:"overall_score"`
	Recommendations []string             `json:"recommendations"`
	Radar           *rawRadar            `json:"radar"`
}

// Parse extracts the scoring schema from raw model output. Every requested
// factor must appear with a numeric score in [0,100]; unrequested factors
// and unknown fields are ignored. Narrative fields are sanitized when
// present and never fatal when absent. Failures return *ValidationError.
func Parse(raw string, factors []model.FactorKind) (*Parsed, error) {
	text := extractJSON(raw)
	if text == "" {
		return nil, &ValidationError{Reason: "no JSON object found in response"}
	}

	var ra rawAnalysis
	if err := json.Unmarshal([]byte(text), &ra); err != nil {
		return nil, &ValidationError{Reason: "malformed JSON: " + err.Error()}
	}

	p := &Parsed{
		Title:   strings.TrimSpace(ra.Title),
		Summary: strings.TrimSpace(ra.Summary),
		Verdict: model.NormalizeVerdict(ra.Verdict),
	}

	for _, f := range factors {
		entry, ok := ra.Factors[string(f)]
		if !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("missing factor %q", f)}
		}
		value, ok := asNumber(entry.Score)
		if !ok {
			return nil, &ValidationError{Reason: fmt.Sprintf("factor %q score is not a number", f)}
		}
		if value < 0 || value > 100 {
			return nil, &ValidationError{Reason: fmt.Sprintf("factor %q score %.1f out of range [0,100]", f, value)}
		}
		p.Scores = append(p.Scores, model.FactorScore{
			Factor:        f,
			Value:         value,
			Justification: strings.TrimSpace(entry.Justification),
		})
	}

	if ra.OverallScore != nil {
		overall, ok := asNumber(ra.OverallScore)
		if !ok {
			return nil, &ValidationError{Reason: "overall_score is not a number"}
		}
		if overall < 0 || overall > 100 {
			return nil, &ValidationError{Reason: fmt.Sprintf("overall_score %.1f out of range [0,100]", overall)}
		}
		p.Overall = &overall
	}

	if len(ra.Recommendations) > maxRecommendations {
		ra.Recommendations = ra.Recommendations[:maxRecommendations]
	}
	p.Recommendations = ra.Recommendations

	if ra.Radar != nil && len(ra.Radar.Labels) == len(ra.Radar.Values) && len(ra.Radar.Labels) > 0 {
		values := make([]int, len(ra.Radar.Values))
		for i, v := range ra.Radar.Values {
			values[i] = int(v)
		}
		p.Radar = &model.Radar{Labels: ra.Radar.Labels, Values: values}
	}

	return p, nil
}

// asNumber coerces a decoded JSON value to float64. Strings are not
// coerced: a provider answering "excellent" is a contract violation.
func asNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// extractJSON scrubs Markdown code fences and surrounding chatter, then
// returns the outermost brace-balanced JSON object, or "".
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}

	// Balance braces from the first opening one.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
