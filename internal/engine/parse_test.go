package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feasai/viability-engine/internal/model"
)

var twoFactors = []model.FactorKind{model.FactorTechnical, model.FactorMarket}

const validOutput = `{
	"title": "Invoice Matcher",
	"summary": "Viable with a focused scope.",
	"verdict": "viable with adjustments",
	"factors": {
		"technical": {"score": 80, "justification": "Mature OCR stack."},
		"market": {"score": 50, "justification": "Crowded segment."}
	},
	"overall_score": 68,
	"recommendations": ["Start with one invoice format", "Validate against 3 pilot customers"],
	"radar": {"labels": ["a", "b", "c", "d", "e"], "values": [8, 7, 6, 5, 9]}
}`

func TestParse_ValidOutput(t *testing.T) {
	p, err := Parse(validOutput, twoFactors)
	require.NoError(t, err)

	require.Len(t, p.Scores, 2)
	assert.Equal(t, model.FactorTechnical, p.Scores[0].Factor)
	assert.Equal(t, float64(80), p.Scores[0].Value)
	assert.Equal(t, "Mature OCR stack.", p.Scores[0].Justification)
	assert.Equal(t, model.FactorMarket, p.Scores[1].Factor)

	require.NotNil(t, p.Overall)
	assert.Equal(t, float64(68), *p.Overall)
	assert.Equal(t, model.VerdictViableWithAdjustments, p.Verdict)
	assert.Equal(t, "Invoice Matcher", p.Title)
	require.NotNil(t, p.Radar)
	assert.Equal(t, []int{8, 7, 6, 5, 9}, p.Radar.Values)
}

func TestParse_CodeFences(t *testing.T) {
	raw := "```json\n" + validOutput + "\n```"
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Len(t, p.Scores, 2)
}

func TestParse_LeadingChatter(t *testing.T) {
	raw := "Here is the analysis you asked for:\n\n" + validOutput + "\n\nLet me know if you need more."
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Len(t, p.Scores, 2)
}

func TestParse_MissingFactor(t *testing.T) {
	raw := `{"factors": {"technical": {"score": 80, "justification": "x"}}, "overall_score": 80}`
	_, err := Parse(raw, twoFactors)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "market")
}

func TestParse_NonNumericScore(t *testing.T) {
	raw := `{"factors": {
		"technical": {"score": "excellent", "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}, "overall_score": 70}`
	_, err := Parse(raw, twoFactors)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "not a number")
}

func TestParse_ScoreOutOfRange(t *testing.T) {
	raw := `{"factors": {
		"technical": {"score": 130, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}}`
	_, err := Parse(raw, twoFactors)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "out of range")
}

func TestParse_OverallAbsentIsNotAnError(t *testing.T) {
	raw := `{"factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}}`
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Nil(t, p.Overall)
}

func TestParse_OverallOutOfRange(t *testing.T) {
	raw := `{"factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}, "overall_score": 101}`
	_, err := Parse(raw, twoFactors)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestParse_ExtraFactorsIgnored(t *testing.T) {
	raw := `{"factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"},
		"astrology": {"score": 99, "justification": "stars aligned"}
	}, "overall_score": 68}`
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Len(t, p.Scores, 2)
}

func TestParse_NoJSON(t *testing.T) {
	_, err := Parse("I cannot help with that.", twoFactors)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestParse_RecommendationsCapped(t *testing.T) {
	raw := `{"factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}, "overall_score": 60,
	"recommendations": ["a", "b", "c", "d", "e", "f", "g"]}`
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Len(t, p.Recommendations, 5)
}

func TestParse_MismatchedRadarDropped(t *testing.T) {
	raw := `{"factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}, "overall_score": 60,
	"radar": {"labels": ["a", "b"], "values": [1, 2, 3]}}`
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Nil(t, p.Radar)
}

func TestParse_UnknownVerdictIsEmpty(t *testing.T) {
	raw := `{"verdict": "spectacular", "factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}, "overall_score": 60}`
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Equal(t, model.Verdict(""), p.Verdict)
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"title": "a { tricky } title", "factors": {
		"technical": {"score": 80, "justification": "x"},
		"market": {"score": 50, "justification": "y"}
	}, "overall_score": 60}`
	p, err := Parse(raw, twoFactors)
	require.NoError(t, err)
	assert.Equal(t, "a { tricky } title", p.Title)
}
