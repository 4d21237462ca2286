package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFactor(t *testing.T) {
	t.Parallel()

	t.Run("known factor", func(t *testing.T) {
		t.Parallel()
		f, ok := ParseFactor("technical")
		require.True(t, ok)
		assert.Equal(t, FactorTechnical, f)
	})

	t.Run("case and whitespace folded", func(t *testing.T) {
		t.Parallel()
		f, ok := ParseFactor("  Market ")
		require.True(t, ok)
		assert.Equal(t, FactorMarket, f)
	})

	t.Run("unknown factor", func(t *testing.T) {
		t.Parallel()
		_, ok := ParseFactor("astrology")
		assert.False(t, ok)
	})
}

func TestParseProvider(t *testing.T) {
	t.Parallel()

	p, ok := ParseProvider("GEMINI")
	require.True(t, ok)
	assert.Equal(t, ProviderGemini, p)

	_, ok = ParseProvider("gpt4")
	assert.False(t, ok)
}

func TestNormalizeVerdict(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Verdict
	}{
		{"Highly Viable", VerdictHighlyViable},
		{"viable with adjustments", VerdictViableWithAdjustments},
		{"HIGH RISK", VerdictHighRisk},
		{"not_viable", VerdictNotViable},
		{"something else entirely", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeVerdict(tc.in), "input %q", tc.in)
	}
}

func TestAnalysisResultScore(t *testing.T) {
	t.Parallel()

	r := AnalysisResult{
		FactorScores: []FactorScore{
			{Factor: FactorTechnical, Value: 80},
			{Factor: FactorMarket, Value: 50},
		},
	}

	assert.Equal(t, 80.0, r.Score(FactorTechnical))
	assert.Equal(t, 50.0, r.Score(FactorMarket))
	assert.Equal(t, -1.0, r.Score(FactorRisk))
}

func TestKnownCategory(t *testing.T) {
	t.Parallel()

	assert.True(t, KnownCategory(CategoryAssistants))
	assert.False(t, KnownCategory("astrology"))
}
