package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feasai/viability-engine/internal/model"
)

func TestBuild_Deterministic(t *testing.T) {
	req := model.AnalysisRequest{
		User:        "alice",
		Description: "Automated invoice matching for a mid-size logistics firm",
		Factors:     []model.FactorKind{model.FactorTechnical, model.FactorMarket},
	}

	p1, err := Build(req)
	require.NoError(t, err)
	p2, err := Build(req)
	require.NoError(t, err)

	assert.Equal(t, p1.Text, p2.Text)
	assert.Equal(t, p1.Hash(), p2.Hash())
}

func TestBuild_ContainsDescriptionVerbatim(t *testing.T) {
	desc := "Predict churn for a SaaS product with 40k monthly active users"
	p, err := Build(model.AnalysisRequest{
		Description: desc,
		Factors:     model.DefaultFactors,
	})
	require.NoError(t, err)
	assert.Contains(t, p.Text, desc)
}

func TestBuild_EnumeratesExactlyRequestedFactors(t *testing.T) {
	p, err := Build(model.AnalysisRequest{
		Description: "some project",
		Factors:     []model.FactorKind{model.FactorEconomic, model.FactorLegal},
	})
	require.NoError(t, err)

	assert.Contains(t, p.Text, `"economic": {"score":`)
	assert.Contains(t, p.Text, `"legal": {"score":`)
	assert.NotContains(t, p.Text, `"technical": {"score":`)
	assert.Equal(t, []model.FactorKind{model.FactorEconomic, model.FactorLegal}, p.Factors)
}

func TestBuild_EmptyFactorsFails(t *testing.T) {
	_, err := Build(model.AnalysisRequest{Description: "a project", Factors: nil})
	require.Error(t, err)
}

func TestBuild_DifferentFactorSetsDiffer(t *testing.T) {
	a, err := Build(model.AnalysisRequest{
		Description: "same project",
		Factors:     []model.FactorKind{model.FactorTechnical},
	})
	require.NoError(t, err)
	b, err := Build(model.AnalysisRequest{
		Description: "same project",
		Factors:     []model.FactorKind{model.FactorMarket},
	})
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestBuild_RequestsJSONOnly(t *testing.T) {
	p, err := Build(model.AnalysisRequest{
		Description: "a project",
		Factors:     model.DefaultFactors,
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(p.Text, "ONLY a valid JSON object"))
	assert.Contains(t, p.Text, "radar")
	for _, l := range model.RadarLabels {
		assert.Contains(t, p.Text, l)
	}
}
