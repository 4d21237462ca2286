package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feasai/viability-engine/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testAnalysis(user string, score float64, category model.Category) *model.Analysis {
	return &model.Analysis{
		User:        user,
		Description: "An automated invoice matching system",
		Category:    category,
		Provider:    model.ProviderGemini,
		Result: model.AnalysisResult{
			OverallScore: score,
			FactorScores: []model.FactorScore{
				{Factor: model.FactorTechnical, Value: score, Justification: "ok"},
			},
			ProviderUsed: model.ProviderGemini,
			Verdict:      model.VerdictViableWithAdjustments,
			CreatedAt:    time.Now().UTC(),
		},
	}
}

func TestSQLite_InsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testAnalysis("alice", 68, model.CategoryAutomation)
	require.NoError(t, st.InsertAnalysis(ctx, a))
	require.NotEmpty(t, a.ID, "insert assigns an id")

	got, err := st.GetAnalysis(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User)
	assert.Equal(t, model.CategoryAutomation, got.Category)
	assert.Equal(t, 68.0, got.Result.OverallScore)
	require.Len(t, got.Result.FactorScores, 1)
	assert.Equal(t, model.FactorTechnical, got.Result.FactorScores[0].Factor)
}

func TestSQLite_Get_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetAnalysis(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_List_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertAnalysis(ctx, testAnalysis("alice", 80, model.CategoryAutomation)))
	require.NoError(t, st.InsertAnalysis(ctx, testAnalysis("alice", 40, model.CategoryAssistants)))
	require.NoError(t, st.InsertAnalysis(ctx, testAnalysis("bob", 60, model.CategoryAutomation)))

	all, err := st.ListAnalyses(ctx, AnalysisFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alice, err := st.ListAnalyses(ctx, AnalysisFilter{User: "alice"})
	require.NoError(t, err)
	assert.Len(t, alice, 2)

	automation, err := st.ListAnalyses(ctx, AnalysisFilter{Category: model.CategoryAutomation})
	require.NoError(t, err)
	assert.Len(t, automation, 2)

	limited, err := st.ListAnalyses(ctx, AnalysisFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testAnalysis("alice", 68, model.CategoryAutomation)
	require.NoError(t, st.InsertAnalysis(ctx, a))

	require.NoError(t, st.DeleteAnalysis(ctx, a.ID))
	_, err := st.GetAnalysis(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, st.DeleteAnalysis(ctx, a.ID), ErrNotFound)
}

func TestSQLite_UpdateCategory(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testAnalysis("alice", 68, model.CategoryAutomation)
	require.NoError(t, st.InsertAnalysis(ctx, a))

	require.NoError(t, st.UpdateCategory(ctx, a.ID, model.CategoryAssistants))

	got, err := st.GetAnalysis(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryAssistants, got.Category)
	assert.Equal(t, "alice", got.User, "only the category column changes")

	require.ErrorIs(t, st.UpdateCategory(ctx, "missing", model.CategoryVision), ErrNotFound)
}

func TestSQLite_Aggregates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertAnalysis(ctx, testAnalysis("alice", 80, model.CategoryAutomation)))
	require.NoError(t, st.InsertAnalysis(ctx, testAnalysis("alice", 40, model.CategoryAssistants)))
	require.NoError(t, st.InsertAnalysis(ctx, testAnalysis("bob", 60, model.CategoryAutomation)))

	total, err := st.CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	days, err := st.CountsByDay(ctx, time.Now().UTC().AddDate(0, 0, -7))
	require.NoError(t, err)
	today := time.Now().UTC().Format("2006-01-02")
	assert.Equal(t, 3, days[today])

	cats, err := st.CountsByCategory(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, model.CategoryAutomation, cats[0].Category)
	assert.Equal(t, 2, cats[0].Count)

	users, err := st.TopUsers(ctx, time.Now().UTC().AddDate(0, 0, -30), 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].User)
	assert.Equal(t, 2, users[0].Count)

	scores, err := st.OverallScores(ctx, time.Time{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{80, 40, 60}, scores)
}
