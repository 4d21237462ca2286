// Package store persists analysis records. Two backends implement the same
// interface: SQLite for single-machine use and Postgres for shared
// deployments. Records are append-only; category is the one mutable column.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/stats"
)

// ErrNotFound is returned when an analysis id does not exist. Both backends
// wrap it, so callers match with errors.Is.
var ErrNotFound = errors.New("analysis not found")

// AnalysisFilter narrows a listing. Zero values mean no constraint; Limit
// defaults to 100.
type AnalysisFilter struct {
	User     string         `json:"user,omitempty"`
	Category model.Category `json:"category,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// Store is the persistence contract for analysis records and the dashboard
// aggregates computed over them.
type Store interface {
	// Records
	InsertAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)
	DeleteAnalysis(ctx context.Context, id string) error
	UpdateCategory(ctx context.Context, id string, category model.Category) error

	// Aggregates
	CountAnalyses(ctx context.Context) (int, error)
	CountsByDay(ctx context.Context, since time.Time) (map[string]int, error)
	CountsByCategory(ctx context.Context) ([]stats.CategoryCount, error)
	TopUsers(ctx context.Context, since time.Time, limit int) ([]stats.UserCount, error)
	OverallScores(ctx context.Context, since time.Time) ([]float64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
