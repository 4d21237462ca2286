package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/stats"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	description   TEXT NOT NULL,
	category      TEXT NOT NULL,
	provider      TEXT NOT NULL,
	result        TEXT NOT NULL,
	overall_score REAL NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_username ON analyses(username);
CREATE INDEX IF NOT EXISTS idx_analyses_category ON analyses(category);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, username, description, category, provider, result, overall_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.User, a.Description, string(a.Category), string(a.Provider),
		string(resultJSON), a.Result.OverallScore, a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, description, category, provider, result, created_at
		 FROM analyses WHERE id = ?`,
		id,
	)
	return scanAnalysis(row, id)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, username, description, category, provider, result, created_at
	          FROM analyses WHERE 1=1`
	var args []any

	if filter.User != "" {
		query += ` AND username = ?`
		args = append(args, filter.User)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete analysis %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, id string, category model.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET category = ? WHERE id = ?`,
		string(category), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update category %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) CountAnalyses(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count analyses")
}

func (s *SQLiteStore) CountsByDay(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		 FROM analyses WHERE created_at >= ? GROUP BY day`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: counts by day")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan day count")
		}
		out[day] = n
	}
	return out, eris.Wrap(rows.Err(), "sqlite: counts by day iterate")
}

func (s *SQLiteStore) CountsByCategory(ctx context.Context) ([]stats.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM analyses GROUP BY category ORDER BY COUNT(*) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: counts by category")
	}
	defer rows.Close()

	var out []stats.CategoryCount
	for rows.Next() {
		var c stats.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category count")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: counts by category iterate")
}

func (s *SQLiteStore) TopUsers(ctx context.Context, since time.Time, limit int) ([]stats.UserCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, COUNT(*) FROM analyses
		 WHERE created_at >= ? GROUP BY username
		 ORDER BY COUNT(*) DESC LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top users")
	}
	defer rows.Close()

	var out []stats.UserCount
	for rows.Next() {
		var u stats.UserCount
		if err := rows.Scan(&u.User, &u.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user count")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: top users iterate")
}

func (s *SQLiteStore) OverallScores(ctx context.Context, since time.Time) ([]float64, error) {
	query := `SELECT overall_score FROM analyses`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: overall scores")
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan overall score")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: overall scores iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scannable, id string) (*model.Analysis, error) {
	var a model.Analysis
	var resultJSON string

	err := row.Scan(&a.ID, &a.User, &a.Description, &a.Category, &a.Provider, &resultJSON, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan analysis")
	}

	if err := json.Unmarshal([]byte(resultJSON), &a.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &a, nil
}
