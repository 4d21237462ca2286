package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/feasai/viability-engine/internal/db"
	"github.com/feasai/viability-engine/internal/model"
	"github.com/feasai/viability-engine/internal/stats"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"insert_analysis": `INSERT INTO analyses (id, username, description, category, provider, result, overall_score, created_at)
	                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_analysis": `SELECT id, username, description, category, provider, result, created_at
	                 FROM analyses WHERE id = $1`,
	"delete_analysis": `DELETE FROM analyses WHERE id = $1`,
	"update_category": `UPDATE analyses SET category = $1 WHERE id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	description   TEXT NOT NULL,
	category      TEXT NOT NULL,
	provider      TEXT NOT NULL,
	result        JSONB NOT NULL,
	overall_score DOUBLE PRECISION NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_username ON analyses(username);
CREATE INDEX IF NOT EXISTS idx_analyses_category ON analyses(category);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) InsertAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, username, description, category, provider, result, overall_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.User, a.Description, string(a.Category), string(a.Provider),
		resultJSON, a.Result.OverallScore, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, description, category, provider, result, created_at
		 FROM analyses WHERE id = $1`,
		id,
	)
	a, err := scanPgAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "%s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, username, description, category, provider, result, created_at
	          FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.User != "" {
		query += fmt.Sprintf(` AND username = $%d`, argIdx)
		args = append(args, filter.User)
		argIdx++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, string(filter.Category))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		a, err := scanPgAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete analysis %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, id string, category model.Category) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET category = $1 WHERE id = $2`,
		string(category), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update category %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

func (s *PostgresStore) CountAnalyses(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count analyses")
}

func (s *PostgresStore) CountsByDay(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT to_char(created_at, 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM analyses WHERE created_at >= $1 GROUP BY day`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: counts by day")
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan day count")
		}
		out[day] = n
	}
	return out, eris.Wrap(rows.Err(), "postgres: counts by day iterate")
}

func (s *PostgresStore) CountsByCategory(ctx context.Context) ([]stats.CategoryCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM analyses GROUP BY category ORDER BY COUNT(*) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: counts by category")
	}
	defer rows.Close()

	var out []stats.CategoryCount
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category count")
		}
		out = append(out, stats.CategoryCount{Category: model.Category(category), Count: n})
	}
	return out, eris.Wrap(rows.Err(), "postgres: counts by category iterate")
}

func (s *PostgresStore) TopUsers(ctx context.Context, since time.Time, limit int) ([]stats.UserCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT username, COUNT(*) FROM analyses
		 WHERE created_at >= $1 GROUP BY username
		 ORDER BY COUNT(*) DESC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top users")
	}
	defer rows.Close()

	var out []stats.UserCount
	for rows.Next() {
		var u stats.UserCount
		if err := rows.Scan(&u.User, &u.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan user count")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "postgres: top users iterate")
}

func (s *PostgresStore) OverallScores(ctx context.Context, since time.Time) ([]float64, error) {
	query := `SELECT overall_score FROM analyses`
	args := []any{}
	if !since.IsZero() {
		query += ` WHERE created_at >= $1`
		args = append(args, since)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: overall scores")
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan overall score")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: overall scores iterate")
}

func scanPgAnalysis(row pgx.Row) (*model.Analysis, error) {
	var a model.Analysis
	var category, provider string
	var resultJSON []byte

	if err := row.Scan(&a.ID, &a.User, &a.Description, &category, &provider, &resultJSON, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Category = model.Category(category)
	a.Provider = model.ProviderKind(provider)

	if err := json.Unmarshal(resultJSON, &a.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &a, nil
}
