package runlog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/SurEtBon/backend/internal/db"
)

// PostgresStore implements Store against the bronze.ingest_runs table.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with its own connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

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

// NewPostgresWithPool wraps an existing pool. The caller keeps ownership of
// the pool's lifecycle.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (loaders, the HTTP API).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS bronze;

CREATE TABLE IF NOT EXISTS bronze.ingest_runs (
	id          TEXT PRIMARY KEY,
	dataset     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	rows_loaded BIGINT NOT NULL DEFAULT 0,
	object_path TEXT,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_dataset ON bronze.ingest_runs(dataset);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_status ON bronze.ingest_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate ingest_runs")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context, dataset string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO bronze.ingest_runs (id, dataset, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, dataset, string(StatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for %s", dataset)
	}

	return &Run{
		ID:        id,
		Dataset:   dataset,
		Status:    StatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, rowsLoaded int64, objectPath string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bronze.ingest_runs SET status = $1, rows_loaded = $2, object_path = $3, finished_at = $4 WHERE id = $5`,
		string(StatusSucceeded), rowsLoaded, objectPath, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE bronze.ingest_runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(StatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, dataset, status, rows_loaded, object_path, error, started_at, finished_at
		 FROM bronze.ingest_runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter Filter) ([]Run, error) {
	query := `SELECT id, dataset, status, rows_loaded, object_path, error, started_at, finished_at
	          FROM bronze.ingest_runs WHERE 1=1`
	var args []any

	if filter.Dataset != "" {
		args = append(args, filter.Dataset)
		query += ` AND dataset = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LatestSuccess(ctx context.Context, dataset string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, dataset, status, rows_loaded, object_path, error, started_at, finished_at
		 FROM bronze.ingest_runs WHERE dataset = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		dataset, string(StatusSucceeded),
	)
	return scanPgRun(row)
}

func scanPgRun(row scannable) (*Run, error) {
	var r Run
	var objectPath, errMsg *string
	var finishedAt *time.Time

	err := row.Scan(&r.ID, &r.Dataset, &r.Status, &r.RowsLoaded, &objectPath, &errMsg, &r.StartedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if objectPath != nil {
		r.ObjectPath = *objectPath
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	r.FinishedAt = finishedAt
	return &r, nil
}

