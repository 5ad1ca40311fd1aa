// Package runlog records dataset ingestion runs. Every load of a source
// dataset gets a run row: when it started, where the raw file was archived,
// how many rows landed, and whether it succeeded. Postgres is the primary
// backend; SQLite serves local development without a database URL.
package runlog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/SurEtBon/backend/internal/config"
)

// RunStatus is the lifecycle state of an ingestion run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Run is a single ingestion attempt for one dataset.
type Run struct {
	ID         string     `json:"id"`
	Dataset    string     `json:"dataset"`
	Status     RunStatus  `json:"status"`
	RowsLoaded int64      `json:"rows_loaded"`
	ObjectPath string     `json:"object_path,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Filter specifies criteria for listing runs.
type Filter struct {
	Dataset string    `json:"dataset,omitempty"`
	Status  RunStatus `json:"status,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	Offset  int       `json:"offset,omitempty"`
}

// ErrRunNotFound is returned when no run matches the requested id or filter.
var ErrRunNotFound = eris.New("runlog: run not found")

// Store defines the persistence interface for ingestion runs.
type Store interface {
	StartRun(ctx context.Context, dataset string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, rowsLoaded int64, objectPath string) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter Filter) ([]Run, error)
	// LatestSuccess returns the most recent succeeded run for the dataset,
	// or ErrRunNotFound if the dataset has never loaded cleanly.
	LatestSuccess(ctx context.Context, dataset string) (*Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres", "":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, eris.Errorf("runlog: unknown store driver %q", cfg.Driver)
	}
}
