// Package store persists run history. Billing data itself is never stored
// locally; one row per run records when it ran, how it ended, and the
// operator-facing summary. Two backends: sqlite for single-operator use,
// postgres for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opsbilling/reconcile-cli/internal/model"
)

// ErrNotFound is returned when no run matches the requested id.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store is the run-history persistence interface.
type Store interface {
	// CreateRun records the start of a run with the given id.
	CreateRun(ctx context.Context, id string, runDate time.Time) (*model.Run, error)

	// FinishRun records a run's terminal status and summary.
	FinishRun(ctx context.Context, id string, status model.RunStatus, summary *model.RunSummary) error

	// GetRun fetches one run by id. ErrNotFound when absent.
	GetRun(ctx context.Context, id string) (*model.Run, error)

	// ListRuns returns runs matching the filter, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	Close() error
}

// Open dispatches on driver name: "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
