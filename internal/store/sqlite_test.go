package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbilling/reconcile-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	runDate := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	id := uuid.NewString()
	created, err := s.CreateRun(ctx, id, runDate)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, created.Status)

	summary := &model.RunSummary{
		InputRecords: 12,
		FilteredOut:  3,
		Unresolved:   []string{`customer "ghost" (price_book, 2 records): no registry match`},
		Outcomes: []model.TenantOutcome{
			{TenantID: "42", ContractID: "ct-1", Status: model.ContractMarkedProcessed, Records: 4, TotalAmount: "150"},
		},
	}
	require.NoError(t, s.FinishRun(ctx, id, model.RunStatusPartial, summary))

	got, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartial, got.Status)
	assert.Equal(t, runDate, got.RunDate)
	require.NotNil(t, got.FinishedAt)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 12, got.Summary.InputRecords)
	require.Len(t, got.Summary.Outcomes, 1)
	assert.Equal(t, "ct-1", got.Summary.Outcomes[0].ContractID)
	assert.Equal(t, "150", got.Summary.Outcomes[0].TotalAmount)
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_FinishRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	err := s.FinishRun(context.Background(), "missing", model.RunStatusComplete, &model.RunSummary{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	runDate := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	first := uuid.NewString()
	second := uuid.NewString()
	_, err := s.CreateRun(ctx, first, runDate)
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, second, runDate.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, first, model.RunStatusComplete, &model.RunSummary{}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, first, complete[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
