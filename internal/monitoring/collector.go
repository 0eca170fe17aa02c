// Package monitoring watches run history and raises webhook alerts when
// reconciliation runs start failing.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	// Run counts within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsPartial  int     `json:"runs_partial"`
	RunsFailed   int     `json:"runs_failed"`
	RunFailRate  float64 `json:"run_fail_rate"`

	// Tenant outcomes aggregated across finished runs in the window.
	TenantsProcessed int `json:"tenants_processed"`
	TenantsFailed    int `json:"tenants_failed"`
	Unresolved       int `json:"unresolved_customers"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers run metrics from the run-history store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// ActiveRuns counts runs currently in progress.
func (c *Collector) ActiveRuns(ctx context.Context) (int, error) {
	runs, err := c.store.ListRuns(ctx, store.RunFilter{Status: model.RunStatusRunning})
	if err != nil {
		return 0, eris.Wrap(err, "monitoring: list active runs")
	}
	return len(runs), nil
}

// Collect gathers a snapshot of run health over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	runs, err := c.store.ListRuns(ctx, store.RunFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)
	for _, run := range runs {
		if run.StartedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch run.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusPartial:
			snap.RunsPartial++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
		if run.Summary == nil {
			continue
		}
		snap.Unresolved += len(run.Summary.Unresolved)
		for _, o := range run.Summary.Outcomes {
			snap.TenantsProcessed++
			if o.Status == model.ContractFailed {
				snap.TenantsFailed++
			}
		}
	}

	finished := snap.RunsComplete + snap.RunsPartial + snap.RunsFailed
	if finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}

	return snap, nil
}
