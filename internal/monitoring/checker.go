package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/config"
)

// Checker periodically inspects run history and fires webhook alerts.
// Checks are deferred while a reconciliation run is in flight: a half-written
// run row would skew the failure rate, and the operator is already watching.
// Each alert type latches after firing and re-arms only once the condition
// clears, so a bad week does not repeat the same webhook every interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	firing map[AlertType]bool
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		firing:    make(map[AlertType]bool),
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting run-health checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("run-health checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	active, err := c.collector.ActiveRuns(ctx)
	if err != nil {
		log.Error("monitoring: failed to count active runs", zap.Error(err))
		return
	}
	if active > 0 {
		log.Debug("monitoring: run in flight, deferring health check",
			zap.Int("active_runs", active))
		return
	}

	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect run metrics", zap.Error(err))
		return
	}

	alerts := c.alerter.Evaluate(snap)

	current := make(map[AlertType]bool, len(alerts))
	fresh := alerts[:0]
	for _, a := range alerts {
		current[a.Type] = true
		if !c.firing[a.Type] {
			fresh = append(fresh, a)
		}
	}
	c.firing = current

	if len(alerts) == 0 {
		log.Debug("monitoring: run history healthy",
			zap.Int("runs_in_window", snap.RunsTotal),
			zap.Int("tenants_failed", snap.TenantsFailed))
		return
	}
	if len(fresh) == 0 {
		log.Debug("monitoring: alert conditions unchanged, not resending",
			zap.Int("latched", len(alerts)))
		return
	}

	sent := c.alerter.SendAlerts(ctx, fresh)
	log.Info("monitoring: run-health alerts fired",
		zap.Int("conditions", len(alerts)),
		zap.Int("new", len(fresh)),
		zap.Int("sent", sent))
}
