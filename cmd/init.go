package main

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opsbilling/reconcile-cli/internal/fetcher"
	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/monitoring"
	"github.com/opsbilling/reconcile-cli/internal/reconcile"
	"github.com/opsbilling/reconcile-cli/internal/resilience"
	"github.com/opsbilling/reconcile-cli/internal/store"
	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

// initStore opens the configured run-history backend and migrates it.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newTabsClient builds the platform client from config.
func newTabsClient() (tabs.Client, error) {
	if cfg.Tabs.Key == "" {
		return nil, eris.New("tabs.key is required (RECONCILE_TABS_KEY)")
	}
	return tabs.NewClient(cfg.Tabs.Key,
		tabs.WithBaseURL(cfg.Tabs.BaseURL),
		tabs.WithRateLimit(cfg.Tabs.RequestsPerSec),
		tabs.WithPageSize(cfg.Tabs.PageSize),
	), nil
}

// newRunner wires the pipeline runner. st may be nil to skip run history.
func newRunner(st store.Store) (*reconcile.Runner, error) {
	client, err := newTabsClient()
	if err != nil {
		return nil, err
	}
	return &reconcile.Runner{
		Client:  client,
		Policy:  resilience.DefaultPolicy(),
		History: st,
	}, nil
}

// resolvePriceBook materializes the price-book archive locally. FTP URLs are
// downloaded to a temp dir; anything else is treated as a local path.
func resolvePriceBook(ctx context.Context, raw string) (path string, cleanup func(), err error) {
	cleanup = func() {}
	if !strings.HasPrefix(raw, "ftp://") {
		return raw, cleanup, nil
	}

	dir, err := os.MkdirTemp("", "pricebook-*")
	if err != nil {
		return "", cleanup, eris.Wrap(err, "create temp dir")
	}
	cleanup = func() { os.RemoveAll(dir) }

	local, err := fetcher.DownloadFTP(ctx, raw, dir, fetcher.FTPOptions{
		User:     cfg.FTP.User,
		Password: cfg.FTP.Password,
		Timeout:  time.Duration(cfg.FTP.TimeoutSecs) * time.Second,
	})
	if err != nil {
		cleanup()
		return "", func() {}, eris.Wrapf(err, "download price book from %s", redactURL(raw))
	}
	return local, cleanup, nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	return u.String()
}

// notifyRunFinished sends a webhook alert for runs that ended failed.
// No-op unless monitoring.webhook_url is configured.
func notifyRunFinished(ctx context.Context, run *model.ReconciliationRun) {
	if cfg.Monitoring.WebhookURL == "" || run == nil {
		return
	}
	alerter := monitoring.NewAlerter(cfg.Monitoring)
	if alert := alerter.RunFinished(run.ID, string(run.Status), run.Summary.Failed()); alert != nil {
		alerter.SendAlerts(ctx, []monitoring.Alert{*alert})
	}
}

// parseRunDate accepts YYYY-MM-DD, defaulting to today in UTC.
func parseRunDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "run date %q must be YYYY-MM-DD", raw)
	}
	return t, nil
}
