package reconcile

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/resilience"
	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

// BuildPresence fetches usage events for every resolved tenant over the
// billing period and collects the (tenant, billing term) pairs with recorded
// usage. Fetches run concurrently up to the given limit. Any fetch failure is
// fatal for the run: an incomplete presence set would silently drop valid
// price-book lines.
func BuildPresence(ctx context.Context, client tabs.Client, policy resilience.Policy, customers model.CustomerMap, period model.BillingPeriod, concurrency int) (model.Presence, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	presence := make(model.Presence)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, rc := range customers {
		g.Go(func() error {
			events, err := resilience.DoVal(ctx, policy, "list events", func(ctx context.Context) ([]tabs.Event, error) {
				return client.ListEvents(ctx, rc.PlatformID, period.Start, period.End)
			})
			if err != nil {
				return eris.Wrapf(err, "reconcile: fetch usage events for tenant %s", rc.TenantID)
			}

			mu.Lock()
			for _, ev := range events {
				if ev.BillingTermID != "" {
					presence.Add(rc.TenantID, ev.BillingTermID)
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("usage presence built",
		zap.Int("tenants", len(customers)),
		zap.Int("pairs", len(presence)))
	return presence, nil
}
