// Package reconcile implements the run pipeline: registry resolution, usage
// presence filtering, per-tenant contract assembly, usage CSV generation, and
// the upload orchestrator.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/resilience"
	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

// TenantIDField is the registry custom field that carries the operator-facing
// tenant identifier used as the customer key in every source file.
const TenantIDField = "Tenant ID"

// BuildCustomerMap snapshots the platform customer registry once and builds
// the per-run resolution table. Customers without the tenant-id custom field
// are skipped; they cannot appear in source files.
func BuildCustomerMap(ctx context.Context, client tabs.Client, policy resilience.Policy) (model.CustomerMap, error) {
	customers, err := resilience.DoVal(ctx, policy, "list customers", func(ctx context.Context) ([]tabs.Customer, error) {
		return client.ListCustomers(ctx)
	})
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: snapshot customer registry")
	}

	out := make(model.CustomerMap, len(customers))
	for _, c := range customers {
		tenantID := c.CustomField(TenantIDField)
		if tenantID == "" {
			continue
		}
		key := model.NormalizeKey(tenantID)
		if prev, ok := out[key]; ok {
			zap.L().Warn("duplicate tenant id in customer registry, keeping first",
				zap.String("tenant_id", tenantID),
				zap.String("kept_customer", prev.PlatformID),
				zap.String("dropped_customer", c.ID))
			continue
		}
		out[key] = model.ResolvedCustomer{
			Key:        key,
			TenantID:   tenantID,
			PlatformID: c.ID,
			Name:       c.Name,
		}
	}

	zap.L().Info("customer registry resolved",
		zap.Int("customers", len(customers)),
		zap.Int("mapped", len(out)))
	return out, nil
}
