package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/model"
)

// sourceRank orders contributing records inside a contract: metered
// price-book lines first, then the committed supplemental lines.
var sourceRank = map[model.SourceType]int{
	model.SourcePriceBook:         0,
	model.SourcePrepaid:           1,
	model.SourceEnterpriseSupport: 2,
}

// AssembleResult is the outcome of partitioning normalized records into
// per-tenant contract requests.
type AssembleResult struct {
	Requests     []*model.ContractRequest
	Unresolved   []*model.UnresolvedCustomerError
	SkippedEmpty []*model.EmptyGroupError
	FilteredOut  int
}

// Assemble resolves every record's customer key, drops price-book lines with
// no recorded usage, and merges what remains into exactly one contract
// request per tenant. Supplemental records bypass the presence filter; their
// amounts are committed regardless of usage. Requests come back sorted by
// tenant id so output and upload order are deterministic.
func Assemble(records []model.BillingTermRecord, customers model.CustomerMap, presence model.Presence, runDate time.Time) *AssembleResult {
	res := &AssembleResult{}

	type group struct {
		customer model.ResolvedCustomer
		records  []model.BillingTermRecord
	}
	groups := make(map[string]*group)
	unresolvedCount := make(map[string]*model.UnresolvedCustomerError)
	var unresolvedOrder []string

	for _, rec := range records {
		rc, ok := customers.Resolve(rec.CustomerKey)
		if !ok {
			ukey := model.NormalizeKey(rec.CustomerKey) + "\x00" + string(rec.Source)
			if e, seen := unresolvedCount[ukey]; seen {
				e.Records++
			} else {
				e = &model.UnresolvedCustomerError{CustomerKey: rec.CustomerKey, Source: rec.Source, Records: 1}
				unresolvedCount[ukey] = e
				unresolvedOrder = append(unresolvedOrder, ukey)
			}
			continue
		}

		g := groups[rc.TenantID]
		if g == nil {
			g = &group{customer: rc}
			groups[rc.TenantID] = g
		}
		if !rec.Supplemental() && !presence.Has(rc.TenantID, rec.BillingTermID) {
			res.FilteredOut++
			continue
		}
		g.records = append(g.records, rec)
	}

	for _, ukey := range unresolvedOrder {
		res.Unresolved = append(res.Unresolved, unresolvedCount[ukey])
	}

	tenantIDs := make([]string, 0, len(groups))
	for id := range groups {
		tenantIDs = append(tenantIDs, id)
	}
	sort.Strings(tenantIDs)

	for _, tenantID := range tenantIDs {
		g := groups[tenantID]
		if len(g.records) == 0 {
			e := &model.EmptyGroupError{TenantID: tenantID}
			res.SkippedEmpty = append(res.SkippedEmpty, e)
			zap.L().Info("tenant skipped, no contributing records after filtering",
				zap.String("tenant_id", tenantID))
			continue
		}

		sort.SliceStable(g.records, func(i, j int) bool {
			a, b := g.records[i], g.records[j]
			if sourceRank[a.Source] != sourceRank[b.Source] {
				return sourceRank[a.Source] < sourceRank[b.Source]
			}
			return a.BillingTermID < b.BillingTermID
		})

		derivePercentPrices(g.records)

		total := decimal.Zero
		for _, rec := range g.records {
			total = total.Add(rec.Amount())
		}

		res.Requests = append(res.Requests, &model.ContractRequest{
			TenantID:    tenantID,
			PlatformID:  g.customer.PlatformID,
			CustomerKey: g.customer.Key,
			BusinessKey: BusinessKey(tenantID, runDate),
			Records:     g.records,
			TotalAmount: total,
			Status:      model.ContractPending,
		})
	}

	return res
}

// derivePercentPrices fills in the price of percent-based enterprise-support
// lines: the tenant's surviving metered consumption times the recorded
// fraction. Runs after the presence filter so filtered lines never count
// toward the base.
func derivePercentPrices(records []model.BillingTermRecord) {
	base := decimal.Zero
	for _, rec := range records {
		if rec.Source == model.SourcePriceBook {
			base = base.Add(rec.Amount())
		}
	}
	for i, rec := range records {
		if rec.Source == model.SourceEnterpriseSupport && rec.Percent.IsPositive() {
			records[i].UnitPrice = base.Mul(rec.Percent)
		}
	}
}

// BusinessKey is the deterministic contract name for a tenant's run. The
// platform is queried for it on re-runs so completed tenants are not uploaded
// twice.
func BusinessKey(tenantID string, runDate time.Time) string {
	return fmt.Sprintf("%s_%s", tenantID, runDate.Format("2006-01-02"))
}
