package reconcile

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/resilience"
	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

// Orchestrator uploads assembled contract requests to the platform. Tenants
// are independent: one tenant's failure marks that request failed and the
// rest keep going. Only idempotent reads are retried; create and mark calls
// run once and surface their error.
type Orchestrator struct {
	Client      tabs.Client
	Policy      resilience.Policy
	Concurrency int
}

// Upload drives every request to a terminal state. The returned error covers
// orchestration itself (context cancellation); per-tenant failures live on
// the requests.
func (o *Orchestrator) Upload(ctx context.Context, requests []*model.ContractRequest) error {
	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	// A catalog gap degrades lines to unlinked, it never blocks the upload.
	catalog, err := BuildCatalog(ctx, o.Client, o.Policy)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		zap.L().Warn("catalog fetch failed, uploading without event and item links", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, req := range requests {
		g.Go(func() error {
			o.processTenant(ctx, req, catalog)
			if err := ctx.Err(); err != nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// processTenant walks one request through the status machine. Every exit
// leaves the request terminal.
func (o *Orchestrator) processTenant(ctx context.Context, req *model.ContractRequest, catalog *Catalog) {
	log := zap.L().With(
		zap.String("tenant_id", req.TenantID),
		zap.String("business_key", req.BusinessKey))

	adopted, err := o.adoptExisting(ctx, req)
	if err != nil {
		req.Fail(&model.UploadError{TenantID: req.TenantID, Err: err})
		log.Error("contract lookup failed", zap.Error(err))
		return
	}
	if req.Terminal() {
		// Adopted a contract the platform already processed.
		log.Info("tenant already processed, skipping", zap.String("contract_id", req.ContractID))
		return
	}

	if !adopted {
		contract, err := o.Client.CreateContract(ctx, tabs.CreateContractRequest{
			CustomerID: req.PlatformID,
			Name:       req.BusinessKey,
		})
		if err != nil {
			req.Fail(&model.UploadError{TenantID: req.TenantID, Err: err})
			log.Error("contract creation failed", zap.Error(err))
			return
		}
		req.ContractID = contract.ID
		req.Transition(model.ContractCreated)
		log.Info("contract created", zap.String("contract_id", req.ContractID))

		for _, rec := range req.Records {
			eventTypeID, itemID := catalog.Resolve(rec.ProductCode)
			if _, err := o.Client.CreateObligation(ctx, req.ContractID, tabs.Obligation{
				BillingTermID: rec.BillingTermID,
				ProductCode:   rec.ProductCode,
				EventTypeID:   eventTypeID,
				ItemID:        itemID,
				Quantity:      rec.Quantity,
				UnitPrice:     rec.UnitPrice,
				Amount:        rec.Amount(),
			}); err != nil {
				req.Fail(&model.UploadError{TenantID: req.TenantID, Err: err})
				log.Error("obligation upload failed",
					zap.String("contract_id", req.ContractID),
					zap.String("billing_term_id", rec.BillingTermID),
					zap.Error(err))
				return
			}
		}
	}

	if err := o.Client.MarkContractProcessed(ctx, req.ContractID); err != nil {
		req.Fail(&model.MarkProcessedError{TenantID: req.TenantID, ContractID: req.ContractID, Err: err})
		log.Error("mark processed failed", zap.String("contract_id", req.ContractID), zap.Error(err))
		return
	}
	req.Transition(model.ContractMarkedProcessed)
	log.Info("contract processed",
		zap.String("contract_id", req.ContractID),
		zap.Int("records", len(req.Records)),
		zap.String("total_amount", req.TotalAmount.String()))
}

// adoptExisting checks the platform for a contract already carrying this
// run's business key. A match moves the request straight to created (or
// terminal when the platform shows it processed) and skips obligation
// upload, since those lines were pushed by the earlier run.
func (o *Orchestrator) adoptExisting(ctx context.Context, req *model.ContractRequest) (bool, error) {
	existing, err := resilience.DoVal(ctx, o.Policy, "list contracts", func(ctx context.Context) ([]tabs.Contract, error) {
		return o.Client.ListContracts(ctx, req.PlatformID)
	})
	if err != nil {
		return false, err
	}

	for _, c := range existing {
		if c.Name != req.BusinessKey {
			continue
		}
		req.ContractID = c.ID
		req.Transition(model.ContractCreated)
		if c.Status == tabs.ContractStatusProcessed {
			req.Transition(model.ContractMarkedProcessed)
		}
		zap.L().Info("adopted existing contract",
			zap.String("tenant_id", req.TenantID),
			zap.String("contract_id", c.ID),
			zap.String("platform_status", c.Status))
		return true, nil
	}
	return false, nil
}
