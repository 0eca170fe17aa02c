package reconcile

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/ingest"
	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/resilience"
	"github.com/opsbilling/reconcile-cli/internal/store"
	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

// Options configures one reconciliation run.
type Options struct {
	PriceBookZip          string
	PrepaidPath           string // optional
	EnterpriseSupportPath string // optional
	AliasFile             string // optional header-alias overrides
	RunDate               time.Time
	DryRun                bool
	Concurrency           int
	UsageOut              io.Writer // optional usage CSV destination
	ReportOut             io.Writer // optional commitment report destination
}

// Runner wires the pipeline stages into a full run.
type Runner struct {
	Client tabs.Client
	Policy resilience.Policy

	// History, when set, receives a row at run start and its terminal
	// status at run end. Persistence failures are logged, never fatal:
	// losing a history row must not lose a billing run.
	History store.Store
}

// Execute performs one reconciliation run end to end: normalize inputs,
// resolve the registry, build presence, assemble per-tenant requests, write
// the usage file, and (unless dry-run) upload. A returned error means the
// run could not proceed at all; data-quality problems land in the summary
// and the run status instead.
func (r *Runner) Execute(ctx context.Context, opts Options) (*model.ReconciliationRun, error) {
	run := &model.ReconciliationRun{
		ID:      uuid.NewString(),
		RunDate: opts.RunDate,
		Period:  model.PeriodFrom(opts.RunDate),
		Summary: &model.RunSummary{},
		Status:  model.RunStatusRunning,
	}
	r.recordStart(ctx, run)
	err := r.execute(ctx, run, opts)
	r.recordFinish(ctx, run)
	return run, err
}

func (r *Runner) execute(ctx context.Context, run *model.ReconciliationRun, opts Options) error {
	log := zap.L().With(
		zap.String("run_id", run.ID),
		zap.String("run_date", opts.RunDate.Format("2006-01-02")))
	log.Info("reconciliation run starting", zap.Bool("dry_run", opts.DryRun))

	records, err := r.loadInputs(run, opts)
	if err != nil {
		run.Status = model.RunStatusFailed
		return err
	}
	run.Summary.InputRecords = len(records)

	run.Customers, err = BuildCustomerMap(ctx, r.Client, r.Policy)
	if err != nil {
		run.Status = model.RunStatusFailed
		return err
	}
	run.Presence, err = BuildPresence(ctx, r.Client, r.Policy, run.Customers, run.Period, opts.Concurrency)
	if err != nil {
		run.Status = model.RunStatusFailed
		return err
	}

	asm := Assemble(records, run.Customers, run.Presence, opts.RunDate)
	run.Requests = asm.Requests
	run.Summary.FilteredOut = asm.FilteredOut
	for _, u := range asm.Unresolved {
		run.Summary.AddUnresolved(u)
	}
	for _, e := range asm.SkippedEmpty {
		run.Summary.SkippedEmpty = append(run.Summary.SkippedEmpty, e.TenantID)
	}

	usage, err := UsageCSV(run.Requests)
	if err != nil {
		run.Status = model.RunStatusFailed
		return err
	}
	run.Summary.UsageCSVBytes = len(usage)
	if opts.UsageOut != nil {
		if _, err := opts.UsageOut.Write(usage); err != nil {
			run.Status = model.RunStatusFailed
			return eris.Wrap(err, "reconcile: write usage file")
		}
	}

	if opts.DryRun {
		run.Status = Summarize(run)
		if err := r.writeReport(run, opts); err != nil {
			return err
		}
		log.Info("dry run complete",
			zap.Int("tenants", len(run.Requests)),
			zap.Int("filtered_out", asm.FilteredOut))
		return nil
	}

	orch := &Orchestrator{Client: r.Client, Policy: r.Policy, Concurrency: opts.Concurrency}
	if err := orch.Upload(ctx, run.Requests); err != nil {
		run.Status = model.RunStatusFailed
		return eris.Wrap(err, "reconcile: upload interrupted")
	}

	run.Status = Summarize(run)
	if err := r.writeReport(run, opts); err != nil {
		return err
	}
	log.Info("reconciliation run finished",
		zap.String("status", string(run.Status)),
		zap.Int("tenants", len(run.Requests)),
		zap.Int("failed_tenants", run.Summary.Failed()))
	return nil
}

// writeReport emits the per-tenant commitment breakdown once terminal
// statuses are known.
func (r *Runner) writeReport(run *model.ReconciliationRun, opts Options) error {
	if opts.ReportOut == nil {
		return nil
	}
	if err := WriteCommitReport(opts.ReportOut, run.Requests); err != nil {
		run.Status = model.RunStatusFailed
		return err
	}
	return nil
}

func (r *Runner) recordStart(ctx context.Context, run *model.ReconciliationRun) {
	if r.History == nil {
		return
	}
	if _, err := r.History.CreateRun(ctx, run.ID, run.RunDate); err != nil {
		zap.L().Warn("run history insert failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (r *Runner) recordFinish(ctx context.Context, run *model.ReconciliationRun) {
	if r.History == nil {
		return
	}
	if err := r.History.FinishRun(ctx, run.ID, run.Status, run.Summary); err != nil {
		zap.L().Warn("run history update failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// loadInputs normalizes the price book and any supplemental files.
// Supplemental files that cannot be read are recorded as file errors rather
// than aborting the run; only an unusable price-book archive is fatal.
func (r *Runner) loadInputs(run *model.ReconciliationRun, opts Options) ([]model.BillingTermRecord, error) {
	pbSchema := ingest.PriceBookSchema()
	supSchema := ingest.SupplementalSchema()
	if opts.AliasFile != "" {
		var err error
		if pbSchema, err = ingest.LoadAliases(pbSchema, opts.AliasFile); err != nil {
			return nil, err
		}
		if supSchema, err = ingest.LoadAliases(supSchema, opts.AliasFile); err != nil {
			return nil, err
		}
	}

	pb, err := ingest.NormalizePriceBook(opts.PriceBookZip, run.Period, pbSchema)
	if err != nil {
		return nil, err
	}
	records := pb.Records
	r.collect(run, pb)

	for _, sup := range []struct {
		path   string
		source model.SourceType
	}{
		{opts.PrepaidPath, model.SourcePrepaid},
		{opts.EnterpriseSupportPath, model.SourceEnterpriseSupport},
	} {
		if sup.path == "" {
			continue
		}
		res, err := ingest.LoadSupplemental(sup.path, sup.source, run.Period, supSchema)
		if err != nil {
			run.Summary.AddFileError(err)
			zap.L().Error("supplemental file unusable",
				zap.String("path", sup.path),
				zap.String("source", string(sup.source)),
				zap.Error(err))
			continue
		}
		records = append(records, res.Records...)
		r.collect(run, res)
	}

	return records, nil
}

func (r *Runner) collect(run *model.ReconciliationRun, res *ingest.Result) {
	for _, err := range res.FileErrors {
		run.Summary.AddFileError(err)
	}
	run.Summary.AddRowErrors(res.RowErrors)
}
