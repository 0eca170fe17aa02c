package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/reconcile"
)

var (
	reconcilePriceBook  string
	reconcilePrepaid    string
	reconcileEnterprise string
	reconcileRunDate    string
	reconcileOut        string
	reconcileReport     string
	reconcileDryRun     bool
	reconcileWorkers    int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run the full reconciliation batch",
	Long:  "Normalizes the price-book archive and supplemental sheets, resolves customers against the platform registry, filters against recorded usage, writes the usage CSV, and uploads one contract per tenant.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runDate, err := parseRunDate(reconcileRunDate)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runner, err := newRunner(st)
		if err != nil {
			return err
		}

		zipPath, cleanup, err := resolvePriceBook(ctx, reconcilePriceBook)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := reconcile.Options{
			PriceBookZip:          zipPath,
			PrepaidPath:           reconcilePrepaid,
			EnterpriseSupportPath: reconcileEnterprise,
			AliasFile:             cfg.Ingest.AliasFile,
			RunDate:               runDate,
			DryRun:                reconcileDryRun,
			Concurrency:           workers(),
		}

		if reconcileOut != "" {
			f, err := os.Create(reconcileOut)
			if err != nil {
				return eris.Wrapf(err, "create usage file %s", reconcileOut)
			}
			defer f.Close()
			opts.UsageOut = f
		}

		if reconcileReport != "" {
			f, err := os.Create(reconcileReport)
			if err != nil {
				return eris.Wrapf(err, "create report file %s", reconcileReport)
			}
			defer f.Close()
			opts.ReportOut = f
		}

		run, err := runner.Execute(ctx, opts)
		notifyRunFinished(ctx, run)
		if err != nil {
			return eris.Wrap(err, "reconcile run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newRunReport(run)); err != nil {
			return err
		}

		if run.Status == model.RunStatusFailed {
			return eris.Errorf("run %s failed: no tenant reached processed state", run.ID)
		}
		if run.Status == model.RunStatusPartial {
			zap.L().Warn("run completed with issues",
				zap.String("run_id", run.ID),
				zap.Int("failed_tenants", run.Summary.Failed()),
				zap.Int("unresolved_customers", len(run.Summary.Unresolved)))
		}
		return nil
	},
}

func workers() int {
	if reconcileWorkers > 0 {
		return reconcileWorkers
	}
	return cfg.Batch.MaxConcurrentTenants
}

// runReport is the operator-facing JSON shape printed after a run.
type runReport struct {
	ID      string            `json:"id"`
	RunDate string            `json:"run_date"`
	Status  model.RunStatus   `json:"status"`
	Summary *model.RunSummary `json:"summary"`
}

func newRunReport(run *model.ReconciliationRun) runReport {
	return runReport{
		ID:      run.ID,
		RunDate: run.RunDate.Format("2006-01-02"),
		Status:  run.Status,
		Summary: run.Summary,
	}
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcilePriceBook, "pricebook", "", "price-book ZIP archive: local path or ftp:// URL (required)")
	reconcileCmd.Flags().StringVar(&reconcilePrepaid, "prepaid", "", "prepaid supplemental sheet (csv or xlsx)")
	reconcileCmd.Flags().StringVar(&reconcileEnterprise, "enterprise-support", "", "enterprise-support supplemental sheet (csv or xlsx)")
	reconcileCmd.Flags().StringVar(&reconcileRunDate, "run-date", "", "run date YYYY-MM-DD (default today)")
	reconcileCmd.Flags().StringVar(&reconcileOut, "out", "", "write the usage CSV to this path")
	reconcileCmd.Flags().StringVar(&reconcileReport, "report", "", "write the per-tenant commitment report CSV to this path")
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "assemble and write the usage CSV without uploading")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "concurrency", 0, "max concurrent tenants (default from config)")
	_ = reconcileCmd.MarkFlagRequired("pricebook")
	rootCmd.AddCommand(reconcileCmd)
}
