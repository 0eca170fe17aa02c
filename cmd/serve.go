package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/monitoring"
	"github.com/opsbilling/reconcile-cli/internal/reconcile"
	"github.com/opsbilling/reconcile-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	Long:  "Exposes run history and an endpoint that triggers reconciliation runs asynchronously, for operator dashboards and schedulers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runner, err := newRunner(st)
		if err != nil {
			return err
		}

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, st, runner),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// triggerRequest is the body for POST /v1/runs. Paths are resolved on the
// server host; the price book may be an ftp:// URL.
type triggerRequest struct {
	PriceBook         string `json:"pricebook"`
	Prepaid           string `json:"prepaid,omitempty"`
	EnterpriseSupport string `json:"enterprise_support,omitempty"`
	RunDate           string `json:"run_date,omitempty"`
	DryRun            bool   `json:"dry_run,omitempty"`
}

func newRouter(baseCtx context.Context, st store.Store, runner *reconcile.Runner) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		var body triggerRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.PriceBook == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pricebook is required"})
			return
		}
		runDate, err := parseRunDate(body.RunDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		// The run outlives the request; progress lands in run history.
		go func() {
			zipPath, cleanup, err := resolvePriceBook(baseCtx, body.PriceBook)
			if err != nil {
				zap.L().Error("triggered run: price book fetch failed", zap.Error(err))
				return
			}
			defer cleanup()

			run, err := runner.Execute(baseCtx, reconcile.Options{
				PriceBookZip:          zipPath,
				PrepaidPath:           body.Prepaid,
				EnterpriseSupportPath: body.EnterpriseSupport,
				AliasFile:             cfg.Ingest.AliasFile,
				RunDate:               runDate,
				DryRun:                body.DryRun,
				Concurrency:           cfg.Batch.MaxConcurrentTenants,
			})
			notifyRunFinished(baseCtx, run)
			if err != nil {
				zap.L().Error("triggered run failed",
					zap.String("run_id", run.ID),
					zap.Error(err))
				return
			}
			zap.L().Info("triggered run finished",
				zap.String("run_id", run.ID),
				zap.String("status", string(run.Status)))
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":   "accepted",
			"run_date": runDate.Format("2006-01-02"),
		})
	})

	r.Get("/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		runs, err := st.ListRuns(req.Context(), store.RunFilter{
			Status: model.RunStatus(req.URL.Query().Get("status")),
			Limit:  limit,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	})

	r.Get("/v1/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			status := http.StatusInternalServerError
			if eris.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
