package reconcile

import (
	"github.com/opsbilling/reconcile-cli/internal/model"
)

// Summarize fills the run summary's per-tenant outcomes from the terminal
// request states and derives the run status: failed when nothing uploaded,
// partial when some tenants failed or source data needs operator attention,
// complete otherwise.
func Summarize(run *model.ReconciliationRun) model.RunStatus {
	s := run.Summary

	s.Outcomes = s.Outcomes[:0]
	for _, req := range run.Requests {
		s.Outcomes = append(s.Outcomes, model.TenantOutcome{
			TenantID:    req.TenantID,
			CustomerKey: req.CustomerKey,
			ContractID:  req.ContractID,
			Status:      req.Status,
			Records:     len(req.Records),
			TotalAmount: req.TotalAmount.String(),
			Error:       req.Err,
		})
	}

	failed := s.Failed()
	switch {
	case len(run.Requests) > 0 && failed == len(run.Requests):
		return model.RunStatusFailed
	case failed > 0 || len(s.FileErrors) > 0 || len(s.Unresolved) > 0:
		return model.RunStatusPartial
	default:
		return model.RunStatusComplete
	}
}
