package reconcile

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/opsbilling/reconcile-cli/internal/model"
)

var commitReportHeader = []string{
	"tenantId", "runDate", "meteredAmount", "prepaidAmount",
	"enterpriseSupportAmount", "totalAmount", "status",
}

// CommitReport breaks one tenant's contract down by commitment kind: what
// was metered this period, how much prepaid balance it drew, and the
// enterprise-support charge on top. Operators reconcile these rows against
// the commitment ledger after every billing run.
type CommitReport struct {
	TenantID          string
	RunDate           string
	Metered           decimal.Decimal
	Prepaid           decimal.Decimal
	EnterpriseSupport decimal.Decimal
	Total             decimal.Decimal
	Status            model.ContractStatus
}

// BuildCommitReports aggregates per-tenant commitment rows from assembled
// requests, in request (tenant id) order.
func BuildCommitReports(requests []*model.ContractRequest) []CommitReport {
	reports := make([]CommitReport, 0, len(requests))
	for _, req := range requests {
		rep := CommitReport{
			TenantID:          req.TenantID,
			RunDate:           req.BusinessKey[len(req.TenantID)+1:],
			Metered:           decimal.Zero,
			Prepaid:           decimal.Zero,
			EnterpriseSupport: decimal.Zero,
			Total:             req.TotalAmount,
			Status:            req.Status,
		}
		for _, rec := range req.Records {
			switch rec.Source {
			case model.SourcePriceBook:
				rep.Metered = rep.Metered.Add(rec.Amount())
			case model.SourcePrepaid:
				rep.Prepaid = rep.Prepaid.Add(rec.Amount())
			case model.SourceEnterpriseSupport:
				rep.EnterpriseSupport = rep.EnterpriseSupport.Add(rec.Amount())
			}
		}
		reports = append(reports, rep)
	}
	return reports
}

// WriteCommitReport writes the commitment breakdown as CSV.
func WriteCommitReport(w io.Writer, requests []*model.ContractRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(commitReportHeader); err != nil {
		return eris.Wrap(err, "reconcile: write report header")
	}
	for _, rep := range BuildCommitReports(requests) {
		row := []string{
			rep.TenantID,
			rep.RunDate,
			rep.Metered.String(),
			rep.Prepaid.String(),
			rep.EnterpriseSupport.String(),
			rep.Total.String(),
			string(rep.Status),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "reconcile: write report row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "reconcile: flush report")
}
