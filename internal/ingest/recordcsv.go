package ingest

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/opsbilling/reconcile-cli/internal/model"
)

var recordHeader = []string{
	"customerKey", "sourceType", "billingTermId", "productCode",
	"quantity", "unitPrice", "amount", "periodStart", "periodEnd",
}

// WriteRecordsCSV writes normalized records in file order, one row per record.
func WriteRecordsCSV(w io.Writer, records []model.BillingTermRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return eris.Wrap(err, "ingest: write record header")
	}
	for _, r := range records {
		row := []string{
			r.CustomerKey,
			string(r.Source),
			r.BillingTermID,
			r.ProductCode,
			r.Quantity.String(),
			r.UnitPrice.String(),
			r.Amount().String(),
			r.PeriodStart.Format("2006-01-02"),
			r.PeriodEnd.Format("2006-01-02"),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "ingest: write record row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "ingest: flush record csv")
}
