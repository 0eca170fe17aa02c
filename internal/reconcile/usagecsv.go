package reconcile

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/opsbilling/reconcile-cli/internal/model"
)

var usageHeader = []string{"tenantId", "sourceType", "billingTermId", "productCode", "quantity", "unitPrice", "amount"}

// WriteUsageCSV emits the per-run usage file: one row per contributing
// record, in contract order. The same requests always produce the same
// bytes, so successive runs over unchanged inputs can be diffed.
func WriteUsageCSV(w io.Writer, requests []*model.ContractRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(usageHeader); err != nil {
		return eris.Wrap(err, "reconcile: write usage header")
	}
	for _, req := range requests {
		for _, rec := range req.Records {
			row := []string{
				req.TenantID,
				string(rec.Source),
				rec.BillingTermID,
				rec.ProductCode,
				rec.Quantity.String(),
				rec.UnitPrice.String(),
				rec.Amount().String(),
			}
			if err := cw.Write(row); err != nil {
				return eris.Wrapf(err, "reconcile: write usage row for tenant %s", req.TenantID)
			}
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "reconcile: flush usage csv")
}

// UsageCSV renders the usage file to a byte slice.
func UsageCSV(requests []*model.ContractRequest) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteUsageCSV(&buf, requests); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
