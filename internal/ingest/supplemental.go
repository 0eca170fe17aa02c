package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/fetcher"
	"github.com/opsbilling/reconcile-cli/internal/model"
)

var one = decimal.NewFromInt(1)
var negOne = decimal.NewFromInt(-1)
var hundred = decimal.NewFromInt(100)

// LoadSupplemental parses a prepaid or enterprise-support sheet into
// billing-term records tagged with the given source type. These sheets carry
// one committed line per customer and a fixed billing-term code rather than a
// per-row term column.
func LoadSupplemental(path string, source model.SourceType, period model.BillingPeriod, schema Schema) (*Result, error) {
	if source != model.SourcePrepaid && source != model.SourceEnterpriseSupport {
		return nil, eris.Errorf("ingest: %q is not a supplemental source type", source)
	}

	rows, err := supplementalRows(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s file", source)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("ingest: %s file %s is empty", source, path)
	}

	fileName := filepath.Base(path)
	res := &Result{}

	cols, missing := schema.Resolve(rows[0])
	if len(missing) > 0 {
		res.FileErrors = append(res.FileErrors, &model.MalformedInputError{
			File:   fileName,
			Reason: fmt.Sprintf("missing required columns: %s", fieldNames(missing)),
		})
		return res, nil
	}

	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		rowNum := i + 1
		if emptyRow(row) {
			continue
		}

		rec, reason := buildSupplemental(row, cols, source, period)
		if reason != "" {
			res.RowErrors = append(res.RowErrors, &model.RowParseError{File: fileName, Row: rowNum, Reason: reason})
			continue
		}

		key := model.NormalizeKey(rec.CustomerKey)
		if seen[key] {
			res.RowErrors = append(res.RowErrors, &model.RowParseError{
				File:   fileName,
				Row:    rowNum,
				Reason: fmt.Sprintf("duplicate %s entry for customer %q", source, rec.CustomerKey),
			})
			continue
		}
		seen[key] = true

		res.Records = append(res.Records, rec)
	}

	zap.L().Info("ingest: supplemental loaded",
		zap.String("source", string(source)),
		zap.Int("records", len(res.Records)),
		zap.Int("row_errors", len(res.RowErrors)),
	)
	return res, nil
}

func buildSupplemental(row []string, cols Columns, source model.SourceType, period model.BillingPeriod) (model.BillingTermRecord, string) {
	var zero model.BillingTermRecord

	customerKey := strings.TrimSpace(cell(row, cols[FieldCustomerKey]))
	if customerKey == "" {
		return zero, "missing customer identity"
	}

	qty := one
	if idx, ok := cols[FieldQuantity]; ok && strings.TrimSpace(cell(row, idx)) != "" {
		parsed, err := parseDecimal(cell(row, idx))
		if err != nil {
			return zero, fmt.Sprintf("quantity: %v", err)
		}
		if parsed.IsNegative() {
			return zero, fmt.Sprintf("quantity %s is negative", parsed)
		}
		qty = parsed
	}

	price, percent, reason := supplementalPrice(row, cols, source)
	if reason != "" {
		return zero, reason
	}

	rec := model.BillingTermRecord{
		CustomerKey: customerKey,
		Quantity:    qty,
		UnitPrice:   price,
		Percent:     percent,
		Source:      source,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
	}
	switch source {
	case model.SourcePrepaid:
		rec.BillingTermID = model.BillingTermPrepaid
		rec.ProductCode = "Prepaid"
	case model.SourceEnterpriseSupport:
		rec.BillingTermID = model.BillingTermEnterpriseSupport
		rec.ProductCode = "Enterprise Support"
	}
	return rec, ""
}

// supplementalPrice picks the entry amount. Explicit amount columns win. An
// enterprise-support percentage column ("50" and "50%" both mean half) is not
// a price: the row keeps the normalized fraction and assembly derives the
// amount from that share of the tenant's metered consumption. With neither
// column the conventional unit amounts apply: +1 for enterprise support,
// -1 for prepaid draw-down.
func supplementalPrice(row []string, cols Columns, source model.SourceType) (price, percent decimal.Decimal, reason string) {
	if idx, ok := cols[FieldUnitPrice]; ok && strings.TrimSpace(cell(row, idx)) != "" {
		d, err := parseDecimal(cell(row, idx))
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Sprintf("amount: %v", err)
		}
		return d, decimal.Zero, ""
	}

	if idx, ok := cols[FieldPercent]; ok && source == model.SourceEnterpriseSupport && strings.TrimSpace(cell(row, idx)) != "" {
		raw := strings.TrimSuffix(strings.TrimSpace(cell(row, idx)), "%")
		d, err := parseDecimal(raw)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Sprintf("percent: %v", err)
		}
		if d.GreaterThan(one) {
			d = d.Div(hundred)
		}
		return decimal.Zero, d, ""
	}

	if source == model.SourcePrepaid {
		return negOne, decimal.Zero, ""
	}
	return one, decimal.Zero, ""
}

func supplementalRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return fetcher.ReadCSV(f, fetcher.CSVOptions{TrimSpace: true})
	case ".xlsx", ".xls":
		return fetcher.ReadXLSX(path, "")
	default:
		return nil, eris.Errorf("unsupported file type %s", filepath.Ext(path))
	}
}
