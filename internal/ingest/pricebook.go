package ingest

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/fetcher"
	"github.com/opsbilling/reconcile-cli/internal/model"
)

// Result carries both the successfully normalized records and the collected
// per-file and per-row failures, so a bad sheet or row never aborts the batch.
type Result struct {
	Records    []model.BillingTermRecord
	RowErrors  []error // *model.RowParseError
	FileErrors []error // *model.MalformedInputError
}

// tenantFilePattern extracts the tenant code from per-tenant price-book entry
// names like price_by_sku_40_Koch_SFDC#00000190.xlsx.
var tenantFilePattern = regexp.MustCompile(`price_by_sku_(\d+)_`)

// formula error artifacts exported by spreadsheet tools into numeric cells
var formulaErrors = []string{"#REF", "#N/A", "#VALUE", "#DIV/0"}

var dataExtensions = []string{".csv", ".xlsx", ".xls"}

// NormalizePriceBook extracts every tabular sheet from the price-book archive
// and normalizes it to billing-term records. Only an unreadable archive is
// run-fatal; everything below that is collected into the Result.
func NormalizePriceBook(zipPath string, period model.BillingPeriod, schema Schema) (*Result, error) {
	entries, err := fetcher.ReadZIP(zipPath, dataExtensions)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read price book archive")
	}
	if len(entries) == 0 {
		return nil, eris.Errorf("ingest: archive %s contains no data files", zipPath)
	}

	res := &Result{}
	seen := make(map[string]bool) // (customerKey, billingTermID) within this batch

	for _, entry := range entries {
		fileKey := ""
		if m := tenantFilePattern.FindStringSubmatch(entry.Name); m != nil {
			fileKey = m[1]
		}
		normalizeSheet(res, entry, fileKey, period, schema, seen)
	}

	zap.L().Info("ingest: price book normalized",
		zap.Int("files", len(entries)),
		zap.Int("records", len(res.Records)),
		zap.Int("row_errors", len(res.RowErrors)),
		zap.Int("file_errors", len(res.FileErrors)),
	)
	return res, nil
}

func normalizeSheet(res *Result, entry fetcher.ZipEntry, fileKey string, period model.BillingPeriod, schema Schema, seen map[string]bool) {
	rows, err := sheetData(entry)
	if err != nil {
		res.FileErrors = append(res.FileErrors, &model.MalformedInputError{File: entry.Name, Reason: err.Error()})
		return
	}
	if len(rows) == 0 {
		res.FileErrors = append(res.FileErrors, &model.MalformedInputError{File: entry.Name, Reason: "empty sheet"})
		return
	}

	// A sheet without a filename tenant must carry the identity column itself.
	effective := schema
	if fileKey == "" {
		effective = schema.WithRequired(append([]Field{FieldCustomerKey}, schema.Required...)...)
	}

	cols, missing := effective.Resolve(rows[0])
	if len(missing) > 0 {
		res.FileErrors = append(res.FileErrors, &model.MalformedInputError{
			File:   entry.Name,
			Reason: fmt.Sprintf("missing required columns: %s", fieldNames(missing)),
		})
		return
	}

	for i, row := range rows[1:] {
		rowNum := i + 1
		if emptyRow(row) {
			continue
		}

		rec, reason := buildRecord(row, cols, fileKey, period)
		if reason != "" {
			res.RowErrors = append(res.RowErrors, &model.RowParseError{File: entry.Name, Row: rowNum, Reason: reason})
			continue
		}

		dupKey := model.NormalizeKey(rec.CustomerKey) + "\x00" + rec.BillingTermID
		if seen[dupKey] {
			res.RowErrors = append(res.RowErrors, &model.RowParseError{
				File:   entry.Name,
				Row:    rowNum,
				Reason: fmt.Sprintf("duplicate billing term %q for customer %q", rec.BillingTermID, rec.CustomerKey),
			})
			continue
		}
		seen[dupKey] = true

		res.Records = append(res.Records, rec)
	}
}

func buildRecord(row []string, cols Columns, fileKey string, period model.BillingPeriod) (model.BillingTermRecord, string) {
	var zero model.BillingTermRecord

	customerKey := fileKey
	if idx, ok := cols[FieldCustomerKey]; ok {
		if v := strings.TrimSpace(cell(row, idx)); v != "" {
			customerKey = v
		}
	}
	if customerKey == "" {
		return zero, "missing customer identity"
	}

	termID := strings.TrimSpace(cell(row, cols[FieldBillingTerm]))
	if termID == "" {
		return zero, "missing billing term id"
	}

	qty, err := parseDecimal(cell(row, cols[FieldQuantity]))
	if err != nil {
		return zero, fmt.Sprintf("quantity: %v", err)
	}
	if qty.IsNegative() {
		return zero, fmt.Sprintf("quantity %s is negative", qty)
	}

	price, err := parseDecimal(cell(row, cols[FieldUnitPrice]))
	if err != nil {
		return zero, fmt.Sprintf("unit price: %v", err)
	}

	rec := model.BillingTermRecord{
		CustomerKey:   customerKey,
		BillingTermID: termID,
		Quantity:      qty,
		UnitPrice:     price,
		Source:        model.SourcePriceBook,
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
	}
	if idx, ok := cols[FieldProduct]; ok {
		rec.ProductCode = strings.TrimSpace(cell(row, idx))
	}
	return rec, ""
}

func sheetData(entry fetcher.ZipEntry) ([][]string, error) {
	switch strings.ToLower(path.Ext(entry.Name)) {
	case ".csv":
		return fetcher.ReadCSV(strings.NewReader(string(entry.Data)), fetcher.CSVOptions{TrimSpace: true})
	default:
		return fetcher.ReadXLSXBytes(entry.Data, "")
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseDecimal parses a spreadsheet numeric cell, absorbing currency symbols
// and thousands separators, and rejecting formula error artifacts outright.
func parseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, eris.New("empty value")
	}

	upper := strings.ToUpper(s)
	for _, fe := range formulaErrors {
		if strings.Contains(upper, fe) {
			return decimal.Zero, eris.Errorf("formula error %s", s)
		}
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, eris.Errorf("not a number: %q", raw)
	}
	return d, nil
}
