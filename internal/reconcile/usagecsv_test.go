package reconcile

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbilling/reconcile-cli/internal/fetcher"
	"github.com/opsbilling/reconcile-cli/internal/ingest"
	"github.com/opsbilling/reconcile-cli/internal/model"
)

func TestUsageCSV_ByteStable(t *testing.T) {
	presence := model.Presence{}
	presence.Add("42", "T1")
	presence.Add("42", "T2")

	records := []model.BillingTermRecord{
		rec("42", "T2", 2, 25, model.SourcePriceBook),
		rec("42", "T1", 10, 5, model.SourcePriceBook),
		rec("42", model.BillingTermPrepaid, 1, 50, model.SourcePrepaid),
	}
	res := Assemble(records, testCustomers(), presence, testRunDate)

	want := "tenantId,sourceType,billingTermId,productCode,quantity,unitPrice,amount\n" +
		"42,price_book,T1,T1-product,10,5,50\n" +
		"42,price_book,T2,T2-product,2,25,50\n" +
		"42,prepaid,PREPAID,PREPAID-product,1,50,50\n"

	got, err := UsageCSV(res.Requests)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	again, err := UsageCSV(res.Requests)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestUsageCSV_RoundTripsThroughSchemaResolution(t *testing.T) {
	presence := model.Presence{}
	presence.Add("42", "T1")
	presence.Add("7", "T2")

	records := []model.BillingTermRecord{
		rec("42", "T1", 10, 5, model.SourcePriceBook),
		rec("7", "T2", 3, 7, model.SourcePriceBook),
		rec("42", model.BillingTermPrepaid, 1, 50, model.SourcePrepaid),
	}
	res := Assemble(records, testCustomers(), presence, testRunDate)

	out, err := UsageCSV(res.Requests)
	require.NoError(t, err)

	rows, err := fetcher.ReadCSV(bytes.NewReader(out), fetcher.CSVOptions{TrimSpace: true})
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	schema := ingest.Schema{
		Aliases: map[ingest.Field][]string{
			ingest.FieldCustomerKey: {"tenantid"},
			ingest.FieldBillingTerm: {"billingtermid"},
			ingest.FieldQuantity:    {"quantity"},
			ingest.FieldUnitPrice:   {"unitprice"},
		},
		Required: []ingest.Field{
			ingest.FieldCustomerKey, ingest.FieldBillingTerm,
			ingest.FieldQuantity, ingest.FieldUnitPrice,
		},
	}
	cols, missing := schema.Resolve(rows[0])
	require.Empty(t, missing)

	tuple := func(tenant, term, qty, price string) string {
		return fmt.Sprintf("%s|%s|%s|%s", tenant, term, qty, price)
	}

	got := make(map[string]bool)
	for _, row := range rows[1:] {
		got[tuple(
			row[cols[ingest.FieldCustomerKey]],
			row[cols[ingest.FieldBillingTerm]],
			row[cols[ingest.FieldQuantity]],
			row[cols[ingest.FieldUnitPrice]],
		)] = true
	}

	want := make(map[string]bool)
	for _, req := range res.Requests {
		for _, r := range req.Records {
			want[tuple(req.TenantID, r.BillingTermID, r.Quantity.String(), r.UnitPrice.String())] = true
		}
	}
	assert.Equal(t, want, got)
}

func TestUsageCSV_EmptyRequestsHeaderOnly(t *testing.T) {
	got, err := UsageCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "tenantId,sourceType,billingTermId,productCode,quantity,unitPrice,amount\n", string(got))
}
