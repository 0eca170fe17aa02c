package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceType identifies which input artifact a billing-term record came from.
type SourceType string

const (
	SourcePriceBook         SourceType = "price_book"
	SourcePrepaid           SourceType = "prepaid"
	SourceEnterpriseSupport SourceType = "enterprise_support"
)

// Fixed billing-term codes for supplemental entries. Supplemental files carry
// one committed line per customer rather than a per-row term column.
const (
	BillingTermPrepaid           = "PREPAID"
	BillingTermEnterpriseSupport = "ENTERPRISE-SUPPORT"
)

// BillingTermRecord is one normalized row of the price book or a supplemental
// entry. Loaders emit records with fixed prices, except enterprise-support
// lines expressed as a share of consumption: those carry Percent and a zero
// unit price until assembly derives the price from the tenant's metered
// lines.
type BillingTermRecord struct {
	CustomerKey   string          `json:"customer_key"`
	BillingTermID string          `json:"billing_term_id"`
	ProductCode   string          `json:"product_code"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Percent       decimal.Decimal `json:"percent"`
	Source        SourceType      `json:"source"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
}

// Amount returns quantity × unit price for this record.
func (r BillingTermRecord) Amount() decimal.Decimal {
	return r.Quantity.Mul(r.UnitPrice)
}

// Supplemental reports whether the record came from a committed-amount source
// (prepaid or enterprise support) rather than the metered price book.
func (r BillingTermRecord) Supplemental() bool {
	return r.Source == SourcePrepaid || r.Source == SourceEnterpriseSupport
}

// BillingPeriod is the window a reconciliation batch covers.
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// PeriodFrom derives the standard 30-day billing window from a run date.
func PeriodFrom(runDate time.Time) BillingPeriod {
	return BillingPeriod{Start: runDate, End: runDate.AddDate(0, 0, 30)}
}
