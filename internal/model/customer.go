package model

import "strings"

// ResolvedCustomer maps a raw customer key from a source file to the canonical
// platform customer. TenantID is the operator-facing tenant identifier from the
// registry custom field; PlatformID is the platform customer id used on API
// calls.
type ResolvedCustomer struct {
	Key        string `json:"key"`
	TenantID   string `json:"tenant_id"`
	PlatformID string `json:"platform_customer_id"`
	Name       string `json:"name"`
}

// NormalizeKey canonicalizes a raw customer key for lookup: spreadsheet
// formatting noise (stray whitespace, case drift) must not break resolution.
func NormalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// CustomerMap is the per-run read-only resolution table, keyed by normalized
// customer key.
type CustomerMap map[string]ResolvedCustomer

// Resolve looks up a raw key after normalization.
func (m CustomerMap) Resolve(raw string) (ResolvedCustomer, bool) {
	rc, ok := m[NormalizeKey(raw)]
	return rc, ok
}

// PresenceKey identifies one (tenant, billing term) pair with recorded usage.
type PresenceKey struct {
	TenantID      string
	BillingTermID string
}

// Presence is the per-run set of (tenant, billing term) pairs that have raw
// usage recorded in the platform. Membership is the sole authority for whether
// a price-book term is active: absence means exclude.
type Presence map[PresenceKey]struct{}

// Add records a pair as present.
func (p Presence) Add(tenantID, billingTermID string) {
	p[PresenceKey{TenantID: tenantID, BillingTermID: billingTermID}] = struct{}{}
}

// Has reports whether the pair has recorded usage.
func (p Presence) Has(tenantID, billingTermID string) bool {
	_, ok := p[PresenceKey{TenantID: tenantID, BillingTermID: billingTermID}]
	return ok
}
