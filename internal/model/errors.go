package model

import "fmt"

// MalformedInputError reports a structurally unusable input file: unreadable
// archive entry, or a required column missing from the header row. Fatal for
// that file, not for the run.
type MalformedInputError struct {
	File   string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s: %s", e.File, e.Reason)
}

// RowParseError reports a single unparseable row. Collected, never fatal: one
// bad row must not block the rest of the sheet.
type RowParseError struct {
	File   string
	Row    int // 1-based data row number, excluding the header
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.File, e.Row, e.Reason)
}

// UnresolvedCustomerError reports a customer key with no registry match. The
// customer's records are excluded downstream but the error stays visible in
// the run summary so the operator can fix the source data.
type UnresolvedCustomerError struct {
	CustomerKey string
	Source      SourceType
	Records     int
}

func (e *UnresolvedCustomerError) Error() string {
	return fmt.Sprintf("customer %q (%s, %d records): no registry match", e.CustomerKey, e.Source, e.Records)
}

// EmptyGroupError reports a tenant left with zero contributing records after
// filtering. The tenant is skipped, not surfaced as a contract.
type EmptyGroupError struct {
	TenantID string
}

func (e *EmptyGroupError) Error() string {
	return fmt.Sprintf("tenant %s: no contributing records after filtering", e.TenantID)
}

// UploadError reports a failed contract-creation or obligation-upload call.
// Marks that tenant failed; other tenants keep processing.
type UploadError struct {
	TenantID string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("tenant %s: upload failed: %v", e.TenantID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// MarkProcessedError reports a failed mark-as-processed call after the
// contract itself was created. The contract remains valid platform-side.
type MarkProcessedError struct {
	TenantID   string
	ContractID string
	Err        error
}

func (e *MarkProcessedError) Error() string {
	return fmt.Sprintf("tenant %s: mark processed failed for contract %s: %v", e.TenantID, e.ContractID, e.Err)
}

func (e *MarkProcessedError) Unwrap() error { return e.Err }
