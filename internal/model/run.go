package model

import "time"

// RunStatus is the lifecycle state of a recorded reconciliation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial" // completed with failed tenants
	RunStatusFailed   RunStatus = "failed"
)

// ReconciliationRun holds all per-run state: the resolution table and presence
// set built once at run start (read-only afterward), the assembled requests,
// and the error accumulators. It is constructed fresh for every batch and
// discarded at run end; nothing here is shared across runs.
type ReconciliationRun struct {
	ID        string
	RunDate   time.Time
	Period    BillingPeriod
	Customers CustomerMap
	Presence  Presence
	Requests  []*ContractRequest
	Summary   *RunSummary
	Status    RunStatus
}

// TenantOutcome records where one tenant's contract request ended up.
type TenantOutcome struct {
	TenantID    string         `json:"tenant_id"`
	CustomerKey string         `json:"customer_key"`
	ContractID  string         `json:"contract_id,omitempty"`
	Status      ContractStatus `json:"status"`
	Records     int            `json:"records"`
	TotalAmount string         `json:"total_amount"`
	Error       string         `json:"error,omitempty"`
}

// RunSummary accumulates everything the operator needs to fix source data and
// re-run: per-file failures, per-row failures, unresolved customers, filter
// counts, and the terminal state of every tenant.
type RunSummary struct {
	FileErrors    []string        `json:"file_errors,omitempty"`
	RowErrors     []string        `json:"row_errors,omitempty"`
	Unresolved    []string        `json:"unresolved_customers,omitempty"`
	SkippedEmpty  []string        `json:"skipped_empty_tenants,omitempty"`
	InputRecords  int             `json:"input_records"`
	FilteredOut   int             `json:"filtered_out"`
	Outcomes      []TenantOutcome `json:"outcomes,omitempty"`
	UsageCSVBytes int             `json:"usage_csv_bytes"`
}

// AddFileError records a file-fatal input error.
func (s *RunSummary) AddFileError(err error) {
	s.FileErrors = append(s.FileErrors, err.Error())
}

// AddRowErrors records collected per-row errors.
func (s *RunSummary) AddRowErrors(errs []error) {
	for _, err := range errs {
		s.RowErrors = append(s.RowErrors, err.Error())
	}
}

// AddUnresolved records a customer key that failed registry resolution.
func (s *RunSummary) AddUnresolved(err *UnresolvedCustomerError) {
	s.Unresolved = append(s.Unresolved, err.Error())
}

// Failed counts tenants whose contract request ended in a failed state.
func (s *RunSummary) Failed() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == ContractFailed {
			n++
		}
	}
	return n
}

// Run is one recorded reconciliation run as persisted in the run-history
// store. Billing data itself is never persisted locally; the platform is the
// system of record. This row exists so an operator can audit and resume.
type Run struct {
	ID         string      `json:"id"`
	RunDate    time.Time   `json:"run_date"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}
