package model

import (
	"github.com/shopspring/decimal"
)

// ContractStatus is the upload state of one per-tenant contract request.
type ContractStatus string

const (
	ContractPending         ContractStatus = "pending"
	ContractCreated         ContractStatus = "created"
	ContractMarkedProcessed ContractStatus = "marked_processed"
	ContractFailed          ContractStatus = "failed"
)

// ContractRequest is the merged per-tenant unit of work to upload. Exactly one
// request exists per tenant per run. Status transitions are monotonic:
// pending → created → marked_processed, or any non-terminal state → failed.
type ContractRequest struct {
	TenantID    string              `json:"tenant_id"`
	PlatformID  string              `json:"platform_customer_id"`
	CustomerKey string              `json:"customer_key"`
	BusinessKey string              `json:"business_key"`
	Records     []BillingTermRecord `json:"records"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      ContractStatus      `json:"status"`
	ContractID  string              `json:"contract_id,omitempty"`
	Err         string              `json:"error,omitempty"`
}

var contractNext = map[ContractStatus]map[ContractStatus]bool{
	ContractPending: {ContractCreated: true, ContractFailed: true},
	ContractCreated: {ContractMarkedProcessed: true, ContractFailed: true},
}

// Transition advances the request status. Illegal transitions (leaving a
// terminal state, or skipping a step) are rejected so a bug in the
// orchestrator cannot silently un-fail or re-process a tenant.
func (c *ContractRequest) Transition(to ContractStatus) bool {
	if !contractNext[c.Status][to] {
		return false
	}
	c.Status = to
	return true
}

// Fail moves the request to failed, capturing the cause. No-op if the request
// already reached a terminal state.
func (c *ContractRequest) Fail(err error) bool {
	if !c.Transition(ContractFailed) {
		return false
	}
	if err != nil {
		c.Err = err.Error()
	}
	return true
}

// Terminal reports whether no further transitions are possible.
func (c *ContractRequest) Terminal() bool {
	return c.Status == ContractMarkedProcessed || c.Status == ContractFailed
}
