package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition_HappyPath(t *testing.T) {
	c := &ContractRequest{Status: ContractPending}
	assert.True(t, c.Transition(ContractCreated))
	assert.True(t, c.Transition(ContractMarkedProcessed))
	assert.True(t, c.Terminal())
}

func TestTransition_SkippingCreateRejected(t *testing.T) {
	c := &ContractRequest{Status: ContractPending}
	assert.False(t, c.Transition(ContractMarkedProcessed))
	assert.Equal(t, ContractPending, c.Status)
}

func TestTransition_FailedIsTerminal(t *testing.T) {
	c := &ContractRequest{Status: ContractPending}
	assert.True(t, c.Fail(errors.New("boom")))
	assert.Equal(t, "boom", c.Err)
	assert.False(t, c.Transition(ContractCreated))
	assert.False(t, c.Fail(errors.New("again")))
	assert.Equal(t, "boom", c.Err)
}

func TestTransition_FailFromCreated(t *testing.T) {
	c := &ContractRequest{Status: ContractPending}
	assert.True(t, c.Transition(ContractCreated))
	assert.True(t, c.Fail(errors.New("mark failed")))
	assert.True(t, c.Terminal())
}

func TestTransition_MarkedProcessedIsTerminal(t *testing.T) {
	c := &ContractRequest{Status: ContractMarkedProcessed}
	assert.False(t, c.Fail(errors.New("late")))
	assert.False(t, c.Transition(ContractCreated))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "acme corp", NormalizeKey("  Acme Corp "))
	assert.Equal(t, "42", NormalizeKey("42"))
}

func TestCustomerMap_Resolve(t *testing.T) {
	m := CustomerMap{"acme corp": {Key: "Acme Corp", TenantID: "42"}}
	rc, ok := m.Resolve(" ACME CORP ")
	assert.True(t, ok)
	assert.Equal(t, "42", rc.TenantID)

	_, ok = m.Resolve("globex")
	assert.False(t, ok)
}

func TestPresence(t *testing.T) {
	p := make(Presence)
	p.Add("42", "T1")
	assert.True(t, p.Has("42", "T1"))
	assert.False(t, p.Has("42", "T2"))
	assert.False(t, p.Has("7", "T1"))
}
