package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

func TestBuildPresence(t *testing.T) {
	period := model.PeriodFrom(testRunDate)

	client := new(mockTabsClient)
	client.On("ListEvents", mock.Anything, "cust-acme", period.Start, period.End).Return([]tabs.Event{
		{ID: "e1", BillingTermID: "T1"},
		{ID: "e2", BillingTermID: "T1"},
		{ID: "e3", BillingTermID: "T2"},
		{ID: "e4"}, // event without a term cannot activate anything
	}, nil)
	client.On("ListEvents", mock.Anything, "cust-globex", period.Start, period.End).Return([]tabs.Event{}, nil)

	p, err := BuildPresence(context.Background(), client, oncePolicy(), testCustomers(), period, 2)
	require.NoError(t, err)

	assert.True(t, p.Has("42", "T1"))
	assert.True(t, p.Has("42", "T2"))
	assert.False(t, p.Has("42", "T3"))
	assert.False(t, p.Has("7", "T1"))
	assert.Len(t, p, 2)
}

func TestBuildPresence_FetchFailureIsFatal(t *testing.T) {
	period := model.PeriodFrom(testRunDate)

	client := new(mockTabsClient)
	client.On("ListEvents", mock.Anything, mock.Anything, period.Start, period.End).
		Return(nil, errors.New("events endpoint down"))

	_, err := BuildPresence(context.Background(), client, oncePolicy(), testCustomers(), period, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events endpoint down")
}
