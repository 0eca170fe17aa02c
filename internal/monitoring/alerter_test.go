package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbilling/reconcile-cli/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	snap := &MetricsSnapshot{
		RunsTotal:        10,
		RunsComplete:     9,
		RunsFailed:       1,
		RunFailRate:      0.1,
		TenantsProcessed: 40,
		LookbackHours:    24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_RunFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	snap := &MetricsSnapshot{
		RunsTotal:     5,
		RunsComplete:  2,
		RunsFailed:    3,
		RunFailRate:   0.6,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "60.0%")
}

func TestAlerter_Evaluate_TenantFailures(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	snap := &MetricsSnapshot{
		RunsTotal:        4,
		RunsComplete:     2,
		RunsPartial:      2,
		TenantsProcessed: 20,
		TenantsFailed:    3,
		LookbackHours:    24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTenantFailures, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "3 tenant contract(s)")
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.25})

	// Two finished runs is below the three-run minimum for a rate alert.
	snap := &MetricsSnapshot{
		RunsTotal:     2,
		RunsComplete:  1,
		RunsFailed:    1,
		RunFailRate:   0.5,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_RunFinished(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	assert.Nil(t, a.RunFinished("run-1", "complete", 0))
	assert.Nil(t, a.RunFinished("run-2", "partial", 1))

	alert := a.RunFinished("run-3", "failed", 4)
	require.NotNil(t, alert)
	assert.Equal(t, AlertRunFailed, alert.Type)
	assert.Contains(t, alert.Message, "run-3")
	assert.Contains(t, alert.Message, "4 failed tenants")
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailed, Severity: "high", Message: "run run-1 failed"},
		{Type: AlertTenantFailures, Severity: "medium", Message: "2 tenants failed"},
	})

	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailed, Severity: "high", Message: "boom"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_NoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailed, Severity: "high", Message: "boom"},
	})
	assert.Equal(t, 0, sent)
}
