package tabs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbilling/reconcile-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithRateLimit(0)}, opts...)
	return NewClient("test-key", opts...), srv
}

func writeList(w http.ResponseWriter, total int, data any) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"payload": map[string]any{"data": data, "totalItems": total},
	})
}

func TestListCustomers_Pagination(t *testing.T) {
	var requests []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "/v3/customers", r.URL.Path)
		requests = append(requests, r.URL.Query().Get("offset"))

		switch r.URL.Query().Get("offset") {
		case "0":
			writeList(w, 3, []Customer{{ID: "c1", Name: "Acme"}, {ID: "c2", Name: "Globex"}})
		case "2":
			writeList(w, 3, []Customer{{ID: "c3", Name: "Initech"}})
		default:
			t.Fatalf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	}, WithPageSize(2))

	customers, err := client.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 3)
	assert.Equal(t, []string{"0", "2"}, requests)
	assert.Equal(t, "c3", customers[2].ID)
}

func TestListCustomers_ShortPageEndsWalk(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		// totalItems claims more records than the platform will return
		writeList(w, 10, []Customer{{ID: "c1"}})
	}, WithPageSize(5))

	customers, err := client.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Len(t, customers, 1)
	assert.Equal(t, 1, calls)
}

func TestCustomer_CustomField(t *testing.T) {
	c := Customer{CustomFields: []CustomField{
		{Name: " Tenant ID ", Value: " 42 "},
		{Name: "Region", Value: "us-east"},
	}}
	assert.Equal(t, "42", c.CustomField("tenant id"))
	assert.Equal(t, "us-east", c.CustomField("Region"))
	assert.Empty(t, c.CustomField("missing"))
}

func TestListEvents_QueryWindow(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/events", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "cust-1", q.Get("customerId"))
		assert.Equal(t, "2025-07-01", q.Get("startDate"))
		assert.Equal(t, "2025-07-31", q.Get("endDate"))
		writeList(w, 1, []Event{{ID: "ev1", CustomerID: "cust-1", BillingTermID: "SKU-1"}})
	})

	from := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	events, err := client.ListEvents(context.Background(), "cust-1", from, from.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "SKU-1", events[0].BillingTermID)
}

func TestCreateContract(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v3/contracts", r.URL.Path)

		var req CreateContractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cust-1", req.CustomerID)
		assert.Equal(t, "42_2025-07-01", req.Name)
		assert.False(t, req.ShouldProcess)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"payload": Contract{ID: "ct-9", CustomerID: "cust-1", Name: req.Name, Status: ContractStatusUnprocessed},
		})
	})

	ct, err := client.CreateContract(context.Background(), CreateContractRequest{
		CustomerID: "cust-1",
		Name:       "42_2025-07-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "ct-9", ct.ID)
	assert.Equal(t, ContractStatusUnprocessed, ct.Status)
}

func TestCreateContract_MissingID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "payload": Contract{}})
	})

	_, err := client.CreateContract(context.Background(), CreateContractRequest{CustomerID: "cust-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without id")
}

func TestMarkContractProcessed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/contracts/ct-9/actions", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MARK_AS_PROCESSED", body["action"])
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "payload": map[string]any{}})
	})

	require.NoError(t, client.MarkContractProcessed(context.Background(), "ct-9"))
}

func TestCreateObligation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/contracts/ct-9/obligations", r.URL.Path)
		var ob Obligation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ob))
		assert.Equal(t, "T1", ob.BillingTermID)
		assert.Equal(t, "evt-1", ob.EventTypeID)
		assert.Equal(t, "item-1", ob.ItemID)
		assert.True(t, ob.Quantity.Equal(decimal.NewFromInt(10)), "quantity %s", ob.Quantity)
		assert.True(t, ob.Amount.Equal(decimal.RequireFromString("50")), "amount %s", ob.Amount)

		ob.ID = "ob-1"
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "payload": ob})
	})

	created, err := client.CreateObligation(context.Background(), "ct-9", Obligation{
		BillingTermID: "T1",
		ProductCode:   "Widget",
		EventTypeID:   "evt-1",
		ItemID:        "item-1",
		Quantity:      decimal.NewFromInt(10),
		UnitPrice:     decimal.NewFromInt(5),
		Amount:        decimal.RequireFromString("50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ob-1", created.ID)
}

func TestDo_RateLimitedIsTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.ListCustomers(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestDo_ServerErrorIsTransient(t *testing.T) {
	for _, status := range []int{500, 502, 503, 504} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", status)
			})
			_, err := client.ListCustomers(context.Background())
			require.Error(t, err)
			assert.True(t, resilience.IsTransient(err))
		})
	}
}

func TestDo_ClientErrorIsPermanent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := client.ListCustomers(context.Background())
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestDo_FailureEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "invalid customer"})
	})

	_, err := client.ListCustomers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid customer")
	assert.False(t, resilience.IsTransient(err))
}
