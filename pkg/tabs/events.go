package tabs

import (
	"context"
	"net/url"
	"time"
)

// Event is a recorded usage event for a customer.
type Event struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customerId"`
	BillingTermID string    `json:"billingTermId"`
	Timestamp     time.Time `json:"timestamp"`
}

// ListEvents returns all usage events for customerID with timestamps in
// [from, to). Dates are sent in the platform's YYYY-MM-DD form.
func (c *httpClient) ListEvents(ctx context.Context, customerID string, from, to time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("customerId", customerID)
	q.Set("startDate", from.Format("2006-01-02"))
	q.Set("endDate", to.Format("2006-01-02"))
	return listAll[Event](ctx, c, "/v3/events", q)
}
