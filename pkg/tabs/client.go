// Package tabs provides a client for the billing platform's v3 integrator
// API: customers, catalog, usage events, contracts, and obligations.
package tabs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/opsbilling/reconcile-cli/internal/resilience"
)

const (
	defaultBaseURL  = "https://api.tabsplatform.com"
	defaultPageSize = 200
)

// Client is the surface of the platform API used by the reconciliation
// pipeline.
type Client interface {
	// ListCustomers returns every customer, following pagination.
	ListCustomers(ctx context.Context) ([]Customer, error)

	// ListEventTypes returns the usage event type catalog.
	ListEventTypes(ctx context.Context) ([]EventType, error)

	// ListItems returns the billable item catalog.
	ListItems(ctx context.Context) ([]Item, error)

	// ListEvents returns usage events for a customer inside [from, to).
	ListEvents(ctx context.Context, customerID string, from, to time.Time) ([]Event, error)

	// ListContracts returns a customer's contracts.
	ListContracts(ctx context.Context, customerID string) ([]Contract, error)

	// CreateContract creates an unprocessed contract shell.
	CreateContract(ctx context.Context, req CreateContractRequest) (*Contract, error)

	// MarkContractProcessed flips a contract into the processed state.
	MarkContractProcessed(ctx context.Context, contractID string) error

	// CreateObligation attaches a line item to a contract.
	CreateObligation(ctx context.Context, contractID string, ob Obligation) (*Obligation, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithPageSize overrides the pagination page size for list endpoints.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	pageSize int
	limiter  *rate.Limiter
	http     *http.Client
}

// NewClient creates a platform API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
		limiter:  rate.NewLimiter(10, 10),
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// listPayload is the payload shape shared by all list endpoints.
type listPayload[T any] struct {
	Data       []T `json:"data"`
	TotalItems int `json:"totalItems"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, reqBody any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "tabs: rate limit wait for %s", path)
		}
	}

	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return nil, eris.Wrapf(err, "tabs: marshal %s request", path)
		}
		body = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, eris.Wrapf(err, "tabs: create %s request", path)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(err, "tabs: %s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "tabs: read %s response", path)
	}

	if resilience.RetryableStatus(resp.StatusCode) {
		return nil, resilience.Transient(
			eris.Errorf("tabs: %s %s: status %d: %s", method, path, resp.StatusCode, truncate(respBody)),
			resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("tabs: %s %s: status %d: %s", method, path, resp.StatusCode, truncate(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, eris.Wrapf(err, "tabs: unmarshal %s envelope", path)
	}
	if !env.Success {
		return nil, eris.Errorf("tabs: %s %s: platform reported failure: %s", method, path, env.Message)
	}
	return env.Payload, nil
}

// listAll pages through a list endpoint until totalItems records are
// collected. A page shorter than requested also ends the walk, so a
// shrinking collection cannot loop forever.
func listAll[T any](ctx context.Context, c *httpClient, path string, query url.Values) ([]T, error) {
	var out []T
	offset := 0
	for {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))

		raw, err := c.do(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}

		var page listPayload[T]
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, eris.Wrapf(err, "tabs: unmarshal %s page", path)
		}

		out = append(out, page.Data...)
		offset += len(page.Data)
		if offset >= page.TotalItems || len(page.Data) < c.pageSize || len(page.Data) == 0 {
			return out, nil
		}
	}
}

func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
