package tabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Contract statuses as reported by the platform.
const (
	ContractStatusUnprocessed = "UNPROCESSED"
	ContractStatusProcessed   = "PROCESSED"
)

// Contract is a platform contract shell that obligations attach to.
type Contract struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// CreateContractRequest is the body for POST /v3/contracts. Contracts are
// always created unprocessed; processing is a separate explicit action.
type CreateContractRequest struct {
	CustomerID    string `json:"customerId"`
	Name          string `json:"name"`
	ShouldProcess bool   `json:"shouldProcess"`
}

// Obligation is a single billable line item on a contract. EventTypeID and
// ItemID come from the platform catalogs; the platform accepts lines without
// them but cannot meter usage against unlinked lines.
type Obligation struct {
	ID            string          `json:"id,omitempty"`
	BillingTermID string          `json:"billingTermId"`
	ProductCode   string          `json:"productCode,omitempty"`
	EventTypeID   string          `json:"eventTypeId,omitempty"`
	ItemID        string          `json:"integrationItemId,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Amount        decimal.Decimal `json:"amount"`
}

type contractAction struct {
	Action string `json:"action"`
}

func (c *httpClient) ListContracts(ctx context.Context, customerID string) ([]Contract, error) {
	q := url.Values{}
	q.Set("customerId", customerID)
	return listAll[Contract](ctx, c, "/v3/contracts", q)
}

func (c *httpClient) CreateContract(ctx context.Context, req CreateContractRequest) (*Contract, error) {
	raw, err := c.do(ctx, http.MethodPost, "/v3/contracts", nil, req)
	if err != nil {
		return nil, err
	}
	var out Contract
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "tabs: unmarshal created contract")
	}
	if out.ID == "" {
		return nil, eris.Errorf("tabs: platform returned contract without id for customer %s", req.CustomerID)
	}
	return &out, nil
}

func (c *httpClient) MarkContractProcessed(ctx context.Context, contractID string) error {
	_, err := c.do(ctx, http.MethodPost, "/v3/contracts/"+contractID+"/actions",
		nil, contractAction{Action: "MARK_AS_PROCESSED"})
	return err
}

func (c *httpClient) CreateObligation(ctx context.Context, contractID string, ob Obligation) (*Obligation, error) {
	raw, err := c.do(ctx, http.MethodPost, "/v3/contracts/"+contractID+"/obligations", nil, ob)
	if err != nil {
		return nil, err
	}
	var out Obligation
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "tabs: unmarshal created obligation")
	}
	return &out, nil
}
