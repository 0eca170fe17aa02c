package tabs

import (
	"context"
	"strings"
)

// Customer is a platform customer record.
type Customer struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CustomFields []CustomField `json:"customFields"`
}

// CustomField is an operator-defined key/value pair on a customer.
type CustomField struct {
	Name  string `json:"customFieldName"`
	Value string `json:"customFieldValue"`
}

// CustomField returns the value of the named custom field, matched
// case-insensitively. Empty when the field is absent.
func (c Customer) CustomField(name string) string {
	for _, f := range c.CustomFields {
		if strings.EqualFold(strings.TrimSpace(f.Name), name) {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

func (c *httpClient) ListCustomers(ctx context.Context) ([]Customer, error) {
	return listAll[Customer](ctx, c, "/v3/customers", nil)
}
