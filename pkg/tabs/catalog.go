package tabs

import "context"

// EventType is a usage event type from the platform catalog.
type EventType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is a billable item from the platform catalog.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

func (c *httpClient) ListEventTypes(ctx context.Context) ([]EventType, error) {
	return listAll[EventType](ctx, c, "/v3/eventTypes", nil)
}

func (c *httpClient) ListItems(ctx context.Context) ([]Item, error) {
	return listAll[Item](ctx, c, "/v3/items", nil)
}
