package reconcile

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/opsbilling/reconcile-cli/internal/model"
	"github.com/opsbilling/reconcile-cli/internal/resilience"
	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

// Catalog maps product names to platform event-type and integration-item
// ids. Obligation lines carry both so the platform can meter recorded usage
// against them; the lookup is by product name, matching tolerantly the way
// schema resolution does.
type Catalog struct {
	eventTypes map[string]string
	items      map[string]string

	mu     sync.Mutex
	warned map[string]bool
}

// BuildCatalog fetches both platform catalogs once per run. Reads are
// idempotent and retried.
func BuildCatalog(ctx context.Context, client tabs.Client, policy resilience.Policy) (*Catalog, error) {
	eventTypes, err := resilience.DoVal(ctx, policy, "list event types", func(ctx context.Context) ([]tabs.EventType, error) {
		return client.ListEventTypes(ctx)
	})
	if err != nil {
		return nil, err
	}
	items, err := resilience.DoVal(ctx, policy, "list items", func(ctx context.Context) ([]tabs.Item, error) {
		return client.ListItems(ctx)
	})
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		eventTypes: make(map[string]string, len(eventTypes)),
		items:      make(map[string]string, len(items)),
		warned:     make(map[string]bool),
	}
	for _, et := range eventTypes {
		key := model.NormalizeKey(et.Name)
		if key == "" {
			continue
		}
		if _, dup := cat.eventTypes[key]; !dup {
			cat.eventTypes[key] = et.ID
		}
	}
	for _, it := range items {
		key := model.NormalizeKey(it.Name)
		if key == "" {
			continue
		}
		if _, dup := cat.items[key]; !dup {
			cat.items[key] = it.ID
		}
	}

	zap.L().Info("platform catalogs loaded",
		zap.Int("event_types", len(cat.eventTypes)),
		zap.Int("items", len(cat.items)))
	return cat, nil
}

// Resolve looks up a product name in both catalogs. Unmatched names come
// back as empty ids and are warned about once per run; the line still
// uploads so a catalog gap never drops billed amounts.
func (c *Catalog) Resolve(productName string) (eventTypeID, itemID string) {
	if c == nil {
		return "", ""
	}
	key := model.NormalizeKey(productName)
	eventTypeID = c.eventTypes[key]
	itemID = c.items[key]
	if eventTypeID == "" || itemID == "" {
		c.warnOnce(productName, eventTypeID, itemID)
	}
	return eventTypeID, itemID
}

func (c *Catalog) warnOnce(productName, eventTypeID, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warned[productName] {
		return
	}
	c.warned[productName] = true
	zap.L().Warn("product not fully matched in platform catalogs",
		zap.String("product", productName),
		zap.Bool("event_type_matched", eventTypeID != ""),
		zap.Bool("item_matched", itemID != ""))
}
