package reconcile

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/opsbilling/reconcile-cli/pkg/tabs"
)

type mockTabsClient struct {
	mock.Mock
}

func (m *mockTabsClient) ListCustomers(ctx context.Context) ([]tabs.Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tabs.Customer), args.Error(1)
}

func (m *mockTabsClient) ListEventTypes(ctx context.Context) ([]tabs.EventType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tabs.EventType), args.Error(1)
}

func (m *mockTabsClient) ListItems(ctx context.Context) ([]tabs.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tabs.Item), args.Error(1)
}

func (m *mockTabsClient) ListEvents(ctx context.Context, customerID string, from, to time.Time) ([]tabs.Event, error) {
	args := m.Called(ctx, customerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tabs.Event), args.Error(1)
}

func (m *mockTabsClient) ListContracts(ctx context.Context, customerID string) ([]tabs.Contract, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tabs.Contract), args.Error(1)
}

func (m *mockTabsClient) CreateContract(ctx context.Context, req tabs.CreateContractRequest) (*tabs.Contract, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tabs.Contract), args.Error(1)
}

func (m *mockTabsClient) MarkContractProcessed(ctx context.Context, contractID string) error {
	args := m.Called(ctx, contractID)
	return args.Error(0)
}

func (m *mockTabsClient) CreateObligation(ctx context.Context, contractID string, ob tabs.Obligation) (*tabs.Obligation, error) {
	args := m.Called(ctx, contractID, ob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tabs.Obligation), args.Error(1)
}
