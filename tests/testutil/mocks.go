package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/wms/backend/internal/domain/integration"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

// MockCatalogProvider is a mock implementation of integration.CatalogProvider
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) CreateProduct(ctx context.Context, input integration.ProductInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockCatalogProvider) UpdateProduct(ctx context.Context, remoteID string, input integration.ProductInput) error {
	args := m.Called(ctx, remoteID, input)
	return args.Error(0)
}

func (m *MockCatalogProvider) DeleteProduct(ctx context.Context, remoteID string) error {
	args := m.Called(ctx, remoteID)
	return args.Error(0)
}

func (m *MockCatalogProvider) ListProducts(ctx context.Context) ([]integration.RemoteProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.RemoteProduct), args.Error(1)
}

func (m *MockCatalogProvider) ListOrders(ctx context.Context, since time.Time) ([]integration.RemoteOrder, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.RemoteOrder), args.Error(1)
}

func (m *MockCatalogProvider) SetInventoryLevel(ctx context.Context, remoteProductID string, available int) error {
	args := m.Called(ctx, remoteProductID, available)
	return args.Error(0)
}

func (m *MockCatalogProvider) MarkOrderFulfilled(ctx context.Context, remoteOrderID, trackingNumber, carrier string) error {
	args := m.Called(ctx, remoteOrderID, trackingNumber, carrier)
	return args.Error(0)
}

// MockShippingProvider is a mock implementation of integration.ShippingProvider
type MockShippingProvider struct {
	mock.Mock
}

func (m *MockShippingProvider) CreateLabel(ctx context.Context, req integration.LabelRequest) (*integration.Label, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Label), args.Error(1)
}

func (m *MockShippingProvider) GetTracking(ctx context.Context, trackingNumber string) (*integration.TrackingInfo, error) {
	args := m.Called(ctx, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TrackingInfo), args.Error(1)
}

func (m *MockShippingProvider) GetQuotes(ctx context.Context, req integration.QuoteRequest) ([]integration.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Quote), args.Error(1)
}

func (m *MockShippingProvider) ValidateAddress(ctx context.Context, address valueobject.Address) (*integration.AddressValidation, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.AddressValidation), args.Error(1)
}

func (m *MockShippingProvider) CancelShipment(ctx context.Context, shipmentID string) error {
	args := m.Called(ctx, shipmentID)
	return args.Error(0)
}

func (m *MockShippingProvider) DownloadLabel(ctx context.Context, labelURL string) ([]byte, error) {
	args := m.Called(ctx, labelURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDocumentStore is a mock implementation of integration.DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockDocumentStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

// FakeSyncLocker is an in-process integration.SyncLocker that records the
// names it was asked for. Names listed in Held are reported as taken.
type FakeSyncLocker struct {
	mu       sync.Mutex
	Held     map[string]bool
	Acquired []string
	Released []string
}

// NewFakeSyncLocker creates a locker with the given names already held
func NewFakeSyncLocker(held ...string) *FakeSyncLocker {
	l := &FakeSyncLocker{Held: make(map[string]bool)}
	for _, name := range held {
		l.Held[name] = true
	}
	return l
}

// Acquire implements integration.SyncLocker
func (l *FakeSyncLocker) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Held[name] {
		return nil, integration.ErrSyncInProgress
	}
	l.Held[name] = true
	l.Acquired = append(l.Acquired, name)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.Held, name)
		l.Released = append(l.Released, name)
	}, nil
}

var (
	_ integration.CatalogProvider  = (*MockCatalogProvider)(nil)
	_ integration.ShippingProvider = (*MockShippingProvider)(nil)
	_ integration.DocumentStore    = (*MockDocumentStore)(nil)
	_ integration.SyncLocker       = (*FakeSyncLocker)(nil)
)
