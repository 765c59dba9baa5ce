// Package mocks provides shared testify mocks for the service ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	adapterports "github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
	"github.com/kevin07696/cloudpayments-service/internal/domain"
	"github.com/kevin07696/cloudpayments-service/internal/domain/ports"
)

// MockSecretManager mocks adapterports.SecretManagerAdapter
type MockSecretManager struct {
	mock.Mock
}

func (m *MockSecretManager) GetSecret(ctx context.Context, path string) (*adapterports.Secret, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapterports.Secret), args.Error(1)
}

func (m *MockSecretManager) PutSecret(ctx context.Context, path, value string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, path, value, metadata)
	return args.String(0), args.Error(1)
}

// MockPaymentGateway mocks adapterports.PaymentGatewayAdapter
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Authorize(ctx context.Context, req *adapterports.AuthorizationRequest) (*adapterports.GatewayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapterports.GatewayResponse), args.Error(1)
}

// MockOrderRepository mocks ports.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, orderID, nativeTransactionID string) error {
	args := m.Called(ctx, orderID, nativeTransactionID)
	return args.Error(0)
}

// MockContactRepository mocks ports.ContactRepository
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) GetByID(ctx context.Context, contactID string) (*domain.Contact, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

// MockTransactionRepository mocks ports.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Save(ctx context.Context, record *domain.TransactionRecord) (*domain.TransactionRecord, bool, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.TransactionRecord), args.Bool(1), args.Error(2)
}

func (m *MockTransactionRepository) GetByNativeID(ctx context.Context, nativeID string) (*domain.TransactionRecord, error) {
	args := m.Called(ctx, nativeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionRecord), args.Error(1)
}

// MockCallbackLogRepository mocks ports.CallbackLogRepository
type MockCallbackLogRepository struct {
	mock.Mock
}

func (m *MockCallbackLogRepository) Record(ctx context.Context, attempt *ports.CallbackAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

// MockEventDispatcher mocks ports.EventDispatcher
type MockEventDispatcher struct {
	mock.Mock
}

func (m *MockEventDispatcher) Dispatch(ctx context.Context, event domain.EventType, record *domain.TransactionRecord) (*ports.DispatchResult, error) {
	args := m.Called(ctx, event, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.DispatchResult), args.Error(1)
}

// MockCallbackDeduper mocks ports.CallbackDeduper
type MockCallbackDeduper struct {
	mock.Mock
}

func (m *MockCallbackDeduper) Seen(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCallbackDeduper) Mark(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
