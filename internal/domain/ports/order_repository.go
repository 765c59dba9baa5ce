package ports

import (
	"context"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// OrderRepository reads host orders and records their payment.
type OrderRepository interface {
	// GetByID returns domain.ErrOrderNotFound when the order does not exist
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// GetByIDForUpdate is GetByID with a row lock held until the surrounding
	// transaction ends. Outside a transaction the lock is released at once.
	GetByIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error)

	// MarkPaid moves the order to paid and links the gateway transaction.
	// Returns domain.ErrOrderNotFound when no row was updated.
	MarkPaid(ctx context.Context, orderID, nativeTransactionID string) error
}

// ContactRepository resolves customer contact data
type ContactRepository interface {
	// GetByID returns domain.ErrContactNotFound when the contact does not exist
	GetByID(ctx context.Context, contactID string) (*domain.Contact, error)
}
