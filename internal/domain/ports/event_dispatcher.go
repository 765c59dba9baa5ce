package ports

import (
	"context"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// DispatchResult is the host's answer to a business event.
// A non-empty Error rejects the payment.
type DispatchResult struct {
	Error string `json:"error,omitempty"`
}

// EventDispatcher delivers business events to the host application.
// A returned error means the event could not be delivered at all.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.EventType, record *domain.TransactionRecord) (*DispatchResult, error)
}

// CallbackDeduper remembers gateway transaction ids that were fully processed
type CallbackDeduper interface {
	// Seen reports whether key was marked before
	Seen(ctx context.Context, key string) (bool, error)

	// Mark records key as processed
	Mark(ctx context.Context, key string) error
}
