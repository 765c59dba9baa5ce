package ports

import (
	"context"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// TransactionRepository persists normalized callback records
type TransactionRepository interface {
	// Save stores the record. created is false when a record with the same
	// plugin and native id already exists; the stored copy is returned then.
	Save(ctx context.Context, record *domain.TransactionRecord) (stored *domain.TransactionRecord, created bool, err error)

	// GetByNativeID retrieves a record by the gateway transaction id
	GetByNativeID(ctx context.Context, nativeID string) (*domain.TransactionRecord, error)
}

// CallbackAttempt is one audited callback delivery
type CallbackAttempt struct {
	ClientIP      string
	InvoiceID     string
	TransactionID string
	Success       bool
	ErrorCode     string
	ErrorMessage  string
}

// CallbackLogRepository audits every callback delivery, accepted or not
type CallbackLogRepository interface {
	Record(ctx context.Context, attempt *CallbackAttempt) error
}
