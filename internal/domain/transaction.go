package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PluginID identifies records created by this gateway integration.
const PluginID = "cloud_payments"

// TransactionType represents the operation a record describes
type TransactionType string

const (
	// TransactionTypeAuthOnly is a two-step payment: funds are held, not captured.
	TransactionTypeAuthOnly TransactionType = "authorization-only"
)

// TransactionResult is the result flag stored with a record.
type TransactionResult int

const (
	TransactionResultFailed  TransactionResult = 0
	TransactionResultSuccess TransactionResult = 1
)

// EventType tags business events dispatched to the host.
type EventType string

const (
	EventPaymentReceived EventType = "payment.received"
)

// TransactionRecord is the normalized form of an accepted callback.
type TransactionRecord struct {
	ID         uuid.UUID         `json:"id"`
	Plugin     string            `json:"plugin"`
	AppID      string            `json:"app_id"`
	MerchantID string            `json:"merchant_id"`
	OrderID    string            `json:"order_id"`
	Type       TransactionType   `json:"type"`
	NativeID   string            `json:"native_id"`
	Amount     decimal.Decimal   `json:"amount"`
	CurrencyID string            `json:"currency_id"`
	Result     TransactionResult `json:"result"`
	ViewData   string            `json:"view_data"`
	RawData    map[string]string `json:"raw_data,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsNativeTransactionID reports whether id names a real gateway transaction.
// Only such ids are used for deduplication.
func IsNativeTransactionID(id string) bool {
	return id != "" && id != DefaultTransactionID
}

// HasNativeID reports whether the record carries a gateway transaction id
func (r *TransactionRecord) HasNativeID() bool {
	return IsNativeTransactionID(r.NativeID)
}

// IsSuccess reports whether the record describes an accepted payment.
func (r *TransactionRecord) IsSuccess() bool {
	return r.Result == TransactionResultSuccess
}
