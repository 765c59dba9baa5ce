// Package fixtures provides test data builders and helpers.
package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// OrderBuilder provides a fluent API for building test orders.
type OrderBuilder struct {
	order *domain.Order
}

// NewOrder creates an order builder with sensible defaults.
func NewOrder() *OrderBuilder {
	now := time.Now().UTC()
	return &OrderBuilder{
		order: &domain.Order{
			ID:          "42",
			ContactID:   "7",
			Amount:      decimal.RequireFromString("10.50"),
			Currency:    "RUB",
			Description: "Annual subscription",
			Status:      domain.OrderStatusNew,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

func (b *OrderBuilder) WithID(id string) *OrderBuilder {
	b.order.ID = id
	return b
}

func (b *OrderBuilder) WithContactID(id string) *OrderBuilder {
	b.order.ContactID = id
	return b
}

func (b *OrderBuilder) WithAmount(amount string) *OrderBuilder {
	b.order.Amount = decimal.RequireFromString(amount)
	return b
}

func (b *OrderBuilder) WithCurrency(currency string) *OrderBuilder {
	b.order.Currency = currency
	return b
}

func (b *OrderBuilder) WithDescription(desc string) *OrderBuilder {
	b.order.Description = desc
	return b
}

func (b *OrderBuilder) Paid(transactionID string) *OrderBuilder {
	now := time.Now().UTC()
	b.order.Status = domain.OrderStatusPaid
	b.order.PaidTransactionID = &transactionID
	b.order.PaidAt = &now
	return b
}

func (b *OrderBuilder) Build() *domain.Order {
	o := *b.order
	return &o
}

// NewContact returns a contact with an email
func NewContact(id, email string) *domain.Contact {
	return &domain.Contact{ID: id, Name: "Test Payer", Email: email}
}

// NewTransactionRecord returns a normalized record for invoice app1_m1_<orderID>
func NewTransactionRecord(nativeID, orderID string) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:         uuid.New(),
		Plugin:     domain.PluginID,
		AppID:      "app1",
		MerchantID: "m1",
		OrderID:    orderID,
		Type:       domain.TransactionTypeAuthOnly,
		NativeID:   nativeID,
		Amount:     decimal.RequireFromString("10.50"),
		CurrencyID: "RUB",
		Result:     domain.TransactionResultSuccess,
		ViewData:   "Номер карты: 424242****4242",
		RawData:    map[string]string{"TransactionId": nativeID},
		CreatedAt:  time.Now().UTC(),
	}
}
