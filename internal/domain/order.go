package domain

import (
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the host order lifecycle this service touches.
type OrderStatus string

const (
	OrderStatusNew  OrderStatus = "new"
	OrderStatusPaid OrderStatus = "paid"
)

// MaxDescriptionLength is the gateway limit on Description, in characters.
const MaxDescriptionLength = 255

// Order is the host order as seen by the checkout flow.
type Order struct {
	ID                string          `json:"id"`
	ContactID         string          `json:"contact_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Description       string          `json:"description"`
	Status            OrderStatus     `json:"status"`
	PaidTransactionID *string         `json:"paid_transaction_id,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Contact holds the customer data needed to resolve the payer email.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MinorUnits converts amount to the gateway's integer minor units,
// rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// PaymentDescription returns the order description, or "Order <id>" when empty,
// truncated to MaxDescriptionLength characters.
func (o *Order) PaymentDescription() string {
	desc := o.Description
	if desc == "" {
		desc = "Order " + o.ID
	}
	return TruncateRunes(desc, MaxDescriptionLength)
}

// TruncateRunes cuts s to at most n characters without splitting a UTF-8 sequence.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
