package domain

import (
	"fmt"
	"regexp"
)

// invoicePattern splits app_merchant_order. The first two segments never
// contain the delimiter; everything after the second delimiter is the order id.
var invoicePattern = regexp.MustCompile(`^([0-9A-Za-z][0-9A-Za-z]+)_([0-9A-Za-z]+)_(.+)$`)

const invoiceTemplate = "%s_%s_%s"

// InvoiceID is the composite key CloudPayments echoes back in the InvoiceId field.
type InvoiceID struct {
	AppID      string `json:"app_id"`
	MerchantID string `json:"merchant_id"`
	OrderID    string `json:"order_id"`
}

// String formats the identifier as sent to the gateway.
func (id InvoiceID) String() string {
	return fmt.Sprintf(invoiceTemplate, id.AppID, id.MerchantID, id.OrderID)
}

// NewInvoiceID builds the identifier for an outbound request.
func NewInvoiceID(appID, merchantID, orderID string) InvoiceID {
	return InvoiceID{AppID: appID, MerchantID: merchantID, OrderID: orderID}
}

// ParseInvoiceID recovers the three components of an InvoiceId value.
// It returns ErrInvoiceMalformed when the value does not match.
func ParseInvoiceID(raw string) (InvoiceID, error) {
	m := invoicePattern.FindStringSubmatch(raw)
	if m == nil {
		return InvoiceID{}, WrapError(ErrorCodeInvoiceMalformed, ErrInvoiceMalformed.Message, nil).
			WithDetail("invoice_id", raw)
	}
	return InvoiceID{AppID: m[1], MerchantID: m[2], OrderID: m[3]}, nil
}
