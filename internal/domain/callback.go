package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Callback field names as sent by CloudPayments.
const (
	FieldTransactionID = "TransactionId"
	FieldInvoiceID     = "InvoiceId"
	FieldDescription   = "Description"
	FieldAmount        = "Amount"
	FieldCurrency      = "Currency"
	FieldName          = "Name"
	FieldEmail         = "Email"
	FieldData          = "Data"
	FieldCardFirstSix  = "CardFirstSix"
	FieldCardLastFour  = "CardLastFour"
)

// DefaultTransactionID stands in for a missing TransactionId. It does not
// identify a gateway transaction.
const DefaultTransactionID = "0"

// callbackDefaults declares the value of every expected field when the
// gateway omits it.
var callbackDefaults = map[string]string{
	FieldTransactionID: DefaultTransactionID,
	FieldInvoiceID:     "",
	FieldDescription:   "",
	FieldAmount:        "0",
	FieldCurrency:      "",
	FieldName:          "",
	FieldEmail:         "",
	FieldData:          "",
	FieldCardFirstSix:  "",
	FieldCardLastFour:  "",
}

// CallbackFields is a pay notification with defaults applied.
type CallbackFields struct {
	TransactionID string
	InvoiceID     string
	Description   string
	Amount        decimal.Decimal
	Currency      string
	Name          string
	Email         string
	Data          string
	CardFirstSix  string
	CardLastFour  string

	// Raw holds every field the gateway sent merged over the defaults.
	Raw map[string]string
}

// ParseCallbackFields decodes a form or JSON notification body.
func ParseCallbackFields(contentType string, body []byte) (*CallbackFields, error) {
	sent, err := decodeCallbackBody(contentType, body)
	if err != nil {
		return nil, WrapError(ErrorCodeCallbackPayload, "cannot decode callback body", err)
	}
	return NewCallbackFields(sent)
}

// NewCallbackFields merges sent over the declared defaults.
func NewCallbackFields(sent map[string]string) (*CallbackFields, error) {
	raw := make(map[string]string, len(callbackDefaults)+len(sent))
	for k, v := range callbackDefaults {
		raw[k] = v
	}
	for k, v := range sent {
		raw[k] = v
	}

	amountText := strings.TrimSpace(raw[FieldAmount])
	if amountText == "" {
		amountText = callbackDefaults[FieldAmount]
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return nil, WrapError(ErrorCodeCallbackPayload, "invalid Amount", err).
			WithDetail("amount", raw[FieldAmount])
	}

	transactionID := raw[FieldTransactionID]
	if transactionID == "" {
		transactionID = callbackDefaults[FieldTransactionID]
	}

	return &CallbackFields{
		TransactionID: transactionID,
		InvoiceID:     raw[FieldInvoiceID],
		Description:   raw[FieldDescription],
		Amount:        amount,
		Currency:      raw[FieldCurrency],
		Name:          raw[FieldName],
		Email:         raw[FieldEmail],
		Data:          raw[FieldData],
		CardFirstSix:  raw[FieldCardFirstSix],
		CardLastFour:  raw[FieldCardLastFour],
		Raw:           raw,
	}, nil
}

// HasTransactionID reports whether the gateway sent a transaction id
func (f *CallbackFields) HasTransactionID() bool {
	return IsNativeTransactionID(f.TransactionID)
}

func decodeCallbackBody(contentType string, body []byte) (map[string]string, error) {
	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("parse content type: %w", err)
		}
		mediaType = mt
	}

	if mediaType == "application/json" {
		return decodeJSONFields(body)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse form body: %w", err)
	}
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields, nil
}

func decodeJSONFields(body []byte) (map[string]string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]string{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var decoded map[string]interface{}
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}

	fields := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			if val {
				fields[k] = "1"
			} else {
				fields[k] = ""
			}
		default:
			// Data arrives as a nested object in JSON notifications.
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("encode field %s: %w", k, err)
			}
			fields[k] = string(encoded)
		}
	}
	return fields, nil
}
