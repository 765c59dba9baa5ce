package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackFields_Form(t *testing.T) {
	body := []byte("TransactionId=504&Amount=10.50&Currency=RUB&InvoiceId=shop_1_42" +
		"&Name=IVAN+PETROV&CardFirstSix=424242&CardLastFour=4242&Status=Authorized")

	fields, err := ParseCallbackFields("application/x-www-form-urlencoded; charset=utf-8", body)
	require.NoError(t, err)

	assert.Equal(t, "504", fields.TransactionID)
	assert.True(t, decimal.RequireFromString("10.5").Equal(fields.Amount))
	assert.Equal(t, "RUB", fields.Currency)
	assert.Equal(t, "shop_1_42", fields.InvoiceID)
	assert.Equal(t, "IVAN PETROV", fields.Name)
	assert.Equal(t, "", fields.Email)
	assert.Equal(t, "424242", fields.CardFirstSix)
	assert.Equal(t, "4242", fields.CardLastFour)
	assert.Equal(t, "Authorized", fields.Raw["Status"])
}

func TestParseCallbackFields_JSON(t *testing.T) {
	body := []byte(`{"TransactionId":504,"Amount":12.345,"Currency":"EUR","InvoiceId":"shop_1_42",` +
		`"Email":"payer@example.com","Data":{"order":"42"},"TestMode":true}`)

	fields, err := ParseCallbackFields("application/json", body)
	require.NoError(t, err)

	assert.Equal(t, "504", fields.TransactionID)
	assert.Equal(t, "12.345", fields.Amount.String())
	assert.Equal(t, "payer@example.com", fields.Email)
	assert.JSONEq(t, `{"order":"42"}`, fields.Data)
	assert.Equal(t, "1", fields.Raw["TestMode"])
}

func TestParseCallbackFields_Defaults(t *testing.T) {
	fields, err := ParseCallbackFields("", nil)
	require.NoError(t, err)

	assert.Equal(t, "0", fields.TransactionID)
	assert.True(t, fields.Amount.IsZero())
	for _, v := range []string{
		fields.InvoiceID, fields.Description, fields.Currency, fields.Name,
		fields.Email, fields.Data, fields.CardFirstSix, fields.CardLastFour,
	} {
		assert.Equal(t, "", v)
	}
	assert.Len(t, fields.Raw, len(callbackDefaults))
}

func TestParseCallbackFields_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed_json", "application/json", `{"Amount":`},
		{"json_array", "application/json", `[1,2]`},
		{"bad_amount", "application/x-www-form-urlencoded", "Amount=ten"},
		{"bad_content_type", "text/plain; ===", "Amount=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCallbackFields(tt.contentType, []byte(tt.body))
			require.Error(t, err)
			assert.True(t, IsDomainError(err, ErrorCodeCallbackPayload))
			assert.True(t, IsCallbackRejection(err))
		})
	}
}

func TestNewCallbackFields_EmptyTransactionIDUsesDefault(t *testing.T) {
	fields, err := NewCallbackFields(map[string]string{FieldTransactionID: "", FieldAmount: ""})
	require.NoError(t, err)

	assert.Equal(t, "0", fields.TransactionID)
	assert.False(t, fields.HasTransactionID())
	assert.True(t, fields.Amount.IsZero())
}

func TestIsNativeTransactionID(t *testing.T) {
	assert.True(t, IsNativeTransactionID("504"))
	assert.True(t, IsNativeTransactionID("00"))
	assert.False(t, IsNativeTransactionID(DefaultTransactionID))
	assert.False(t, IsNativeTransactionID(""))
	assert.False(t, (&TransactionRecord{NativeID: "0"}).HasNativeID())
}
