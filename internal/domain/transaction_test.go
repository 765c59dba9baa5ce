package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRecord_IsSuccess(t *testing.T) {
	assert.True(t, (&TransactionRecord{Result: TransactionResultSuccess}).IsSuccess())
	assert.False(t, (&TransactionRecord{Result: TransactionResultFailed}).IsSuccess())
	assert.False(t, (&TransactionRecord{}).IsSuccess())
}

// The webhook payload is this encoding, so the field names are part of the contract
func TestTransactionRecord_JSONFieldNames(t *testing.T) {
	rec := &TransactionRecord{
		Plugin:     PluginID,
		AppID:      "app1",
		MerchantID: "m1",
		OrderID:    "42",
		Type:       TransactionTypeAuthOnly,
		NativeID:   "504",
		Amount:     decimal.RequireFromString("12.34"),
		CurrencyID: "RUB",
		Result:     TransactionResultSuccess,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "cloud_payments", fields["plugin"])
	assert.Equal(t, "authorization-only", fields["type"])
	assert.Equal(t, "504", fields["native_id"])
	assert.Equal(t, "12.34", fields["amount"])
	assert.Equal(t, float64(1), fields["result"])
	assert.NotContains(t, fields, "raw_data")
}
