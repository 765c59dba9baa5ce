package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "without_wrapped_error",
			err:      NewDomainError(ErrorCodeSignatureInvalid, "Invalid request signature (possible fraud)"),
			expected: "SIGNATURE_INVALID: Invalid request signature (possible fraud)",
		},
		{
			name:     "with_wrapped_error",
			err:      WrapError(ErrorCodeTransport, "cannot create connection", errors.New("dial tcp: refused")),
			expected: "TRANSPORT_ERROR: cannot create connection: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("handle callback: %w", WrapError(ErrorCodeInvoiceMalformed, "Invalid invoice number", nil))

	assert.True(t, errors.Is(wrapped, ErrInvoiceMalformed))
	assert.False(t, errors.Is(wrapped, ErrSignatureInvalid))
	assert.True(t, IsDomainError(wrapped, ErrorCodeInvoiceMalformed))
	assert.Equal(t, ErrorCodeInvoiceMalformed, GetErrorCode(wrapped))
}

func TestDomainError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransportError("https://api.cloudpayments.ru", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsGatewayError(err))
}

func TestGetErrorCode_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.False(t, IsCallbackRejection(errors.New("plain")))
}

func TestNewBusinessValidationError(t *testing.T) {
	err := NewBusinessValidationError("order already paid")

	assert.Equal(t, ErrorCodeBusinessValidation, err.Code)
	assert.Equal(t, "Forbidden (validate error): order already paid", err.Message)
	assert.Equal(t, "order already paid", err.Details["reason"])
	assert.True(t, IsCallbackRejection(err))
}

func TestIsCallbackRejection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"signature", ErrSignatureInvalid, true},
		{"invoice", ErrInvoiceMalformed, true},
		{"business", NewBusinessValidationError("x"), true},
		{"payload", NewDomainError(ErrorCodeCallbackPayload, "bad"), true},
		{"configuration_is_not_a_rejection", ErrSecretNotConfigured, false},
		{"database_is_not_a_rejection", ErrDatabaseError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCallbackRejection(tt.err))
		})
	}
}

func TestWithDetail_InitializesMap(t *testing.T) {
	err := &DomainError{Code: ErrorCodeOrderNotFound, Message: "order not found"}
	err.WithDetail("order_id", "42")

	assert.Equal(t, "42", err.Details["order_id"])
}
