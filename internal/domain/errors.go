package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Configuration Errors
	ErrorCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Callback Errors
	ErrorCodeSignatureInvalid   ErrorCode = "SIGNATURE_INVALID"
	ErrorCodeInvoiceMalformed   ErrorCode = "INVOICE_MALFORMED"
	ErrorCodeBusinessValidation ErrorCode = "BUSINESS_VALIDATION_FAILED"
	ErrorCodeCallbackPayload    ErrorCode = "CALLBACK_PAYLOAD_INVALID"

	// Order Errors
	ErrorCodeOrderNotFound   ErrorCode = "ORDER_NOT_FOUND"
	ErrorCodeContactNotFound ErrorCode = "CONTACT_NOT_FOUND"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed              ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationCurrencyUnsupported ErrorCode = "VALIDATION_CURRENCY_UNSUPPORTED"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeTransport         ErrorCode = "TRANSPORT_ERROR"
	ErrorCodeGatewayRejected   ErrorCode = "GATEWAY_REJECTED"
	ErrorCodeGatewayNoRedirect ErrorCode = "GATEWAY_NO_REDIRECT"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so sentinel values work with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsCallbackRejection reports whether err should be answered with the
// generic callback rejection rather than an internal failure.
func IsCallbackRejection(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeSignatureInvalid,
		ErrorCodeInvoiceMalformed,
		ErrorCodeBusinessValidation,
		ErrorCodeCallbackPayload:
		return true
	}
	return false
}

// IsGatewayError checks if an error is a payment gateway error
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeTransport ||
		code == ErrorCodeGatewayRejected ||
		code == ErrorCodeGatewayNoRedirect
}

// Sentinel errors. Compare with errors.Is or IsDomainError; never mutate them.
var (
	ErrSecretNotConfigured = NewDomainError(ErrorCodeConfiguration, "API secret is not configured")
	ErrSignatureInvalid    = NewDomainError(ErrorCodeSignatureInvalid, "Invalid request signature (possible fraud)")
	ErrInvoiceMalformed    = NewDomainError(ErrorCodeInvoiceMalformed, "Invalid invoice number")

	ErrOrderNotFound   = NewDomainError(ErrorCodeOrderNotFound, "order not found")
	ErrContactNotFound = NewDomainError(ErrorCodeContactNotFound, "contact not found")

	ErrCurrencyUnsupported = NewDomainError(ErrorCodeValidationCurrencyUnsupported, "currency is not supported by the gateway")

	ErrGatewayNoRedirect = NewDomainError(ErrorCodeGatewayNoRedirect, "gateway returned no payment URL")
	ErrDatabaseError     = NewDomainError(ErrorCodeDatabaseError, "database error")
)

// NewBusinessValidationError reports a failure returned by the host's payment handler.
func NewBusinessValidationError(reason string) *DomainError {
	return NewDomainError(ErrorCodeBusinessValidation, "Forbidden (validate error): "+reason).
		WithDetail("reason", reason)
}

// NewTransportError reports that the outbound connection could not be completed.
func NewTransportError(target string, err error) *DomainError {
	return WrapError(ErrorCodeTransport, "cannot create connection to "+target, err)
}
