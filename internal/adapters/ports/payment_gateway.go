package ports

import (
	"context"
)

// AuthorizationRequest is the tokens/auth payload sent to CloudPayments.
// Field names and casing are fixed by the gateway API.
type AuthorizationRequest struct {
	Amount      int64  `json:"Amount"` // minor units
	Currency    string `json:"Currency"`
	PublicID    string `json:"PublicId"`
	Token       string `json:"Token"`
	InvoiceID   string `json:"InvoiceId"`
	Description string `json:"Description"`
	Email       string `json:"Email"`
}

// GatewayResponse is the decoded answer of the gateway.
//
// When the body is not a JSON object Decoded is false and only Raw is set.
// When ErrorCode is present and not "0" only Details is captured.
// Otherwise PaymentURL, PaymentID and Status carry whatever the gateway sent.
type GatewayResponse struct {
	Decoded    bool
	Rejected   bool
	ErrorCode  string
	Details    string
	PaymentURL string
	PaymentID  string
	Status     string

	HTTPStatus int
	Raw        []byte
}

// IsError reports whether the gateway answered with a non-zero error code
func (r *GatewayResponse) IsError() bool {
	return r.Rejected
}

// PaymentGatewayAdapter defines the port for the outbound authorization call
type PaymentGatewayAdapter interface {
	// Authorize sends one tokens/auth request.
	// Returns a domain TRANSPORT_ERROR when the connection cannot be completed;
	// gateway-level failures are reported through the response, not the error.
	Authorize(ctx context.Context, req *AuthorizationRequest) (*GatewayResponse, error)
}
