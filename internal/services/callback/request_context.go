package callback

import (
	"net/http"
	"time"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// State is the progress of one notification through the pipeline
type State int

const (
	StateReceived State = iota
	StateSignatureVerified
	StateIdentifierParsed
	StateNormalized
	StatePersisted
	StateBusinessCallbackInvoked
	StateAcknowledged
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateSignatureVerified:
		return "signature-verified"
	case StateIdentifierParsed:
		return "identifier-parsed"
	case StateNormalized:
		return "normalized"
	case StatePersisted:
		return "persisted"
	case StateBusinessCallbackInvoked:
		return "business-callback-invoked"
	case StateAcknowledged:
		return "acknowledged"
	default:
		return "unknown"
	}
}

// RequestContext carries one notification through the pipeline.
// It is owned by a single request and never shared.
type RequestContext struct {
	ClientIP    string
	ContentType string
	Headers     http.Header
	Body        []byte
	ReceivedAt  time.Time

	Fields  *domain.CallbackFields
	Invoice domain.InvoiceID
	Record  *domain.TransactionRecord

	State State

	// Duplicate is set when the transaction was already fully processed
	Duplicate bool
}

// NewRequestContext wraps a received notification
func NewRequestContext(clientIP string, headers http.Header, body []byte) *RequestContext {
	if headers == nil {
		headers = make(http.Header)
	}
	return &RequestContext{
		ClientIP:    clientIP,
		ContentType: headers.Get("Content-Type"),
		Headers:     headers,
		Body:        body,
		ReceivedAt:  time.Now(),
		State:       StateReceived,
	}
}

func (rc *RequestContext) advance(to State) {
	rc.State = to
}

// TransactionID returns the gateway transaction id once fields are parsed
func (rc *RequestContext) TransactionID() string {
	if rc.Fields == nil {
		return ""
	}
	return rc.Fields.TransactionID
}

// InvoiceID returns the raw InvoiceId once fields are parsed
func (rc *RequestContext) InvoiceID() string {
	if rc.Fields == nil {
		return ""
	}
	return rc.Fields.InvoiceID
}
