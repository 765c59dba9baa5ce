package cloudpayments

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
)

// ParseResponse decodes a tokens/auth answer.
// It never fails: an undecodable body yields a response with only Raw set.
func ParseResponse(raw []byte) *ports.GatewayResponse {
	resp := &ports.GatewayResponse{Raw: raw}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return resp
	}
	resp.Decoded = true

	if code, ok := scalarField(fields, "ErrorCode"); ok && code != "0" {
		resp.Rejected = true
		resp.ErrorCode = code
		resp.Details, _ = scalarField(fields, "Details")
		return resp
	}

	resp.ErrorCode, _ = scalarField(fields, "ErrorCode")
	resp.PaymentURL, _ = scalarField(fields, "PaymentURL")
	resp.PaymentID, _ = scalarField(fields, "PaymentId")
	resp.Status, _ = scalarField(fields, "Status")
	return resp
}

// scalarField returns the textual value of a string, number or bool field.
// A missing or null field reports ok=false.
func scalarField(fields map[string]json.RawMessage, name string) (string, bool) {
	v, ok := fields[name]
	if !ok {
		return "", false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	// numbers and booleans keep their literal form; objects are returned verbatim
	return strings.TrimSpace(string(v)), true
}
