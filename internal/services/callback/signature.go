package callback

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// SignatureHeader carries base64(HMAC-SHA256(body, API secret))
const SignatureHeader = "Content-Hmac"

// SecretSource returns the current API secret
type SecretSource interface {
	APISecret() string
}

// SignatureVerifier checks the Content-Hmac header of a notification
type SignatureVerifier struct {
	secrets SecretSource
}

// NewSignatureVerifier creates a verifier reading the secret at call time
func NewSignatureVerifier(secrets SecretSource) *SignatureVerifier {
	return &SignatureVerifier{secrets: secrets}
}

// Verify returns domain.ErrSecretNotConfigured when no secret is set and
// domain.ErrSignatureInvalid when the header is missing or does not match body.
func (v *SignatureVerifier) Verify(headers http.Header, body []byte) error {
	secret := ""
	if v.secrets != nil {
		secret = v.secrets.APISecret()
	}
	if secret == "" {
		return domain.ErrSecretNotConfigured
	}

	received := headers.Get(SignatureHeader)
	if received == "" {
		return domain.ErrSignatureInvalid
	}

	expected := Sign(body, secret)
	if !hmac.Equal([]byte(received), []byte(expected)) {
		return domain.ErrSignatureInvalid
	}
	return nil
}

// Sign computes the Content-Hmac value for body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
