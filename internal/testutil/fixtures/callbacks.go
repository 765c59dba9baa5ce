package fixtures

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
)

// TestAPISecret is the secret used to sign fixture callbacks
const TestAPISecret = "test_api_secret"

// PayCallbackForm returns a form-encoded Pay notification for the given invoice
func PayCallbackForm(transactionID, invoiceID string) []byte {
	v := url.Values{}
	v.Set("TransactionId", transactionID)
	v.Set("Amount", "10.50")
	v.Set("Currency", "RUB")
	v.Set("InvoiceId", invoiceID)
	v.Set("Name", "IVAN PETROV")
	v.Set("Email", "payer@example.com")
	v.Set("CardFirstSix", "424242")
	v.Set("CardLastFour", "4242")
	v.Set("Status", "Authorized")
	return []byte(v.Encode())
}

// Sign returns the Content-Hmac value for body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
