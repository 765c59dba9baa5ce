package callback

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/cloudpayments-service/internal/domain"
)

// Labels shown with the payment in the order back office
const (
	labelCardholderName = "Имя держателя карты"
	labelPayerEmail     = "E-mail адрес плательщика"
	cardNumberFormat    = "Номер карты: %s****%s"
)

// ViewText renders the human-readable payment summary
func ViewText(f *domain.CallbackFields) string {
	lines := make([]string, 0, 3)
	if f.Name != "" {
		lines = append(lines, labelCardholderName+": "+f.Name)
	}
	if f.Email != "" {
		lines = append(lines, labelPayerEmail+": "+f.Email)
	}
	lines = append(lines, fmt.Sprintf(cardNumberFormat, f.CardFirstSix, f.CardLastFour))
	return strings.Join(lines, "\n")
}

// NormalizeTransaction maps a verified notification to a stored record.
// Every accepted notification is a successful two-step authorization.
func NormalizeTransaction(f *domain.CallbackFields, invoice domain.InvoiceID) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:         uuid.New(),
		Plugin:     domain.PluginID,
		AppID:      invoice.AppID,
		MerchantID: invoice.MerchantID,
		OrderID:    invoice.OrderID,
		Type:       domain.TransactionTypeAuthOnly,
		NativeID:   f.TransactionID,
		Amount:     f.Amount,
		CurrencyID: f.Currency,
		Result:     domain.TransactionResultSuccess,
		ViewData:   ViewText(f),
		RawData:    f.Raw,
		CreatedAt:  time.Now().UTC(),
	}
}
