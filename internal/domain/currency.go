package domain

import (
	"fmt"
	"strings"
)

// allowedCurrencies lists ISO 4217 codes CloudPayments accepts.
// Russian legal entities must agree non-RUB currencies with the gateway first.
var allowedCurrencies = map[string]struct{}{
	"RUB": {}, "EUR": {}, "USD": {}, "GBP": {}, "UAH": {}, "BYN": {},
	"KZT": {}, "AZN": {}, "CHF": {}, "CZK": {}, "CAD": {}, "PLN": {},
	"SEK": {}, "TRY": {}, "CNY": {}, "INR": {}, "BRL": {},
}

// AllowedCurrencies returns the supported currency codes in display order.
func AllowedCurrencies() []string {
	return []string{
		"RUB", "EUR", "USD", "GBP", "UAH", "BYN", "KZT", "AZN", "CHF",
		"CZK", "CAD", "PLN", "SEK", "TRY", "CNY", "INR", "BRL",
	}
}

// IsCurrencyAllowed reports whether code can be sent to the gateway.
func IsCurrencyAllowed(code string) bool {
	_, ok := allowedCurrencies[strings.ToUpper(code)]
	return ok
}

// TaxationSystem is the merchant's tax regime used for online receipts.
type TaxationSystem int

const (
	TaxationGeneral                      TaxationSystem = 0
	TaxationSimplifiedIncomeOnly         TaxationSystem = 1
	TaxationSimplifiedIncomeMinusExpense TaxationSystem = 2
	TaxationImputedIncome                TaxationSystem = 3
	TaxationAgriculture                  TaxationSystem = 4
	TaxationLicense                      TaxationSystem = 5
)

func (t TaxationSystem) String() string {
	switch t {
	case TaxationGeneral:
		return "general"
	case TaxationSimplifiedIncomeOnly:
		return "simplified_income_only"
	case TaxationSimplifiedIncomeMinusExpense:
		return "simplified_income_minus_expense"
	case TaxationImputedIncome:
		return "imputed_income"
	case TaxationAgriculture:
		return "agriculture"
	case TaxationLicense:
		return "license"
	default:
		return "unknown"
	}
}

// Validate rejects values outside the known regimes.
func (t TaxationSystem) Validate() error {
	if t < TaxationGeneral || t > TaxationLicense {
		return fmt.Errorf("invalid taxation system: %d", int(t))
	}
	return nil
}
