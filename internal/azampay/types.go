package azampay

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	Amount               decimal.Decimal
	Currency             string
	ExternalID           string
	Provider             string // mobile money operator, any casing
	AccountNumber        string // customer phone number
	AdditionalProperties map[string]any
}

type BankCheckoutRequest struct {
	Amount                decimal.Decimal
	Currency              string
	ExternalID            string
	Provider              string // bank code (CRDB, NMB)
	MerchantAccountNumber string
	MerchantMobileNumber  string
	OTP                   string
	AdditionalProperties  map[string]any
}

type CheckoutResponse struct {
	TransactionID string
	Message       string
}

type StatusResponse struct {
	Status  string
	Message string
}

// APIError is a rejection from the gateway itself (as opposed to a
// transport failure).
type APIError struct {
	Op          string
	Message     string
	MessageCode string
}

func (e *APIError) Error() string {
	if e.MessageCode != "" {
		return fmt.Sprintf("azampay %s: %s (code %s)", e.Op, e.Message, e.MessageCode)
	}
	return fmt.Sprintf("azampay %s: %s", e.Op, e.Message)
}
