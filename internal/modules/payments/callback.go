package payments

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ExternalRefPrefix is embedded in every checkout reference so the
// webhook can be correlated back to a donation:
// RHCI-DN-{donation_id}-{timestamp}.
const ExternalRefPrefix = "RHCI-DN"

// CallbackEvent is the canonical, request-scoped view of a webhook
// payload. It is parsed, validated, applied and discarded; nothing
// persists it.
type CallbackEvent struct {
	ExternalReference    string
	TransactionID        string
	Status               string
	Provider             string
	MSISDN               string
	Message              string
	Password             string
	Amount               decimal.Decimal
	HasAmount            bool
	AdditionalProperties map[string]any
}

// The gateway's webhook schema does not match its checkout API, and
// older deliveries used yet another set of names. Each canonical field
// has an ordered alias list: documented production names first, legacy
// aliases after. First non-empty wins.
var (
	transactionIDAliases = []string{"reference", "transid", "transactionId"}
	externalRefAliases   = []string{"externalreference", "externalId", "utilityref"}
	statusAliases        = []string{"transactionstatus", "status"}
	providerAliases      = []string{"operator", "provider"}
)

func ExtractCallback(payload map[string]any) CallbackEvent {
	ev := CallbackEvent{
		TransactionID:     firstString(payload, transactionIDAliases),
		ExternalReference: firstString(payload, externalRefAliases),
		Status:            firstString(payload, statusAliases),
		Provider:          firstString(payload, providerAliases),
		MSISDN:            stringField(payload, "msisdn"),
		Message:           stringField(payload, "message"),
		Password:          stringField(payload, "password"),
	}

	if raw, ok := payload["amount"]; ok {
		if amount, ok := toDecimal(raw); ok {
			ev.Amount = amount
			ev.HasAmount = true
		}
	}

	if props, ok := payload["additionalProperties"].(map[string]any); ok {
		ev.AdditionalProperties = props
	}

	return ev
}

// DonationID resolves the target donation. Primary: third dash-delimited
// segment of the external reference. Fallback: the donation_id carried
// in additionalProperties.
func (ev CallbackEvent) DonationID() (int64, bool) {
	if id, ok := ParseExternalReference(ev.ExternalReference); ok {
		return id, true
	}
	if ev.AdditionalProperties != nil {
		if id, ok := toInt64(ev.AdditionalProperties["donation_id"]); ok && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func ParseExternalReference(ref string) (int64, bool) {
	if ref == "" {
		return 0, false
	}
	parts := strings.Split(ref, "-")
	if len(parts) < 3 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func firstString(payload map[string]any, aliases []string) string {
	for _, key := range aliases {
		if v := stringField(payload, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(t), true
	}
	return decimal.Zero, false
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	case float64:
		return int64(t), true
	}
	return 0, false
}
