package azampay

import (
	"fmt"
	"strings"
)

// Official provider casing from the AzamPay checkout docs. The API
// rejects anything not matching these exact strings.
var mobileProviders = map[string]string{
	"mpesa":    "Mpesa",
	"airtel":   "Airtel",
	"tigo":     "Tigo",
	"halopesa": "Halopesa",
	"halotel":  "Halopesa", // alternative name for Halopesa
	"azampesa": "Azampesa",
}

var bankProviders = map[string]string{
	"crdb": "CRDB",
	"nmb":  "NMB",
}

func NormalizeMobileProvider(provider string) (string, error) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "").Replace(provider))
	name, ok := mobileProviders[key]
	if !ok {
		return "", fmt.Errorf("unsupported mobile provider %q", provider)
	}
	return name, nil
}

func NormalizeBankProvider(provider string) (string, error) {
	name, ok := bankProviders[strings.ToLower(provider)]
	if !ok {
		return "", fmt.Errorf("unsupported bank provider %q", provider)
	}
	return name, nil
}

// NormalizePhone converts a Tanzanian phone number to the 255XXXXXXXXX
// format the gateway expects.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "255"):
		return cleaned
	case strings.HasPrefix(cleaned, "0"):
		return "255" + cleaned[1:]
	case len(cleaned) == 9:
		return "255" + cleaned
	default:
		return cleaned
	}
}
