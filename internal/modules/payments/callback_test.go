package payments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseExternalReference(t *testing.T) {
	cases := []struct {
		ref    string
		wantID int64
		wantOK bool
	}{
		{"RHCI-DN-83-20260101114005", 83, true},
		{"RHCI-DN-1-x", 1, true}, // trailing garbage after the id segment is irrelevant
		{"RHCI-DN-007-20260101114005", 7, true},
		{"", 0, false},
		{"INVALID", 0, false},
		{"RHCI-DN", 0, false},
		{"RHCI-DN-abc-20260101114005", 0, false},
		{"RHCI-DN-0-20260101114005", 0, false},
		{"RHCI-DN--20260101114005", 0, false},
	}
	for _, tc := range cases {
		id, ok := ParseExternalReference(tc.ref)
		if ok != tc.wantOK || id != tc.wantID {
			t.Errorf("ParseExternalReference(%q) = (%d, %v), want (%d, %v)",
				tc.ref, id, ok, tc.wantID, tc.wantOK)
		}
	}
}

func TestExternalReference_RoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 1, 11, 40, 5, 0, time.UTC)
	ref := ExternalReference(83, at)
	if ref != "RHCI-DN-83-20260101114005" {
		t.Fatalf("ExternalReference = %q", ref)
	}
	id, ok := ParseExternalReference(ref)
	if !ok || id != 83 {
		t.Fatalf("round trip = (%d, %v)", id, ok)
	}
}

func TestExtractCallback_ProductionFieldNames(t *testing.T) {
	ev := ExtractCallback(map[string]any{
		"reference":         "azam-ref-9",
		"utilityref":        "RHCI-DN-83-20260101114005",
		"transactionstatus": "success",
		"operator":          "Halopesa",
		"amount":            "100",
		"msisdn":            "255712345678",
		"password":          "hook-secret",
	})

	if ev.TransactionID != "azam-ref-9" {
		t.Errorf("TransactionID = %q", ev.TransactionID)
	}
	if ev.ExternalReference != "RHCI-DN-83-20260101114005" {
		t.Errorf("ExternalReference = %q", ev.ExternalReference)
	}
	if ev.Status != "success" {
		t.Errorf("Status = %q", ev.Status)
	}
	if ev.Provider != "Halopesa" {
		t.Errorf("Provider = %q", ev.Provider)
	}
	if !ev.HasAmount || !ev.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Amount = %v (has=%v)", ev.Amount, ev.HasAmount)
	}
	if ev.Password != "hook-secret" {
		t.Errorf("Password = %q", ev.Password)
	}
}

func TestExtractCallback_LegacyAliases(t *testing.T) {
	ev := ExtractCallback(map[string]any{
		"transid":    "legacy-txn-1",
		"externalId": "RHCI-DN-5-20250101000000",
		"status":     "FAILED",
		"provider":   "Tigo",
	})
	if ev.TransactionID != "legacy-txn-1" {
		t.Errorf("TransactionID = %q", ev.TransactionID)
	}
	if ev.ExternalReference != "RHCI-DN-5-20250101000000" {
		t.Errorf("ExternalReference = %q", ev.ExternalReference)
	}
	if ev.Status != "FAILED" || ev.Provider != "Tigo" {
		t.Errorf("Status=%q Provider=%q", ev.Status, ev.Provider)
	}
}

func TestExtractCallback_ProductionNamesWinOverLegacy(t *testing.T) {
	ev := ExtractCallback(map[string]any{
		"reference":         "prod-ref",
		"transactionId":     "legacy-ref",
		"transactionstatus": "success",
		"status":            "failure",
	})
	if ev.TransactionID != "prod-ref" {
		t.Errorf("TransactionID = %q, production alias should win", ev.TransactionID)
	}
	if ev.Status != "success" {
		t.Errorf("Status = %q, production alias should win", ev.Status)
	}
}

func TestExtractCallback_NumericAmount(t *testing.T) {
	ev := ExtractCallback(map[string]any{"amount": 230000.0})
	if !ev.HasAmount || !ev.Amount.Equal(decimal.NewFromInt(230000)) {
		t.Errorf("Amount = %v (has=%v)", ev.Amount, ev.HasAmount)
	}
}

func TestDonationID_FallbackToAdditionalProperties(t *testing.T) {
	// unparsable reference, id recovered from additionalProperties
	ev := ExtractCallback(map[string]any{
		"utilityref":           "INVALID",
		"additionalProperties": map[string]any{"donation_id": "42"},
	})
	id, ok := ev.DonationID()
	if !ok || id != 42 {
		t.Fatalf("DonationID = (%d, %v), want (42, true)", id, ok)
	}

	// reference wins when both are present
	ev = ExtractCallback(map[string]any{
		"utilityref":           "RHCI-DN-83-20260101114005",
		"additionalProperties": map[string]any{"donation_id": "42"},
	})
	id, ok = ev.DonationID()
	if !ok || id != 83 {
		t.Fatalf("DonationID = (%d, %v), want (83, true)", id, ok)
	}

	// numeric donation_id as delivered by JSON decoding
	ev = ExtractCallback(map[string]any{
		"additionalProperties": map[string]any{"donation_id": 7.0},
	})
	id, ok = ev.DonationID()
	if !ok || id != 7 {
		t.Fatalf("DonationID = (%d, %v), want (7, true)", id, ok)
	}
}

func TestDonationID_Unresolvable(t *testing.T) {
	ev := ExtractCallback(map[string]any{"utilityref": "INVALID"})
	if id, ok := ev.DonationID(); ok {
		t.Fatalf("DonationID = (%d, true), want unresolvable", id)
	}

	ev = ExtractCallback(map[string]any{
		"utilityref":           "INVALID",
		"additionalProperties": map[string]any{"donation_id": "-3"},
	})
	if id, ok := ev.DonationID(); ok {
		t.Fatalf("DonationID = (%d, true), want unresolvable for non-positive id", id)
	}
}

func TestFamilyOf(t *testing.T) {
	cases := []struct {
		status string
		want   statusFamily
	}{
		{"success", familySuccess},
		{"SUCCESS", familySuccess},
		{"Successful", familySuccess},
		{"completed", familySuccess},
		{" success ", familySuccess},
		{"failed", familyFailure},
		{"FAILURE", familyFailure},
		{"cancelled", familyCancelled},
		{"CANCELED", familyCancelled},
		{"pending", familyUnknown},
		{"", familyUnknown},
		{"timeout", familyUnknown},
	}
	for _, tc := range cases {
		if got := familyOf(tc.status); got != tc.want {
			t.Errorf("familyOf(%q) = %d, want %d", tc.status, got, tc.want)
		}
	}
}
