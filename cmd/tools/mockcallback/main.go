package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Posts a fake AzamPay callback to a locally running server, using the
// documented production field names.
func main() {
	url := flag.String("url", "http://localhost:8080/api/v1/payments/azampay/callback", "Callback URL")
	password := flag.String("password", os.Getenv("AZAMPAY_WEBHOOK_PASSWORD"), "Webhook password")
	donationID := flag.Int64("donation-id", 0, "Donation ID to reference")
	status := flag.String("status", "success", "Transaction status (success, failure, cancelled)")
	amount := flag.String("amount", "100", "Amount")
	operator := flag.String("operator", "Halopesa", "Mobile operator")
	reference := flag.String("reference", "", "Gateway transaction reference (random if empty)")
	dryRun := flag.Bool("dry-run", false, "Only print the payload, don't send")

	flag.Parse()

	if *donationID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -donation-id is required")
		os.Exit(1)
	}

	ref := *reference
	if ref == "" {
		ref = time.Now().Format("060102") + "mock" + strconv.FormatInt(time.Now().UnixNano()%100000, 10)
	}

	payload := map[string]any{
		"transactionstatus": *status,
		"reference":         ref,
		"operator":          *operator,
		"amount":            *amount,
		"utilityref":        fmt.Sprintf("RHCI-DN-%d-%s", *donationID, time.Now().Format("20060102150405")),
		"msisdn":            "255712345678",
		"message":           "Mock callback",
	}
	if *password != "" {
		payload["password"] = *password
	}

	body, _ := json.MarshalIndent(payload, "", "  ")
	fmt.Printf("POST %s\n%s\n", *url, body)

	if *dryRun {
		return
	}

	resp, err := http.Post(*url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("-> %d\n%s\n", resp.StatusCode, out)
}
