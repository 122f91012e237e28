package main

import (
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"rhci.org/portal/internal/azampay"
	apphttp "rhci.org/portal/internal/http"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Database connection
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	gatewayCfg, err := azampay.ConfigFromEnv()
	if err != nil {
		log.Fatalf("gateway config: %v", err)
	}
	gateway := azampay.NewClient(gatewayCfg, logger)

	cfg := apphttp.Config{
		WebhookSecret:      os.Getenv("AZAMPAY_WEBHOOK_PASSWORD"),
		EnableManualUpdate: os.Getenv("PAYMENTS_ENABLE_MANUAL_UPDATE") == "true",
	}
	if rate := os.Getenv("PAYMENTS_USD_TZS_RATE"); rate != "" {
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			log.Fatalf("invalid PAYMENTS_USD_TZS_RATE: %v", err)
		}
		cfg.USDToTZSRate = parsed
	}

	if cfg.WebhookSecret == "" {
		logger.Warn("AZAMPAY_WEBHOOK_PASSWORD not set; callbacks are unauthenticated")
	}

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}

	r := apphttp.NewRouter(logger, db, gateway, cfg)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
