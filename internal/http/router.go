package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"rhci.org/portal/internal/http/handlers"
	"rhci.org/portal/internal/http/middleware"
	"rhci.org/portal/internal/modules/donations"
	"rhci.org/portal/internal/modules/patients"
	"rhci.org/portal/internal/modules/payments"
)

type Config struct {
	WebhookSecret      string
	EnableManualUpdate bool
	USDToTZSRate       decimal.Decimal
}

func NewRouter(logger *slog.Logger, db *gorm.DB, gateway payments.Gateway, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ErrorHandler(logger))

	donationSvc := donations.NewService(db)
	patientSvc := patients.NewService(db)
	reconcileSvc := payments.NewReconcileService(db, cfg.WebhookSecret, logger)
	checkoutSvc := payments.NewCheckoutService(db, gateway, cfg.USDToTZSRate, logger)
	statusSvc := payments.NewStatusService(db, gateway, reconcileSvc, logger)

	donationH := handlers.NewDonationHandler(donationSvc)
	patientH := handlers.NewPatientHandler(patientSvc)
	callbackH := handlers.NewCallbackHandler(logger, reconcileSvc)
	checkoutH := handlers.NewCheckoutHandler(logger, checkoutSvc)
	statusH := handlers.NewStatusHandler(logger, statusSvc, reconcileSvc)
	healthH := handlers.NewHealthHandler(db)

	r.GET("/healthz", healthH.Check)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/donations", donationH.Create)
		v1.GET("/donations/:id", donationH.Get)

		v1.GET("/patients/:id/funding", patientH.Funding)

		pay := v1.Group("/payments")
		{
			pay.POST("/azampay/mno/checkout", checkoutH.Mobile)
			pay.POST("/azampay/bank/checkout", checkoutH.Bank)
			pay.POST("/azampay/callback", callbackH.Handle)
			pay.GET("/status", statusH.Check)

			if cfg.EnableManualUpdate {
				pay.POST("/azampay/manual-update", statusH.ManualUpdate)
			}
		}
	}

	return r
}
