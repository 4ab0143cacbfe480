package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"booking-payments-backend/internal/config"
	"booking-payments-backend/internal/gateway"
	handler "booking-payments-backend/internal/handlers"
	"booking-payments-backend/internal/models"
	"booking-payments-backend/internal/reconciliation"
	"booking-payments-backend/internal/repository"
	"booking-payments-backend/internal/testdetect"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	log := config.GetLogger()
	settings := config.LoadSettings()

	paymentRepo := repository.NewPaymentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	accountRepo := repository.NewGatewayAccountRepository(db)

	detector := testdetect.NewDetector(testdetect.Config{
		TestAccounts: settings.TestAccounts,
		Environment:  settings.Environment,
	})

	clientFactory := func(account *models.GatewayAccount) reconciliation.GatewayClient {
		return gateway.NewClient(settings.GatewayBaseURL, account.InstanceName, account.APIKey, log)
	}

	reconService := reconciliation.NewService(
		paymentRepo,
		bookingRepo,
		accountRepo,
		clientFactory,
		detector,
		log,
	)

	reconHandler := handler.NewReconciliationHandler(reconService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliation")
	recon.GET("/report", reconHandler.GetPortfolioReport)
	recon.GET("/bookings/:id", reconHandler.VerifyBooking)
}
