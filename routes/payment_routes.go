package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicbook/backend/controllers/payment_controller"
	"github.com/clinicbook/backend/middlewares/auth"
)

func RegisterPaymentRoutes(router *gin.Engine, rs *payment_controller.ReconciliationService) {
	// The processor calls the webhook directly; it authenticates with its
	// signature, not a user token.
	router.POST("/payments/webhook", rs.Webhook)

	// Protected routes
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/payments/verify", rs.Verify)
	}
}
