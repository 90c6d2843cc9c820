package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicbook/backend/controllers/user_controller"
	middleware "github.com/clinicbook/backend/middlewares"
	"github.com/clinicbook/backend/middlewares/auth"
)

func RegisterUserRoutes(router *gin.Engine, uc *user_controller.UserController) {
	// Public routes
	router.POST("/register", middleware.NewRateLimiter("10-2m", "register"), uc.Register)
	router.POST("/login", middleware.NewRateLimiter("10-2m", "login"), uc.Login)
	router.POST("/verify-email", middleware.NewRateLimiter("5-1m", "verify-email"), uc.VerifyEmail)
	router.POST("/resend-otp", middleware.NewRateLimiter("5-1m", "resend-otp"), uc.ResendOTP)

	// Protected routes
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/profile", middleware.NewRateLimiter("15-30s", "profile"), uc.Profile)
	}
}
