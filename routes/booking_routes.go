package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicbook/backend/controllers/booking_controller"
	middleware "github.com/clinicbook/backend/middlewares"
	"github.com/clinicbook/backend/middlewares/auth"
)

func RegisterBookingRoutes(router *gin.Engine, bs *booking_controller.BookingService) {
	// Availability is public so visitors can browse the calendar before
	// registering.
	router.GET("/availability", bs.Availability)
	router.GET("/availability/monthly-dates", bs.MonthlyDates)
	router.POST("/availability/reselect", bs.Reselect)

	// Protected routes
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/bookings", middleware.NewRateLimiter("10-1m", "create-booking"), bs.Create)
		protected.GET("/bookings", bs.ListMine)
		protected.GET("/bookings/:id", bs.Get)
		protected.POST("/quote", bs.Quote)
	}
}
