package main

import (
	"context"
	"embed"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinicbook/backend/clients"
	"github.com/clinicbook/backend/config"
	"github.com/clinicbook/backend/config/db"
	redisclient "github.com/clinicbook/backend/config/redis"
	"github.com/clinicbook/backend/controllers/booking_controller"
	"github.com/clinicbook/backend/controllers/payment_controller"
	"github.com/clinicbook/backend/controllers/room_controller"
	"github.com/clinicbook/backend/controllers/user_controller"
	"github.com/clinicbook/backend/logger"
	"github.com/clinicbook/backend/middlewares/cors"
	"github.com/clinicbook/backend/models/booking_models"
	"github.com/clinicbook/backend/models/room_models"
	"github.com/clinicbook/backend/models/summary_models"
	"github.com/clinicbook/backend/models/user_models"
	"github.com/clinicbook/backend/routes"
	"github.com/clinicbook/backend/utils/mail"
)

//go:embed templates/email/*
var embeddedEmailTemplates embed.FS

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

func main() {
	db.Connect()
	defer db.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	mail.InitTemplates(embeddedEmailTemplates)
	logger.InfoLogger.Info("Email templates initialized.")

	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := user_models.EnsureIndexes(setupCtx, db.DB); err != nil {
		logger.ErrorLogger.Errorf("Failed to ensure user indexes: %v", err)
		os.Exit(1)
	}
	if err := booking_models.EnsureIndexes(setupCtx, db.DB); err != nil {
		logger.ErrorLogger.Errorf("Failed to ensure booking indexes: %v", err)
		os.Exit(1)
	}
	if err := summary_models.EnsureIndexes(setupCtx, db.DB); err != nil {
		logger.ErrorLogger.Errorf("Failed to ensure summary indexes: %v", err)
		os.Exit(1)
	}
	if err := room_models.EnsureSeedRooms(setupCtx, db.DB); err != nil {
		logger.ErrorLogger.Errorf("Failed to seed rooms: %v", err)
		os.Exit(1)
	}
	setupCancel()

	rdb, err := redisclient.GetRedisClient(context.Background())
	if err != nil {
		logger.WarnLogger.Warnf("Redis unavailable; checkout holds and rate limits disabled: %v", err)
	}

	paymentClient := clients.NewRazorpayClient(
		os.Getenv("RAZORPAY_KEY_ID"),
		os.Getenv("RAZORPAY_KEY_SECRET"),
	)
	mailer := mail.NewSMTPMailer()

	bookingService := booking_controller.NewBookingService(db.DB, rdb, paymentClient)
	reconciliation := payment_controller.NewReconciliationService(db.DB, paymentClient, mailer)
	userController := user_controller.NewUserController(db.DB, mailer)
	roomController := room_controller.NewRoomController(db.DB)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.CorsMiddleware())

	routes.RegisterUserRoutes(r, userController)
	routes.RegisterRoomRoutes(r, roomController)
	routes.RegisterBookingRoutes(r, bookingService)
	routes.RegisterPaymentRoutes(r, reconciliation)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.InfoLogger.Infof("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorLogger.Errorf("Server failed to start: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.InfoLogger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}

	redisclient.CloseRedis()
	logger.InfoLogger.Info("Server exited")
}
