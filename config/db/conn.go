package db

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/clinicbook/backend/logger"
)

var (
	client *mongo.Client

	// DB is the application database handle. Route registration passes it
	// into the services so handlers never reach for package state themselves.
	DB *mongo.Database
)

// Connect establishes the MongoDB connection and pings it before the server
// starts taking traffic.
func Connect() {
	uri := os.Getenv("MONGO_URL")
	if uri == "" {
		logger.ErrorLogger.Error("MONGO_URL not set")
		os.Exit(1)
	}

	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "clinicbook"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetServerSelectionTimeout(5 * time.Second)

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.ErrorLogger.Errorf("MongoDB connection error: %v", err)
		os.Exit(1)
	}

	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		logger.ErrorLogger.Errorf("MongoDB unreachable: %v", err)
		os.Exit(1)
	}

	client = c
	DB = c.Database(dbName)
	logger.InfoLogger.Infof("Connected to MongoDB database %q", dbName)
}

// Close disconnects the client. Safe to call when Connect never ran.
func Close() {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.ErrorLogger.Errorf("Error disconnecting from MongoDB: %v", err)
		return
	}
	logger.InfoLogger.Info("Disconnected from MongoDB.")
}
