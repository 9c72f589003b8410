package main

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/config"
	"inventory-connector-service/internal/database"
	"inventory-connector-service/internal/fetcher"
	"inventory-connector-service/internal/handlers"
	"inventory-connector-service/internal/middleware"
	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/repository"
	"inventory-connector-service/internal/services"
	"inventory-connector-service/internal/staging"
)

func main() {
	// Load .env if present; real deployments use the environment directly
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Vendor{},
		&models.VendorCodeMapping{},
		&models.InventoryLive{},
	); err != nil {
		log.WithError(err).Warn("Auto-migration failed")
	}
	log.Info("Database models migrated")

	// Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db)
	sinkRepo := repository.NewSinkRepository(db)

	// Initialize the vendor HTTP client and protocol executors
	client := fetcher.NewClient(cfg.RequestTimeout, float64(cfg.DefaultRateLimit), &fetcher.RetryConfig{
		MaxRetries:     cfg.SyncMaxRetries,
		InitialBackoff: cfg.SyncRetryDelay,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryableErrors: []int{
			429, 500, 502, 503, 504,
		},
	})
	executors := fetcher.NewRegistry(client, log)

	// Initialize services
	configLoader := services.NewConfigLoader(cfg.ConfigBaseURL, cfg.RequestTimeout, log)
	stagingStore := staging.NewStore(cfg.StagingDir, log)
	syncService := services.NewSyncService(cfg, log, catalogRepo, sinkRepo, configLoader, executors, stagingStore)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(syncService)
	syncHandler := handlers.NewSyncHandler(syncService)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo)
	inventoryHandler := handlers.NewInventoryHandler(catalogRepo)

	// Setup router
	router := setupRouter(log, healthHandler, syncHandler, catalogHandler, inventoryHandler)

	// Start server
	log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
	}).Info("Inventory Connector Service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	log *logrus.Logger,
	healthHandler *handlers.HealthHandler,
	syncHandler *handlers.SyncHandler,
	catalogHandler *handlers.CatalogHandler,
	inventoryHandler *handlers.InventoryHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		// Sync Jobs
		syncJobs := v1.Group("/sync")
		{
			syncJobs.GET("/jobs", syncHandler.ListJobs)
			syncJobs.POST("/jobs", syncHandler.CreateJob)
			syncJobs.GET("/jobs/:id", syncHandler.GetJob)
			syncJobs.POST("/jobs/:id/cancel", syncHandler.CancelJob)
		}

		// Vendor catalog
		vendors := v1.Group("/vendors")
		{
			vendors.GET("", catalogHandler.ListVendors)
			vendors.GET("/:vendorId", catalogHandler.GetVendor)
			vendors.GET("/:vendorId/codes", catalogHandler.ListVendorCodes)
			vendors.GET("/:vendorId/inventory", inventoryHandler.ListInventory)
		}
	}

	return router
}
