package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busfleet/internal/config"
	"busfleet/internal/handlers"
	"busfleet/internal/middleware"
	"busfleet/internal/repositories/mongodb"
	"busfleet/internal/services"
	"busfleet/pkg/cache"
	"busfleet/pkg/database"
	"busfleet/pkg/logger"
	"busfleet/pkg/push"
	"busfleet/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database).Up(); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache)

	var fcmProvider, apnsProvider push.Provider
	if cfg.Push.Enabled && cfg.Push.FCMCredentialsFile != "" {
		provider, err := push.NewFCMProvider(cfg.Push.FCMCredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize FCM provider")
		}
		fcmProvider = provider
	}
	if cfg.Push.Enabled && cfg.Push.APNSEnabled {
		provider, err := push.NewAPNSProvider(cfg.Push.APNSKeyFile, cfg.Push.APNSKeyID, cfg.Push.APNSTeamID, cfg.Push.APNSTopic, cfg.Push.APNSProduction)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize APNS provider")
		}
		apnsProvider = provider
	}

	// Repositories
	swapRepo := mongodb.NewSwapRequestRepository(db.Database)
	tempRepo := mongodb.NewTemporaryAssignmentRepository(db.Database, cacheService)
	storeRepo := mongodb.NewAssignmentRepository(db.Database, cacheService)
	driverRepo := mongodb.NewDriverRepository(db.Database, cacheService)
	tripRepo := mongodb.NewTripRepository(db.Database)
	notificationRepo := mongodb.NewNotificationRepository(db.Database)

	// Services
	tripOracle := services.NewTripService(tripRepo, cacheService, log, cfg.Swap.TripCacheTTL)
	notificationService := services.NewNotificationService(notificationRepo, driverRepo, fcmProvider, apnsProvider, log, cfg.Push.NotificationTimeout)
	tracker := services.NewAssignmentService(tempRepo, storeRepo, db, tripOracle, notificationService, log)
	swapService := services.NewSwapService(swapRepo, storeRepo, driverRepo, tracker, notificationService, log, cfg.Swap.AcceptTimeout)
	sweepService := services.NewSweepService(swapRepo, tempRepo, storeRepo, tracker, tripOracle, notificationService, log, cfg.Swap.RetentionPeriod)
	fleetService := services.NewFleetService(driverRepo, storeRepo, log)

	// Handlers
	swapHandler := handlers.NewSwapHandler(swapService, log)
	assignmentHandler := handlers.NewAssignmentHandler(tracker, log)
	fleetHandler := handlers.NewFleetHandler(fleetService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	sweepHandler := handlers.NewSweepHandler(sweepService, log)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))

	v1 := router.Group("/api/v1")
	{
		routes.SetupSwapRoutes(v1, cfg.Security.JWTSecret, swapHandler, assignmentHandler)
		routes.SetupFleetRoutes(v1, cfg.Security.JWTSecret, fleetHandler, notificationHandler)
		routes.SetupAdminRoutes(v1, cfg.Security.JWTSecret, swapHandler, assignmentHandler, fleetHandler, sweepHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})

	// Background sweep ticker. Disabled when the interval is zero; operators
	// then drive sweeps through the admin endpoint.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.Swap.SweepInterval > 0 {
		go runSweepLoop(sweepCtx, sweepService, cfg.Swap.SweepInterval, log)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.App.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
}

func runSweepLoop(ctx context.Context, sweepService services.SweepService, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sweepService.Run(ctx); err != nil {
				log.WithError(err).Error("Sweep run failed")
			}
		}
	}
}
