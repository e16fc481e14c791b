package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"crypto_analysis_backend/config"
	"crypto_analysis_backend/middleware"
	"crypto_analysis_backend/models"
	"crypto_analysis_backend/routes"
	"crypto_analysis_backend/scheduler"
	"crypto_analysis_backend/services"
	"crypto_analysis_backend/services/datafetcher"
)

// dbInitialized tracks whether the database has been successfully
// initialized, so the /ready endpoint can report readiness dynamically
var dbInitialized bool
var dbInitMutex sync.RWMutex

// jobScheduler is assigned by the background init goroutine and read by
// the shutdown path
var jobScheduler *scheduler.Scheduler
var jobSchedulerMutex sync.RWMutex

func setJobScheduler(s *scheduler.Scheduler) {
	jobSchedulerMutex.Lock()
	jobScheduler = s
	jobSchedulerMutex.Unlock()
}

func activeJobScheduler() *scheduler.Scheduler {
	jobSchedulerMutex.RLock()
	defer jobSchedulerMutex.RUnlock()
	return jobScheduler
}

func main() {
	log.Println("==============================================")
	log.Println("  Crypto Analysis Backend - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	middleware.InitRateLimiters()

	// Setup health check endpoints FIRST so the platform can detect the
	// service is up. Database is initialized in background.
	setupHealthEndpoints(router)

	// Create HTTP server. Bind to 0.0.0.0 explicitly for container
	// networking.
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	// Start server immediately so the platform knows we're listening
	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize database and setup routes in background
	go func() {
		// Initialize database connection
		db, err := config.InitDB()
		if err != nil {
			log.Printf("ERROR: Database connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		// Run database migrations
		log.Println("Running database migrations...")
		if err := runMigrations(); err != nil {
			log.Printf("ERROR: Migration failed: %v", err)
		} else {
			log.Println("Database migrations completed successfully")
		}

		// Initialize global services
		cmcClient, cache := initializeGlobalServices()

		// Seed the default asset universe
		fetcher := datafetcher.NewDataFetcher(db, cmcClient)
		if err := fetcher.SeedAssets(); err != nil {
			log.Printf("Warning: Could not seed assets: %v", err)
		}

		// Mark database as ready
		dbInitMutex.Lock()
		dbInitialized = true
		dbInitMutex.Unlock()

		// Setup all API routes
		routes.SetupRoutes(router, db, cmcClient, cache)

		// Start background scheduler
		if cmcClient != nil {
			js := scheduler.NewScheduler(db, cmcClient, cache)
			setJobScheduler(js)
			go js.Start()
		} else {
			log.Println("CMC client unavailable, scheduler not started")
		}

		log.Println("Application fully initialized with database")
	}()

	// Graceful shutdown
	gracefulShutdown(server)
}

// runMigrations runs all database migrations
func runMigrations() error {
	db := config.DB

	if err := models.MigrateAssetModels(db); err != nil {
		return err
	}

	if err := models.MigrateUserModels(db); err != nil {
		return err
	}

	return nil
}

// initializeGlobalServices initializes global service instances and
// returns the shared CMC client and quote cache
func initializeGlobalServices() (*services.CMCClient, *services.QuoteCache) {
	// Initialize the quote store first (other services publish into it)
	if err := services.InitQuoteStore(config.AppConfig.DataDir); err != nil {
		log.Printf("Warning: Failed to initialize quote store: %v", err)
	}

	// Initialize local analytics store
	if err := services.InitAnalyticsDB(config.AppConfig.DataDir); err != nil {
		log.Printf("Warning: Failed to initialize analytics DB: %v", err)
	}

	// Initialize realtime quote streaming
	if err := services.InitRealtimeQuoteService(); err != nil {
		log.Printf("Warning: Failed to initialize realtime service: %v", err)
	}

	// Initialize MongoDB archive if configured
	if err := services.InitMongoDBClient(config.AppConfig.MongoURI); err != nil {
		log.Printf("MongoDB not configured or failed to connect: %v", err)
	}

	cmcClient, err := services.NewCMCClient(config.AppConfig.CMCAPIKey, config.AppConfig.CMCBaseURL)
	if err != nil {
		log.Printf("Warning: CMC client not available: %v", err)
		cmcClient = nil
	}

	cache := services.NewQuoteCache(
		filepath.Join(config.AppConfig.DataDir, "crypto_cache.json"),
		config.AppConfig.QuoteCacheTTL,
	)

	log.Println("Global services initialized")
	return cmcClient, cache
}

// setupHealthEndpoints sets up health check endpoints
func setupHealthEndpoints(router *gin.Engine) {
	// Root endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Crypto Analysis Backend API",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks if service is ready to receive traffic
	router.GET("/ready", func(c *gin.Context) {
		dbInitMutex.RLock()
		isDBReady := dbInitialized
		dbInitMutex.RUnlock()

		if !isDBReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database not connected",
			})
			return
		}

		sqlDB, err := config.DB.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database connection error",
			})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Database ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})

	// Startup probe
	router.GET("/startup", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "started",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/startup" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown handles graceful shutdown of the server
func gracefulShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	// Stop scheduler first
	if js := activeJobScheduler(); js != nil {
		js.Stop()
	}

	// Disconnect WebSocket clients
	if services.GlobalRealtimeService != nil {
		services.GlobalRealtimeService.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close database connection
	if config.DB != nil {
		sqlDB, err := config.DB.DB()
		if err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	// Close local stores
	if services.GlobalAnalyticsDB != nil {
		services.GlobalAnalyticsDB.Close()
	}
	if services.GlobalMongoClient != nil {
		services.GlobalMongoClient.Close()
	}

	log.Println("Server shutdown completed")
}
