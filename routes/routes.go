package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"crypto_analysis_backend/controllers"
	"crypto_analysis_backend/middleware"
	"crypto_analysis_backend/services"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, client *services.CMCClient, cache *services.QuoteCache) {
	// Initialize controllers
	assetController := controllers.NewAssetController(db, client)
	marketController := controllers.NewMarketController(client, cache)
	screenerController := controllers.NewScreenerController(services.GlobalQuoteStore)
	reportController := controllers.NewReportController(db)
	userController := controllers.NewUserController(db)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", userController.Register)
			auth.POST("/login", middleware.LoginRateLimitMiddleware(), userController.Login)
		}

		// Asset routes
		assets := api.Group("/assets")
		{
			assets.GET("", assetController.GetAssets)
			assets.GET("/search", assetController.SearchAssets)
			assets.GET("/:symbol", assetController.GetAsset)
			assets.GET("/:symbol/quotes", assetController.GetAssetQuotes)
			assets.GET("/:symbol/rsi", assetController.GetAssetRSI)
			assets.GET("/:symbol/indicators", assetController.GetTechnicalIndicators)
			assets.GET("/:symbol/indicators/history", assetController.GetIndicatorHistory)
			assets.POST("/:symbol/indicators/calculate", middleware.JWTAuthMiddleware(), assetController.CalculateIndicators)
			assets.POST("/:symbol/fetch-historical", middleware.JWTAuthMiddleware(), middleware.SyncRateLimitMiddleware(), assetController.FetchHistoricalData)
		}

		// Market routes
		market := api.Group("/market")
		{
			market.GET("/quotes", marketController.GetQuotes)
			market.GET("/quotes/:symbol", marketController.GetQuote)
			market.GET("/top-gainers", marketController.GetTopGainers)
			market.GET("/top-losers", marketController.GetTopLosers)
			market.GET("/top-volume", marketController.GetTopVolume)
			market.GET("/top-momentum", marketController.GetTopMomentum)
			market.GET("/stats", marketController.GetMarketStats)
			market.GET("/sync/status", marketController.GetSyncStatus)
			market.GET("/sync/history", marketController.GetSyncHistory)
			market.POST("/sync", middleware.JWTAuthMiddleware(), middleware.SyncRateLimitMiddleware(), marketController.SyncQuotes)
			market.POST("/cache/clear", middleware.JWTAuthMiddleware(), middleware.AdminRoleMiddleware(), marketController.ClearQuoteCache)
		}

		// Screener routes
		screener := api.Group("/screener")
		{
			screener.POST("/screen", screenerController.Screen)
			screener.GET("/presets", screenerController.GetPresets)
			screener.GET("/presets/:id", screenerController.RunPreset)
		}

		// Report routes
		reports := api.Group("/reports")
		{
			reports.GET("", reportController.GetReports)
			reports.GET("/archive", reportController.GetArchivedReports)
			reports.POST("/momentum", middleware.JWTAuthMiddleware(), middleware.SyncRateLimitMiddleware(), reportController.GenerateMomentumReport)
			reports.POST("/asset/:symbol", middleware.JWTAuthMiddleware(), middleware.SyncRateLimitMiddleware(), reportController.GenerateAssetReport)
		}

		// User routes
		users := api.Group("/users")
		{
			users.GET("", middleware.JWTAuthMiddleware(), middleware.AdminRoleMiddleware(), userController.GetUsers)

			me := users.Group("/me", middleware.JWTAuthMiddleware())
			{
				me.GET("", userController.GetProfile)
				me.PUT("", userController.UpdateProfile)
				me.GET("/watchlist", userController.GetWatchlist)
				me.POST("/watchlist", userController.AddToWatchlist)
				me.DELETE("/watchlist/:id", userController.RemoveFromWatchlist)
				me.GET("/alerts", userController.GetAlerts)
				me.POST("/alerts", userController.CreateAlert)
				me.DELETE("/alerts/:id", userController.DeleteAlert)
			}
		}
	}

	// WebSocket quote stream
	router.GET("/ws/quotes", func(c *gin.Context) {
		if services.GlobalRealtimeService == nil {
			c.JSON(503, gin.H{"error": "Realtime service not available"})
			return
		}
		services.GlobalRealtimeService.HandleWebSocket(c.Writer, c.Request)
	})
}
