package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crypto_analysis_backend/config"
	"crypto_analysis_backend/services"
	"crypto_analysis_backend/services/datafetcher"
)

// MarketController serves latest market quotes from the in-memory store
// and manages quote syncs
type MarketController struct {
	client *services.CMCClient
	cache  *services.QuoteCache
}

// NewMarketController creates a new market controller
func NewMarketController(client *services.CMCClient, cache *services.QuoteCache) *MarketController {
	return &MarketController{
		client: client,
		cache:  cache,
	}
}

// GetQuotes returns paginated latest quotes
// GET /api/v1/market/quotes
func (mc *MarketController) GetQuotes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	search := c.Query("search")
	sortBy := c.DefaultQuery("sort_by", "market_cap")
	sortOrder := c.DefaultQuery("sort_order", "desc")

	response := services.GlobalQuoteStore.GetQuotes(page, pageSize, search, sortBy, sortOrder)
	c.JSON(http.StatusOK, gin.H{"data": response})
}

// GetQuote returns the latest quote for a symbol
// GET /api/v1/market/quotes/:symbol
func (mc *MarketController) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	quote, err := services.GlobalQuoteStore.GetBySymbol(symbol)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// GetTopGainers returns top gainers by 24h percent change
// GET /api/v1/market/top-gainers
func (mc *MarketController) GetTopGainers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	c.JSON(http.StatusOK, gin.H{"data": services.GlobalQuoteStore.GetTopGainers(limit)})
}

// GetTopLosers returns top losers by 24h percent change
// GET /api/v1/market/top-losers
func (mc *MarketController) GetTopLosers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	c.JSON(http.StatusOK, gin.H{"data": services.GlobalQuoteStore.GetTopLosers(limit)})
}

// GetTopVolume returns most traded assets by 24h volume
// GET /api/v1/market/top-volume
func (mc *MarketController) GetTopVolume(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	c.JSON(http.StatusOK, gin.H{"data": services.GlobalQuoteStore.GetTopVolume(limit)})
}

// GetTopMomentum returns assets with the highest momentum score
// GET /api/v1/market/top-momentum
func (mc *MarketController) GetTopMomentum(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	c.JSON(http.StatusOK, gin.H{"data": services.GlobalQuoteStore.GetTopMomentum(limit)})
}

// GetMarketStats returns aggregate statistics over stored quotes
// GET /api/v1/market/stats
func (mc *MarketController) GetMarketStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": services.GlobalQuoteStore.GetStats()})
}

// SyncQuotes triggers a quote sync for the ticker universe or an explicit
// symbol list
// POST /api/v1/market/sync
func (mc *MarketController) SyncQuotes(c *gin.Context) {
	if mc.client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "CMC client not configured"})
		return
	}

	if services.GlobalQuoteStore.IsSyncing() {
		c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
		return
	}

	var request struct {
		Symbols []string `json:"symbols"`
	}
	// Body is optional, fall back to the ticker file
	c.ShouldBindJSON(&request)

	symbols := request.Symbols
	if len(symbols) == 0 {
		loaded, err := datafetcher.LoadTickerFile(config.AppConfig.TickerFile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No symbols provided and ticker file unavailable"})
			return
		}
		symbols = loaded
	}

	result, err := services.GlobalQuoteStore.SyncFromCMC(
		mc.client, mc.cache, symbols,
		config.AppConfig.QuoteBatchSize,
		config.AppConfig.BatchDelayMs,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetSyncStatus returns the current sync state
// GET /api/v1/market/sync/status
func (mc *MarketController) GetSyncStatus(c *gin.Context) {
	status := gin.H{
		"is_syncing": services.GlobalQuoteStore.IsSyncing(),
		"quotes":     services.GlobalQuoteStore.Count(),
	}
	if lastSync := services.GlobalQuoteStore.GetLastSyncTime(); lastSync != nil {
		status["last_sync"] = lastSync
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

// GetSyncHistory returns recent sync runs from the analytics store
// GET /api/v1/market/sync/history
func (mc *MarketController) GetSyncHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if services.GlobalAnalyticsDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics store not available"})
		return
	}

	history, err := services.GlobalAnalyticsDB.GetRecentSyncs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}

// ClearQuoteCache clears the quote response cache
// POST /api/v1/market/cache/clear
func (mc *MarketController) ClearQuoteCache(c *gin.Context) {
	if mc.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cache not available"})
		return
	}

	mc.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Quote cache cleared"})
}
