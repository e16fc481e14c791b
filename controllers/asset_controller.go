package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"crypto_analysis_backend/models"
	"crypto_analysis_backend/services"
	"crypto_analysis_backend/services/datafetcher"
)

// AssetController handles asset-related requests
type AssetController struct {
	db          *gorm.DB
	dataFetcher *datafetcher.DataFetcher
	indicators  *services.IndicatorService
}

// NewAssetController creates a new asset controller
func NewAssetController(db *gorm.DB, client *services.CMCClient) *AssetController {
	return &AssetController{
		db:          db,
		dataFetcher: datafetcher.NewDataFetcher(db, client),
		indicators:  services.NewIndicatorService(db),
	}
}

// GetAssets returns list of all tracked assets
// GET /api/v1/assets
func (ac *AssetController) GetAssets(c *gin.Context) {
	var assets []models.Asset

	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset := (page - 1) * limit

	query := ac.db.Model(&models.Asset{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	if err := query.Order("rank ASC").Limit(limit).Offset(offset).Find(&assets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": assets,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetAsset returns a single asset by ID or symbol
// GET /api/v1/assets/:symbol
func (ac *AssetController) GetAsset(c *gin.Context) {
	id := c.Param("symbol")

	var asset models.Asset

	// Try to find by ID first, then by symbol
	if err := ac.db.Where("id = ? OR symbol = ?", id, id).First(&asset).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch asset"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": asset})
}

// SearchAssets searches for assets by symbol or name
// GET /api/v1/assets/search
func (ac *AssetController) SearchAssets(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query required"})
		return
	}

	var assets []models.Asset
	err := ac.db.Where("symbol ILIKE ? OR name ILIKE ?", "%"+query+"%", "%"+query+"%").
		Limit(20).
		Find(&assets).Error

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assets})
}

// GetAssetQuotes returns historical quote data for an asset
// GET /api/v1/assets/:symbol/quotes
func (ac *AssetController) GetAssetQuotes(c *gin.Context) {
	symbol := c.Param("symbol")

	var asset models.Asset
	if err := ac.db.Where("symbol = ?", symbol).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	startDate := c.DefaultQuery("start_date", time.Now().AddDate(0, -1, 0).Format("2006-01-02"))
	endDate := c.DefaultQuery("end_date", time.Now().Format("2006-01-02"))

	var quotes []models.AssetQuote
	err := ac.db.Where("asset_id = ? AND date BETWEEN ? AND ?", asset.ID, startDate, endDate).
		Order("date DESC").
		Find(&quotes).Error

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  quotes,
		"asset": asset,
	})
}

// GetTechnicalIndicators returns stored technical indicators for an asset
// GET /api/v1/assets/:symbol/indicators
func (ac *AssetController) GetTechnicalIndicators(c *gin.Context) {
	symbol := c.Param("symbol")

	var asset models.Asset
	if err := ac.db.Where("symbol = ?", symbol).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	indicators, err := ac.indicators.GetIndicators(asset.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch indicators"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  indicators,
		"asset": asset,
	})
}

// CalculateIndicators calculates and saves technical indicators for an asset
// POST /api/v1/assets/:symbol/indicators/calculate
func (ac *AssetController) CalculateIndicators(c *gin.Context) {
	symbol := c.Param("symbol")

	var asset models.Asset
	if err := ac.db.Where("symbol = ?", symbol).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if dateStr := c.Query("date"); dateStr != "" {
		parsedDate, err := time.Parse("2006-01-02", dateStr)
		if err == nil {
			date = parsedDate
		}
	}

	if err := ac.indicators.CalculateAllIndicators(&asset, date); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Indicators calculated successfully"})
}

// GetAssetRSI returns the current RSI for an asset
// GET /api/v1/assets/:symbol/rsi
func (ac *AssetController) GetAssetRSI(c *gin.Context) {
	symbol := c.Param("symbol")

	var asset models.Asset
	if err := ac.db.Where("symbol = ?", symbol).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	period, _ := strconv.Atoi(c.DefaultQuery("period", "14"))

	rsi, err := ac.indicators.AssetRSI(&asset, period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"symbol": asset.Symbol,
			"period": period,
			"rsi":    rsi,
		},
	})
}

// FetchHistoricalData backfills historical quotes for an asset
// POST /api/v1/assets/:symbol/fetch-historical
func (ac *AssetController) FetchHistoricalData(c *gin.Context) {
	symbol := c.Param("symbol")

	stored, err := ac.dataFetcher.FetchHistoricalQuotes(symbol, historicalFetchCount(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Historical data fetched successfully",
		"stored":  stored,
	})
}

// historicalFetchCount reads the optional request body and clamps the
// number of days to backfill
func historicalFetchCount(c *gin.Context) int {
	var request struct {
		Count int `json:"count"`
	}
	// Body is optional, the default count applies
	c.ShouldBindJSON(&request)

	if request.Count <= 0 || request.Count > 365 {
		return 30
	}
	return request.Count
}

// GetIndicatorHistory returns indicator history from the analytics store
// GET /api/v1/assets/:symbol/indicators/history
func (ac *AssetController) GetIndicatorHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	indicatorType := c.DefaultQuery("type", "RSI")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if services.GlobalAnalyticsDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics store not available"})
		return
	}

	history, err := services.GlobalAnalyticsDB.GetIndicatorHistory(symbol, indicatorType, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch indicator history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":   history,
		"symbol": symbol,
		"type":   indicatorType,
	})
}
