package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"crypto_analysis_backend/config"
	"crypto_analysis_backend/models"
	"crypto_analysis_backend/services"
	"crypto_analysis_backend/services/reports"
)

// ReportController generates and serves analysis reports
type ReportController struct {
	db         *gorm.DB
	indicators *services.IndicatorService
	writer     *reports.Writer
}

// NewReportController creates a new report controller
func NewReportController(db *gorm.DB) *ReportController {
	return &ReportController{
		db:         db,
		indicators: services.NewIndicatorService(db),
		writer:     reports.NewWriter(config.AppConfig.ReportDir),
	}
}

// GenerateAssetReport generates the RSI report for a single asset
// POST /api/v1/reports/asset/:symbol
func (rc *ReportController) GenerateAssetReport(c *gin.Context) {
	symbol := c.Param("symbol")

	var asset models.Asset
	if err := rc.db.Where("symbol = ?", symbol).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	rsi, err := rc.indicators.AssetRSI(&asset, services.DefaultRSIPeriod)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	price := 0.0
	if quote, err := services.GlobalQuoteStore.GetBySymbol(asset.Symbol); err == nil {
		price = quote.Price
	} else {
		var latest models.AssetQuote
		if err := rc.db.Where("asset_id = ?", asset.ID).Order("date DESC").First(&latest).Error; err == nil {
			price, _ = latest.Price.Float64()
		}
	}

	now := time.Now()
	rsiValue, _ := rsi.Float64()

	path, err := rc.writer.WriteAssetReport(asset.Name, price, rsiValue, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	content := reports.FormatAssetReport(asset.Name, price, rsiValue, now)
	rc.record(models.ReportTypeAssetRSI, asset.Symbol, path, content, 1, now)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"type":      models.ReportTypeAssetRSI,
			"symbol":    asset.Symbol,
			"file_path": path,
			"rsi":       rsiValue,
			"price":     price,
			"content":   content,
		},
	})
}

// GenerateMomentumReport generates the multi-asset momentum report from
// the current quote store
// POST /api/v1/reports/momentum
func (rc *ReportController) GenerateMomentumReport(c *gin.Context) {
	quotes := services.GlobalQuoteStore.GetAll()
	if len(quotes) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "No quotes available, run a sync first"})
		return
	}

	entries := make([]reports.MomentumEntry, 0, len(quotes))
	for _, quote := range quotes {
		entries = append(entries, reports.MomentumEntry{
			Symbol:        quote.Symbol,
			Price:         quote.Price,
			MomentumScore: quote.MomentumScore,
		})
	}

	now := time.Now()
	path, err := rc.writer.WriteMomentumReport(entries, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	content := reports.FormatMomentumReport(entries, now)
	rc.record(models.ReportTypeMomentum, "", path, content, len(entries), now)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"type":        models.ReportTypeMomentum,
			"file_path":   path,
			"asset_count": len(entries),
			"content":     content,
		},
	})
}

// GetReports returns recorded report metadata
// GET /api/v1/reports
func (rc *ReportController) GetReports(c *gin.Context) {
	reportType := c.Query("type")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	query := rc.db.Model(&models.AnalysisReport{})
	if reportType != "" {
		query = query.Where("type = ?", reportType)
	}

	var records []models.AnalysisReport
	if err := query.Order("generated_at DESC").Limit(limit).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// GetArchivedReports returns archived report contents from MongoDB
// GET /api/v1/reports/archive
func (rc *ReportController) GetArchivedReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConfigured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report archive not available"})
		return
	}

	archived, err := services.GlobalMongoClient.GetRecentReports(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": archived})
}

// record stores report metadata in the database and archives the content
// in MongoDB when configured
func (rc *ReportController) record(reportType, symbol, path, content string, assetCount int, at time.Time) {
	record := models.AnalysisReport{
		Type:        reportType,
		Symbol:      symbol,
		FilePath:    path,
		AssetCount:  assetCount,
		GeneratedAt: at,
	}
	rc.db.Create(&record)

	if services.GlobalMongoClient != nil {
		services.GlobalMongoClient.ArchiveReport(&services.MongoReportDocument{
			Type:        reportType,
			Symbol:      symbol,
			Content:     content,
			AssetCount:  assetCount,
			GeneratedAt: at,
		})
	}
}
