package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"crypto_analysis_backend/config"
	"crypto_analysis_backend/models"
	"crypto_analysis_backend/services"
	"crypto_analysis_backend/services/datafetcher"
	"crypto_analysis_backend/services/reports"
)

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron       *gocron.Scheduler
	db         *gorm.DB
	client     *services.CMCClient
	cache      *services.QuoteCache
	fetcher    *datafetcher.DataFetcher
	indicators *services.IndicatorService
	reports    *reports.Writer
}

// NewScheduler creates a new scheduler instance
func NewScheduler(db *gorm.DB, client *services.CMCClient, cache *services.QuoteCache) *Scheduler {
	return &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		db:         db,
		client:     client,
		cache:      cache,
		fetcher:    datafetcher.NewDataFetcher(db, client),
		indicators: services.NewIndicatorService(db),
		reports:    reports.NewWriter(config.AppConfig.ReportDir),
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Sync latest quotes at the configured interval
	interval := config.AppConfig.SyncIntervalMins
	if interval <= 0 {
		interval = 60
	}
	s.cron.Every(interval).Minutes().Do(func() {
		s.syncQuotes()
	})

	// Backfill daily historical data at 00:10 UTC
	s.cron.Every(1).Day().At("00:10").Do(func() {
		s.fetchDailyHistoricalData()
	})

	// Calculate technical indicators daily at 00:30 UTC
	s.cron.Every(1).Day().At("00:30").Do(func() {
		s.calculateDailyIndicators()
	})

	// Generate analysis reports daily at 01:00 UTC
	s.cron.Every(1).Day().At("01:00").Do(func() {
		s.generateDailyReports()
	})

	// Check and trigger user alerts every 5 minutes
	s.cron.Every(5).Minutes().Do(func() {
		s.checkUserAlerts()
	})

	// Cleanup old data weekly on Sunday at 02:00 UTC
	s.cron.Every(1).Week().Sunday().At("02:00").Do(func() {
		s.cleanupOldData()
	})

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// tickerUniverse returns the symbols to sync, preferring the ticker file
// and falling back to active assets in the database
func (s *Scheduler) tickerUniverse() []string {
	symbols, err := datafetcher.LoadTickerFile(config.AppConfig.TickerFile)
	if err == nil && len(symbols) > 0 {
		return symbols
	}
	if err != nil {
		log.Printf("Ticker file unavailable, falling back to database: %v", err)
	}

	var assets []models.Asset
	if err := s.db.Where("status = ?", "active").Find(&assets).Error; err != nil {
		log.Printf("Error loading assets: %v", err)
		return nil
	}

	result := make([]string, 0, len(assets))
	for _, asset := range assets {
		result = append(result, asset.Symbol)
	}
	return result
}

// syncQuotes syncs latest quotes for the ticker universe
func (s *Scheduler) syncQuotes() {
	log.Println("Running scheduled quote sync...")

	symbols := s.tickerUniverse()
	if len(symbols) == 0 {
		log.Println("No symbols to sync")
		return
	}

	result, err := services.GlobalQuoteStore.SyncFromCMC(
		s.client, s.cache, symbols,
		config.AppConfig.QuoteBatchSize,
		config.AppConfig.BatchDelayMs,
	)
	if err != nil {
		log.Printf("Scheduled quote sync failed: %v", err)
		return
	}

	if services.GlobalMongoClient != nil {
		if err := services.GlobalMongoClient.ArchiveSyncSnapshot(result, services.GlobalQuoteStore.GetAll()); err != nil {
			log.Printf("Warning: failed to archive sync snapshot: %v", err)
		}
	}
}

// fetchDailyHistoricalData backfills recent daily quotes for all active assets
func (s *Scheduler) fetchDailyHistoricalData() {
	log.Println("Fetching daily historical data...")

	var assets []models.Asset
	if err := s.db.Where("status = ?", "active").Find(&assets).Error; err != nil {
		log.Printf("Error loading assets: %v", err)
		return
	}

	fetched := 0
	for _, asset := range assets {
		stored, err := s.fetcher.FetchHistoricalQuotes(asset.Symbol, 30)
		if err != nil {
			log.Printf("Error fetching historical data for %s: %v", asset.Symbol, err)
			continue
		}
		fetched += stored
	}

	log.Printf("Fetched historical data for %d assets (%d new quotes)", len(assets), fetched)
}

// calculateDailyIndicators calculates technical indicators for all assets
func (s *Scheduler) calculateDailyIndicators() {
	log.Println("Calculating daily technical indicators...")

	var assets []models.Asset
	if err := s.db.Where("status = ?", "active").Find(&assets).Error; err != nil {
		log.Printf("Error loading assets: %v", err)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := range assets {
		if err := s.indicators.CalculateAllIndicators(&assets[i], today); err != nil {
			log.Printf("Error calculating indicators for %s: %v", assets[i].Symbol, err)
		}
	}

	log.Printf("Calculated indicators for %d assets", len(assets))
}

// generateDailyReports writes the BTC RSI report and the momentum report
func (s *Scheduler) generateDailyReports() {
	log.Println("Generating daily analysis reports...")

	now := time.Now()

	if err := s.generateAssetRSIReport("BTC", now); err != nil {
		log.Printf("Error generating BTC RSI report: %v", err)
	}

	if err := s.generateMomentumReport(now); err != nil {
		log.Printf("Error generating momentum report: %v", err)
	}
}

// generateAssetRSIReport writes the single-asset RSI report for a symbol
func (s *Scheduler) generateAssetRSIReport(symbol string, at time.Time) error {
	var asset models.Asset
	if err := s.db.Where("symbol = ?", symbol).First(&asset).Error; err != nil {
		return fmt.Errorf("asset not found: %w", err)
	}

	rsi, err := s.indicators.AssetRSI(&asset, services.DefaultRSIPeriod)
	if err != nil {
		return fmt.Errorf("failed to calculate RSI for %s: %w", symbol, err)
	}

	price := 0.0
	if quote, err := services.GlobalQuoteStore.GetBySymbol(symbol); err == nil {
		price = quote.Price
	} else {
		var latest models.AssetQuote
		if err := s.db.Where("asset_id = ?", asset.ID).Order("date DESC").First(&latest).Error; err == nil {
			price, _ = latest.Price.Float64()
		}
	}

	rsiValue, _ := rsi.Float64()
	path, err := s.reports.WriteAssetReport(asset.Name, price, rsiValue, at)
	if err != nil {
		return err
	}
	log.Printf("%s RSI report written to %s", symbol, path)

	s.recordReport(models.ReportTypeAssetRSI, symbol, path, 1, at)
	s.archiveReport(models.ReportTypeAssetRSI, symbol,
		reports.FormatAssetReport(asset.Name, price, rsiValue, at), 1, at)
	return nil
}

// generateMomentumReport writes the multi-asset momentum report from the
// current quote store contents
func (s *Scheduler) generateMomentumReport(at time.Time) error {
	quotes := services.GlobalQuoteStore.GetAll()
	if len(quotes) == 0 {
		return fmt.Errorf("no quotes available")
	}

	entries := make([]reports.MomentumEntry, 0, len(quotes))
	for _, quote := range quotes {
		entries = append(entries, reports.MomentumEntry{
			Symbol:        quote.Symbol,
			Price:         quote.Price,
			MomentumScore: quote.MomentumScore,
		})
	}

	path, err := s.reports.WriteMomentumReport(entries, at)
	if err != nil {
		return err
	}
	log.Printf("Momentum report written to %s (%d assets)", path, len(entries))

	s.recordReport(models.ReportTypeMomentum, "", path, len(entries), at)
	s.archiveReport(models.ReportTypeMomentum, "",
		reports.FormatMomentumReport(entries, at), len(entries), at)
	return nil
}

// recordReport stores a report record in the relational database
func (s *Scheduler) recordReport(reportType, symbol, path string, assetCount int, at time.Time) {
	record := models.AnalysisReport{
		Type:        reportType,
		Symbol:      symbol,
		FilePath:    path,
		AssetCount:  assetCount,
		GeneratedAt: at,
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("Warning: failed to record report: %v", err)
	}
}

// archiveReport stores the report content in MongoDB when configured
func (s *Scheduler) archiveReport(reportType, symbol, content string, assetCount int, at time.Time) {
	if services.GlobalMongoClient == nil {
		return
	}
	err := services.GlobalMongoClient.ArchiveReport(&services.MongoReportDocument{
		Type:        reportType,
		Symbol:      symbol,
		Content:     content,
		AssetCount:  assetCount,
		GeneratedAt: at,
	})
	if err != nil {
		log.Printf("Warning: failed to archive report: %v", err)
	}
}

// checkUserAlerts checks and triggers user price alerts against the latest
// quote store prices
func (s *Scheduler) checkUserAlerts() {
	var alerts []models.UserAlert
	if err := s.db.Where("is_active = ? AND is_triggered = ?", true, false).
		Preload("Asset").Find(&alerts).Error; err != nil {
		log.Printf("Error loading alerts: %v", err)
		return
	}
	if len(alerts) == 0 {
		return
	}

	for _, alert := range alerts {
		quote, err := services.GlobalQuoteStore.GetBySymbol(alert.Asset.Symbol)
		if err != nil {
			continue
		}

		target, _ := alert.TargetValue.Float64()

		shouldTrigger := false
		switch alert.AlertType {
		case models.UserAlertTypePriceAbove:
			shouldTrigger = quote.Price >= target
		case models.UserAlertTypePriceBelow:
			shouldTrigger = quote.Price <= target
		case models.UserAlertTypePercentChange:
			change := quote.PercentChange24h
			if change < 0 {
				change = -change
			}
			shouldTrigger = change >= target
		}

		if shouldTrigger {
			now := time.Now()
			s.db.Model(&alert).Updates(map[string]interface{}{
				"is_triggered": true,
				"triggered_at": now,
			})

			// Here you would send email/push notification
			log.Printf("Alert triggered for user %d, asset %s", alert.UserID, alert.Asset.Symbol)
		}
	}
}

// cleanupOldData removes old data to save storage
func (s *Scheduler) cleanupOldData() {
	log.Println("Cleaning up old data...")

	// Delete quote history older than 2 years
	twoYearsAgo := time.Now().AddDate(-2, 0, 0)
	if err := s.db.Where("date < ?", twoYearsAgo).Delete(&models.AssetQuote{}).Error; err != nil {
		log.Printf("Error cleaning up old quotes: %v", err)
	}

	// Delete old indicators (keep last 6 months)
	sixMonthsAgo := time.Now().AddDate(0, -6, 0)
	if err := s.db.Where("date < ?", sixMonthsAgo).Delete(&models.TechnicalIndicator{}).Error; err != nil {
		log.Printf("Error cleaning up old indicators: %v", err)
	}

	// Delete triggered alerts older than 30 days
	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	if err := s.db.Where("is_triggered = ? AND triggered_at < ?", true, thirtyDaysAgo).
		Delete(&models.UserAlert{}).Error; err != nil {
		log.Printf("Error cleaning up old alerts: %v", err)
	}

	// Prune local analytics snapshots older than 90 days
	if services.GlobalAnalyticsDB != nil {
		if err := services.GlobalAnalyticsDB.PruneSnapshots(time.Now().AddDate(0, 0, -90)); err != nil {
			log.Printf("Error pruning analytics snapshots: %v", err)
		}
	}

	log.Println("Cleanup completed")
}
