package services

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crypto_analysis_backend/models"
	"crypto_analysis_backend/services/analysis"
)

// DefaultRSIPeriod is the standard RSI window
const DefaultRSIPeriod = 14

// IndicatorService computes and persists technical indicators
type IndicatorService struct {
	db *gorm.DB
}

// NewIndicatorService creates a new indicator service
func NewIndicatorService(db *gorm.DB) *IndicatorService {
	return &IndicatorService{db: db}
}

// LoadPriceSeries returns the chronological price series for an asset,
// at most limit points
func (is *IndicatorService) LoadPriceSeries(assetID uint, limit int) ([]decimal.Decimal, error) {
	var quotes []models.AssetQuote
	err := is.db.Where("asset_id = ?", assetID).
		Order("date DESC").
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}

	prices := make([]decimal.Decimal, len(quotes))
	for i, quote := range quotes {
		prices[len(quotes)-1-i] = quote.Price
	}

	return prices, nil
}

// SaveIndicator upserts a calculated indicator value
func (is *IndicatorService) SaveIndicator(assetID uint, date time.Time, indicatorType string, period int, value, signal, histogram decimal.Decimal) error {
	indicator := models.TechnicalIndicator{
		AssetID:   assetID,
		Date:      date,
		Type:      indicatorType,
		Period:    period,
		Value:     value,
		Signal:    signal,
		Histogram: histogram,
	}

	var existing models.TechnicalIndicator
	err := is.db.Where("asset_id = ? AND date = ? AND type = ? AND period = ?",
		assetID, date, indicatorType, period).First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		return is.db.Create(&indicator).Error
	} else if err != nil {
		return err
	}

	return is.db.Model(&existing).Updates(indicator).Error
}

// CalculateAllIndicators calculates and saves all indicators for an asset
// on the given date, from its stored quote history
func (is *IndicatorService) CalculateAllIndicators(asset *models.Asset, date time.Time) error {
	// Enough history for SMA200 and MACD warm-up
	prices, err := is.LoadPriceSeries(asset.ID, 300)
	if err != nil {
		return fmt.Errorf("failed to load price series for %s: %w", asset.Symbol, err)
	}
	if len(prices) == 0 {
		return fmt.Errorf("no price history for %s", asset.Symbol)
	}

	for _, period := range []int{10, 20, 50, 200} {
		if sma, err := analysis.SMA(prices, period); err == nil {
			is.SaveIndicator(asset.ID, date, "SMA", period, sma, decimal.Zero, decimal.Zero)
			is.mirrorIndicator(asset.Symbol, "SMA", period, sma)
		}
	}

	for _, period := range []int{12, 26, 50} {
		if ema, err := analysis.EMA(prices, period); err == nil {
			is.SaveIndicator(asset.ID, date, "EMA", period, ema, decimal.Zero, decimal.Zero)
			is.mirrorIndicator(asset.Symbol, "EMA", period, ema)
		}
	}

	if rsi, err := analysis.RSI(prices, DefaultRSIPeriod); err == nil {
		is.SaveIndicator(asset.ID, date, "RSI", DefaultRSIPeriod, rsi, decimal.Zero, decimal.Zero)
		is.mirrorIndicator(asset.Symbol, "RSI", DefaultRSIPeriod, rsi)
	}

	if macd, err := analysis.MACD(prices); err == nil {
		is.SaveIndicator(asset.ID, date, "MACD", 0, macd.MACD, macd.Signal, macd.Histogram)
		is.mirrorIndicator(asset.Symbol, "MACD", 0, macd.MACD)
	}

	if bands, err := analysis.Bollinger(prices, 20); err == nil {
		is.SaveIndicator(asset.ID, date, "BB_UPPER", 20, bands.Upper, decimal.Zero, decimal.Zero)
		is.SaveIndicator(asset.ID, date, "BB_LOWER", 20, bands.Lower, decimal.Zero, decimal.Zero)
	}

	return nil
}

// AssetRSI computes the current RSI for an asset from stored history
func (is *IndicatorService) AssetRSI(asset *models.Asset, period int) (decimal.Decimal, error) {
	if period <= 0 {
		period = DefaultRSIPeriod
	}

	prices, err := is.LoadPriceSeries(asset.ID, period+1)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load price series for %s: %w", asset.Symbol, err)
	}

	return analysis.RSI(prices, period)
}

// GetIndicators returns the most recent stored indicators for an asset
func (is *IndicatorService) GetIndicators(assetID uint, limit int) ([]models.TechnicalIndicator, error) {
	if limit <= 0 {
		limit = 20
	}

	var indicators []models.TechnicalIndicator
	err := is.db.Where("asset_id = ?", assetID).
		Order("date DESC").
		Limit(limit).
		Find(&indicators).Error

	return indicators, err
}

// mirrorIndicator records the indicator in the local analytics store
func (is *IndicatorService) mirrorIndicator(symbol, indicatorType string, period int, value decimal.Decimal) {
	if GlobalAnalyticsDB == nil {
		return
	}
	v, _ := value.Float64()
	if err := GlobalAnalyticsDB.InsertIndicator(symbol, indicatorType, period, v); err != nil {
		log.Printf("Warning: failed to mirror %s%d for %s: %v", indicatorType, period, symbol, err)
	}
}
