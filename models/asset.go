package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Asset represents a cryptocurrency tracked by the service
type Asset struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Symbol    string          `gorm:"uniqueIndex;not null" json:"symbol"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	CMCID     int64           `gorm:"uniqueIndex" json:"cmc_id"` // CoinMarketCap numeric ID
	Rank      int             `json:"rank"`
	MarketCap decimal.Decimal `gorm:"type:decimal(30,2)" json:"market_cap"`
	Status    string          `json:"status"` // active, inactive, untracked
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AssetQuote represents historical daily quote data for an asset
type AssetQuote struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	AssetID          uint            `gorm:"index:idx_asset_date" json:"asset_id"`
	Asset            Asset           `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Date             time.Time       `gorm:"index:idx_asset_date" json:"date"`
	Price            decimal.Decimal `gorm:"type:decimal(30,10)" json:"price"`
	Volume24h        decimal.Decimal `gorm:"type:decimal(30,2)" json:"volume_24h"`
	MarketCap        decimal.Decimal `gorm:"type:decimal(30,2)" json:"market_cap"`
	PercentChange24h decimal.Decimal `gorm:"type:decimal(12,6)" json:"percent_change_24h"`
	PercentChange7d  decimal.Decimal `gorm:"type:decimal(12,6)" json:"percent_change_7d"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TechnicalIndicator stores calculated technical indicators
type TechnicalIndicator struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	AssetID   uint            `gorm:"index:idx_asset_date_type" json:"asset_id"`
	Asset     Asset           `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
	Date      time.Time       `gorm:"index:idx_asset_date_type" json:"date"`
	Type      string          `gorm:"index:idx_asset_date_type" json:"type"` // SMA, EMA, RSI, MACD, etc.
	Period    int             `json:"period"`                                // e.g., 14 for RSI14
	Value     decimal.Decimal `gorm:"type:decimal(30,10)" json:"value"`
	Signal    decimal.Decimal `gorm:"type:decimal(30,10)" json:"signal"`    // For MACD signal line
	Histogram decimal.Decimal `gorm:"type:decimal(30,10)" json:"histogram"` // For MACD histogram
	CreatedAt time.Time       `json:"created_at"`
}

// AnalysisReport records a generated text report
type AnalysisReport struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Type        string    `gorm:"index" json:"type"` // asset_rsi, momentum
	Symbol      string    `json:"symbol"`            // empty for multi-asset reports
	FilePath    string    `json:"file_path"`
	AssetCount  int       `json:"asset_count"`
	GeneratedAt time.Time `json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Report type constants
const (
	ReportTypeAssetRSI = "asset_rsi"
	ReportTypeMomentum = "momentum"
)

// MigrateAssetModels runs database migrations for asset-related models
func MigrateAssetModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Asset{},
		&AssetQuote{},
		&TechnicalIndicator{},
		&AnalysisReport{},
	)
}
