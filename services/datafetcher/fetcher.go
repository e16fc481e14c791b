package datafetcher

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crypto_analysis_backend/models"
	"crypto_analysis_backend/services"
)

// DataFetcher loads the ticker universe and backfills historical quotes
type DataFetcher struct {
	db     *gorm.DB
	client *services.CMCClient
}

// NewDataFetcher creates a new data fetcher instance
func NewDataFetcher(db *gorm.DB, client *services.CMCClient) *DataFetcher {
	return &DataFetcher{
		db:     db,
		client: client,
	}
}

// LoadTickerFile reads the ticker universe from a text file, one symbol per
// line. Blank lines are skipped and symbols are upper-cased.
func LoadTickerFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker file: %w", err)
	}
	defer f.Close()

	var symbols []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		symbol := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticker file: %w", err)
	}

	return symbols, nil
}

// SeedAssets ensures a default set of major assets exists
func (df *DataFetcher) SeedAssets() error {
	assets := []models.Asset{
		{Symbol: "BTC", Name: "Bitcoin", Slug: "bitcoin", CMCID: 1, Rank: 1, Status: "active"},
		{Symbol: "ETH", Name: "Ethereum", Slug: "ethereum", CMCID: 1027, Rank: 2, Status: "active"},
		{Symbol: "USDT", Name: "Tether", Slug: "tether", CMCID: 825, Rank: 3, Status: "active"},
		{Symbol: "BNB", Name: "BNB", Slug: "bnb", CMCID: 1839, Rank: 4, Status: "active"},
		{Symbol: "SOL", Name: "Solana", Slug: "solana", CMCID: 5426, Rank: 5, Status: "active"},
		{Symbol: "XRP", Name: "XRP", Slug: "xrp", CMCID: 52, Rank: 6, Status: "active"},
		{Symbol: "ADA", Name: "Cardano", Slug: "cardano", CMCID: 2010, Rank: 7, Status: "active"},
		{Symbol: "DOGE", Name: "Dogecoin", Slug: "dogecoin", CMCID: 74, Rank: 8, Status: "active"},
	}

	for _, asset := range assets {
		var existing models.Asset
		if err := df.db.Where("symbol = ?", asset.Symbol).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := df.db.Create(&asset).Error; err != nil {
					return fmt.Errorf("failed to create asset %s: %w", asset.Symbol, err)
				}
			} else {
				return err
			}
		}
	}

	return nil
}

// EnsureAsset finds or creates an asset record from a CMC quote entry
func (df *DataFetcher) EnsureAsset(data *services.CMCQuoteData) (*models.Asset, error) {
	var asset models.Asset
	err := df.db.Where("symbol = ?", strings.ToUpper(data.Symbol)).First(&asset).Error
	if err == nil {
		return &asset, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	asset = models.Asset{
		Symbol: strings.ToUpper(data.Symbol),
		Name:   data.Name,
		Slug:   data.Slug,
		CMCID:  data.ID,
		Rank:   data.CMCRank,
		Status: "active",
	}
	if err := df.db.Create(&asset).Error; err != nil {
		return nil, fmt.Errorf("failed to create asset %s: %w", data.Symbol, err)
	}

	return &asset, nil
}

// FetchHistoricalQuotes fetches daily historical quotes for an asset and
// stores them, skipping dates that already exist
func (df *DataFetcher) FetchHistoricalQuotes(symbol string, count int) (int, error) {
	var asset models.Asset
	if err := df.db.Where("symbol = ?", strings.ToUpper(symbol)).First(&asset).Error; err != nil {
		return 0, fmt.Errorf("asset not found: %w", err)
	}
	if asset.CMCID == 0 {
		return 0, fmt.Errorf("asset %s has no CMC ID", asset.Symbol)
	}

	response, err := df.client.QuotesHistorical(asset.CMCID, count, "daily")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch historical quotes for %s: %w", asset.Symbol, err)
	}

	stored := 0
	for _, point := range response.Data.Quotes {
		quote, ok := point.Quote["USD"]
		if !ok || quote.Price <= 0 {
			continue
		}

		date, err := parseQuoteTimestamp(point.Timestamp)
		if err != nil {
			continue
		}
		day := date.UTC().Truncate(24 * time.Hour)

		var existing models.AssetQuote
		err = df.db.Where("asset_id = ? AND date = ?", asset.ID, day).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			record := models.AssetQuote{
				AssetID:          asset.ID,
				Date:             day,
				Price:            decimal.NewFromFloat(quote.Price),
				Volume24h:        decimal.NewFromFloat(quote.Volume24h),
				MarketCap:        decimal.NewFromFloat(quote.MarketCap),
				PercentChange24h: decimal.NewFromFloat(quote.PercentChange24h),
				PercentChange7d:  decimal.NewFromFloat(quote.PercentChange7d),
			}
			if err := df.db.Create(&record).Error; err != nil {
				return stored, fmt.Errorf("failed to store quote for %s on %s: %w", asset.Symbol, day, err)
			}
			stored++
		} else if err != nil {
			return stored, err
		}
	}

	return stored, nil
}

// LoadPriceSeries returns the chronological closing price series for an asset
func (df *DataFetcher) LoadPriceSeries(assetID uint, limit int) ([]decimal.Decimal, error) {
	var quotes []models.AssetQuote
	err := df.db.Where("asset_id = ?", assetID).
		Order("date DESC").
		Limit(limit).
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order
	prices := make([]decimal.Decimal, len(quotes))
	for i, quote := range quotes {
		prices[len(quotes)-1-i] = quote.Price
	}

	return prices, nil
}

// parseQuoteTimestamp parses a CMC quote timestamp
func parseQuoteTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %s", value)
}
