package screener

import (
	"fmt"
	"sort"

	"crypto_analysis_backend/services"
)

// QuoteScreener filters and ranks assets from the quote store
type QuoteScreener struct {
	store *services.InMemoryQuoteStore
}

// NewQuoteScreener creates a new screener over the given store
func NewQuoteScreener(store *services.InMemoryQuoteStore) *QuoteScreener {
	return &QuoteScreener{store: store}
}

// Filter represents screening criteria
type Filter struct {
	MinPrice       *float64 `json:"min_price"`
	MaxPrice       *float64 `json:"max_price"`
	MinMarketCap   *float64 `json:"min_market_cap"`
	MaxMarketCap   *float64 `json:"max_market_cap"`
	MinVolume24h   *float64 `json:"min_volume_24h"`
	MinChange24h   *float64 `json:"min_change_24h"`
	MaxChange24h   *float64 `json:"max_change_24h"`
	MinChange7d    *float64 `json:"min_change_7d"`
	MaxChange7d    *float64 `json:"max_change_7d"`
	MinMomentum    *float64 `json:"min_momentum"`
	MaxMomentum    *float64 `json:"max_momentum"`
	MinVolumeRatio *float64 `json:"min_volume_ratio"` // volume_24h / market_cap
	SortBy         string   `json:"sort_by"`
	SortOrder      string   `json:"sort_order"`
	Limit          int      `json:"limit"`
}

// Result represents one matched asset
type Result struct {
	Quote           services.AssetQuoteSnapshot `json:"quote"`
	VolumeRatio     float64                     `json:"volume_ratio"`
	MatchedCriteria []string                    `json:"matched_criteria"`
}

// Screen applies the filter and returns matching assets
func (qs *QuoteScreener) Screen(filter *Filter) []Result {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	if filter.SortBy == "" {
		filter.SortBy = "momentum"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	var results []Result
	for _, quote := range qs.store.GetAll() {
		if filter.MinPrice != nil && quote.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && quote.Price > *filter.MaxPrice {
			continue
		}
		if filter.MinMarketCap != nil && quote.MarketCap < *filter.MinMarketCap {
			continue
		}
		if filter.MaxMarketCap != nil && quote.MarketCap > *filter.MaxMarketCap {
			continue
		}
		if filter.MinVolume24h != nil && quote.Volume24h < *filter.MinVolume24h {
			continue
		}
		if filter.MinChange24h != nil && quote.PercentChange24h < *filter.MinChange24h {
			continue
		}
		if filter.MaxChange24h != nil && quote.PercentChange24h > *filter.MaxChange24h {
			continue
		}
		if filter.MinChange7d != nil && quote.PercentChange7d < *filter.MinChange7d {
			continue
		}
		if filter.MaxChange7d != nil && quote.PercentChange7d > *filter.MaxChange7d {
			continue
		}
		if filter.MinMomentum != nil && quote.MomentumScore < *filter.MinMomentum {
			continue
		}
		if filter.MaxMomentum != nil && quote.MomentumScore > *filter.MaxMomentum {
			continue
		}

		volumeRatio := 0.0
		if quote.MarketCap > 0 {
			volumeRatio = quote.Volume24h / quote.MarketCap
		}
		if filter.MinVolumeRatio != nil && volumeRatio < *filter.MinVolumeRatio {
			continue
		}

		results = append(results, Result{
			Quote:           quote,
			VolumeRatio:     volumeRatio,
			MatchedCriteria: matchedCriteria(quote, volumeRatio),
		})
	}

	sortResults(results, filter.SortBy, filter.SortOrder)

	if len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results
}

// matchedCriteria labels notable conditions on a quote
func matchedCriteria(quote services.AssetQuoteSnapshot, volumeRatio float64) []string {
	criteria := []string{}

	if quote.MomentumScore >= 10 {
		criteria = append(criteria, "Strong Momentum")
	} else if quote.MomentumScore <= -10 {
		criteria = append(criteria, "Weak Momentum")
	}

	if quote.PercentChange24h >= 5 {
		criteria = append(criteria, "Big 24h Gain")
	} else if quote.PercentChange24h <= -5 {
		criteria = append(criteria, "Big 24h Drop")
	}

	if volumeRatio >= 0.5 {
		criteria = append(criteria, fmt.Sprintf("High Turnover %.1fx", volumeRatio))
	}

	return criteria
}

// GetPresetScreens returns predefined screening configurations
func (qs *QuoteScreener) GetPresetScreens() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"id":          "top_momentum",
			"name":        "Top Momentum",
			"description": "Assets with the highest weighted momentum score",
			"filter": Filter{
				SortBy:    "momentum",
				SortOrder: "desc",
			},
		},
		{
			"id":          "bottom_momentum",
			"name":        "Bottom Momentum",
			"description": "Assets with the lowest weighted momentum score",
			"filter": Filter{
				SortBy:    "momentum",
				SortOrder: "asc",
			},
		},
		{
			"id":          "top_gainers",
			"name":        "Top Gainers (24h)",
			"description": "Assets gaining more than 3% over 24 hours",
			"filter": Filter{
				MinChange24h: floatPtr(3.0),
				SortBy:       "change_24h",
				SortOrder:    "desc",
			},
		},
		{
			"id":          "top_losers",
			"name":        "Top Losers (24h)",
			"description": "Assets losing more than 3% over 24 hours",
			"filter": Filter{
				MaxChange24h: floatPtr(-3.0),
				SortBy:       "change_24h",
				SortOrder:    "asc",
			},
		},
		{
			"id":          "high_turnover",
			"name":        "High Turnover",
			"description": "Assets trading more than half their market cap in 24 hours",
			"filter": Filter{
				MinVolumeRatio: floatPtr(0.5),
				SortBy:         "volume_24h",
				SortOrder:      "desc",
			},
		},
		{
			"id":          "strong_weekly",
			"name":        "Strong Weekly Trend",
			"description": "Assets up over both 24 hours and 7 days",
			"filter": Filter{
				MinChange24h: floatPtr(0.0),
				MinChange7d:  floatPtr(5.0),
				SortBy:       "change_7d",
				SortOrder:    "desc",
			},
		},
	}
}

// sortResults sorts screening results in place
func sortResults(results []Result, sortBy, sortOrder string) {
	sort.Slice(results, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "symbol":
			less = results[i].Quote.Symbol < results[j].Quote.Symbol
		case "price":
			less = results[i].Quote.Price < results[j].Quote.Price
		case "change_24h":
			less = results[i].Quote.PercentChange24h < results[j].Quote.PercentChange24h
		case "change_7d":
			less = results[i].Quote.PercentChange7d < results[j].Quote.PercentChange7d
		case "volume_24h":
			less = results[i].Quote.Volume24h < results[j].Quote.Volume24h
		case "market_cap":
			less = results[i].Quote.MarketCap < results[j].Quote.MarketCap
		case "momentum":
			less = results[i].Quote.MomentumScore < results[j].Quote.MomentumScore
		default:
			less = results[i].Quote.MomentumScore < results[j].Quote.MomentumScore
		}

		if sortOrder == "asc" {
			return less
		}
		return !less
	})
}

func floatPtr(v float64) *float64 {
	return &v
}
