package screener

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto_analysis_backend/services"
)

func seedStore(t *testing.T) *services.InMemoryQuoteStore {
	t.Helper()
	store := services.NewInMemoryQuoteStore(filepath.Join(t.TempDir(), services.QuoteDataFileName))

	add := func(symbol string, price, change24h, change7d, volume, marketCap float64) {
		store.UpsertCMCQuote(&services.CMCQuoteData{
			ID:     1,
			Name:   symbol,
			Symbol: symbol,
			Quote: map[string]services.CMCQuote{
				"USD": {
					Price:            price,
					Volume24h:        volume,
					MarketCap:        marketCap,
					PercentChange24h: change24h,
					PercentChange7d:  change7d,
				},
			},
		})
	}

	add("BTC", 65000, 2, 5, 100, 10_000)
	add("ETH", 3500, -4, -2, 50, 1_000)
	add("PUMP", 0.5, 12, 30, 600, 1_000)
	add("DUMP", 0.1, -8, -25, 10, 1_000)

	return store
}

func TestScreenPriceFilter(t *testing.T) {
	screener := NewQuoteScreener(seedStore(t))

	minPrice := 1000.0
	results := screener.Screen(&Filter{MinPrice: &minPrice})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Quote.Price, minPrice)
	}
}

func TestScreenChangeAndMomentumFilters(t *testing.T) {
	screener := NewQuoteScreener(seedStore(t))

	minChange := 5.0
	results := screener.Screen(&Filter{MinChange24h: &minChange})
	require.Len(t, results, 1)
	assert.Equal(t, "PUMP", results[0].Quote.Symbol)

	maxMomentum := 0.0
	results = screener.Screen(&Filter{MaxMomentum: &maxMomentum, SortBy: "momentum", SortOrder: "asc"})
	require.NotEmpty(t, results)
	assert.Equal(t, "DUMP", results[0].Quote.Symbol)
}

func TestScreenVolumeRatio(t *testing.T) {
	screener := NewQuoteScreener(seedStore(t))

	minRatio := 0.5
	results := screener.Screen(&Filter{MinVolumeRatio: &minRatio})

	require.Len(t, results, 1)
	assert.Equal(t, "PUMP", results[0].Quote.Symbol)
	assert.InDelta(t, 0.6, results[0].VolumeRatio, 0.0001)
	assert.Contains(t, results[0].MatchedCriteria, "High Turnover 0.6x")
}

func TestScreenSortAndLimit(t *testing.T) {
	screener := NewQuoteScreener(seedStore(t))

	results := screener.Screen(&Filter{SortBy: "change_24h", SortOrder: "desc", Limit: 2})

	require.Len(t, results, 2)
	assert.Equal(t, "PUMP", results[0].Quote.Symbol)
	assert.Equal(t, "BTC", results[1].Quote.Symbol)
}

func TestMatchedCriteriaLabels(t *testing.T) {
	screener := NewQuoteScreener(seedStore(t))

	results := screener.Screen(&Filter{SortBy: "momentum", SortOrder: "desc"})
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "PUMP", top.Quote.Symbol)
	assert.Contains(t, top.MatchedCriteria, "Strong Momentum")
	assert.Contains(t, top.MatchedCriteria, "Big 24h Gain")
}

func TestGetPresetScreens(t *testing.T) {
	screener := NewQuoteScreener(seedStore(t))

	presets := screener.GetPresetScreens()
	require.NotEmpty(t, presets)

	ids := make(map[string]bool)
	for _, preset := range presets {
		id, ok := preset["id"].(string)
		require.True(t, ok)
		ids[id] = true

		// Every preset filter must run cleanly
		filter, ok := preset["filter"].(Filter)
		require.True(t, ok)
		screener.Screen(&filter)
	}

	assert.True(t, ids["top_momentum"])
	assert.True(t, ids["top_gainers"])
	assert.True(t, ids["high_turnover"])
}
