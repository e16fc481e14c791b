package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cacheResponse(symbol string, price float64) *QuotesLatestResponse {
	return &QuotesLatestResponse{
		Data: map[string][]CMCQuoteData{
			symbol: {{
				ID:     1,
				Symbol: symbol,
				Quote:  map[string]CMCQuote{"USD": {Price: price}},
			}},
		},
	}
}

func TestCacheKeyNormalizesSymbols(t *testing.T) {
	assert.Equal(t, "BTC,ETH", CacheKey([]string{"eth", " btc "}))
	assert.Equal(t, CacheKey([]string{"BTC", "ETH"}), CacheKey([]string{"ETH", "BTC"}))
}

func TestQuoteCacheSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewQuoteCache(path, time.Hour)

	_, ok := cache.Get([]string{"BTC"})
	assert.False(t, ok)

	cache.Set([]string{"BTC"}, cacheResponse("BTC", 65000))

	cached, ok := cache.Get([]string{"btc"})
	require.True(t, ok)
	assert.Equal(t, 65000.0, cached.Data["BTC"][0].Quote["USD"].Price)
	assert.Equal(t, 1, cache.Len())
}

func TestQuoteCachePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	cache := NewQuoteCache(path, time.Hour)
	cache.Set([]string{"BTC", "ETH"}, cacheResponse("BTC", 65000))

	reloaded := NewQuoteCache(path, time.Hour)
	cached, ok := reloaded.Get([]string{"ETH", "BTC"})
	require.True(t, ok)
	assert.Equal(t, 65000.0, cached.Data["BTC"][0].Quote["USD"].Price)
}

func TestQuoteCacheExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewQuoteCache(path, 10*time.Millisecond)

	cache.Set([]string{"BTC"}, cacheResponse("BTC", 65000))
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get([]string{"BTC"})
	assert.False(t, ok)
}

func TestQuoteCacheToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	cache := NewQuoteCache(path, time.Hour)
	assert.Equal(t, 0, cache.Len())

	// Still usable after a failed load
	cache.Set([]string{"BTC"}, cacheResponse("BTC", 65000))
	_, ok := cache.Get([]string{"BTC"})
	assert.True(t, ok)
}

func TestQuoteCacheConcurrentSetsPersistAllEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewQuoteCache(path, time.Hour)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			symbol := fmt.Sprintf("SYM%d", n)
			cache.Set([]string{symbol}, cacheResponse(symbol, float64(n)))
		}(i)
	}
	wg.Wait()

	// The file written last must reflect every completed Set
	reloaded := NewQuoteCache(path, time.Hour)
	assert.Equal(t, writers, reloaded.Len())
	for i := 0; i < writers; i++ {
		_, ok := reloaded.Get([]string{fmt.Sprintf("SYM%d", i)})
		assert.True(t, ok)
	}
}

func TestQuoteCacheClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	cache := NewQuoteCache(path, time.Hour)

	cache.Set([]string{"BTC"}, cacheResponse("BTC", 65000))
	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
