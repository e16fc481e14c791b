package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCMCClient(t *testing.T, baseURL string) *CMCClient {
	t.Helper()
	client, err := NewCMCClient("test-key", baseURL)
	require.NoError(t, err)
	// Keep retries fast in tests
	client.retryBaseDelay = time.Millisecond
	client.rateLimitDelay = time.Millisecond
	return client
}

func latestResponseBody(symbol string, price float64) string {
	return fmt.Sprintf(`{
		"status": {"error_code": 0},
		"data": {
			"%s": [{
				"id": 1,
				"name": "Bitcoin",
				"symbol": "%s",
				"slug": "bitcoin",
				"cmc_rank": 1,
				"quote": {"USD": {"price": %f, "volume_24h": 100, "market_cap": 200, "percent_change_24h": 1.5, "percent_change_7d": 3.0}}
			}]
		}
	}`, symbol, symbol, price)
}

func TestNewCMCClientRequiresKey(t *testing.T) {
	_, err := NewCMCClient("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CMC_API_KEY")
}

func TestQuotesLatest(t *testing.T) {
	var gotPath, gotKey, gotSymbols, gotConvert string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-CMC_PRO_API_KEY")
		gotSymbols = r.URL.Query().Get("symbol")
		gotConvert = r.URL.Query().Get("convert")
		fmt.Fprint(w, latestResponseBody("BTC", 65000))
	}))
	defer server.Close()

	client := newTestCMCClient(t, server.URL)

	response, err := client.QuotesLatest([]string{" btc "})
	require.NoError(t, err)

	assert.Equal(t, "/v2/cryptocurrency/quotes/latest", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "BTC", gotSymbols)
	assert.Equal(t, "USD", gotConvert)

	entries := response.Data["BTC"]
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, 65000.0, entries[0].Quote["USD"].Price)
}

func TestQuotesLatestBatchTooLarge(t *testing.T) {
	client := newTestCMCClient(t, "http://unused")

	symbols := make([]string, CMCQuoteBatchSize+1)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}

	_, err := client.QuotesLatest(symbols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many symbols")
}

func TestQuotesLatestAPIErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": {"error_code": 1001, "error_message": "API key invalid"}, "data": {}}`)
	}))
	defer server.Close()

	client := newTestCMCClient(t, server.URL)

	_, err := client.QuotesLatest([]string{"BTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1001")
	assert.Contains(t, err.Error(), "API key invalid")
}

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, latestResponseBody("BTC", 65000))
	}))
	defer server.Close()

	client := newTestCMCClient(t, server.URL)

	_, err := client.QuotesLatest([]string{"BTC"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoRequestRetriesRateLimit(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, latestResponseBody("BTC", 65000))
	}))
	defer server.Close()

	client := newTestCMCClient(t, server.URL)

	_, err := client.QuotesLatest([]string{"BTC"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDoRequestGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestCMCClient(t, server.URL)

	_, err := client.QuotesLatest([]string{"BTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(CMCMaxRetries), atomic.LoadInt32(&calls))
}

func TestQuotesHistorical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/cryptocurrency/quotes/historical", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("id"))
		assert.Equal(t, "14", r.URL.Query().Get("count"))
		assert.Equal(t, "daily", r.URL.Query().Get("interval"))

		response := QuotesHistoricalResponse{}
		response.Data.ID = 1
		response.Data.Symbol = "BTC"
		response.Data.Quotes = []CMCHistoricalQuote{
			{Timestamp: "2024-03-14T00:00:00.000Z", Quote: map[string]CMCQuote{"USD": {Price: 64000}}},
			{Timestamp: "2024-03-15T00:00:00.000Z", Quote: map[string]CMCQuote{"USD": {Price: 65000}}},
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestCMCClient(t, server.URL)

	response, err := client.QuotesHistorical(1, 14, "daily")
	require.NoError(t, err)
	require.Len(t, response.Data.Quotes, 2)
	assert.Equal(t, 65000.0, response.Data.Quotes[1].Quote["USD"].Price)
}
