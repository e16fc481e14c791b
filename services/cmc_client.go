package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CoinMarketCap Pro API configuration
const (
	DefaultCMCBaseURL = "https://pro-api.coinmarketcap.com"
	// CMCQuoteBatchSize is the maximum number of symbols per quotes/latest call
	CMCQuoteBatchSize = 100
	// CMCMaxRetries is the number of attempts per request
	CMCMaxRetries = 3
)

// ErrRateLimited indicates the API returned HTTP 429
var ErrRateLimited = errors.New("rate limited by CoinMarketCap API")

// CMCClient is a client for the CoinMarketCap Pro API
type CMCClient struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	rateLimitDelay time.Duration
}

// NewCMCClient creates a new CoinMarketCap client. The API key is required.
func NewCMCClient(apiKey, baseURL string) (*CMCClient, error) {
	if apiKey == "" {
		return nil, errors.New("no CMC_API_KEY found in environment variables")
	}
	if baseURL == "" {
		baseURL = DefaultCMCBaseURL
	}

	return &CMCClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries:     CMCMaxRetries,
		retryBaseDelay: 1 * time.Second,
		rateLimitDelay: 10 * time.Second,
	}, nil
}

// CMCStatus represents the status envelope in every CMC response
type CMCStatus struct {
	Timestamp    string `json:"timestamp"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	CreditCount  int    `json:"credit_count"`
}

// CMCQuote represents USD quote values for an asset
type CMCQuote struct {
	Price            float64 `json:"price"`
	Volume24h        float64 `json:"volume_24h"`
	MarketCap        float64 `json:"market_cap"`
	PercentChange1h  float64 `json:"percent_change_1h"`
	PercentChange24h float64 `json:"percent_change_24h"`
	PercentChange7d  float64 `json:"percent_change_7d"`
	LastUpdated      string  `json:"last_updated"`
}

// CMCQuoteData represents a single asset entry in quotes/latest responses
type CMCQuoteData struct {
	ID      int64               `json:"id"`
	Name    string              `json:"name"`
	Symbol  string              `json:"symbol"`
	Slug    string              `json:"slug"`
	CMCRank int                 `json:"cmc_rank"`
	Quote   map[string]CMCQuote `json:"quote"`
}

// QuotesLatestResponse represents the quotes/latest response. Data is keyed
// by symbol; each symbol may map to several assets sharing the ticker.
type QuotesLatestResponse struct {
	Status CMCStatus                 `json:"status"`
	Data   map[string][]CMCQuoteData `json:"data"`
}

// CMCHistoricalQuote represents one point in a historical quote series
type CMCHistoricalQuote struct {
	Timestamp string              `json:"timestamp"`
	Quote     map[string]CMCQuote `json:"quote"`
}

// QuotesHistoricalResponse represents the quotes/historical response
type QuotesHistoricalResponse struct {
	Status CMCStatus `json:"status"`
	Data   struct {
		ID     int64                `json:"id"`
		Name   string               `json:"name"`
		Symbol string               `json:"symbol"`
		Quotes []CMCHistoricalQuote `json:"quotes"`
	} `json:"data"`
}

// QuotesLatest fetches latest USD quotes for a batch of symbols
// (at most CMCQuoteBatchSize per call)
func (c *CMCClient) QuotesLatest(symbols []string) (*QuotesLatestResponse, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols provided")
	}
	if len(symbols) > CMCQuoteBatchSize {
		return nil, fmt.Errorf("too many symbols in one batch: %d (max %d)", len(symbols), CMCQuoteBatchSize)
	}

	normalized := make([]string, len(symbols))
	for i, s := range symbols {
		normalized[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	sort.Strings(normalized)

	params := url.Values{}
	params.Set("symbol", strings.Join(normalized, ","))
	params.Set("convert", "USD")

	body, err := c.doRequest("/v2/cryptocurrency/quotes/latest", params)
	if err != nil {
		return nil, err
	}

	var response QuotesLatestResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if response.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("CMC API error %d: %s", response.Status.ErrorCode, response.Status.ErrorMessage)
	}

	return &response, nil
}

// QuotesHistorical fetches historical quotes for an asset by CMC ID
func (c *CMCClient) QuotesHistorical(cmcID int64, count int, interval string) (*QuotesHistoricalResponse, error) {
	if count <= 0 {
		count = 100
	}
	if interval == "" {
		interval = "daily"
	}

	params := url.Values{}
	params.Set("id", strconv.FormatInt(cmcID, 10))
	params.Set("count", strconv.Itoa(count))
	params.Set("interval", interval)

	body, err := c.doRequest("/v2/cryptocurrency/quotes/historical", params)
	if err != nil {
		return nil, err
	}

	var response QuotesHistoricalResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if response.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("CMC API error %d: %s", response.Status.ErrorCode, response.Status.ErrorMessage)
	}

	return &response, nil
}

// doRequest performs a GET request with retries and exponential backoff.
// HTTP 429 waits for the rate limit delay before retrying.
func (c *CMCClient) doRequest(path string, params url.Values) ([]byte, error) {
	requestURL := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2*base, ...
			delay := c.retryBaseDelay * time.Duration(1<<(attempt-1))
			if errors.Is(lastErr, ErrRateLimited) {
				delay = c.rateLimitDelay
			}
			log.Printf("CMC API retry %d/%d after %v: %v", attempt+1, c.maxRetries, delay, lastErr)
			time.Sleep(delay)
		}

		body, err := c.doOnce(requestURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("CMC request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *CMCClient) doOnce(requestURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from CMC: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, ErrRateLimited
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CMC API error (status %d): %s", resp.StatusCode, string(body[:min(200, len(body))]))
	}

	return body, nil
}

// min returns the smaller of two ints
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
