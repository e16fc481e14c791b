package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"crypto_analysis_backend/services/analysis"
)

// QuoteDataFileName is the file used to persist quote data under the data dir
const QuoteDataFileName = "quotes.json"

// AssetQuoteSnapshot represents the latest stored quote for an asset
type AssetQuoteSnapshot struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	CMCID            int64     `json:"cmc_id"`
	Rank             int       `json:"rank"`
	Price            float64   `json:"price"`
	Volume24h        float64   `json:"volume_24h"`
	MarketCap        float64   `json:"market_cap"`
	PercentChange1h  float64   `json:"percent_change_1h"`
	PercentChange24h float64   `json:"percent_change_24h"`
	PercentChange7d  float64   `json:"percent_change_7d"`
	MomentumScore    float64   `json:"momentum_score"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// QuoteDataStore represents persisted quote data
type QuoteDataStore struct {
	LastSyncAt *time.Time            `json:"last_sync_at"`
	Quotes     []*AssetQuoteSnapshot `json:"quotes"`
}

// QuoteListResponse contains paginated quote results
type QuoteListResponse struct {
	Quotes     []AssetQuoteSnapshot `json:"quotes"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// QuoteSyncResult contains the result of a quote sync operation
type QuoteSyncResult struct {
	TotalSymbols  int      `json:"total_symbols"`
	TotalBatches  int      `json:"total_batches"`
	BatchSize     int      `json:"batch_size"`
	Fetched       int      `json:"fetched"`
	Failed        int      `json:"failed"`
	FailedSymbols []string `json:"failed_symbols"`
	APICalls      int      `json:"api_calls"`
	CacheHits     int      `json:"cache_hits"`
	Errors        []string `json:"errors"`
	SyncedAt      string   `json:"synced_at"`
	Duration      string   `json:"duration"`
}

// InMemoryQuoteStore stores asset quotes in memory
type InMemoryQuoteStore struct {
	mu         sync.RWMutex
	quotes     map[string]*AssetQuoteSnapshot // key = symbol
	path       string
	lastSyncAt *time.Time
	isSyncing  bool
}

// Global in-memory quote store
var GlobalQuoteStore *InMemoryQuoteStore

// InitQuoteStore initializes the global quote store, loading persisted
// quotes from the data directory if present
func InitQuoteStore(dataDir string) error {
	GlobalQuoteStore = NewInMemoryQuoteStore(filepath.Join(dataDir, QuoteDataFileName))
	return nil
}

// NewInMemoryQuoteStore creates a new quote store and loads from file if it exists
func NewInMemoryQuoteStore(path string) *InMemoryQuoteStore {
	store := &InMemoryQuoteStore{
		quotes: make(map[string]*AssetQuoteSnapshot),
		path:   path,
	}
	if err := store.LoadFromFile(); err != nil {
		log.Printf("No existing quote data file or error loading: %v", err)
	} else {
		log.Printf("Loaded %d quotes from file", len(store.quotes))
	}
	return store
}

// SaveToFile saves all quotes to the JSON data file
func (s *InMemoryQuoteStore) SaveToFile() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	quotes := make([]*AssetQuoteSnapshot, 0, len(s.quotes))
	for _, quote := range s.quotes {
		quotes = append(quotes, quote)
	}

	data := QuoteDataStore{
		LastSyncAt: s.lastSyncAt,
		Quotes:     quotes,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal quote data: %w", err)
	}

	if err := os.WriteFile(s.path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write quote file: %w", err)
	}

	log.Printf("Saved %d quotes to %s", len(quotes), s.path)
	return nil
}

// LoadFromFile loads quotes from the JSON data file
func (s *InMemoryQuoteStore) LoadFromFile() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("quote data file not found: %s", s.path)
	}

	jsonData, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read quote file: %w", err)
	}

	var data QuoteDataStore
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal quote data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes = make(map[string]*AssetQuoteSnapshot)
	for _, quote := range data.Quotes {
		s.quotes[quote.Symbol] = quote
	}
	s.lastSyncAt = data.LastSyncAt

	return nil
}

// chunkSymbols splits a symbol list into batches of the given size
func chunkSymbols(symbols []string, batchSize int) [][]string {
	var batches [][]string
	for i := 0; i < len(symbols); i += batchSize {
		end := i + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[i:end])
	}
	return batches
}

// IsSyncing returns whether a sync is in progress
func (s *InMemoryQuoteStore) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// SyncFromCMC syncs quotes for the given symbols from the CoinMarketCap API,
// batching requests and consulting the cache before each API call
func (s *InMemoryQuoteStore) SyncFromCMC(client *CMCClient, cache *QuoteCache, symbols []string, batchSize, delayMs int) (*QuoteSyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, fmt.Errorf("sync already in progress")
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if batchSize <= 0 || batchSize > CMCQuoteBatchSize {
		batchSize = CMCQuoteBatchSize
	}

	startTime := time.Now()
	result := &QuoteSyncResult{
		BatchSize:     batchSize,
		FailedSymbols: []string{},
		Errors:        []string{},
		SyncedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	// Normalize symbols
	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol != "" {
			normalized = append(normalized, symbol)
		}
	}

	result.TotalSymbols = len(normalized)
	batches := chunkSymbols(normalized, batchSize)
	result.TotalBatches = len(batches)

	for i, batch := range batches {
		log.Printf("Processing batch %d/%d (%d symbols)", i+1, len(batches), len(batch))

		var response *QuotesLatestResponse
		if cache != nil {
			if cached, ok := cache.Get(batch); ok {
				response = cached
				result.CacheHits++
			}
		}

		if response == nil {
			fetched, err := client.QuotesLatest(batch)
			result.APICalls++
			if err != nil {
				log.Printf("Failed to fetch batch %d: %v", i+1, err)
				result.Errors = append(result.Errors, err.Error())
				result.Failed += len(batch)
				result.FailedSymbols = append(result.FailedSymbols, batch...)
				continue
			}
			response = fetched
			if cache != nil {
				cache.Set(batch, response)
			}
		}

		for _, symbol := range batch {
			entries := response.Data[symbol]
			if len(entries) == 0 {
				log.Printf("No data found for %s", symbol)
				result.Failed++
				result.FailedSymbols = append(result.FailedSymbols, symbol)
				continue
			}

			quote, ok := entries[0].Quote["USD"]
			if !ok || quote.Price <= 0 {
				log.Printf("Invalid price for %s", symbol)
				result.Failed++
				result.FailedSymbols = append(result.FailedSymbols, symbol)
				continue
			}

			s.UpsertCMCQuote(&entries[0])
			result.Fetched++
		}

		if delayMs > 0 && i < len(batches)-1 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.lastSyncAt = &now
	s.mu.Unlock()

	if err := s.SaveToFile(); err != nil {
		log.Printf("Warning: failed to save quotes to file: %v", err)
		result.Errors = append(result.Errors, fmt.Sprintf("failed to save to file: %v", err))
	}

	// Mirror snapshots into the local analytics store
	if GlobalAnalyticsDB != nil {
		if err := GlobalAnalyticsDB.InsertQuoteSnapshots(s.GetAll()); err != nil {
			log.Printf("Warning: failed to record quote snapshots: %v", err)
		}
		if err := GlobalAnalyticsDB.RecordSync("quotes", result); err != nil {
			log.Printf("Warning: failed to record sync history: %v", err)
		}
	}

	// Push fresh quotes to connected WebSocket clients
	if GlobalRealtimeService != nil {
		GlobalRealtimeService.BroadcastQuotes(s.GetAll())
	}

	result.Duration = time.Since(startTime).String()
	log.Printf("Quote sync completed: fetched=%d, failed=%d, api_calls=%d, cache_hits=%d, duration=%s",
		result.Fetched, result.Failed, result.APICalls, result.CacheHits, result.Duration)
	return result, nil
}

// UpsertCMCQuote adds or updates a quote from CMC API data
func (s *InMemoryQuoteStore) UpsertCMCQuote(data *CMCQuoteData) {
	quote, ok := data.Quote["USD"]
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	symbol := strings.ToUpper(data.Symbol)
	s.quotes[symbol] = &AssetQuoteSnapshot{
		Symbol:           symbol,
		Name:             data.Name,
		CMCID:            data.ID,
		Rank:             data.CMCRank,
		Price:            quote.Price,
		Volume24h:        quote.Volume24h,
		MarketCap:        quote.MarketCap,
		PercentChange1h:  quote.PercentChange1h,
		PercentChange24h: quote.PercentChange24h,
		PercentChange7d:  quote.PercentChange7d,
		MomentumScore: analysis.MomentumScore(
			quote.PercentChange24h,
			quote.PercentChange7d,
			quote.Volume24h,
			quote.MarketCap,
		),
		UpdatedAt: time.Now(),
	}
}

// GetQuotes returns paginated quotes with search and sorting
func (s *InMemoryQuoteStore) GetQuotes(page, pageSize int, search, sortBy, sortOrder string) *QuoteListResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	var filtered []AssetQuoteSnapshot
	searchLower := strings.ToLower(search)

	for _, quote := range s.quotes {
		if search != "" {
			symbolLower := strings.ToLower(quote.Symbol)
			nameLower := strings.ToLower(quote.Name)
			if !strings.Contains(symbolLower, searchLower) && !strings.Contains(nameLower, searchLower) {
				continue
			}
		}
		filtered = append(filtered, *quote)
	}

	sort.Slice(filtered, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "symbol":
			less = filtered[i].Symbol < filtered[j].Symbol
		case "price":
			less = filtered[i].Price < filtered[j].Price
		case "percent_change_24h":
			less = filtered[i].PercentChange24h < filtered[j].PercentChange24h
		case "percent_change_7d":
			less = filtered[i].PercentChange7d < filtered[j].PercentChange7d
		case "volume_24h":
			less = filtered[i].Volume24h < filtered[j].Volume24h
		case "market_cap":
			less = filtered[i].MarketCap < filtered[j].MarketCap
		case "momentum":
			less = filtered[i].MomentumScore < filtered[j].MomentumScore
		default:
			less = filtered[i].Symbol < filtered[j].Symbol
		}

		if sortOrder == "desc" {
			return !less
		}
		return less
	})

	total := int64(len(filtered))
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return &QuoteListResponse{
		Quotes:     filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// GetBySymbol returns a quote by symbol
func (s *InMemoryQuoteStore) GetBySymbol(symbol string) (*AssetQuoteSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, exists := s.quotes[strings.ToUpper(symbol)]
	if !exists {
		return nil, fmt.Errorf("quote not found for symbol: %s", symbol)
	}
	return quote, nil
}

// GetAll returns all quotes
func (s *InMemoryQuoteStore) GetAll() []AssetQuoteSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]AssetQuoteSnapshot, 0, len(s.quotes))
	for _, quote := range s.quotes {
		quotes = append(quotes, *quote)
	}
	return quotes
}

// Count returns the number of quotes stored
func (s *InMemoryQuoteStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}

// GetLastSyncTime returns the last sync time
func (s *InMemoryQuoteStore) GetLastSyncTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSyncAt
}

// GetStats returns statistics about stored quotes
func (s *InMemoryQuoteStore) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["total"] = len(s.quotes)

	gainers := 0
	losers := 0
	unchanged := 0
	var totalMarketCap float64

	for _, quote := range s.quotes {
		totalMarketCap += quote.MarketCap

		if quote.PercentChange24h > 0 {
			gainers++
		} else if quote.PercentChange24h < 0 {
			losers++
		} else {
			unchanged++
		}
	}

	stats["gainers"] = gainers
	stats["losers"] = losers
	stats["unchanged"] = unchanged
	stats["total_market_cap"] = totalMarketCap

	if s.lastSyncAt != nil {
		stats["last_sync"] = s.lastSyncAt.Format(time.RFC3339)
	}

	return stats
}

// Clear clears all quotes
func (s *InMemoryQuoteStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = make(map[string]*AssetQuoteSnapshot)
	s.lastSyncAt = nil
}

// GetTopGainers returns top N gainers by 24h percent change
func (s *InMemoryQuoteStore) GetTopGainers(limit int) []AssetQuoteSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]AssetQuoteSnapshot, 0, len(s.quotes))
	for _, q := range s.quotes {
		if q.PercentChange24h > 0 {
			quotes = append(quotes, *q)
		}
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].PercentChange24h > quotes[j].PercentChange24h
	})

	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}

	return quotes
}

// GetTopLosers returns top N losers by 24h percent change
func (s *InMemoryQuoteStore) GetTopLosers(limit int) []AssetQuoteSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]AssetQuoteSnapshot, 0, len(s.quotes))
	for _, q := range s.quotes {
		if q.PercentChange24h < 0 {
			quotes = append(quotes, *q)
		}
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].PercentChange24h < quotes[j].PercentChange24h
	})

	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}

	return quotes
}

// GetTopVolume returns top N assets by 24h volume
func (s *InMemoryQuoteStore) GetTopVolume(limit int) []AssetQuoteSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]AssetQuoteSnapshot, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, *q)
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Volume24h > quotes[j].Volume24h
	})

	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}

	return quotes
}

// GetTopMomentum returns top N assets by momentum score
func (s *InMemoryQuoteStore) GetTopMomentum(limit int) []AssetQuoteSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make([]AssetQuoteSnapshot, 0, len(s.quotes))
	for _, q := range s.quotes {
		quotes = append(quotes, *q)
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].MomentumScore > quotes[j].MomentumScore
	})

	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}

	return quotes
}
