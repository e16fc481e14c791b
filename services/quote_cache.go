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
)

// DefaultCacheTTL is how long cached quote responses stay valid
const DefaultCacheTTL = time.Hour

// quoteCacheFile is the on-disk cache structure
type quoteCacheFile struct {
	Quotes     map[string]json.RawMessage `json:"quotes"`
	Timestamps map[string]time.Time       `json:"timestamps"`
}

// QuoteCache caches CMC quote responses on disk with a TTL, keyed by the
// sorted comma-joined symbol list of each batch
type QuoteCache struct {
	mu     sync.RWMutex
	saveMu sync.Mutex
	path   string
	ttl    time.Duration
	data   quoteCacheFile
}

// NewQuoteCache creates a cache backed by the given file. A missing or
// corrupt cache file is tolerated and starts empty.
func NewQuoteCache(path string, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache := &QuoteCache{
		path: path,
		ttl:  ttl,
		data: quoteCacheFile{
			Quotes:     make(map[string]json.RawMessage),
			Timestamps: make(map[string]time.Time),
		},
	}

	if err := cache.load(); err != nil {
		log.Printf("No existing quote cache or error loading: %v", err)
	}

	return cache
}

// CacheKey builds the cache key for a symbol batch
func CacheKey(symbols []string) string {
	normalized := make([]string, len(symbols))
	for i, s := range symbols {
		normalized[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

// Get returns the cached response for a symbol batch if still valid
func (qc *QuoteCache) Get(symbols []string) (*QuotesLatestResponse, bool) {
	key := CacheKey(symbols)

	qc.mu.RLock()
	raw, ok := qc.data.Quotes[key]
	ts, hasTS := qc.data.Timestamps[key]
	qc.mu.RUnlock()

	if !ok || !hasTS {
		return nil, false
	}
	if time.Since(ts) >= qc.ttl {
		return nil, false
	}

	var response QuotesLatestResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		log.Printf("Error decoding cached quotes for %s: %v", key, err)
		return nil, false
	}

	return &response, true
}

// Set stores a response for a symbol batch and persists the cache
func (qc *QuoteCache) Set(symbols []string, response *QuotesLatestResponse) {
	raw, err := json.Marshal(response)
	if err != nil {
		log.Printf("Error encoding quotes for cache: %v", err)
		return
	}

	key := CacheKey(symbols)

	qc.mu.Lock()
	qc.data.Quotes[key] = raw
	qc.data.Timestamps[key] = time.Now()
	qc.mu.Unlock()

	if err := qc.save(); err != nil {
		log.Printf("Error saving quote cache: %v", err)
	}
}

// Clear drops all cached entries and removes the cache file
func (qc *QuoteCache) Clear() {
	qc.mu.Lock()
	qc.data.Quotes = make(map[string]json.RawMessage)
	qc.data.Timestamps = make(map[string]time.Time)
	qc.mu.Unlock()

	if err := os.Remove(qc.path); err != nil && !os.IsNotExist(err) {
		log.Printf("Error removing quote cache file: %v", err)
	}
}

// Len returns the number of cached entries
func (qc *QuoteCache) Len() int {
	qc.mu.RLock()
	defer qc.mu.RUnlock()
	return len(qc.data.Quotes)
}

// load reads the cache file from disk
func (qc *QuoteCache) load() error {
	raw, err := os.ReadFile(qc.path)
	if err != nil {
		return err
	}

	var data quoteCacheFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to unmarshal quote cache: %w", err)
	}

	if data.Quotes == nil {
		data.Quotes = make(map[string]json.RawMessage)
	}
	if data.Timestamps == nil {
		data.Timestamps = make(map[string]time.Time)
	}

	qc.mu.Lock()
	qc.data = data
	qc.mu.Unlock()

	return nil
}

// save writes the cache file to disk. saveMu is held across marshal and
// write so concurrent saves cannot persist out of order.
func (qc *QuoteCache) save() error {
	qc.saveMu.Lock()
	defer qc.saveMu.Unlock()

	qc.mu.RLock()
	raw, err := json.Marshal(qc.data)
	qc.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal quote cache: %w", err)
	}

	dir := filepath.Dir(qc.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	return os.WriteFile(qc.path, raw, 0644)
}
