package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// AnalyticsDBFileName is the SQLite database file under the data dir
const AnalyticsDBFileName = "analytics.db"

// AnalyticsDB handles the local SQLite analytics store. It keeps an
// append-only history of quote snapshots, indicator values and sync runs
// so past analysis can be queried without the relational database.
type AnalyticsDB struct {
	db *sql.DB
	mu sync.RWMutex
}

// Global analytics store
var GlobalAnalyticsDB *AnalyticsDB

// InitAnalyticsDB initializes the SQLite analytics store
func InitAnalyticsDB(dataDir string) error {
	path := filepath.Join(dataDir, AnalyticsDBFileName)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open analytics db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping analytics db: %w", err)
	}

	GlobalAnalyticsDB = &AnalyticsDB{db: db}

	if err := GlobalAnalyticsDB.CreateTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("Analytics DB initialized at %s", path)
	return nil
}

// Close closes the analytics database
func (c *AnalyticsDB) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// CreateTables creates the required tables
func (c *AnalyticsDB) CreateTables() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshotsTable := `
		CREATE TABLE IF NOT EXISTS quote_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol VARCHAR NOT NULL,
			name VARCHAR,
			price DOUBLE,
			volume_24h DOUBLE,
			market_cap DOUBLE,
			percent_change_24h DOUBLE,
			percent_change_7d DOUBLE,
			momentum_score DOUBLE,
			snapshot_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := c.db.Exec(snapshotsTable); err != nil {
		return fmt.Errorf("failed to create quote_snapshots table: %w", err)
	}

	indicatorsTable := `
		CREATE TABLE IF NOT EXISTS indicator_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol VARCHAR NOT NULL,
			indicator_type VARCHAR NOT NULL,
			period INTEGER,
			value DOUBLE,
			calculated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := c.db.Exec(indicatorsTable); err != nil {
		return fmt.Errorf("failed to create indicator_history table: %w", err)
	}

	syncTable := `
		CREATE TABLE IF NOT EXISTS sync_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sync_type VARCHAR,
			total_symbols INTEGER,
			fetched INTEGER,
			failed INTEGER,
			api_calls INTEGER,
			cache_hits INTEGER,
			errors VARCHAR,
			duration VARCHAR,
			synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := c.db.Exec(syncTable); err != nil {
		return fmt.Errorf("failed to create sync_history table: %w", err)
	}

	log.Println("Analytics DB tables created/verified")
	return nil
}

// InsertQuoteSnapshots appends the given quote snapshots
func (c *AnalyticsDB) InsertQuoteSnapshots(quotes []AssetQuoteSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO quote_snapshots (
			symbol, name, price, volume_24h, market_cap,
			percent_change_24h, percent_change_7d, momentum_score, snapshot_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, q := range quotes {
		if _, err := stmt.Exec(
			q.Symbol, q.Name, q.Price, q.Volume24h, q.MarketCap,
			q.PercentChange24h, q.PercentChange7d, q.MomentumScore, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert snapshot for %s: %w", q.Symbol, err)
		}
	}

	return tx.Commit()
}

// InsertIndicator appends an indicator value for a symbol
func (c *AnalyticsDB) InsertIndicator(symbol, indicatorType string, period int, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		INSERT INTO indicator_history (symbol, indicator_type, period, value, calculated_at)
		VALUES (?, ?, ?, ?, ?)
	`, symbol, indicatorType, period, value, time.Now())

	return err
}

// IndicatorHistoryRow represents a stored indicator value
type IndicatorHistoryRow struct {
	Symbol        string    `json:"symbol"`
	IndicatorType string    `json:"indicator_type"`
	Period        int       `json:"period"`
	Value         float64   `json:"value"`
	CalculatedAt  time.Time `json:"calculated_at"`
}

// GetIndicatorHistory returns the most recent indicator values for a symbol
func (c *AnalyticsDB) GetIndicatorHistory(symbol, indicatorType string, limit int) ([]IndicatorHistoryRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := c.db.Query(`
		SELECT symbol, indicator_type, period, value, calculated_at
		FROM indicator_history
		WHERE symbol = ? AND indicator_type = ?
		ORDER BY calculated_at DESC
		LIMIT ?
	`, symbol, indicatorType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicator history: %w", err)
	}
	defer rows.Close()

	var results []IndicatorHistoryRow
	for rows.Next() {
		var row IndicatorHistoryRow
		if err := rows.Scan(&row.Symbol, &row.IndicatorType, &row.Period, &row.Value, &row.CalculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan indicator row: %w", err)
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// RecordSync stores the result of a sync operation
func (c *AnalyticsDB) RecordSync(syncType string, result *QuoteSyncResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		errorsJSON = []byte("[]")
	}

	_, err = c.db.Exec(`
		INSERT INTO sync_history (
			sync_type, total_symbols, fetched, failed, api_calls, cache_hits, errors, duration, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, syncType, result.TotalSymbols, result.Fetched, result.Failed,
		result.APICalls, result.CacheHits, string(errorsJSON), result.Duration, time.Now())

	return err
}

// SyncHistoryRow represents a recorded sync run
type SyncHistoryRow struct {
	ID           int64     `json:"id"`
	SyncType     string    `json:"sync_type"`
	TotalSymbols int       `json:"total_symbols"`
	Fetched      int       `json:"fetched"`
	Failed       int       `json:"failed"`
	APICalls     int       `json:"api_calls"`
	CacheHits    int       `json:"cache_hits"`
	Duration     string    `json:"duration"`
	SyncedAt     time.Time `json:"synced_at"`
}

// GetRecentSyncs returns the most recent sync runs
func (c *AnalyticsDB) GetRecentSyncs(limit int) ([]SyncHistoryRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.Query(`
		SELECT id, sync_type, total_symbols, fetched, failed, api_calls, cache_hits, duration, synced_at
		FROM sync_history
		ORDER BY synced_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var results []SyncHistoryRow
	for rows.Next() {
		var row SyncHistoryRow
		if err := rows.Scan(&row.ID, &row.SyncType, &row.TotalSymbols, &row.Fetched,
			&row.Failed, &row.APICalls, &row.CacheHits, &row.Duration, &row.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync row: %w", err)
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// PruneSnapshots deletes quote snapshots older than the cutoff
func (c *AnalyticsDB) PruneSnapshots(cutoff time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`DELETE FROM quote_snapshots WHERE snapshot_at < ?`, cutoff)
	return err
}
