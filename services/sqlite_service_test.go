package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyticsDB(t *testing.T) *AnalyticsDB {
	t.Helper()

	old := GlobalAnalyticsDB
	require.NoError(t, InitAnalyticsDB(t.TempDir()))

	db := GlobalAnalyticsDB
	t.Cleanup(func() {
		db.Close()
		GlobalAnalyticsDB = old
	})
	return db
}

func TestInsertAndQueryIndicators(t *testing.T) {
	db := newTestAnalyticsDB(t)

	require.NoError(t, db.InsertIndicator("BTC", "RSI", 14, 65.5))
	require.NoError(t, db.InsertIndicator("BTC", "RSI", 14, 70.1))
	require.NoError(t, db.InsertIndicator("BTC", "SMA", 20, 50000))
	require.NoError(t, db.InsertIndicator("ETH", "RSI", 14, 40))

	rows, err := db.GetIndicatorHistory("BTC", "RSI", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "BTC", row.Symbol)
		assert.Equal(t, "RSI", row.IndicatorType)
		assert.Equal(t, 14, row.Period)
	}
}

func TestInsertQuoteSnapshotsAndPrune(t *testing.T) {
	db := newTestAnalyticsDB(t)

	quotes := []AssetQuoteSnapshot{
		{Symbol: "BTC", Name: "Bitcoin", Price: 65000, MomentumScore: 3.2},
		{Symbol: "ETH", Name: "Ethereum", Price: 3500, MomentumScore: -1.1},
	}
	require.NoError(t, db.InsertQuoteSnapshots(quotes))

	// Future cutoff removes everything
	require.NoError(t, db.PruneSnapshots(time.Now().Add(time.Hour)))

	var count int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM quote_snapshots").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRecordSyncAndHistory(t *testing.T) {
	db := newTestAnalyticsDB(t)

	result := &QuoteSyncResult{
		TotalSymbols: 10,
		Fetched:      8,
		Failed:       2,
		APICalls:     1,
		CacheHits:    0,
		Errors:       []string{"no data for X"},
		Duration:     "1.2s",
	}
	require.NoError(t, db.RecordSync("quotes", result))

	history, err := db.GetRecentSyncs(5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "quotes", history[0].SyncType)
	assert.Equal(t, 10, history[0].TotalSymbols)
	assert.Equal(t, 8, history[0].Fetched)
	assert.Equal(t, 2, history[0].Failed)
}
