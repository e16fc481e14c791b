package reports

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAssetReport(t *testing.T) {
	at := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	content := FormatAssetReport("Bitcoin", 65432.1, 72.345, at)
	lines := strings.Split(content, "\n")

	assert.Equal(t, "Bitcoin Analysis - 2024-03-15 09:30:00", lines[0])
	assert.Equal(t, strings.Repeat("-", 50), lines[1])
	assert.Equal(t, "Current Price: $65,432.10", lines[2])
	assert.Equal(t, "14-day RSI: 72.35", lines[3])
	assert.Contains(t, content, "RSI Interpretation:")
	assert.Contains(t, content, "Market is potentially overbought")
}

func TestFormatAssetReportNeutral(t *testing.T) {
	content := FormatAssetReport("Bitcoin", 100.0, 55.0, time.Now())
	assert.Contains(t, content, "Market is in neutral territory")
	assert.Contains(t, content, "Current Price: $100.00")
}

func TestFormatMomentumReportSortsByScore(t *testing.T) {
	at := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	entries := []MomentumEntry{
		{Symbol: "ETH", Price: 3500.5, MomentumScore: 4.2},
		{Symbol: "BTC", Price: 65000, MomentumScore: 8.7},
		{Symbol: "DOGE", Price: 0.12345678, MomentumScore: -2.1},
	}

	content := FormatMomentumReport(entries, at)

	assert.True(t, strings.HasPrefix(content, "Cryptocurrency Analysis - 2024-03-15 09:30:00\n"))
	assert.Contains(t, content, strings.Repeat("=", 50))

	// Entries appear highest momentum first
	btcPos := strings.Index(content, "BTC:")
	ethPos := strings.Index(content, "ETH:")
	dogePos := strings.Index(content, "DOGE:")
	require.True(t, btcPos >= 0 && ethPos >= 0 && dogePos >= 0)
	assert.Less(t, btcPos, ethPos)
	assert.Less(t, ethPos, dogePos)

	assert.Contains(t, content, "Momentum Score: 8.70")
	assert.Contains(t, content, "Momentum Score: -2.10")
	assert.Contains(t, content, "Current Price: $0.12345678")
	assert.True(t, strings.HasSuffix(content, "Total tokens analyzed: 3"))
}

func TestFormatMomentumReportDoesNotMutateInput(t *testing.T) {
	entries := []MomentumEntry{
		{Symbol: "A", MomentumScore: 1},
		{Symbol: "B", MomentumScore: 5},
	}

	FormatMomentumReport(entries, time.Now())

	assert.Equal(t, "A", entries[0].Symbol)
	assert.Equal(t, "B", entries[1].Symbol)
}

func TestWriterWritesFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "reports"))

	path, err := w.WriteAssetReport("Bitcoin", 50000, 45.0, time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", AssetReportFileName), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Bitcoin Analysis")

	path, err = w.WriteMomentumReport([]MomentumEntry{
		{Symbol: "BTC", Price: 50000, MomentumScore: 3.3},
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", MomentumReportFileName), path)

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Total tokens analyzed: 1")
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "1,234,567.89", formatUSD(1234567.891, 2))
	assert.Equal(t, "0.00", formatUSD(0, 2))
	assert.Equal(t, "-9,876.50", formatUSD(-9876.5, 2))
	assert.Equal(t, "0.12345678", formatUSD(0.12345678, 8))
}
