package datafetcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTickerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current_tickers.txt")
	content := "btc\nETH\n\n  sol  \nbtc\nDOGE\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	symbols, err := LoadTickerFile(path)
	require.NoError(t, err)

	// Upper-cased, trimmed, deduplicated, blank lines dropped
	assert.Equal(t, []string{"BTC", "ETH", "SOL", "DOGE"}, symbols)
}

func TestLoadTickerFileMissing(t *testing.T) {
	_, err := LoadTickerFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestLoadTickerFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current_tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0644))

	symbols, err := LoadTickerFile(path)
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestParseQuoteTimestamp(t *testing.T) {
	cases := []string{
		"2024-03-15T00:00:00.000Z",
		"2024-03-15T00:00:00Z",
		"2024-03-15T00:00:00.123456789Z",
	}

	for _, value := range cases {
		parsed, err := parseQuoteTimestamp(value)
		require.NoError(t, err, value)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, parsed.Nanosecond(), time.UTC).Unix(), parsed.Unix())
	}

	_, err := parseQuoteTimestamp("15/03/2024")
	assert.Error(t, err)
}
