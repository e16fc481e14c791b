package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"crypto_analysis_backend/services/analysis"
)

// Report timestamp layout
const timestampLayout = "2006-01-02 15:04:05"

// Default report file names
const (
	AssetReportFileName    = "btc_analysis.txt"
	MomentumReportFileName = "crypto_analysis.txt"
)

// Writer generates plain-text analysis reports in a directory
type Writer struct {
	dir string
}

// NewWriter creates a report writer for the given directory
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// MomentumEntry is one asset row in a momentum report
type MomentumEntry struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	MomentumScore float64 `json:"momentum_score"`
}

// FormatAssetReport renders a single-asset RSI report
func FormatAssetReport(assetName string, currentPrice float64, rsi float64, at time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s Analysis - %s\n", assetName, at.Format(timestampLayout))
	b.WriteString(strings.Repeat("-", 50) + "\n")
	fmt.Fprintf(&b, "Current Price: $%s\n", formatUSD(currentPrice, 2))
	fmt.Fprintf(&b, "14-day RSI: %.2f\n", rsi)
	b.WriteString("\nRSI Interpretation:\n")
	b.WriteString(analysis.InterpretRSI(rsi) + "\n")

	return b.String()
}

// FormatMomentumReport renders a multi-asset momentum report sorted by
// momentum score, highest first
func FormatMomentumReport(entries []MomentumEntry, at time.Time) string {
	sorted := make([]MomentumEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MomentumScore > sorted[j].MomentumScore
	})

	var b strings.Builder

	fmt.Fprintf(&b, "Cryptocurrency Analysis - %s\n", at.Format(timestampLayout))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, entry := range sorted {
		fmt.Fprintf(&b, "%s:\n", entry.Symbol)
		fmt.Fprintf(&b, "Current Price: $%s\n", formatUSD(entry.Price, 8))
		fmt.Fprintf(&b, "Momentum Score: %.2f\n", entry.MomentumScore)
		b.WriteString(strings.Repeat("-", 30) + "\n")
	}

	fmt.Fprintf(&b, "\nTotal tokens analyzed: %d", len(sorted))

	return b.String()
}

// WriteAssetReport writes a single-asset RSI report and returns its path
func (w *Writer) WriteAssetReport(assetName string, currentPrice float64, rsi float64, at time.Time) (string, error) {
	content := FormatAssetReport(assetName, currentPrice, rsi, at)
	path := filepath.Join(w.dir, AssetReportFileName)
	if err := w.write(path, content); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMomentumReport writes a momentum report and returns its path
func (w *Writer) WriteMomentumReport(entries []MomentumEntry, at time.Time) (string, error) {
	content := FormatMomentumReport(entries, at)
	path := filepath.Join(w.dir, MomentumReportFileName)
	if err := w.write(path, content); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) write(path, content string) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// formatUSD formats a dollar amount with thousands separators and a fixed
// number of decimal places
func formatUSD(value float64, decimals int) string {
	s := strconv.FormatFloat(value, 'f', decimals, 64)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart := s
	fracPart := ""
	if idx := strings.Index(s, "."); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx:]
	}

	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		// Out of int64 range, fall back to the plain representation
		if negative {
			return "-" + s
		}
		return s
	}

	formatted := humanize.Comma(n) + fracPart
	if negative {
		formatted = "-" + formatted
	}
	return formatted
}
