package analysis

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Indicator calculations operate on a price series in chronological order
// (oldest first). Callers are responsible for loading the series from the
// quote store or database.

// SMA calculates Simple Moving Average over the last period prices
func SMA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, fmt.Errorf("invalid SMA period: %d", period)
	}
	if len(prices) < period {
		return decimal.Zero, fmt.Errorf("insufficient data for SMA%d calculation", period)
	}

	window := prices[len(prices)-period:]
	sum := decimal.Zero
	for _, price := range window {
		sum = sum.Add(price)
	}

	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// EMA calculates Exponential Moving Average over the full series
func EMA(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	series, err := emaSeries(prices, period)
	if err != nil {
		return decimal.Zero, err
	}
	return series[len(series)-1], nil
}

// emaSeries returns the full EMA series, seeded with the first price
func emaSeries(prices []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("invalid EMA period: %d", period)
	}
	if len(prices) < period {
		return nil, fmt.Errorf("insufficient data for EMA%d calculation", period)
	}

	multiplier := decimal.NewFromFloat(2.0 / float64(period+1))
	series := make([]decimal.Decimal, len(prices))
	series[0] = prices[0]

	for i := 1; i < len(prices); i++ {
		series[i] = prices[i].Sub(series[i-1]).Mul(multiplier).Add(series[i-1])
	}

	return series, nil
}

// RSI calculates the Relative Strength Index using a simple average of
// gains and losses over the window. Needs at least period+1 prices.
func RSI(prices []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, fmt.Errorf("invalid RSI period: %d", period)
	}
	if len(prices) < period+1 {
		return decimal.Zero, fmt.Errorf("insufficient data for RSI%d calculation", period)
	}

	window := prices[len(prices)-period-1:]

	gains := decimal.Zero
	losses := decimal.Zero

	for i := 1; i < len(window); i++ {
		change := window[i].Sub(window[i-1])
		if change.GreaterThan(decimal.Zero) {
			gains = gains.Add(change)
		} else {
			losses = losses.Add(change.Abs())
		}
	}

	avgGain := gains.Div(decimal.NewFromInt(int64(period)))
	avgLoss := losses.Div(decimal.NewFromInt(int64(period)))

	if avgLoss.IsZero() {
		return decimal.NewFromInt(100), nil
	}

	rs := avgGain.Div(avgLoss)
	rsi := decimal.NewFromInt(100).Sub(
		decimal.NewFromInt(100).Div(decimal.NewFromInt(1).Add(rs)),
	)

	return rsi, nil
}

// MACDResult holds MACD calculation results
type MACDResult struct {
	MACD      decimal.Decimal
	Signal    decimal.Decimal
	Histogram decimal.Decimal
}

// MACD calculates the MACD indicator with the standard 12/26/9 setup
func MACD(prices []decimal.Decimal) (*MACDResult, error) {
	ema12, err := emaSeries(prices, 12)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EMA12: %w", err)
	}

	ema26, err := emaSeries(prices, 26)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate EMA26: %w", err)
	}

	macdSeries := make([]decimal.Decimal, len(prices))
	for i := range prices {
		macdSeries[i] = ema12[i].Sub(ema26[i])
	}

	// Signal line is the 9-period EMA of the MACD series
	signalSeries, err := emaSeries(macdSeries, 9)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate signal line: %w", err)
	}

	macd := macdSeries[len(macdSeries)-1]
	signal := signalSeries[len(signalSeries)-1]

	return &MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd.Sub(signal),
	}, nil
}

// BollingerBands holds Bollinger Band values
type BollingerBands struct {
	Upper  decimal.Decimal
	Middle decimal.Decimal
	Lower  decimal.Decimal
}

// Bollinger calculates Bollinger Bands (SMA +/- 2 standard deviations)
func Bollinger(prices []decimal.Decimal, period int) (*BollingerBands, error) {
	sma, err := SMA(prices, period)
	if err != nil {
		return nil, err
	}

	window := prices[len(prices)-period:]
	smaFloat, _ := sma.Float64()

	var variance float64
	for _, price := range window {
		priceFloat, _ := price.Float64()
		diff := priceFloat - smaFloat
		variance += diff * diff
	}

	stdDev := decimal.NewFromFloat(math.Sqrt(variance / float64(period)))

	return &BollingerBands{
		Upper:  sma.Add(stdDev.Mul(decimal.NewFromInt(2))),
		Middle: sma,
		Lower:  sma.Sub(stdDev.Mul(decimal.NewFromInt(2))),
	}, nil
}
