package analysis

// RSI interpretation thresholds
const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// Momentum score weights: 24h change, 7d change, volume/market-cap ratio
const (
	MomentumWeight24h    = 0.5
	MomentumWeight7d     = 0.3
	MomentumWeightVolume = 0.2
)

// MomentumScore calculates a weighted momentum score from percent changes
// and the 24h volume to market cap ratio. The volume term is dropped when
// market cap is zero or negative.
func MomentumScore(pctChange24h, pctChange7d, volume24h, marketCap float64) float64 {
	volumeTerm := 0.0
	if marketCap > 0 {
		volumeTerm = volume24h / marketCap * 100
	}

	return MomentumWeight24h*pctChange24h +
		MomentumWeight7d*pctChange7d +
		MomentumWeightVolume*volumeTerm
}

// InterpretRSI returns a human-readable interpretation of an RSI value
func InterpretRSI(rsi float64) string {
	switch {
	case rsi >= RSIOverbought:
		return "Market is potentially overbought"
	case rsi <= RSIOversold:
		return "Market is potentially oversold"
	default:
		return "Market is in neutral territory"
	}
}
