package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMomentumScore(t *testing.T) {
	// 0.5*10 + 0.3*20 + 0.2*(50e9/1e12*100)
	score := MomentumScore(10, 20, 50_000_000_000, 1_000_000_000_000)
	assert.InDelta(t, 12.0, score, 0.0001)
}

func TestMomentumScoreNegativeChanges(t *testing.T) {
	score := MomentumScore(-4, -10, 0, 1_000_000)
	assert.InDelta(t, -5.0, score, 0.0001)
}

func TestMomentumScoreZeroMarketCap(t *testing.T) {
	// Volume term is dropped when market cap is not positive
	score := MomentumScore(10, 20, 1_000_000, 0)
	assert.InDelta(t, 11.0, score, 0.0001)

	score = MomentumScore(10, 20, 1_000_000, -5)
	assert.InDelta(t, 11.0, score, 0.0001)
}

func TestInterpretRSI(t *testing.T) {
	assert.Equal(t, "Market is potentially overbought", InterpretRSI(70))
	assert.Equal(t, "Market is potentially overbought", InterpretRSI(85.5))
	assert.Equal(t, "Market is potentially oversold", InterpretRSI(30))
	assert.Equal(t, "Market is potentially oversold", InterpretRSI(12))
	assert.Equal(t, "Market is in neutral territory", InterpretRSI(50))
	assert.Equal(t, "Market is in neutral territory", InterpretRSI(69.99))
	assert.Equal(t, "Market is in neutral territory", InterpretRSI(30.01))
}
