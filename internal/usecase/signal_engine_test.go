package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewSignalEngineUnknownStrategy(t *testing.T) {
	_, err := NewSignalEngine("grid_arbitrage")
	require.Error(t, err)
	assert.True(t, domain.IsConfiguration(err))
}

func TestSentimentMomentumWeighting(t *testing.T) {
	engine, err := NewSignalEngine(StrategySentimentMomentum)
	require.NoError(t, err)

	tests := []struct {
		name       string
		sentiment  *float64
		technical  float64
		action     domain.Action
		strength   float64
		confidence float64
	}{
		{
			name:       "bullish both sides",
			sentiment:  floatPtr(0.5),
			technical:  0.5,
			action:     domain.ActionBuy,
			strength:   0.5,
			confidence: 50,
		},
		{
			name:       "bearish both sides capped confidence",
			sentiment:  floatPtr(-1),
			technical:  -1,
			action:     domain.ActionSell,
			strength:   -1,
			confidence: 100,
		},
		{
			name:       "exactly at buy threshold holds",
			sentiment:  nil,
			technical:  0.3,
			action:     domain.ActionHold,
			strength:   0.3,
			confidence: 30,
		},
		{
			name:       "exactly at sell threshold holds",
			sentiment:  nil,
			technical:  -0.3,
			action:     domain.ActionHold,
			strength:   -0.3,
			confidence: 30,
		},
		{
			name:       "strong sentiment outweighs weak technicals",
			sentiment:  floatPtr(1),
			technical:  -0.1,
			action:     domain.ActionBuy,
			strength:   0.34,
			confidence: 34,
		},
		{
			name:       "neutral inputs hold",
			sentiment:  floatPtr(0),
			technical:  0,
			action:     domain.ActionHold,
			strength:   0,
			confidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := engine.Generate(tt.sentiment, tt.technical)
			assert.Equal(t, tt.action, sig.Action)
			assert.InDelta(t, tt.strength, sig.Strength, 1e-9)
			assert.InDelta(t, tt.confidence, sig.Confidence, 1e-9)
			assert.NotEmpty(t, sig.Rationale)
		})
	}
}

// Missing sentiment must mean technical-only, not technical scaled by its
// weight. The strengths have to match exactly.
func TestSentimentMomentumRenormalizesWhenMissing(t *testing.T) {
	engine, err := NewSignalEngine(StrategySentimentMomentum)
	require.NoError(t, err)

	for _, technical := range []float64{-1, -0.5, -1.0 / 6.0, 0, 1.0 / 6.0, 0.5, 1} {
		sig := engine.Generate(nil, technical)
		assert.Equal(t, technical, sig.Strength)
	}
}

func TestSentimentLabelThresholds(t *testing.T) {
	assert.Equal(t, "bullish", domain.SentimentLabel(0.11))
	assert.Equal(t, "neutral", domain.SentimentLabel(0.1))
	assert.Equal(t, "neutral", domain.SentimentLabel(-0.1))
	assert.Equal(t, "bearish", domain.SentimentLabel(-0.11))
}
