package usecase

import (
	"fmt"
	"math"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

// Strategy combines a sentiment score and the technical strength into one
// trading decision. sentiment is nil when no source produced a score; a
// strategy must still return a valid signal from technical data alone.
type Strategy interface {
	Name() string
	Evaluate(sentiment *float64, technical float64) domain.Signal
}

// SignalEngine dispatches to the bot's configured strategy.
type SignalEngine struct {
	strategy Strategy
}

// NewSignalEngine resolves the strategy by name. Unknown names are a
// ConfigurationError and must fail bot creation.
func NewSignalEngine(strategyName string) (*SignalEngine, error) {
	strategy, err := ResolveStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	return &SignalEngine{strategy: strategy}, nil
}

func (e *SignalEngine) Strategy() string { return e.strategy.Name() }

// Generate produces the cycle's signal. Pass sentiment == nil when the
// sentiment source is unavailable; the strategy renormalizes its weights and
// decides on technicals only instead of failing the cycle.
func (e *SignalEngine) Generate(sentiment *float64, technical float64) domain.Signal {
	return e.strategy.Evaluate(sentiment, technical)
}

// ResolveStrategy maps a configured strategy name to its implementation.
func ResolveStrategy(name string) (Strategy, error) {
	switch name {
	case StrategySentimentMomentum:
		return &SentimentMomentumStrategy{SentimentWeight: 0.4, TechnicalWeight: 0.6}, nil
	default:
		return nil, &domain.ConfigurationError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", name)}
	}
}

const StrategySentimentMomentum = "sentiment_momentum"

// Decision thresholds shared by strategies: outside the +-0.3 neutral band
// the signal is actionable.
const (
	buyThreshold  = 0.3
	sellThreshold = -0.3
)

// SentimentMomentumStrategy weighs sentiment against technical momentum.
// With both inputs available the combined strength is
// sentiment*SentimentWeight + technical*TechnicalWeight; with sentiment
// missing the technical weight renormalizes to 1.0.
type SentimentMomentumStrategy struct {
	SentimentWeight float64
	TechnicalWeight float64
}

func (s *SentimentMomentumStrategy) Name() string { return StrategySentimentMomentum }

func (s *SentimentMomentumStrategy) Evaluate(sentiment *float64, technical float64) domain.Signal {
	var strength float64
	var rationale string

	if sentiment != nil {
		strength = *sentiment*s.SentimentWeight + technical*s.TechnicalWeight
		rationale = fmt.Sprintf("sentiment %s (%.2f), technical %s (%.2f)",
			domain.SentimentLabel(*sentiment), *sentiment, directionLabel(technical), technical)
	} else {
		strength = technical
		rationale = fmt.Sprintf("sentiment unavailable, technical %s (%.2f)",
			directionLabel(technical), technical)
	}

	action := domain.ActionHold
	switch {
	case strength > buyThreshold:
		action = domain.ActionBuy
	case strength < sellThreshold:
		action = domain.ActionSell
	}

	return domain.Signal{
		Action:     action,
		Strength:   strength,
		Confidence: math.Min(math.Abs(strength)*100, 100),
		Rationale:  rationale,
	}
}

func directionLabel(strength float64) string {
	if strength >= 0 {
		return "bullish"
	}
	return "bearish"
}
