package sentiment

import (
	"context"
	"sync"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
	"go.uber.org/zap"
)

var defaultWeights = map[string]float64{
	"social":     0.4,
	"community":  0.3,
	"aggregator": 0.3,
}

// Combined merges the per-source scores into one weighted reading. Sources
// are queried concurrently; a failing source drops out and the remaining
// weights are renormalized. All sources failing is a transient error.
type Combined struct {
	sources []Source
	weights map[string]float64
	logger  *zap.Logger
}

func NewCombined(logger *zap.Logger, sources ...Source) *Combined {
	return &Combined{
		sources: sources,
		weights: defaultWeights,
		logger:  logger,
	}
}

func (c *Combined) GetSentiment(ctx context.Context, asset string) (*domain.SentimentScore, error) {
	type sourceResult struct {
		name  string
		score float64
		err   error
	}

	results := make([]sourceResult, len(c.sources))
	var wg sync.WaitGroup
	for i, src := range c.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			score, err := src.Fetch(ctx, asset)
			results[i] = sourceResult{name: src.Name(), score: score, err: err}
		}(i, src)
	}
	wg.Wait()

	var weightedSum, totalWeight float64
	perSource := make(map[string]float64)
	var lastErr error

	for _, r := range results {
		if r.err != nil {
			c.logger.Warn("sentiment source unavailable",
				zap.String("source", r.name), zap.String("asset", asset), zap.Error(r.err))
			lastErr = r.err
			continue
		}
		w, ok := c.weights[r.name]
		if !ok {
			// A source without a configured weight still counts.
			w = 1
		}
		weightedSum += r.score * w
		totalWeight += w
		perSource[r.name] = r.score
	}

	if totalWeight == 0 {
		return nil, &domain.TransientFetchError{Op: "combined sentiment", Err: lastErr}
	}

	score := weightedSum / totalWeight
	return &domain.SentimentScore{
		Symbol:  asset,
		Score:   score,
		Label:   domain.SentimentLabel(score),
		Sources: perSource,
	}, nil
}
