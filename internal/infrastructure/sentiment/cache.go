package sentiment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitos/crypto_sentiment_bot/internal/domain"
	"go.uber.org/zap"
)

// CachedProvider wraps a provider with a redis cache so multiple bots on
// the same asset share upstream calls. A cache outage degrades to direct
// fetches, never to an error.
type CachedProvider struct {
	inner  domain.SentimentProvider
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProvider(inner domain.SentimentProvider, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

func cacheKey(asset string) string { return "sentiment:" + asset }

func (p *CachedProvider) GetSentiment(ctx context.Context, asset string) (*domain.SentimentScore, error) {
	if cached, err := p.client.Get(ctx, cacheKey(asset)).Bytes(); err == nil {
		var score domain.SentimentScore
		if err := json.Unmarshal(cached, &score); err == nil {
			return &score, nil
		}
	} else if err != redis.Nil {
		p.logger.Warn("sentiment cache read failed", zap.String("asset", asset), zap.Error(err))
	}

	score, err := p.inner.GetSentiment(ctx, asset)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(score); err == nil {
		if err := p.client.Set(ctx, cacheKey(asset), payload, p.ttl).Err(); err != nil {
			p.logger.Warn("sentiment cache write failed", zap.String("asset", asset), zap.Error(err))
		}
	}

	return score, nil
}
