package domain

import "context"

// Exchange defines the interface for interacting with a crypto exchange.
// Implementations must be safe to retry on network errors; the core relies on
// position-gated execution, not idempotency keys, to avoid duplicate orders.
type Exchange interface {
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)
	GetBalance(ctx context.Context) (*Balance, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity float64) (*OrderResult, error)
}

// SentimentProvider returns a sentiment score in [-1,1] for a base asset
// (e.g. "BTC"). A provider that cannot produce a score returns an error; the
// caller degrades to technical-only weighting.
type SentimentProvider interface {
	GetSentiment(ctx context.Context, asset string) (*SentimentScore, error)
}

// BotRepository persists bot configs, their lifecycle state and the open
// position so that bots survive a restart.
type BotRepository interface {
	SaveBot(ctx context.Context, cfg *BotConfig) error
	ListBots(ctx context.Context) ([]*BotConfig, error)
	DeleteBot(ctx context.Context, id string) error

	SavePosition(ctx context.Context, pos *Position) error
	GetPosition(ctx context.Context, botID string) (*Position, error)
	DeletePosition(ctx context.Context, botID string) error
}

// TradeRepository persists trade history.
type TradeRepository interface {
	SaveTrade(ctx context.Context, trade *Trade) error
	ListTrades(ctx context.Context, limit int) ([]*Trade, error)
}
