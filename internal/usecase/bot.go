package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

// ErrInvalidTransition is returned when a lifecycle request does not apply to
// the bot's current state, e.g. pausing a stopped bot.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// CycleConfig controls the periodic trading cycle.
type CycleConfig struct {
	Interval       time.Duration // normal cadence between cycles
	ErrorBackoff   time.Duration // shorter cadence after a failed cycle
	FetchTimeout   time.Duration // bound on every external call
	CandleInterval string        // exchange kline interval, e.g. "1hour"
	CandleLimit    int           // candles fetched per cycle
}

func (c CycleConfig) withDefaults() CycleConfig {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 30 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.CandleInterval == "" {
		c.CandleInterval = "1hour"
	}
	if c.CandleLimit <= 0 {
		c.CandleLimit = 100
	}
	return c
}

// TradingBot owns one symbol's lifecycle state machine and drives the
// periodic fetch -> signal -> risk check -> execute cycle. The cycle body
// always runs to completion before the next cycle starts, which is what keeps
// the at-most-one-position invariant without per-field locking.
type TradingBot struct {
	cfg        *domain.BotConfig
	multiplier float64

	exchange   domain.Exchange
	sentiment  domain.SentimentProvider
	indicators *IndicatorEngine
	signals    *SignalEngine
	risk       *RiskManager
	executor   *OrderExecutor
	cycle      CycleConfig
	logger     *zap.Logger
	timeNow    func() time.Time // for testing

	mu          sync.Mutex
	status      domain.BotLifecycle
	position    *domain.Position
	tradesToday int
	dailyPnL    float64
	counterDay  string // UTC date the daily counters belong to
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewTradingBot(
	cfg *domain.BotConfig,
	exchange domain.Exchange,
	sentiment domain.SentimentProvider,
	signals *SignalEngine,
	risk *RiskManager,
	executor *OrderExecutor,
	cycle CycleConfig,
	logger *zap.Logger,
) (*TradingBot, error) {
	multiplier, ok := cfg.RiskTier.PositionSizeMultiplier()
	if !ok {
		return nil, &domain.ConfigurationError{Field: "risk_tier", Reason: fmt.Sprintf("unknown tier %q", cfg.RiskTier)}
	}

	return &TradingBot{
		cfg:        cfg,
		multiplier: multiplier,
		exchange:   exchange,
		sentiment:  sentiment,
		indicators: NewIndicatorEngine(),
		signals:    signals,
		risk:       risk,
		executor:   executor,
		cycle:      cycle.withDefaults(),
		logger:     logger.With(zap.String("bot_id", cfg.ID), zap.String("symbol", cfg.Symbol)),
		timeNow:    time.Now,
		status:     domain.BotStopped,
	}, nil
}

// RestorePosition seeds the open position after a restart. Only valid while
// the bot is stopped.
func (b *TradingBot) RestorePosition(pos *domain.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status == domain.BotStopped {
		b.position = pos
	}
}

// Start transitions stopped/paused -> active and begins the periodic cycle.
// A restart waits for the previous loop goroutine to drain its in-flight
// cycle first; two loops for the same bot never overlap.
func (b *TradingBot) Start() error {
	b.mu.Lock()
	switch b.status {
	case domain.BotActive:
		b.mu.Unlock()
		return nil
	case domain.BotPaused:
		b.status = domain.BotActive
		b.mu.Unlock()
		b.logger.Info("Bot resumed")
		return nil
	}
	prev := b.done
	b.mu.Unlock()

	if prev != nil {
		<-prev
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != domain.BotStopped {
		// Another caller restarted the bot while we waited.
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.cancel = cancel
	b.done = done
	b.status = domain.BotActive
	go b.run(ctx, done)

	b.logger.Info("Bot started")
	return nil
}

// Pause suspends the cycle loop without clearing position or counters. The
// retained position is risk-checked again on the first cycle after resume.
func (b *TradingBot) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.status {
	case domain.BotPaused:
		return nil
	case domain.BotStopped:
		return fmt.Errorf("%w: bot %s is stopped", ErrInvalidTransition, b.cfg.ID)
	}
	b.status = domain.BotPaused
	b.logger.Info("Bot paused")
	return nil
}

// Stop ends the cycle loop. Calling Stop on a stopped bot is a no-op.
// Cancellation is cooperative: an in-flight cycle finishes first.
func (b *TradingBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status == domain.BotStopped {
		return
	}
	b.status = domain.BotStopped
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.logger.Info("Bot stopping")
}

// Done reports the channel closed when the cycle goroutine has exited. It is
// nil before the first Start.
func (b *TradingBot) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Status returns the last-known-good snapshot. It never blocks on external
// calls, so it stays accurate even while fetches are failing.
func (b *TradingBot) Status() domain.BotStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	var pos *domain.Position
	if b.position != nil {
		copied := *b.position
		pos = &copied
	}
	return domain.BotStatus{
		ID:          b.cfg.ID,
		Name:        b.cfg.Name,
		Symbol:      b.cfg.Symbol,
		Strategy:    b.cfg.Strategy,
		RiskTier:    b.cfg.RiskTier,
		Status:      b.status,
		Position:    pos,
		TradesToday: b.tradesToday,
		DailyPnL:    b.dailyPnL,
	}
}

func (b *TradingBot) Config() domain.BotConfig { return *b.cfg }

func (b *TradingBot) run(ctx context.Context, done chan struct{}) {
	// Each loop closes the channel it was started with, never a successor's.
	defer close(done)

	b.logger.Info("Trading cycle loop started")
	for {
		interval := b.cycle.Interval

		b.mu.Lock()
		active := b.status == domain.BotActive
		b.mu.Unlock()

		if active {
			if err := b.executeCycle(ctx); err != nil {
				// A failed cycle never stops the bot; retry sooner.
				b.logger.Error("Trading cycle error", zap.Error(err))
				interval = b.cycle.ErrorBackoff
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.logger.Info("Trading cycle loop stopped")
			return
		case <-timer.C:
		}
	}
}

// executeCycle runs one fetch -> decide -> risk check -> execute pass.
func (b *TradingBot) executeCycle(ctx context.Context) error {
	b.rolloverDailyCounters()

	ticker, err := b.fetchTicker(ctx)
	if err != nil {
		// No price, nothing to decide or supervise. Skip quietly; status
		// keeps showing the last known state until data returns.
		b.logger.Debug("Ticker unavailable, skipping cycle", zap.Error(err))
		return nil
	}
	price := ticker.Price

	// Candles and sentiment are independent read-only fetches.
	var (
		wg         sync.WaitGroup
		candles    []domain.Candle
		candlesErr error
		sentScore  *domain.SentimentScore
		sentErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		candles, candlesErr = b.fetchCandles(ctx)
	}()
	go func() {
		defer wg.Done()
		sentScore, sentErr = b.fetchSentiment(ctx)
	}()
	wg.Wait()

	sig := domain.Signal{Action: domain.ActionHold, Rationale: "no data"}
	if candlesErr != nil {
		b.logger.Warn("Candle fetch failed, holding", zap.Error(candlesErr))
	} else {
		vector, err := b.indicators.Analyze(b.cfg.Symbol, candles)
		if err != nil {
			if !domain.IsInsufficientData(err) {
				return err
			}
			b.logger.Warn("Not enough candles yet, holding", zap.Error(err))
		} else {
			var sentiment *float64
			if sentErr != nil {
				b.logger.Warn("Sentiment unavailable, technical-only weighting", zap.Error(sentErr))
			} else if sentScore != nil {
				sentiment = &sentScore.Score
			}
			sig = b.signals.Generate(sentiment, vector.Strength)
			b.logger.Debug("Signal generated",
				zap.String("action", string(sig.Action)),
				zap.Float64("strength", sig.Strength),
				zap.Float64("confidence", sig.Confidence),
				zap.String("rationale", sig.Rationale))
		}
	}

	// Forced exits take precedence over whatever the signal says.
	b.mu.Lock()
	pos := b.position
	b.mu.Unlock()

	if reason, fired := b.risk.CheckExit(pos, price); fired {
		b.logger.Info("Risk exit triggered",
			zap.String("reason", string(reason)),
			zap.Float64("price", price))
		return b.executeSell(ctx, pos, price, reason)
	}

	switch sig.Action {
	case domain.ActionBuy:
		return b.executeBuy(ctx, pos, price, sig)
	case domain.ActionSell:
		// The executor rejects this as a logged no-op when pos is nil.
		return b.executeSell(ctx, pos, price, domain.ExitSignal)
	}
	return nil
}

func (b *TradingBot) executeBuy(ctx context.Context, pos *domain.Position, price float64, sig domain.Signal) error {
	ctx, cancel := context.WithTimeout(ctx, b.cycle.FetchTimeout)
	defer cancel()

	newPos, err := b.executor.Buy(ctx, b.cfg, pos, price, b.multiplier, sig)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.position = newPos
	b.mu.Unlock()
	return nil
}

func (b *TradingBot) executeSell(ctx context.Context, pos *domain.Position, price float64, reason domain.ExitReason) error {
	ctx, cancel := context.WithTimeout(ctx, b.cycle.FetchTimeout)
	defer cancel()

	remaining, pnl, err := b.executor.Sell(ctx, b.cfg, pos, price, reason)
	if err != nil {
		// Position retained; the exit is retried next cycle.
		return err
	}

	b.mu.Lock()
	b.position = remaining
	if remaining == nil && pos != nil {
		b.dailyPnL += pnl
		b.tradesToday++
	}
	b.mu.Unlock()
	return nil
}

func (b *TradingBot) rolloverDailyCounters() {
	today := b.timeNow().UTC().Format("2006-01-02")

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.counterDay == "" {
		b.counterDay = today
		return
	}
	if b.counterDay != today {
		b.logger.Info("Daily counters reset",
			zap.String("day", today),
			zap.Int("trades", b.tradesToday),
			zap.Float64("pnl", b.dailyPnL))
		b.counterDay = today
		b.tradesToday = 0
		b.dailyPnL = 0
	}
}

func (b *TradingBot) fetchTicker(ctx context.Context) (*domain.Ticker, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cycle.FetchTimeout)
	defer cancel()
	ticker, err := b.exchange.GetTicker(ctx, b.cfg.Symbol)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: "ticker", Err: err}
	}
	return ticker, nil
}

func (b *TradingBot) fetchCandles(ctx context.Context) ([]domain.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cycle.FetchTimeout)
	defer cancel()
	candles, err := b.exchange.GetCandles(ctx, b.cfg.Symbol, b.cycle.CandleInterval, b.cycle.CandleLimit)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: "candles", Err: err}
	}
	return candles, nil
}

func (b *TradingBot) fetchSentiment(ctx context.Context) (*domain.SentimentScore, error) {
	if b.sentiment == nil {
		return nil, &domain.TransientFetchError{Op: "sentiment", Err: fmt.Errorf("no provider configured")}
	}
	ctx, cancel := context.WithTimeout(ctx, b.cycle.FetchTimeout)
	defer cancel()
	score, err := b.sentiment.GetSentiment(ctx, baseAsset(b.cfg.Symbol))
	if err != nil {
		return nil, &domain.TransientFetchError{Op: "sentiment", Err: err}
	}
	return score, nil
}

// baseAsset extracts the base currency from a symbol like "BTC-USDT".
func baseAsset(symbol string) string {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '-' || symbol[i] == '/' {
			return symbol[:i]
		}
	}
	return symbol
}
