package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

// ExecutorConfig holds the sizing and exit parameters for order placement.
type ExecutorConfig struct {
	QuoteAsset    string  // quote currency the balance check uses, e.g. "USDT"
	StopLossPct   float64 // 0.05 -> stop at entry*(1-0.05)
	TakeProfitPct float64 // 0.15 -> target at entry*(1+0.15)
	MinTradeFloor float64 // minimum free quote balance to trade at all
	SafetyBuffer  float64 // quote amount always left untouched
}

// OrderExecutor translates approved actions into market orders and reconciles
// results into position state. It is the only component allowed to create or
// clear a Position, and it does so only after a confirmed execution.
type OrderExecutor struct {
	exchange  domain.Exchange
	botRepo   domain.BotRepository
	tradeRepo domain.TradeRepository
	cfg       ExecutorConfig
	logger    *zap.Logger
}

func NewOrderExecutor(
	exchange domain.Exchange,
	botRepo domain.BotRepository,
	tradeRepo domain.TradeRepository,
	cfg ExecutorConfig,
	logger *zap.Logger,
) *OrderExecutor {
	return &OrderExecutor{
		exchange:  exchange,
		botRepo:   botRepo,
		tradeRepo: tradeRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// Buy opens a long position for the bot. It is a logged no-op when a position
// already exists or the free quote balance is below the trade floor. On a
// confirmed fill the Position record is created atomically with its stop-loss
// and take-profit prices; on failure no Position exists.
func (e *OrderExecutor) Buy(
	ctx context.Context,
	cfg *domain.BotConfig,
	current *domain.Position,
	price float64,
	sizeMultiplier float64,
	sig domain.Signal,
) (*domain.Position, error) {
	if current != nil {
		e.logger.Info("Buy skipped: position already open",
			zap.String("bot_id", cfg.ID),
			zap.String("order_id", current.OrderID))
		return current, nil
	}

	balance, err := e.exchange.GetBalance(ctx)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: "balance", Err: err}
	}
	free := balance.Free[e.cfg.QuoteAsset]
	if free < e.cfg.MinTradeFloor {
		e.logger.Warn("Buy skipped: insufficient balance",
			zap.String("bot_id", cfg.ID),
			zap.Float64("free", free),
			zap.Float64("floor", e.cfg.MinTradeFloor))
		return nil, nil
	}

	// Decimal math keeps notional/quantity exact; float rounding on sizing
	// can push the order past the available balance.
	freeDec := decimal.NewFromFloat(free)
	notional := decimal.Min(
		freeDec.Mul(decimal.NewFromFloat(sizeMultiplier)),
		freeDec.Sub(decimal.NewFromFloat(e.cfg.SafetyBuffer)),
	)
	quantity, _ := notional.Div(decimal.NewFromFloat(price)).Float64()

	result, err := e.exchange.PlaceMarketOrder(ctx, cfg.Symbol, domain.SideBuy, quantity)
	if err != nil {
		return nil, &domain.ExecutionError{Side: domain.SideBuy, Err: err}
	}

	pos := &domain.Position{
		BotID:      cfg.ID,
		Symbol:     cfg.Symbol,
		Side:       domain.SideBuy,
		EntryPrice: price,
		Quantity:   quantity,
		StopLoss:   price * (1 - e.cfg.StopLossPct),
		TakeProfit: price * (1 + e.cfg.TakeProfitPct),
		OrderID:    result.OrderID,
		OpenedAt:   time.Now().UTC(),
	}

	if err := e.botRepo.SavePosition(ctx, pos); err != nil {
		e.logger.Error("Failed to persist position", zap.String("bot_id", cfg.ID), zap.Error(err))
	}
	e.recordTrade(ctx, &domain.Trade{
		BotID:     cfg.ID,
		Symbol:    cfg.Symbol,
		Side:      domain.SideBuy,
		Quantity:  quantity,
		Price:     price,
		OrderID:   result.OrderID,
		CreatedAt: pos.OpenedAt,
	})

	e.logger.Info("Buy order executed",
		zap.String("bot_id", cfg.ID),
		zap.String("symbol", cfg.Symbol),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
		zap.Float64("stop_loss", pos.StopLoss),
		zap.Float64("take_profit", pos.TakeProfit),
		zap.Float64("confidence", sig.Confidence))

	return pos, nil
}

// Sell closes the full open position and returns the realized P&L. It is a
// logged no-op when no position exists. On failure the position is returned
// unchanged so the next cycle retries the exit.
func (e *OrderExecutor) Sell(
	ctx context.Context,
	cfg *domain.BotConfig,
	current *domain.Position,
	price float64,
	reason domain.ExitReason,
) (remaining *domain.Position, pnl float64, err error) {
	if current == nil {
		e.logger.Info("Sell skipped: no open position", zap.String("bot_id", cfg.ID))
		return nil, 0, nil
	}

	result, err := e.exchange.PlaceMarketOrder(ctx, cfg.Symbol, domain.SideSell, current.Quantity)
	if err != nil {
		return current, 0, &domain.ExecutionError{Side: domain.SideSell, Err: err}
	}

	pnl, _ = decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(current.EntryPrice)).
		Mul(decimal.NewFromFloat(current.Quantity)).
		Float64()

	if err := e.botRepo.DeletePosition(ctx, cfg.ID); err != nil {
		e.logger.Error("Failed to clear persisted position", zap.String("bot_id", cfg.ID), zap.Error(err))
	}
	e.recordTrade(ctx, &domain.Trade{
		BotID:       cfg.ID,
		Symbol:      cfg.Symbol,
		Side:        domain.SideSell,
		Quantity:    current.Quantity,
		Price:       price,
		RealizedPnL: pnl,
		Reason:      reason,
		OrderID:     result.OrderID,
		CreatedAt:   time.Now().UTC(),
	})

	e.logger.Info("Sell order executed",
		zap.String("bot_id", cfg.ID),
		zap.String("symbol", cfg.Symbol),
		zap.Float64("price", price),
		zap.Float64("pnl", pnl),
		zap.String("reason", string(reason)))

	return nil, pnl, nil
}

func (e *OrderExecutor) recordTrade(ctx context.Context, trade *domain.Trade) {
	if e.tradeRepo == nil {
		return
	}
	if err := e.tradeRepo.SaveTrade(ctx, trade); err != nil {
		e.logger.Error("Failed to record trade", zap.String("bot_id", trade.BotID), zap.Error(err))
	}
}
