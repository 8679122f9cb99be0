package usecase

import (
	"time"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

// RiskManager decides forced exits for the open position. It runs every cycle
// before the signal is acted on and takes precedence over it; it never
// originates a buy.
type RiskManager struct {
	maxPositionAge time.Duration
	timeNow        func() time.Time // for testing
}

func NewRiskManager(maxPositionAge time.Duration) *RiskManager {
	if maxPositionAge <= 0 {
		maxPositionAge = 24 * time.Hour
	}
	return &RiskManager{
		maxPositionAge: maxPositionAge,
		timeNow:        time.Now,
	}
}

// CheckExit returns the exit reason that fires for the position at the given
// price, or false when the position may be kept. At most one reason fires per
// call; stop-loss is checked first, then take-profit, then age.
func (r *RiskManager) CheckExit(pos *domain.Position, price float64) (domain.ExitReason, bool) {
	if pos == nil {
		return "", false
	}

	if price <= pos.StopLoss {
		return domain.ExitStopLoss, true
	}
	if price >= pos.TakeProfit {
		return domain.ExitTakeProfit, true
	}
	if r.timeNow().Sub(pos.OpenedAt) > r.maxPositionAge {
		return domain.ExitExpired, true
	}
	return "", false
}
