package domain

import "time"

// RiskTier scales the position size multiplier.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// PositionSizeMultiplier returns the sizing factor for the tier.
func (r RiskTier) PositionSizeMultiplier() (float64, bool) {
	switch r {
	case RiskLow:
		return 0.5, true
	case RiskMedium:
		return 1.0, true
	case RiskHigh:
		return 1.5, true
	}
	return 0, false
}

type BotLifecycle string

const (
	BotStopped BotLifecycle = "stopped"
	BotActive  BotLifecycle = "active"
	BotPaused  BotLifecycle = "paused"
)

// BotConfig is the immutable identity of a bot, set once at creation.
type BotConfig struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Strategy  string    `json:"strategy"`
	RiskTier  RiskTier  `json:"risk_tier"`
	CreatedAt time.Time `json:"created_at"`
}

// BotStatus is the snapshot returned by the control surface. It always
// reflects the last known good state, even while data fetches are failing.
type BotStatus struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Symbol      string       `json:"symbol"`
	Strategy    string       `json:"strategy"`
	RiskTier    RiskTier     `json:"risk_tier"`
	Status      BotLifecycle `json:"status"`
	Position    *Position    `json:"position,omitempty"`
	TradesToday int          `json:"trades_today"`
	DailyPnL    float64      `json:"daily_pnl"`
}
