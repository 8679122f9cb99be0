package domain

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ExitReason explains why the risk manager forced a position closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitExpired    ExitReason = "expired"
	ExitSignal     ExitReason = "signal"
)

// Position is the single open long holding of a bot. It is created by the
// order executor after a confirmed buy fill and cleared after a confirmed
// sell fill; nothing else may touch it.
type Position struct {
	BotID      string    `json:"bot_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"` // always "buy" (spot long)
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OrderID    string    `json:"order_id"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Trade is a filled order as recorded in trade history.
type Trade struct {
	ID          int64      `json:"id"`
	BotID       string     `json:"bot_id"`
	Symbol      string     `json:"symbol"`
	Side        Side       `json:"side"`
	Quantity    float64    `json:"quantity"`
	Price       float64    `json:"price"`
	RealizedPnL float64    `json:"realized_pnl"`
	Reason      ExitReason `json:"reason,omitempty"`
	OrderID     string     `json:"order_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OrderResult is what the exchange reports back for a placed market order.
type OrderResult struct {
	OrderID string
	Status  string
}
