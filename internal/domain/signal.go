package domain

// Vote is a per-indicator discretized directional opinion.
type Vote int

const (
	VoteSell    Vote = -1
	VoteNeutral Vote = 0
	VoteBuy     Vote = 1
)

// IndicatorVector carries the raw indicator values for one candle window plus
// the discretized vote of each indicator. Computed fresh every cycle, never
// persisted.
type IndicatorVector struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`

	RSI            float64 `json:"rsi"`
	MACD           float64 `json:"macd"`
	MACDSignal     float64 `json:"macd_signal"`
	MACDHist       float64 `json:"macd_histogram"`
	BollingerUpper float64 `json:"bollinger_upper"`
	BollingerMid   float64 `json:"bollinger_middle"`
	BollingerLower float64 `json:"bollinger_lower"`
	SMA20          float64 `json:"sma_20"`
	EMA12          float64 `json:"ema_12"`
	EMA26          float64 `json:"ema_26"`
	StochK         float64 `json:"stoch_k"`
	StochD         float64 `json:"stoch_d"`
	WilliamsR      float64 `json:"williams_r"`
	ATR            float64 `json:"atr"`

	Votes    IndicatorVotes `json:"votes"`
	Strength float64        `json:"strength"` // sum(votes)/count, in [-1,1]
}

type IndicatorVotes struct {
	RSI        Vote `json:"rsi"`
	MACD       Vote `json:"macd"`
	Bollinger  Vote `json:"bollinger"`
	MovingAvgs Vote `json:"moving_averages"`
	Stochastic Vote `json:"stochastic"`
	WilliamsR  Vote `json:"williams_r"`
}

// All returns the votes in a fixed order for aggregation.
func (v IndicatorVotes) All() []Vote {
	return []Vote{v.RSI, v.MACD, v.Bollinger, v.MovingAvgs, v.Stochastic, v.WilliamsR}
}

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is the engine's single combined trading decision for one cycle.
type Signal struct {
	Action     Action  `json:"action"`
	Strength   float64 `json:"strength"`   // [-1,1], signed
	Confidence float64 `json:"confidence"` // [0,100]
	Rationale  string  `json:"rationale"`
}

// SentimentScore is a combined sentiment reading for a base asset.
type SentimentScore struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"` // [-1,1]
	Label  string  `json:"label"` // bullish / bearish / neutral
	// Sources lists the per-source scores that went into the combination.
	Sources map[string]float64 `json:"sources,omitempty"`
}

// SentimentLabel maps a score to the label the original sources use.
func SentimentLabel(score float64) string {
	switch {
	case score > 0.1:
		return "bullish"
	case score < -0.1:
		return "bearish"
	default:
		return "neutral"
	}
}
