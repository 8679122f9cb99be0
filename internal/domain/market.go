package domain

type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type Ticker struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// Balance holds free amounts per asset, e.g. {"USDT": 1200.5, "BTC": 0.02}.
type Balance struct {
	Free map[string]float64 `json:"free"`
}

// SupportResistance holds pivot levels detected over a candle window.
type SupportResistance struct {
	Symbol       string    `json:"symbol"`
	Support      []float64 `json:"support_levels"`
	Resistance   []float64 `json:"resistance_levels"`
	CurrentPrice float64   `json:"current_price"`
}
