package usecase

import (
	"math"
	"sort"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

// Indicator parameters match the classic defaults the strategy was tuned on.
const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	bollingerPeriod  = 20
	bollingerStdDev  = 2.0
	smaPeriod        = 20
	emaFastPeriod    = 12
	emaSlowPeriod    = 26
	stochPeriod      = 14
	stochSmoothing   = 3
	williamsPeriod   = 14
	atrPeriod        = 14

	// MinCandles is the shortest OHLCV window the engine accepts. The MACD
	// signal line needs slow+signal periods to settle; 50 gives headroom.
	MinCandles = 50
)

// IndicatorEngine computes the fixed indicator set from an OHLCV window and
// reduces each indicator to a directional vote.
type IndicatorEngine struct{}

func NewIndicatorEngine() *IndicatorEngine {
	return &IndicatorEngine{}
}

// Analyze computes all indicators from candles (oldest first) and returns the
// vote vector with the aggregate strength. Returns InsufficientDataError when
// the window is too short; callers treat that as hold-and-retry.
func (e *IndicatorEngine) Analyze(symbol string, candles []domain.Candle) (*domain.IndicatorVector, error) {
	if len(candles) < MinCandles {
		return nil, &domain.InsufficientDataError{Need: MinCandles, Got: len(candles)}
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	price := closes[len(closes)-1]

	macdLine, macdSignal := macd(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	upper, mid, lower := bollinger(closes, bollingerPeriod, bollingerStdDev)
	stochK, stochD := stochastic(highs, lows, closes, stochPeriod, stochSmoothing)

	v := &domain.IndicatorVector{
		Symbol:         symbol,
		Price:          price,
		RSI:            rsi(closes, rsiPeriod),
		MACD:           macdLine,
		MACDSignal:     macdSignal,
		MACDHist:       macdLine - macdSignal,
		BollingerUpper: upper,
		BollingerMid:   mid,
		BollingerLower: lower,
		SMA20:          sma(closes, smaPeriod),
		EMA12:          lastEMA(closes, emaFastPeriod),
		EMA26:          lastEMA(closes, emaSlowPeriod),
		StochK:         stochK,
		StochD:         stochD,
		WilliamsR:      williamsR(highs, lows, closes, williamsPeriod),
		ATR:            atr(highs, lows, closes, atrPeriod),
	}

	v.Votes = e.vote(v)
	votes := v.Votes.All()
	sum := 0
	for _, vote := range votes {
		sum += int(vote)
	}
	v.Strength = float64(sum) / float64(len(votes))

	return v, nil
}

// vote discretizes each indicator with its fixed thresholds.
func (e *IndicatorEngine) vote(v *domain.IndicatorVector) domain.IndicatorVotes {
	votes := domain.IndicatorVotes{}

	// RSI: oversold below 30 is a buy bias, overbought above 70 a sell bias.
	switch {
	case v.RSI < 30:
		votes.RSI = domain.VoteBuy
	case v.RSI > 70:
		votes.RSI = domain.VoteSell
	}

	// MACD is binary: line above signal is bullish, otherwise bearish.
	if v.MACD > v.MACDSignal {
		votes.MACD = domain.VoteBuy
	} else {
		votes.MACD = domain.VoteSell
	}

	switch {
	case v.Price < v.BollingerLower:
		votes.Bollinger = domain.VoteBuy
	case v.Price > v.BollingerUpper:
		votes.Bollinger = domain.VoteSell
	}

	// Moving averages vote only when price and the EMA cross agree.
	switch {
	case v.Price > v.SMA20 && v.EMA12 > v.EMA26:
		votes.MovingAvgs = domain.VoteBuy
	case v.Price < v.SMA20 && v.EMA12 < v.EMA26:
		votes.MovingAvgs = domain.VoteSell
	}

	switch {
	case v.StochK < 20:
		votes.Stochastic = domain.VoteBuy
	case v.StochK > 80:
		votes.Stochastic = domain.VoteSell
	}

	switch {
	case v.WilliamsR < -80:
		votes.WilliamsR = domain.VoteBuy
	case v.WilliamsR > -20:
		votes.WilliamsR = domain.VoteSell
	}

	return votes
}

// SupportResistance finds pivot highs/lows over the window and returns the
// strongest five levels per side.
func (e *IndicatorEngine) SupportResistance(symbol string, candles []domain.Candle) (*domain.SupportResistance, error) {
	const pivotWindow = 10
	if len(candles) < 2*pivotWindow+1 {
		return nil, &domain.InsufficientDataError{Need: 2*pivotWindow + 1, Got: len(candles)}
	}

	seenSupport := map[float64]bool{}
	seenResistance := map[float64]bool{}
	var support, resistance []float64

	for i := pivotWindow; i < len(candles)-pivotWindow; i++ {
		isHigh, isLow := true, true
		for j := i - pivotWindow; j <= i+pivotWindow; j++ {
			if candles[j].High > candles[i].High {
				isHigh = false
			}
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
		}
		if isHigh && !seenResistance[candles[i].High] {
			seenResistance[candles[i].High] = true
			resistance = append(resistance, candles[i].High)
		}
		if isLow && !seenSupport[candles[i].Low] {
			seenSupport[candles[i].Low] = true
			support = append(support, candles[i].Low)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(resistance)))
	sort.Float64s(support)
	if len(resistance) > 5 {
		resistance = resistance[:5]
	}
	if len(support) > 5 {
		support = support[:5]
	}

	return &domain.SupportResistance{
		Symbol:       symbol,
		Support:      support,
		Resistance:   resistance,
		CurrentPrice: candles[len(candles)-1].Close,
	}, nil
}

// --- indicator math ---

func sma(values []float64, period int) float64 {
	window := values[len(values)-period:]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(period)
}

// emaSeries computes the full EMA series, seeding with the SMA of the first
// period values.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)

	seed := 0.0
	n := period
	if n > len(values) {
		n = len(values)
	}
	for i := 0; i < n; i++ {
		seed += values[i]
		out[i] = seed / float64(i+1)
	}
	for i := n; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

func lastEMA(values []float64, period int) float64 {
	s := emaSeries(values, period)
	return s[len(s)-1]
}

// rsi uses Wilder smoothing over the full series.
func rsi(closes []float64, period int) float64 {
	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

func macd(closes []float64, fast, slow, signal int) (line, signalLine float64) {
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	macdSeries := make([]float64, len(closes))
	for i := range closes {
		macdSeries[i] = fastEMA[i] - slowEMA[i]
	}
	signalSeries := emaSeries(macdSeries, signal)
	idx := len(closes) - 1
	return macdSeries[idx], signalSeries[idx]
}

func bollinger(closes []float64, period int, stdDevs float64) (upper, mid, lower float64) {
	mid = sma(closes, period)
	window := closes[len(closes)-period:]
	variance := 0.0
	for _, v := range window {
		d := v - mid
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	return mid + stdDevs*sd, mid, mid - stdDevs*sd
}

// stochastic returns %K smoothed over the last value and %D as an SMA of the
// raw %K series.
func stochastic(highs, lows, closes []float64, period, smoothing int) (k, d float64) {
	rawK := func(end int) float64 {
		hh, ll := highs[end], lows[end]
		for i := end - period + 1; i <= end; i++ {
			if highs[i] > hh {
				hh = highs[i]
			}
			if lows[i] < ll {
				ll = lows[i]
			}
		}
		if hh == ll {
			return 50.0
		}
		return 100.0 * (closes[end] - ll) / (hh - ll)
	}

	last := len(closes) - 1
	k = rawK(last)
	sum := 0.0
	for i := 0; i < smoothing; i++ {
		sum += rawK(last - i)
	}
	d = sum / float64(smoothing)
	return k, d
}

func williamsR(highs, lows, closes []float64, period int) float64 {
	last := len(closes) - 1
	hh, ll := highs[last], lows[last]
	for i := last - period + 1; i <= last; i++ {
		if highs[i] > hh {
			hh = highs[i]
		}
		if lows[i] < ll {
			ll = lows[i]
		}
	}
	if hh == ll {
		return -50.0
	}
	return -100.0 * (hh - closes[last]) / (hh - ll)
}

// atr uses Wilder smoothing of the true range.
func atr(highs, lows, closes []float64, period int) float64 {
	trueRange := func(i int) float64 {
		tr := highs[i] - lows[i]
		if i > 0 {
			hc := math.Abs(highs[i] - closes[i-1])
			lc := math.Abs(lows[i] - closes[i-1])
			tr = math.Max(tr, math.Max(hc, lc))
		}
		return tr
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange(i)
	}
	value := sum / float64(period)
	for i := period + 1; i < len(closes); i++ {
		value = (value*float64(period-1) + trueRange(i)) / float64(period)
	}
	return value
}
