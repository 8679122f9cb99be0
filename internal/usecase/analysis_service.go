package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

// AnalysisService serves on-demand market reads for the API, independent of
// any running bot. It reuses the same engines the bots run on, so what the
// API shows is what a bot would act on.
type AnalysisService struct {
	exchange   domain.Exchange
	sentiment  domain.SentimentProvider
	indicators *IndicatorEngine
	cycle      CycleConfig
	logger     *zap.Logger
}

func NewAnalysisService(
	exchange domain.Exchange,
	sentiment domain.SentimentProvider,
	indicators *IndicatorEngine,
	cycle CycleConfig,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		exchange:   exchange,
		sentiment:  sentiment,
		indicators: indicators,
		cycle:      cycle.withDefaults(),
		logger:     logger,
	}
}

func (s *AnalysisService) Ticker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	return s.exchange.GetTicker(ctx, symbol)
}

func (s *AnalysisService) Balance(ctx context.Context) (*domain.Balance, error) {
	return s.exchange.GetBalance(ctx)
}

func (s *AnalysisService) Sentiment(ctx context.Context, symbol string) (*domain.SentimentScore, error) {
	return s.sentiment.GetSentiment(ctx, baseAsset(symbol))
}

// TechnicalView bundles the indicator snapshot with the detected levels.
type TechnicalView struct {
	Indicators *domain.IndicatorVector   `json:"indicators"`
	Levels     *domain.SupportResistance `json:"levels"`
}

func (s *AnalysisService) Technical(ctx context.Context, symbol string) (*TechnicalView, error) {
	candles, err := s.exchange.GetCandles(ctx, symbol, s.cycle.CandleInterval, s.cycle.CandleLimit)
	if err != nil {
		return nil, err
	}

	vector, err := s.indicators.Analyze(symbol, candles)
	if err != nil {
		return nil, err
	}

	levels, err := s.indicators.SupportResistance(symbol, candles)
	if err != nil {
		return nil, err
	}

	return &TechnicalView{Indicators: vector, Levels: levels}, nil
}

// SignalView pairs the combined signal with the inputs that produced it.
type SignalView struct {
	Symbol    string                  `json:"symbol"`
	Strategy  string                  `json:"strategy"`
	Signal    domain.Signal           `json:"signal"`
	Technical *domain.IndicatorVector `json:"technical"`
	Sentiment *domain.SentimentScore  `json:"sentiment,omitempty"`
}

// Signal evaluates the strategy against fresh data. Sentiment being down is
// not an error here either: the signal degrades to technical-only weighting.
func (s *AnalysisService) Signal(ctx context.Context, symbol, strategy string) (*SignalView, error) {
	if strategy == "" {
		strategy = StrategySentimentMomentum
	}
	engine, err := NewSignalEngine(strategy)
	if err != nil {
		return nil, err
	}

	candles, err := s.exchange.GetCandles(ctx, symbol, s.cycle.CandleInterval, s.cycle.CandleLimit)
	if err != nil {
		return nil, err
	}
	vector, err := s.indicators.Analyze(symbol, candles)
	if err != nil {
		return nil, err
	}

	var sentimentValue *float64
	score, err := s.sentiment.GetSentiment(ctx, baseAsset(symbol))
	if err != nil {
		s.logger.Warn("Sentiment unavailable for signal preview",
			zap.String("symbol", symbol), zap.Error(err))
		score = nil
	} else {
		sentimentValue = &score.Score
	}

	sig := engine.Generate(sentimentValue, vector.Strength)

	return &SignalView{
		Symbol:    symbol,
		Strategy:  engine.Strategy(),
		Signal:    sig,
		Technical: vector,
		Sentiment: score,
	}, nil
}
