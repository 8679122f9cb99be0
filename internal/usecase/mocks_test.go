package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

type placedOrder struct {
	Symbol   string
	Side     domain.Side
	Quantity float64
}

type MockExchange struct {
	mu sync.Mutex

	TickerPrice float64
	TickerErr   error
	FreeBalance map[string]float64
	BalanceErr  error
	Candles     []domain.Candle
	CandlesErr  error
	OrderErr    error

	Orders []placedOrder
}

func (m *MockExchange) GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	if m.TickerErr != nil {
		return nil, m.TickerErr
	}
	return &domain.Ticker{Symbol: symbol, Price: m.TickerPrice}, nil
}

func (m *MockExchange) GetBalance(ctx context.Context) (*domain.Balance, error) {
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	return &domain.Balance{Free: m.FreeBalance}, nil
}

func (m *MockExchange) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	if m.CandlesErr != nil {
		return nil, m.CandlesErr
	}
	return m.Candles, nil
}

func (m *MockExchange) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quantity float64) (*domain.OrderResult, error) {
	if m.OrderErr != nil {
		return nil, m.OrderErr
	}
	m.mu.Lock()
	m.Orders = append(m.Orders, placedOrder{Symbol: symbol, Side: side, Quantity: quantity})
	id := len(m.Orders)
	m.mu.Unlock()
	return &domain.OrderResult{OrderID: fmt.Sprintf("order_%d", id), Status: "filled"}, nil
}

func (m *MockExchange) PlacedOrders() []placedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]placedOrder, len(m.Orders))
	copy(out, m.Orders)
	return out
}

type MockSentiment struct {
	Score float64
	Err   error
}

func (m *MockSentiment) GetSentiment(ctx context.Context, asset string) (*domain.SentimentScore, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.SentimentScore{
		Symbol: asset,
		Score:  m.Score,
		Label:  domain.SentimentLabel(m.Score),
	}, nil
}

type MockBotRepo struct {
	mu        sync.Mutex
	Bots      map[string]*domain.BotConfig
	Positions map[string]*domain.Position
	SaveErr   error
	DeleteErr error
}

func NewMockBotRepo() *MockBotRepo {
	return &MockBotRepo{
		Bots:      make(map[string]*domain.BotConfig),
		Positions: make(map[string]*domain.Position),
	}
}

func (m *MockBotRepo) SaveBot(ctx context.Context, cfg *domain.BotConfig) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bots[cfg.ID] = cfg
	return nil
}

func (m *MockBotRepo) ListBots(ctx context.Context) ([]*domain.BotConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.BotConfig, 0, len(m.Bots))
	for _, cfg := range m.Bots {
		out = append(out, cfg)
	}
	return out, nil
}

func (m *MockBotRepo) DeleteBot(ctx context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Bots, id)
	delete(m.Positions, id)
	return nil
}

func (m *MockBotRepo) SavePosition(ctx context.Context, pos *domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Positions[pos.BotID] = pos
	return nil
}

func (m *MockBotRepo) GetPosition(ctx context.Context, botID string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Positions[botID], nil
}

func (m *MockBotRepo) DeletePosition(ctx context.Context, botID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Positions, botID)
	return nil
}

type MockTradeRepo struct {
	mu     sync.Mutex
	Trades []*domain.Trade
}

func (m *MockTradeRepo) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, trade)
	return nil
}

func (m *MockTradeRepo) ListTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Trade, len(m.Trades))
	copy(out, m.Trades)
	return out, nil
}
