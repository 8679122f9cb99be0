package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
	"github.com/vitos/crypto_sentiment_bot/internal/usecase"
)

type stubExchange struct {
	price     float64
	tickerErr error
}

func (e *stubExchange) GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	if e.tickerErr != nil {
		return nil, e.tickerErr
	}
	return &domain.Ticker{Symbol: symbol, Price: e.price}, nil
}

func (e *stubExchange) GetBalance(ctx context.Context) (*domain.Balance, error) {
	return &domain.Balance{Free: map[string]float64{"USDT": 1000}}, nil
}

func (e *stubExchange) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return nil, &domain.TransientFetchError{Op: "get candles", Err: context.DeadlineExceeded}
}

func (e *stubExchange) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quantity float64) (*domain.OrderResult, error) {
	return &domain.OrderResult{OrderID: "order_1", Status: "filled"}, nil
}

type stubSentiment struct {
	score *domain.SentimentScore
	err   error
}

func (s *stubSentiment) GetSentiment(ctx context.Context, asset string) (*domain.SentimentScore, error) {
	return s.score, s.err
}

type memoryRepo struct {
	bots      map[string]*domain.BotConfig
	positions map[string]*domain.Position
	trades    []*domain.Trade
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		bots:      map[string]*domain.BotConfig{},
		positions: map[string]*domain.Position{},
	}
}

func (r *memoryRepo) SaveBot(ctx context.Context, cfg *domain.BotConfig) error {
	r.bots[cfg.ID] = cfg
	return nil
}

func (r *memoryRepo) ListBots(ctx context.Context) ([]*domain.BotConfig, error) {
	var out []*domain.BotConfig
	for _, b := range r.bots {
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryRepo) DeleteBot(ctx context.Context, id string) error {
	delete(r.bots, id)
	delete(r.positions, id)
	return nil
}

func (r *memoryRepo) SavePosition(ctx context.Context, pos *domain.Position) error {
	r.positions[pos.BotID] = pos
	return nil
}

func (r *memoryRepo) GetPosition(ctx context.Context, botID string) (*domain.Position, error) {
	return r.positions[botID], nil
}

func (r *memoryRepo) DeletePosition(ctx context.Context, botID string) error {
	delete(r.positions, botID)
	return nil
}

func (r *memoryRepo) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	r.trades = append(r.trades, trade)
	return nil
}

func (r *memoryRepo) ListTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	if limit > len(r.trades) {
		limit = len(r.trades)
	}
	out := make([]*domain.Trade, 0, limit)
	for i := len(r.trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.trades[i])
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *memoryRepo) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	repo := newMemoryRepo()
	exchange := &stubExchange{price: 100}
	sentiment := &stubSentiment{score: &domain.SentimentScore{Symbol: "BTC", Score: 0.4, Label: "bullish"}}

	risk := usecase.NewRiskManager(24 * time.Hour)
	executor := usecase.NewOrderExecutor(exchange, repo, repo, usecase.ExecutorConfig{
		QuoteAsset:    "USDT",
		StopLossPct:   0.05,
		TakeProfitPct: 0.15,
		MinTradeFloor: 10,
		SafetyBuffer:  5,
	}, logger)

	bots := usecase.NewBotService(exchange, sentiment, repo, repo, risk, executor, usecase.CycleConfig{}, logger)
	analysis := usecase.NewAnalysisService(exchange, sentiment, usecase.NewIndicatorEngine(), usecase.CycleConfig{}, logger)

	server := NewServer(0, bots, analysis, repo, logger)
	t.Cleanup(func() { server.hub.Stop() })
	return server, repo
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func createBot(t *testing.T, s *Server) string {
	t.Helper()
	rec := doRequest(s, http.MethodPost, "/api/bots", map[string]string{
		"name":      "btc momentum",
		"symbol":    "BTC-USDT",
		"risk_tier": "low",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var cfg domain.BotConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	require.NotEmpty(t, cfg.ID)
	return cfg.ID
}

func TestCreateAndListBots(t *testing.T) {
	server, repo := newTestServer(t)

	id := createBot(t, server)
	assert.Contains(t, repo.bots, id)

	rec := doRequest(server, http.MethodGet, "/api/bots", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "stopped", statuses[0]["status"])
	assert.Equal(t, "BTC-USDT", statuses[0]["symbol"])
}

func TestCreateBotRejectsBadTier(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/bots", map[string]string{
		"symbol":    "BTC-USDT",
		"risk_tier": "reckless",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBotUnknownID(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/bots/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateBotLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	id := createBot(t, server)

	// Pausing a bot that never started is an invalid transition.
	rec := doRequest(server, http.MethodPut, "/api/bots/"+id, map[string]string{"status": "paused"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(server, http.MethodPut, "/api/bots/"+id, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "active", status["status"])

	rec = doRequest(server, http.MethodPut, "/api/bots/"+id, map[string]string{"status": "paused"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(server, http.MethodPut, "/api/bots/"+id, map[string]string{"status": "stopped"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(server, http.MethodPut, "/api/bots/"+id, map[string]string{"status": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteBot(t *testing.T) {
	server, repo := newTestServer(t)
	id := createBot(t, server)

	rec := doRequest(server, http.MethodDelete, "/api/bots/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, repo.bots, id)

	rec = doRequest(server, http.MethodDelete, "/api/bots/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTickerEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/ticker/BTC-USDT", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ticker domain.Ticker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticker))
	assert.Equal(t, "BTC-USDT", ticker.Symbol)
	assert.Equal(t, 100.0, ticker.Price)
}

func TestSentimentEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/sentiment/BTC-USDT", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var score domain.SentimentScore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &score))
	assert.Equal(t, 0.4, score.Score)
	assert.Equal(t, "bullish", score.Label)
}

func TestTransientErrorMapsToBadGateway(t *testing.T) {
	server, _ := newTestServer(t)

	// stubExchange fails candle fetches with a transient error.
	rec := doRequest(server, http.MethodGet, "/api/technical/BTC-USDT", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTradesEndpoint(t *testing.T) {
	server, repo := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/trades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	repo.trades = append(repo.trades, &domain.Trade{
		ID: 1, BotID: "bot_1", Symbol: "BTC-USDT", Side: domain.SideBuy,
		Quantity: 1, Price: 100, CreatedAt: time.Now().UTC(),
	})

	rec = doRequest(server, http.MethodGet, "/api/trades?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trades []*domain.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	assert.Len(t, trades, 1)

	rec = doRequest(server, http.MethodGet, "/api/trades?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var balance domain.Balance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	assert.Equal(t, 1000.0, balance.Free["USDT"])
}
