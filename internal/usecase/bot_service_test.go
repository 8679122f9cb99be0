package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

func newTestService(t *testing.T, ex *MockExchange) (*BotService, *MockBotRepo, *MockTradeRepo) {
	t.Helper()

	botRepo := NewMockBotRepo()
	tradeRepo := &MockTradeRepo{}
	logger := zaptest.NewLogger(t)

	executor := NewOrderExecutor(ex, botRepo, tradeRepo, ExecutorConfig{
		QuoteAsset:    "USDT",
		StopLossPct:   0.05,
		TakeProfitPct: 0.15,
		MinTradeFloor: 10,
		SafetyBuffer:  5,
	}, logger)

	service := NewBotService(
		ex,
		&MockSentiment{Score: 0},
		botRepo,
		tradeRepo,
		NewRiskManager(24*time.Hour),
		executor,
		CycleConfig{Interval: 10 * time.Millisecond, ErrorBackoff: 10 * time.Millisecond},
		logger,
	)
	return service, botRepo, tradeRepo
}

func offlineExchange() *MockExchange {
	return &MockExchange{TickerErr: fmt.Errorf("offline")}
}

func TestCreateBotValidation(t *testing.T) {
	service, _, _ := newTestService(t, offlineExchange())
	ctx := context.Background()

	_, err := service.CreateBot(ctx, "b", "", "", domain.RiskMedium)
	assert.True(t, domain.IsConfiguration(err))

	_, err = service.CreateBot(ctx, "b", "BTC-USDT", "", "reckless")
	assert.True(t, domain.IsConfiguration(err))

	_, err = service.CreateBot(ctx, "b", "BTC-USDT", "grid_arbitrage", domain.RiskMedium)
	assert.True(t, domain.IsConfiguration(err))
}

func TestCreateBotDefaultsAndPersists(t *testing.T) {
	service, botRepo, _ := newTestService(t, offlineExchange())

	cfg, err := service.CreateBot(context.Background(), "", "BTC-USDT", "", domain.RiskLow)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.ID)
	assert.Equal(t, "BTC-USDT", cfg.Name) // name defaults to symbol
	assert.Equal(t, StrategySentimentMomentum, cfg.Strategy)
	assert.Equal(t, domain.RiskLow, cfg.RiskTier)
	assert.NotNil(t, botRepo.Bots[cfg.ID])

	statuses := service.ListStatuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, domain.BotStopped, statuses[0].Status)
}

func TestLifecycleThroughService(t *testing.T) {
	service, _, _ := newTestService(t, offlineExchange())
	ctx := context.Background()

	cfg, err := service.CreateBot(ctx, "b", "BTC-USDT", "", domain.RiskMedium)
	require.NoError(t, err)

	require.NoError(t, service.StartBot(cfg.ID))
	status, err := service.GetStatus(cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BotActive, status.Status)

	require.NoError(t, service.PauseBot(cfg.ID))
	status, _ = service.GetStatus(cfg.ID)
	assert.Equal(t, domain.BotPaused, status.Status)

	require.NoError(t, service.StopBot(cfg.ID))
	status, _ = service.GetStatus(cfg.ID)
	assert.Equal(t, domain.BotStopped, status.Status)
}

func TestUnknownBotID(t *testing.T) {
	service, _, _ := newTestService(t, offlineExchange())

	err := service.StartBot("bot_missing")
	assert.ErrorIs(t, err, ErrBotNotFound)

	_, err = service.GetStatus("bot_missing")
	assert.ErrorIs(t, err, ErrBotNotFound)

	err = service.DeleteBot(context.Background(), "bot_missing")
	assert.ErrorIs(t, err, ErrBotNotFound)
}

func TestDeleteBotStopsAndRemoves(t *testing.T) {
	service, botRepo, _ := newTestService(t, offlineExchange())
	ctx := context.Background()

	cfg, err := service.CreateBot(ctx, "b", "BTC-USDT", "", domain.RiskMedium)
	require.NoError(t, err)
	require.NoError(t, service.StartBot(cfg.ID))

	require.NoError(t, service.DeleteBot(ctx, cfg.ID))
	assert.Empty(t, service.ListStatuses())
	assert.Empty(t, botRepo.Bots)

	_, err = service.GetStatus(cfg.ID)
	assert.ErrorIs(t, err, ErrBotNotFound)
}

// A failed store delete must leave the bot registered, otherwise it would
// vanish from the API while the persisted config resurrects it on restart.
func TestDeleteBotKeepsRegistryOnStoreFailure(t *testing.T) {
	service, botRepo, _ := newTestService(t, offlineExchange())
	ctx := context.Background()

	cfg, err := service.CreateBot(ctx, "b", "BTC-USDT", "", domain.RiskMedium)
	require.NoError(t, err)

	botRepo.DeleteErr = fmt.Errorf("disk full")
	require.Error(t, service.DeleteBot(ctx, cfg.ID))

	// Still visible and still persisted; the delete can be retried.
	_, err = service.GetStatus(cfg.ID)
	require.NoError(t, err)
	assert.NotNil(t, botRepo.Bots[cfg.ID])

	botRepo.DeleteErr = nil
	require.NoError(t, service.DeleteBot(ctx, cfg.ID))
	assert.Empty(t, service.ListStatuses())
	assert.Empty(t, botRepo.Bots)
}

// Restored bots come back stopped with their open position attached, so a
// start immediately resumes risk management over it.
func TestRestoreBots(t *testing.T) {
	service, botRepo, _ := newTestService(t, offlineExchange())
	ctx := context.Background()

	botRepo.Bots["bot_a"] = &domain.BotConfig{
		ID: "bot_a", Name: "a", Symbol: "BTC-USDT",
		Strategy: StrategySentimentMomentum, RiskTier: domain.RiskMedium,
	}
	botRepo.Bots["bot_b"] = &domain.BotConfig{
		ID: "bot_b", Name: "b", Symbol: "ETH-USDT",
		Strategy: StrategySentimentMomentum, RiskTier: domain.RiskHigh,
	}
	pos := openPosition(time.Now().UTC())
	pos.BotID = "bot_b"
	botRepo.Positions["bot_b"] = pos

	require.NoError(t, service.RestoreBots(ctx))

	statuses := service.ListStatuses()
	require.Len(t, statuses, 2)
	for _, status := range statuses {
		assert.Equal(t, domain.BotStopped, status.Status)
	}

	statusB, err := service.GetStatus("bot_b")
	require.NoError(t, err)
	require.NotNil(t, statusB.Position)
	assert.Equal(t, pos.EntryPrice, statusB.Position.EntryPrice)

	statusA, err := service.GetStatus("bot_a")
	require.NoError(t, err)
	assert.Nil(t, statusA.Position)
}

func TestStopAll(t *testing.T) {
	service, _, _ := newTestService(t, offlineExchange())
	ctx := context.Background()

	for _, symbol := range []string{"BTC-USDT", "ETH-USDT"} {
		cfg, err := service.CreateBot(ctx, "", symbol, "", domain.RiskMedium)
		require.NoError(t, err)
		require.NoError(t, service.StartBot(cfg.ID))
	}

	service.StopAll()
	for _, status := range service.ListStatuses() {
		assert.Equal(t, domain.BotStopped, status.Status)
	}
}
