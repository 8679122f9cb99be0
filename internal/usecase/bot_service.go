package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

// ErrBotNotFound is returned for operations on an unknown bot id.
var ErrBotNotFound = errors.New("bot not found")

// BotService is the process-wide registry of live bots. It serializes
// create/delete against reads and is the only entry point the web layer uses.
type BotService struct {
	exchange  domain.Exchange
	sentiment domain.SentimentProvider
	botRepo   domain.BotRepository
	tradeRepo domain.TradeRepository
	risk      *RiskManager
	executor  *OrderExecutor
	cycle     CycleConfig
	logger    *zap.Logger

	mu   sync.Mutex
	bots map[string]*TradingBot
}

func NewBotService(
	exchange domain.Exchange,
	sentiment domain.SentimentProvider,
	botRepo domain.BotRepository,
	tradeRepo domain.TradeRepository,
	risk *RiskManager,
	executor *OrderExecutor,
	cycle CycleConfig,
	logger *zap.Logger,
) *BotService {
	return &BotService{
		exchange:  exchange,
		sentiment: sentiment,
		botRepo:   botRepo,
		tradeRepo: tradeRepo,
		risk:      risk,
		executor:  executor,
		cycle:     cycle,
		logger:    logger,
		bots:      make(map[string]*TradingBot),
	}
}

// CreateBot validates the config, persists it and registers a stopped bot.
// Validation failures are ConfigurationError and fatal to the request only.
func (s *BotService) CreateBot(ctx context.Context, name, symbol, strategy string, tier domain.RiskTier) (*domain.BotConfig, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, &domain.ConfigurationError{Field: "symbol", Reason: "must not be empty"}
	}
	if strings.TrimSpace(name) == "" {
		name = symbol
	}
	if _, ok := tier.PositionSizeMultiplier(); !ok {
		return nil, &domain.ConfigurationError{Field: "risk_tier", Reason: fmt.Sprintf("unknown tier %q", tier)}
	}

	id, err := generateBotID()
	if err != nil {
		return nil, fmt.Errorf("generate bot id: %w", err)
	}
	cfg := &domain.BotConfig{
		ID:        id,
		Name:      name,
		Symbol:    symbol,
		Strategy:  strategy,
		RiskTier:  tier,
		CreatedAt: time.Now().UTC(),
	}

	bot, err := s.buildBot(cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.botRepo.SaveBot(ctx, cfg); err != nil {
		return nil, fmt.Errorf("persist bot: %w", err)
	}
	s.bots[id] = bot

	s.logger.Info("Bot created",
		zap.String("bot_id", id),
		zap.String("symbol", symbol),
		zap.String("strategy", cfg.Strategy),
		zap.String("risk_tier", string(tier)))
	return cfg, nil
}

// buildBot wires the per-bot engines. The signal engine resolves the strategy
// here, so an unknown strategy name fails creation, not the first cycle.
func (s *BotService) buildBot(cfg *domain.BotConfig) (*TradingBot, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySentimentMomentum
	}
	signals, err := NewSignalEngine(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return NewTradingBot(cfg, s.exchange, s.sentiment, signals, s.risk, s.executor, s.cycle, s.logger)
}

// RestoreBots reloads persisted bots after a restart. Every bot comes back
// stopped with its open position (if any) attached, so risk management
// resumes as soon as it is started again.
func (s *BotService) RestoreBots(ctx context.Context) error {
	configs, err := s.botRepo.ListBots(ctx)
	if err != nil {
		return fmt.Errorf("list persisted bots: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range configs {
		bot, err := s.buildBot(cfg)
		if err != nil {
			s.logger.Error("Skipping unrestorable bot", zap.String("bot_id", cfg.ID), zap.Error(err))
			continue
		}
		if pos, err := s.botRepo.GetPosition(ctx, cfg.ID); err == nil && pos != nil {
			bot.RestorePosition(pos)
		}
		s.bots[cfg.ID] = bot
	}

	s.logger.Info("Bots restored", zap.Int("count", len(s.bots)))
	return nil
}

func (s *BotService) StartBot(id string) error {
	bot, err := s.get(id)
	if err != nil {
		return err
	}
	return bot.Start()
}

func (s *BotService) PauseBot(id string) error {
	bot, err := s.get(id)
	if err != nil {
		return err
	}
	return bot.Pause()
}

func (s *BotService) StopBot(id string) error {
	bot, err := s.get(id)
	if err != nil {
		return err
	}
	bot.Stop()
	return nil
}

// DeleteBot stops the bot and removes it from the store and the registry.
// The registry entry is removed only after the store delete succeeds, so a
// failed delete stays visible and retryable instead of resurrecting the bot
// on the next restart.
func (s *BotService) DeleteBot(ctx context.Context, id string) error {
	s.mu.Lock()
	bot, exists := s.bots[id]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrBotNotFound, id)
	}
	bot.Stop()

	if err := s.botRepo.DeleteBot(ctx, id); err != nil {
		return fmt.Errorf("delete persisted bot: %w", err)
	}
	s.mu.Lock()
	delete(s.bots, id)
	s.mu.Unlock()
	s.logger.Info("Bot deleted", zap.String("bot_id", id))
	return nil
}

func (s *BotService) GetStatus(id string) (domain.BotStatus, error) {
	bot, err := s.get(id)
	if err != nil {
		return domain.BotStatus{}, err
	}
	return bot.Status(), nil
}

// ListStatuses snapshots every registered bot.
func (s *BotService) ListStatuses() []domain.BotStatus {
	s.mu.Lock()
	bots := make([]*TradingBot, 0, len(s.bots))
	for _, b := range s.bots {
		bots = append(bots, b)
	}
	s.mu.Unlock()

	statuses := make([]domain.BotStatus, 0, len(bots))
	for _, b := range bots {
		statuses = append(statuses, b.Status())
	}
	return statuses
}

// StopAll stops every bot; used on shutdown.
func (s *BotService) StopAll() {
	s.mu.Lock()
	bots := make([]*TradingBot, 0, len(s.bots))
	for _, b := range s.bots {
		bots = append(bots, b)
	}
	s.mu.Unlock()

	for _, b := range bots {
		b.Stop()
	}
}

func (s *BotService) get(id string) (*TradingBot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bot, exists := s.bots[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBotNotFound, id)
	}
	return bot, nil
}

func generateBotID() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "bot_" + hex.EncodeToString(bytes), nil
}
