package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_sentiment_bot/internal/config"
	"github.com/vitos/crypto_sentiment_bot/internal/domain"
	"github.com/vitos/crypto_sentiment_bot/internal/infrastructure/exchange"
	"github.com/vitos/crypto_sentiment_bot/internal/infrastructure/logger"
	"github.com/vitos/crypto_sentiment_bot/internal/infrastructure/sentiment"
	"github.com/vitos/crypto_sentiment_bot/internal/infrastructure/storage"
	"github.com/vitos/crypto_sentiment_bot/internal/usecase"
	"github.com/vitos/crypto_sentiment_bot/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.System.LogFile != "" {
		log, err = logger.NewFileLogger(cfg.System.LogLevel, cfg.System.LogFile)
	} else {
		log, err = logger.NewLogger(cfg.System.LogLevel)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	kucoin := exchange.NewKucoinAdapter(
		cfg.Exchange.APIKey,
		cfg.Exchange.APISecret,
		cfg.Exchange.Passphrase,
		cfg.Exchange.BaseURL,
		log,
	)
	stream := exchange.NewKucoinStream(kucoin, log)

	var provider domain.SentimentProvider = sentiment.NewCombined(log,
		sentiment.NewSocialSource(cfg.Sentiment.SocialURL, cfg.Sentiment.SocialAPIKey),
		sentiment.NewCommunitySource(cfg.Sentiment.CommunityURL),
		sentiment.NewAggregatorSource(cfg.Sentiment.AggregatorURL),
	)
	if cfg.Redis.Enabled {
		redisClient, err := sentiment.NewRedisClient(
			fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			log.Error("Redis unavailable, sentiment cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			ttl := time.Duration(cfg.Sentiment.CacheTTLSec) * time.Second
			provider = sentiment.NewCachedProvider(provider, redisClient, ttl, log)
		}
	}

	risk := usecase.NewRiskManager(time.Duration(cfg.Trading.MaxPositionAgeH) * time.Hour)
	executor := usecase.NewOrderExecutor(kucoin, store, store, usecase.ExecutorConfig{
		QuoteAsset:    cfg.Exchange.QuoteAsset,
		StopLossPct:   cfg.Trading.StopLossPct,
		TakeProfitPct: cfg.Trading.TakeProfitPct,
		MinTradeFloor: cfg.Trading.MinTradeFloor,
		SafetyBuffer:  cfg.Trading.SafetyBuffer,
	}, log)

	cycle := usecase.CycleConfig{
		Interval:       time.Duration(cfg.Trading.CycleIntervalSec) * time.Second,
		ErrorBackoff:   time.Duration(cfg.Trading.ErrorBackoffSec) * time.Second,
		CandleInterval: cfg.Trading.CandleInterval,
		CandleLimit:    cfg.Trading.CandleLimit,
	}

	botService := usecase.NewBotService(kucoin, provider, store, store, risk, executor, cycle, log)
	if err := botService.RestoreBots(context.Background()); err != nil {
		log.Error("Failed to restore persisted bots", zap.Error(err))
	}

	// A live price stream warms the adapter's ticker cache for the symbols
	// the restored bots trade. Failing is fine, REST stays the source.
	symbols := make([]string, 0)
	seen := make(map[string]bool)
	for _, status := range botService.ListStatuses() {
		if !seen[status.Symbol] {
			seen[status.Symbol] = true
			symbols = append(symbols, status.Symbol)
		}
	}
	if len(symbols) > 0 {
		if err := stream.Connect(symbols); err != nil {
			log.Warn("Price stream unavailable", zap.Error(err))
		}
	}

	analysis := usecase.NewAnalysisService(kucoin, provider, usecase.NewIndicatorEngine(), cycle, log)
	server := web.NewServer(cfg.Server.Port, botService, analysis, store, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	botService.StopAll()
	stream.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
