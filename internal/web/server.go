package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
	"github.com/vitos/crypto_sentiment_bot/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	bots      *usecase.BotService
	analysis  *usecase.AnalysisService
	tradeRepo domain.TradeRepository
	hub       *StatusHub
	logger    *zap.Logger
}

func NewServer(
	port int,
	bots *usecase.BotService,
	analysis *usecase.AnalysisService,
	tradeRepo domain.TradeRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		bots:      bots,
		analysis:  analysis,
		tradeRepo: tradeRepo,
		hub:       NewStatusHub(bots, logger),
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Bots
	s.router.HandleFunc("GET /api/bots", s.handleListBots)
	s.router.HandleFunc("POST /api/bots", s.handleCreateBot)
	s.router.HandleFunc("GET /api/bots/{id}", s.handleGetBot)
	s.router.HandleFunc("PUT /api/bots/{id}", s.handleUpdateBot)
	s.router.HandleFunc("DELETE /api/bots/{id}", s.handleDeleteBot)

	// Market data
	s.router.HandleFunc("GET /api/ticker/{symbol}", s.handleTicker)
	s.router.HandleFunc("GET /api/sentiment/{symbol}", s.handleSentiment)
	s.router.HandleFunc("GET /api/technical/{symbol}", s.handleTechnical)
	s.router.HandleFunc("GET /api/signals/{symbol}", s.handleSignal)

	// Account
	s.router.HandleFunc("GET /api/trades", s.handleTrades)
	s.router.HandleFunc("GET /api/balance", s.handleBalance)

	// Status stream
	s.router.HandleFunc("GET /ws", s.hub.HandleWS)
}

func (s *Server) Start() error {
	s.hub.Run()
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.server.Shutdown(ctx)
}
