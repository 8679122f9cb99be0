package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
	"github.com/vitos/crypto_sentiment_bot/internal/usecase"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrBotNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, usecase.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case domain.IsConfiguration(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case domain.IsInsufficientData(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case domain.IsTransient(err):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// --- Bots ---

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bots.ListStatuses())
}

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Strategy string `json:"strategy"`
		RiskTier string `json:"risk_tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RiskTier == "" {
		req.RiskTier = string(domain.RiskMedium)
	}

	cfg, err := s.bots.CreateBot(r.Context(), req.Name, req.Symbol, req.Strategy, domain.RiskTier(req.RiskTier))
	if err != nil {
		s.logger.Error("Failed to create bot", zap.Error(err))
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	status, err := s.bots.GetStatus(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleUpdateBot drives lifecycle transitions. The request body carries the
// desired status: active starts or resumes, paused pauses, stopped stops.
func (s *Server) handleUpdateBot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch domain.BotLifecycle(req.Status) {
	case domain.BotActive:
		err = s.bots.StartBot(id)
	case domain.BotPaused:
		err = s.bots.PauseBot(id)
	case domain.BotStopped:
		err = s.bots.StopBot(id)
	default:
		http.Error(w, "status must be active, paused or stopped", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("Failed to update bot", zap.String("bot_id", id), zap.Error(err))
		s.writeError(w, err)
		return
	}

	status, err := s.bots.GetStatus(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDeleteBot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.bots.DeleteBot(r.Context(), id); err != nil {
		s.logger.Error("Failed to delete bot", zap.String("bot_id", id), zap.Error(err))
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Market data ---

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	ticker, err := s.analysis.Ticker(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ticker)
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	score, err := s.analysis.Sentiment(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleTechnical(w http.ResponseWriter, r *http.Request) {
	view, err := s.analysis.Technical(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	view, err := s.analysis.Signal(r.Context(), r.PathValue("symbol"), r.URL.Query().Get("strategy"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// --- Account ---

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	trades, err := s.tradeRepo.ListTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		s.writeError(w, err)
		return
	}
	if trades == nil {
		trades = []*domain.Trade{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.analysis.Balance(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balance)
}
