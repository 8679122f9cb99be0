package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_sentiment_bot/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			risk_tier TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS positions (
			bot_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price REAL NOT NULL,
			quantity REAL NOT NULL,
			stop_loss REAL NOT NULL,
			take_profit REAL NOT NULL,
			order_id TEXT NOT NULL,
			opened_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			realized_pnl REAL NOT NULL DEFAULT 0,
			reason TEXT,
			order_id TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_bot ON trades(bot_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// BotRepository implementation

func (s *SQLiteStore) SaveBot(ctx context.Context, cfg *domain.BotConfig) error {
	query := `INSERT INTO bots (id, name, symbol, strategy, risk_tier, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  name=excluded.name, symbol=excluded.symbol,
			  strategy=excluded.strategy, risk_tier=excluded.risk_tier`
	_, err := s.db.ExecContext(ctx, query,
		cfg.ID, cfg.Name, cfg.Symbol, cfg.Strategy, string(cfg.RiskTier), cfg.CreatedAt)
	return err
}

func (s *SQLiteStore) ListBots(ctx context.Context) ([]*domain.BotConfig, error) {
	query := `SELECT id, name, symbol, strategy, risk_tier, created_at FROM bots`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*domain.BotConfig
	for rows.Next() {
		var cfg domain.BotConfig
		var tier string
		if err := rows.Scan(&cfg.ID, &cfg.Name, &cfg.Symbol, &cfg.Strategy, &tier, &cfg.CreatedAt); err != nil {
			return nil, err
		}
		cfg.RiskTier = domain.RiskTier(tier)
		bots = append(bots, &cfg)
	}
	return bots, rows.Err()
}

func (s *SQLiteStore) DeleteBot(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM positions WHERE bot_id = ?", id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM bots WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) SavePosition(ctx context.Context, pos *domain.Position) error {
	query := `INSERT INTO positions (bot_id, symbol, side, entry_price, quantity, stop_loss, take_profit, order_id, opened_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(bot_id) DO UPDATE SET
			  symbol=excluded.symbol, side=excluded.side, entry_price=excluded.entry_price,
			  quantity=excluded.quantity, stop_loss=excluded.stop_loss,
			  take_profit=excluded.take_profit, order_id=excluded.order_id,
			  opened_at=excluded.opened_at`
	_, err := s.db.ExecContext(ctx, query,
		pos.BotID, pos.Symbol, string(pos.Side), pos.EntryPrice, pos.Quantity,
		pos.StopLoss, pos.TakeProfit, pos.OrderID, pos.OpenedAt)
	return err
}

// GetPosition returns nil, nil when the bot has no persisted position.
func (s *SQLiteStore) GetPosition(ctx context.Context, botID string) (*domain.Position, error) {
	query := `SELECT bot_id, symbol, side, entry_price, quantity, stop_loss, take_profit, order_id, opened_at
			  FROM positions WHERE bot_id = ?`
	row := s.db.QueryRowContext(ctx, query, botID)

	var p domain.Position
	var side string
	err := row.Scan(&p.BotID, &p.Symbol, &side, &p.EntryPrice, &p.Quantity, &p.StopLoss, &p.TakeProfit, &p.OrderID, &p.OpenedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Side = domain.Side(side)
	return &p, nil
}

func (s *SQLiteStore) DeletePosition(ctx context.Context, botID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM positions WHERE bot_id = ?", botID)
	return err
}

// TradeRepository implementation

func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	query := `INSERT INTO trades (bot_id, symbol, side, quantity, price, realized_pnl, reason, order_id, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		trade.BotID, trade.Symbol, string(trade.Side), trade.Quantity, trade.Price,
		trade.RealizedPnL, string(trade.Reason), trade.OrderID, trade.CreatedAt)
	return err
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	query := `SELECT id, bot_id, symbol, side, quantity, price, realized_pnl, reason, order_id, created_at
			  FROM trades ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, reason string
		if err := rows.Scan(&t.ID, &t.BotID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.RealizedPnL, &reason, &t.OrderID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		t.Reason = domain.ExitReason(reason)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
