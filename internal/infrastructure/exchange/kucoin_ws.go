package exchange

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// KucoinStream maintains a public websocket subscription to live tickers.
// KuCoin requires a token handshake: POST /api/v1/bullet-public returns the
// endpoint and token to dial with.
type KucoinStream struct {
	adapter   *KucoinAdapter
	logger    *zap.Logger
	conn      *websocket.Conn
	done      chan struct{}
	callbacks []func(symbol string, price float64)
	mu        sync.Mutex
}

func NewKucoinStream(adapter *KucoinAdapter, logger *zap.Logger) *KucoinStream {
	return &KucoinStream{
		adapter: adapter,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (s *KucoinStream) OnPriceUpdate(callback func(symbol string, price float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

type bulletResponse struct {
	Code string `json:"code"`
	Data struct {
		Token           string `json:"token"`
		InstanceServers []struct {
			Endpoint     string `json:"endpoint"`
			PingInterval int64  `json:"pingInterval"`
		} `json:"instanceServers"`
	} `json:"data"`
}

func (s *KucoinStream) Connect(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.subscribe(symbols)
	}

	resp, err := s.adapter.sendRequest(context.Background(), "POST", "/api/v1/bullet-public", map[string]interface{}{}, false)
	if err != nil {
		return err
	}

	var bullet bulletResponse
	if err := json.Unmarshal(resp, &bullet); err != nil {
		return err
	}
	if len(bullet.Data.InstanceServers) == 0 {
		return websocket.ErrBadHandshake
	}

	server := bullet.Data.InstanceServers[0]
	wsURL := server.Endpoint + "?token=" + bullet.Data.Token

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	s.conn = c

	pingInterval := time.Duration(server.PingInterval) * time.Millisecond
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}

	go s.readLoop()
	go s.pingLoop(pingInterval)

	return s.subscribe(symbols)
}

func (s *KucoinStream) subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	subMsg := map[string]interface{}{
		"id":       strconv.FormatInt(time.Now().UnixNano(), 10),
		"type":     "subscribe",
		"topic":    "/market/ticker:" + strings.Join(symbols, ","),
		"response": true,
	}
	return s.conn.WriteJSON(subMsg)
}

func (s *KucoinStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *KucoinStream) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			if conn != nil {
				conn.WriteJSON(map[string]interface{}{
					"id":   strconv.FormatInt(time.Now().UnixNano(), 10),
					"type": "ping",
				})
			}
			s.mu.Unlock()
		}
	}
}

func (s *KucoinStream) readLoop() {
	defer func() {
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
		close(s.done)
	}()

	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			s.logger.Warn("websocket read error", zap.Error(err))
			return
		}

		var event struct {
			Type  string `json:"type"`
			Topic string `json:"topic"`
			Data  struct {
				Price string `json:"price"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}

		if event.Type != "message" || !strings.HasPrefix(event.Topic, "/market/ticker:") {
			continue
		}

		symbol := strings.TrimPrefix(event.Topic, "/market/ticker:")
		price, err := strconv.ParseFloat(event.Data.Price, 64)
		if err != nil || price <= 0 {
			continue
		}

		s.adapter.rememberPrice(symbol, price)

		s.mu.Lock()
		callbacks := make([]func(string, float64), len(s.callbacks))
		copy(callbacks, s.callbacks)
		s.mu.Unlock()

		for _, cb := range callbacks {
			cb(symbol, price)
		}
	}
}
