package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vitos/crypto_sentiment_bot/internal/domain"
	"go.uber.org/zap"
)

const (
	KucoinBaseURL = "https://api.kucoin.com"
)

// KucoinAdapter talks to the KuCoin spot REST API. Public market data needs
// no credentials; balance and order endpoints require a signed request.
type KucoinAdapter struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	client     *http.Client
	logger     *zap.Logger

	mu         sync.RWMutex
	lastPrices map[string]float64
}

func NewKucoinAdapter(apiKey, apiSecret, passphrase, baseURL string, logger *zap.Logger) *KucoinAdapter {
	if baseURL == "" {
		baseURL = KucoinBaseURL
	}
	return &KucoinAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		lastPrices: make(map[string]float64),
	}
}

// --- REST signing ---

// sign builds the KC-API-SIGN header: base64(HMAC-SHA256(timestamp + method + endpoint + body)).
func (k *KucoinAdapter) sign(timestamp, method, endpoint, body string) string {
	h := hmac.New(sha256.New, []byte(k.apiSecret))
	h.Write([]byte(timestamp + method + endpoint + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (k *KucoinAdapter) signedPassphrase() string {
	h := hmac.New(sha256.New, []byte(k.apiSecret))
	h.Write([]byte(k.passphrase))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (k *KucoinAdapter) sendRequest(ctx context.Context, method, endpoint string, payload map[string]interface{}, signed bool) ([]byte, error) {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("KC-API-KEY", k.apiKey)
		req.Header.Set("KC-API-TIMESTAMP", timestamp)
		req.Header.Set("KC-API-SIGN", k.sign(timestamp, method, endpoint, string(body)))
		req.Header.Set("KC-API-PASSPHRASE", k.signedPassphrase())
		req.Header.Set("KC-API-KEY-VERSION", "2")
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: method + " " + endpoint, Err: err}
	}

	if resp.StatusCode >= 500 {
		return nil, &domain.TransientFetchError{Op: method + " " + endpoint, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("kucoin API error: %s", string(respBody))
	}

	return respBody, nil
}

// --- Market data ---

func (k *KucoinAdapter) GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	endpoint := "/api/v1/market/orderbook/level1?symbol=" + symbol
	resp, err := k.sendRequest(ctx, "GET", endpoint, nil, false)
	if err != nil {
		// Fall back to the last price seen over the websocket stream.
		if price, ok := k.cachedPrice(symbol); ok {
			k.logger.Debug("ticker fetch failed, serving cached price",
				zap.String("symbol", symbol), zap.Float64("price", price))
			return &domain.Ticker{Symbol: symbol, Price: price}, nil
		}
		return nil, err
	}

	var result struct {
		Code string `json:"code"`
		Data struct {
			Price   string `json:"price"`
			BestBid string `json:"bestBid"`
			BestAsk string `json:"bestAsk"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &domain.TransientFetchError{Op: "GetTicker", Err: err}
	}
	if result.Code != "200000" || result.Data.Price == "" {
		return nil, &domain.TransientFetchError{Op: "GetTicker", Err: fmt.Errorf("kucoin ticker error: code %s", result.Code)}
	}

	price, err := strconv.ParseFloat(result.Data.Price, 64)
	if err != nil {
		return nil, &domain.TransientFetchError{Op: "GetTicker", Err: err}
	}
	bid, _ := strconv.ParseFloat(result.Data.BestBid, 64)
	ask, _ := strconv.ParseFloat(result.Data.BestAsk, 64)

	k.rememberPrice(symbol, price)

	return &domain.Ticker{Symbol: symbol, Price: price, Bid: bid, Ask: ask}, nil
}

func (k *KucoinAdapter) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	endpoint := fmt.Sprintf("/api/v1/market/candles?symbol=%s&type=%s", symbol, interval)
	resp, err := k.sendRequest(ctx, "GET", endpoint, nil, false)
	if err != nil {
		return nil, err
	}

	var result struct {
		Code string     `json:"code"`
		Data [][]string `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &domain.TransientFetchError{Op: "GetCandles", Err: err}
	}
	if result.Code != "200000" {
		return nil, &domain.TransientFetchError{Op: "GetCandles", Err: fmt.Errorf("kucoin kline error: code %s", result.Code)}
	}

	var candles []domain.Candle
	for _, raw := range result.Data {
		// Format: [time, open, close, high, low, volume, turnover]
		if len(raw) < 6 {
			continue
		}
		ts, _ := strconv.ParseInt(raw[0], 10, 64)
		open, _ := strconv.ParseFloat(raw[1], 64)
		closePrice, _ := strconv.ParseFloat(raw[2], 64)
		high, _ := strconv.ParseFloat(raw[3], 64)
		low, _ := strconv.ParseFloat(raw[4], 64)
		volume, _ := strconv.ParseFloat(raw[5], 64)

		candles = append(candles, domain.Candle{
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	// KuCoin returns candles newest first; reverse to chronological order.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

// --- Account ---

func (k *KucoinAdapter) GetBalance(ctx context.Context) (*domain.Balance, error) {
	resp, err := k.sendRequest(ctx, "GET", "/api/v1/accounts?type=trade", nil, true)
	if err != nil {
		return nil, err
	}

	var result struct {
		Code string `json:"code"`
		Data []struct {
			Currency  string `json:"currency"`
			Available string `json:"available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &domain.TransientFetchError{Op: "GetBalance", Err: err}
	}
	if result.Code != "200000" {
		return nil, &domain.TransientFetchError{Op: "GetBalance", Err: fmt.Errorf("kucoin accounts error: code %s", result.Code)}
	}

	balance := &domain.Balance{Free: make(map[string]float64)}
	for _, acc := range result.Data {
		free, _ := strconv.ParseFloat(acc.Available, 64)
		balance.Free[acc.Currency] = free
	}
	return balance, nil
}

// --- Orders ---

func (k *KucoinAdapter) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quantity float64) (*domain.OrderResult, error) {
	payload := map[string]interface{}{
		"clientOid": strconv.FormatInt(time.Now().UnixNano(), 10),
		"symbol":    symbol,
		"side":      string(side),
		"type":      "market",
		"size":      strconv.FormatFloat(quantity, 'f', -1, 64),
	}

	resp, err := k.sendRequest(ctx, "POST", "/api/v1/orders", payload, true)
	if err != nil {
		return nil, err
	}

	var result struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			OrderID string `json:"orderId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.Code != "200000" {
		return nil, fmt.Errorf("kucoin order error: %s (code %s)", result.Msg, result.Code)
	}

	k.logger.Info("market order placed",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("quantity", quantity),
		zap.String("order_id", result.Data.OrderID))

	return &domain.OrderResult{OrderID: result.Data.OrderID, Status: "filled"}, nil
}

// --- Price cache fed by the websocket stream ---

func (k *KucoinAdapter) rememberPrice(symbol string, price float64) {
	k.mu.Lock()
	k.lastPrices[symbol] = price
	k.mu.Unlock()
}

func (k *KucoinAdapter) cachedPrice(symbol string) (float64, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	price, ok := k.lastPrices[symbol]
	return price, ok
}
