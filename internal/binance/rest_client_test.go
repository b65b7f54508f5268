package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-ledger-go/internal/config"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
	"trade-ledger-go/internal/ratelimit"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	rc := &RestClient{
		client:   resty.New().SetBaseURL(server.URL),
		logger:   zap.NewNop(), // Use a no-op logger for tests
		limiter:  ratelimit.New(1000, time.Second),
		backoff:  time.Millisecond,
		makerFee: decimal.RequireFromString("0.001"),
		takerFee: decimal.RequireFromString("0.002"),
	}

	return rc, server
}

const exchangeInfoBody = `{
  "symbols": [
    {
      "symbol": "BTCUSDT",
      "status": "TRADING",
      "filters": [
        {"filterType": "PRICE_FILTER", "minPrice": "0.01000000", "maxPrice": "1000000.00000000", "tickSize": "0.01000000"},
        {"filterType": "LOT_SIZE", "minQty": "0.00001000", "maxQty": "9000.00000000", "stepSize": "0.00001000"},
        {"filterType": "NOTIONAL", "minNotional": "5.00000000", "applyMinToMarket": true}
      ]
    },
    {
      "symbol": "ETHBTC",
      "status": "TRADING",
      "filters": [
        {"filterType": "LOT_SIZE", "minQty": "0.00010000", "maxQty": "100000.00000000", "stepSize": "0.00010000"},
        {"filterType": "MIN_NOTIONAL", "minNotional": "0.00010000"}
      ]
    },
    {"symbol": "LUNAUSDT", "status": "BREAK", "filters": []},
    {"symbol": "ODDUSDT", "status": "TRADING", "filters": [{"filterType": "PRICE_FILTER", "tickSize": "1.00000000"}]}
  ]
}`

func TestGetServerTime(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		expectedTime := time.Now().UnixMilli()
		mockResponse := fmt.Sprintf(`{"serverTime": %d}`, expectedTime)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/time", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(mockResponse))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		// Act
		serverTime, err := rc.GetServerTime(context.Background())

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, expectedTime, serverTime)
	})

	t.Run("APIError", func(t *testing.T) {
		// Arrange
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "/time", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code": -1001, "msg": "Internal error"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		// Act
		serverTime, err := rc.GetServerTime(context.Background())

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get server time")
		assert.Contains(t, err.Error(), "request failed") // Check for the error from doRequest
		assert.Equal(t, int64(0), serverTime)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("ClientErrorIsNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1100, "msg": "Illegal characters"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.GetServerTime(context.Background())
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestDoRequest_RetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"serverTime": 42}`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	serverTime, err := rc.GetServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), serverTime)
	assert.Equal(t, int32(2), calls.Load())
}

func TestThrottle_HonorsContext(t *testing.T) {
	rc := &RestClient{limiter: ratelimit.New(1, time.Hour), logger: zap.NewNop()}
	require.NoError(t, rc.throttle(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rc.throttle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchExchangeRules(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchangeInfo", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(exchangeInfoBody))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	rules, err := rc.FetchExchangeRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)

	btc := rules[0]
	assert.Equal(t, "BTCUSDT", btc.Symbol)
	assert.Equal(t, models.PlatformBinance, btc.Platform)
	assert.Equal(t, "0.00001000", money.Encode(btc.MinQty))
	assert.Equal(t, "9000.00000000", money.Encode(btc.MaxQty))
	assert.Equal(t, "0.00001000", money.Encode(btc.QtyStep))
	assert.Equal(t, "5.00000000", money.Encode(btc.MinNotional))
	assert.Equal(t, 5, btc.QtyPrecision)
	assert.Equal(t, 2, btc.PricePrecision)
	assert.Equal(t, []int{1}, btc.LeverageOptions)
	assert.Equal(t, "0.001", money.Encode(btc.MakerFee))
	assert.Equal(t, "0.002", money.Encode(btc.TakerFee))
	assert.False(t, btc.UpdatedAt.IsZero())

	eth := rules[1]
	assert.Equal(t, "ETHBTC", eth.Symbol)
	assert.Equal(t, "0.00010000", money.Encode(eth.MinNotional))
	assert.Equal(t, 4, eth.QtyPrecision)
}

func TestFetchExchangeRules_MalformedFilter(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbols":[{"symbol":"BADUSDT","status":"TRADING","filters":[{"filterType":"LOT_SIZE","minQty":"x","maxQty":"1","stepSize":"1"}]}]}`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	_, err := rc.FetchExchangeRules(context.Background())
	assert.ErrorIs(t, err, money.ErrMalformedValue)
	assert.Contains(t, err.Error(), "BADUSDT")
}

func TestPrecisionOf(t *testing.T) {
	assert.Equal(t, 3, precisionOf("0.00100000"))
	assert.Equal(t, 0, precisionOf("1.00000000"))
	assert.Equal(t, 8, precisionOf("0.00000001"))
	assert.Equal(t, 0, precisionOf("10"))
}

func TestNewRestClient(t *testing.T) {
	base := config.Binance{RateLimit: 10, RateWindowSeconds: 1, MakerFee: "0.001", TakerFee: "0.001"}

	t.Run("Testnet", func(t *testing.T) {
		cfg := base
		cfg.Testnet = true
		rc, err := NewRestClient(&cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, testnetBaseURL, rc.client.BaseURL)
		assert.Equal(t, 10, rc.limiter.Capacity())
	})

	t.Run("Production", func(t *testing.T) {
		cfg := base
		rc, err := NewRestClient(&cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, baseURL, rc.client.BaseURL)
	})

	t.Run("CustomEndpoint", func(t *testing.T) {
		cfg := base
		cfg.BaseURL = "http://localhost:9999/api/v3"
		rc, err := NewRestClient(&cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, cfg.BaseURL, rc.client.BaseURL)
	})

	t.Run("BadFee", func(t *testing.T) {
		cfg := base
		cfg.MakerFee = "ten basis points"
		_, err := NewRestClient(&cfg, zap.NewNop())
		assert.ErrorIs(t, err, money.ErrMalformedValue)
	})

	t.Run("BadRateLimit", func(t *testing.T) {
		cfg := base
		cfg.RateLimit = 0
		_, err := NewRestClient(&cfg, zap.NewNop())
		assert.ErrorIs(t, err, config.ErrInvalidRateLimit)
	})
}
