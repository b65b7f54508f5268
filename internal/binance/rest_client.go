package binance

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-ledger-go/internal/config"
	"trade-ledger-go/internal/models"
	"trade-ledger-go/internal/money"
	"trade-ledger-go/internal/ratelimit"
)

const (
	baseURL        = "https://api.binance.com/api/v3"
	testnetBaseURL = "https://testnet.binance.vision/api/v3"

	symbolStatusTrading = "TRADING"

	filterLotSize     = "LOT_SIZE"
	filterPrice       = "PRICE_FILTER"
	filterNotional    = "NOTIONAL"
	filterMinNotional = "MIN_NOTIONAL"
)

// RestClientInterface defines the public Binance endpoints the ledger reads.
type RestClientInterface interface {
	GetServerTime(ctx context.Context) (int64, error)
	GetExchangeInfo(ctx context.Context) (*ExchangeInfoResponse, error)
	FetchExchangeRules(ctx context.Context) ([]models.ExchangeRules, error)
}

// RestClient is a client for the public Binance REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client   *resty.Client
	logger   *zap.Logger
	limiter  *ratelimit.TokenBucket
	backoff  time.Duration
	makerFee decimal.Decimal
	takerFee decimal.Decimal
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client.
func NewRestClient(cfg *config.Binance, logger *zap.Logger) (*RestClient, error) {
	url := cfg.BaseURL
	switch {
	case url != "":
		logger.Info("Using custom Binance endpoint", zap.String("base_url", url))
	case cfg.Testnet:
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	default:
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	makerFee, err := money.DecodeField("binance.maker_fee", cfg.MakerFee)
	if err != nil {
		return nil, err
	}
	takerFee, err := money.DecodeField("binance.taker_fee", cfg.TakerFee)
	if err != nil {
		return nil, err
	}

	window := time.Duration(cfg.RateWindowSeconds * float64(time.Second))
	if cfg.RateLimit <= 0 || window <= 0 {
		return nil, config.ErrInvalidRateLimit
	}
	return &RestClient{
		client:   resty.New().SetBaseURL(url),
		logger:   logger,
		limiter:  ratelimit.New(cfg.RateLimit, window),
		backoff:  time.Second,
		makerFee: makerFee,
		takerFee: takerFee,
	}, nil
}

// GetServerTime fetches the current server time from Binance in milliseconds.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime(ctx context.Context) (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetResult(&ServerTimeResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// throttle blocks until the token bucket grants a request or ctx ends.
func (c *RestClient) throttle(ctx context.Context) error {
	for {
		if c.limiter.Acquire() {
			return nil
		}
		wait := c.limiter.WaitTime()
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.throttle(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.RawResponse != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot { // Binance bans with 418
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}
		if err == nil {
			err = fmt.Errorf("status %s", resp.Status())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1x, 2x, 4x the base delay
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// ExchangeInfoResponse represents the full response from the /exchangeInfo endpoint.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo contains information about a specific trading symbol.
type SymbolInfo struct {
	Symbol  string   `json:"symbol"`
	Status  string   `json:"status"`
	Filters []Filter `json:"filters"`
}

// Filter represents a single filter for a symbol. Only the fields of the
// LOT_SIZE, PRICE_FILTER and (MIN_)NOTIONAL filters are decoded.
type Filter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty,omitempty"`
	MaxQty      string `json:"maxQty,omitempty"`
	StepSize    string `json:"stepSize,omitempty"`
	TickSize    string `json:"tickSize,omitempty"`
	MinNotional string `json:"minNotional,omitempty"`
}

// GetExchangeInfo fetches exchange trading rules and symbol information.
func (c *RestClient) GetExchangeInfo(ctx context.Context) (*ExchangeInfoResponse, error) {
	var exchangeInfo ExchangeInfoResponse

	req := c.client.R().
		SetResult(&exchangeInfo).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(ctx, http.MethodGet, "/exchangeInfo", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	return resp.Result().(*ExchangeInfoResponse), nil
}

// FetchExchangeRules converts the rules of every trading symbol into
// models.ExchangeRules. Symbols without a LOT_SIZE filter are skipped.
func (c *RestClient) FetchExchangeRules(ctx context.Context) ([]models.ExchangeRules, error) {
	info, err := c.GetExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rules := make([]models.ExchangeRules, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != symbolStatusTrading {
			continue
		}
		r, ok, err := c.toExchangeRules(s, now)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", s.Symbol, err)
		}
		if !ok {
			c.logger.Warn("LOT_SIZE filter not found, skipping symbol", zap.String("symbol", s.Symbol))
			continue
		}
		rules = append(rules, r)
	}

	c.logger.Info("Fetched exchange rules", zap.Int("symbols", len(rules)))
	return rules, nil
}

func (c *RestClient) toExchangeRules(s SymbolInfo, now time.Time) (models.ExchangeRules, bool, error) {
	r := models.ExchangeRules{
		Symbol:          s.Symbol,
		Platform:        models.PlatformBinance,
		LeverageOptions: []int{1}, // spot
		MakerFee:        c.makerFee,
		TakerFee:        c.takerFee,
		UpdatedAt:       now,
	}

	var err error
	hasLotSize := false
	for _, f := range s.Filters {
		switch f.FilterType {
		case filterLotSize:
			hasLotSize = true
			if r.MinQty, err = money.DecodeField("minQty", f.MinQty); err != nil {
				return r, false, err
			}
			if r.MaxQty, err = money.DecodeField("maxQty", f.MaxQty); err != nil {
				return r, false, err
			}
			if r.QtyStep, err = money.DecodeField("stepSize", f.StepSize); err != nil {
				return r, false, err
			}
			r.QtyPrecision = precisionOf(f.StepSize)
		case filterPrice:
			r.PricePrecision = precisionOf(f.TickSize)
		case filterNotional, filterMinNotional:
			if r.MinNotional, err = money.DecodeField("minNotional", f.MinNotional); err != nil {
				return r, false, err
			}
		}
	}
	return r, hasLotSize, nil
}

// precisionOf counts the significant decimal places of a step or tick size,
// so "0.00100000" has precision 3 and "1.00000000" has precision 0.
func precisionOf(size string) int {
	dot := strings.IndexByte(size, '.')
	if dot < 0 {
		return 0
	}
	trimmed := strings.TrimRight(size[dot+1:], "0")
	return len(trimmed)
}
