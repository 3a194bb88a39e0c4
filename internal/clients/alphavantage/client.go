// Package alphavantage provides a client for the Alpha Vantage query API
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/brokeclub/internal/common"
	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

const (
	DefaultBaseURL   = "https://www.alphavantage.co"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 1 // requests per second

	maxSymbolMatches = 10
)

var (
	// ErrRateLimited is returned when the payload carries a vendor throttle
	// message ("Note" or "Information") instead of data.
	ErrRateLimited = errors.New("alphavantage: vendor rate limit reached")
	// ErrMalformedQuote is returned when the payload lacks a usable price.
	ErrMalformedQuote = errors.New("alphavantage: malformed quote payload")
)

// pricePath locates the last trade price inside a GLOBAL_QUOTE payload
const pricePath = `$["Global Quote"]["05. price"]`

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 response from the vendor
type APIError struct {
	StatusCode int
	Message    string
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Alpha Vantage API error: %s (status: %d, function: %s)", e.Message, e.StatusCode, e.Function)
}

// query performs a rate-limited GET against /query and decodes the JSON body
func (c *Client) query(ctx context.Context, function string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("function", function)
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("function", function).Msg("Alpha Vantage API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("function", function).Dur("elapsed", elapsed).Msg("Alpha Vantage API request failed")
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Function:   function,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetGlobalQuote returns the latest trade price for a symbol.
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var payload map[string]any
	if err := c.query(ctx, "GLOBAL_QUOTE", params, &payload); err != nil {
		return decimal.Zero, err
	}

	return parseGlobalQuote(payload)
}

// parseGlobalQuote extracts the price from a decoded GLOBAL_QUOTE payload
func parseGlobalQuote(payload map[string]any) (decimal.Decimal, error) {
	if throttled(payload) {
		return decimal.Zero, ErrRateLimited
	}

	if _, ok := payload["Global Quote"].(map[string]any); !ok {
		return decimal.Zero, fmt.Errorf("%w: missing Global Quote object", ErrMalformedQuote)
	}

	raw, err := jsonpath.Get(pricePath, payload)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: missing price: %v", ErrMalformedQuote, err)
	}

	s, ok := raw.(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: price is %T, want string", ErrMalformedQuote, raw)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unparsable price %q", ErrMalformedQuote, s)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative price %s", ErrMalformedQuote, s)
	}

	return price, nil
}

// throttled reports whether the vendor answered with a rate limit message
func throttled(payload map[string]any) bool {
	_, note := payload["Note"]
	_, info := payload["Information"]
	return note || info
}

// symbolSearchResponse is the SYMBOL_SEARCH payload
type symbolSearchResponse struct {
	Note        string `json:"Note"`
	Information string `json:"Information"`
	BestMatches []struct {
		Symbol   string `json:"1. symbol"`
		Name     string `json:"2. name"`
		Region   string `json:"4. region"`
		Currency string `json:"8. currency"`
	} `json:"bestMatches"`
}

// SearchSymbols returns up to 10 symbol matches for the keywords.
// Matches missing a symbol or name are skipped.
func (c *Client) SearchSymbols(ctx context.Context, keywords string) ([]models.SymbolMatch, error) {
	params := url.Values{}
	params.Set("keywords", keywords)

	var resp symbolSearchResponse
	if err := c.query(ctx, "SYMBOL_SEARCH", params, &resp); err != nil {
		return nil, err
	}
	if resp.Note != "" || resp.Information != "" {
		return nil, ErrRateLimited
	}

	matches := make([]models.SymbolMatch, 0, maxSymbolMatches)
	for _, m := range resp.BestMatches {
		if strings.TrimSpace(m.Symbol) == "" || strings.TrimSpace(m.Name) == "" {
			continue
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Region:   m.Region,
			Currency: m.Currency,
		})
		if len(matches) >= maxSymbolMatches {
			break
		}
	}

	return matches, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
