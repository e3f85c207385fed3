// Package quotes fetches currency rates from the Fixer API and stock closes
// from Alpha Vantage.
//
// Lookups fan out per symbol with bounded concurrency. A symbol whose lookup
// fails is logged and left out of the result; callers never see an error.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ledgerlens/internal/cache"
	"ledgerlens/internal/core"
)

const (
	DefaultFixerBaseURL        = "https://api.apilayer.com"
	DefaultAlphaVantageBaseURL = "https://www.alphavantage.co"

	// QuoteCurrency is the currency every rate is expressed in.
	QuoteCurrency = "RUB"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrMissingQuote     = errors.New("quote missing from response")
)

type Config struct {
	FixerBaseURL        string
	FixerAPIKey         string
	AlphaVantageBaseURL string
	AlphaVantageAPIKey  string
	Timeout             time.Duration
	CacheTTL            time.Duration
	Concurrency         int
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	rates  *cache.LRUCache[float64]
	prices *cache.LRUCache[float64]
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.FixerBaseURL == "" {
		cfg.FixerBaseURL = DefaultFixerBaseURL
	}
	if cfg.AlphaVantageBaseURL == "" {
		cfg.AlphaVantageBaseURL = DefaultAlphaVantageBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		rates:  cache.NewLRUCache[float64](256, cfg.CacheTTL),
		prices: cache.NewLRUCache[float64](256, cfg.CacheTTL),
	}
}

// RegisterCaches hands the quote caches to a cache manager for sweeping.
func (c *Client) RegisterCaches(m *cache.Manager) {
	m.Register("currency_rates", c.rates)
	m.Register("stock_prices", c.prices)
}

// CurrencyRates returns the RUB rate of each code, in input order. A code whose
// response has no RUB rate is omitted, not reported as "N/A".
func (c *Client) CurrencyRates(ctx context.Context, codes []string) []core.CurrencyRate {
	vals := c.fanOut(ctx, codes, c.rates, c.fetchRate, "currency")
	out := make([]core.CurrencyRate, 0, len(codes))
	for i, code := range codes {
		if vals[i] != nil {
			out = append(out, core.CurrencyRate{Currency: code, Rate: *vals[i]})
		}
	}
	return out
}

// StockPrices returns the latest daily close of each symbol, in input order.
func (c *Client) StockPrices(ctx context.Context, symbols []string) []core.StockPrice {
	vals := c.fanOut(ctx, symbols, c.prices, c.fetchClose, "stock")
	out := make([]core.StockPrice, 0, len(symbols))
	for i, sym := range symbols {
		if vals[i] != nil {
			out = append(out, core.StockPrice{Stock: sym, Price: *vals[i]})
		}
	}
	return out
}

type fetchFunc func(ctx context.Context, key string) (float64, error)

// fanOut resolves every key through the cache or fetch. Each goroutine owns
// one result slot; a nil slot marks a failed lookup.
func (c *Client) fanOut(ctx context.Context, keys []string, lru *cache.LRUCache[float64], fetch fetchFunc, kind string) []*float64 {
	results := make([]*float64, len(keys))
	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if v, ok := lru.Get(key); ok {
				results[i] = &v
				return nil
			}
			v, err := fetch(ctx, key)
			if err != nil {
				c.logger.WarnContext(ctx, "Quote lookup failed, omitting", kind, key, "error", err)
				return nil
			}
			lru.Set(key, v)
			results[i] = &v
			return nil
		})
	}
	_ = g.Wait()
	return results
}

type fixerLatest struct {
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) fetchRate(ctx context.Context, code string) (float64, error) {
	u := strings.TrimRight(c.cfg.FixerBaseURL, "/") + "/fixer/latest?" + url.Values{"base": {code}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.FixerAPIKey)

	var body fixerLatest
	if err := c.do(req, &body); err != nil {
		return 0, err
	}
	rate, ok := body.Rates[QuoteCurrency]
	if !ok {
		return 0, fmt.Errorf("%w: rates.%s", ErrMissingQuote, QuoteCurrency)
	}
	return rate, nil
}

type dailySeries struct {
	Meta struct {
		LastRefreshed string `json:"3. Last Refreshed"`
	} `json:"Meta Data"`
	Series map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
}

func (c *Client) fetchClose(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{
		"function": {"TIME_SERIES_DAILY"},
		"symbol":   {symbol},
		"apikey":   {c.cfg.AlphaVantageAPIKey},
	}
	u := strings.TrimRight(c.cfg.AlphaVantageBaseURL, "/") + "/query?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	var body dailySeries
	if err := c.do(req, &body); err != nil {
		return 0, err
	}
	lr := body.Meta.LastRefreshed
	day, ok := body.Series[lr]
	if !ok && len(lr) > len("2006-01-02") {
		// intraday refresh stamps carry a time; daily series keys do not
		day, ok = body.Series[lr[:len("2006-01-02")]]
	}
	if lr == "" || !ok || day.Close == "" {
		return 0, fmt.Errorf("%w: close for %q", ErrMissingQuote, body.Meta.LastRefreshed)
	}
	price, err := decimal.NewFromString(day.Close)
	if err != nil {
		return 0, fmt.Errorf("parse close %q: %w", day.Close, err)
	}
	return price.InexactFloat64(), nil
}

func (c *Client) do(req *http.Request, into any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
