package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"ledgerlens/internal/cache"
	"ledgerlens/internal/core"
)

func newFixer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/fixer/latest" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") != "fixer-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("base") {
		case "USD":
			w.Write([]byte(`{"success": true, "base": "USD", "rates": {"RUB": 73.21, "EUR": 0.91}}`))
		case "EUR":
			w.Write([]byte(`{"success": true, "base": "EUR", "rates": {"RUB": 87.08}}`))
		case "XXX":
			w.Write([]byte(`{"success": true, "base": "XXX", "rates": {"EUR": 1}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAlpha(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/query" || q.Get("function") != "TIME_SERIES_DAILY" || q.Get("apikey") != "alpha-key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch q.Get("symbol") {
		case "AAPL":
			w.Write([]byte(`{
				"Meta Data": {"2. Symbol": "AAPL", "3. Last Refreshed": "2024-01-05"},
				"Time Series (Daily)": {
					"2024-01-05": {"1. open": "181.99", "4. close": "181.1800"},
					"2024-01-04": {"1. open": "182.15", "4. close": "181.9100"}
				}
			}`))
		case "MSFT":
			w.Write([]byte(`{
				"Meta Data": {"3. Last Refreshed": "2024-01-05 16:00:01"},
				"Time Series (Daily)": {"2024-01-05": {"4. close": "367.75"}}
			}`))
		case "RATE":
			w.Write([]byte(`{"Note": "API call frequency exceeded"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCurrencyRates(t *testing.T) {
	var calls int32
	fixer := newFixer(t, &calls)
	c := New(Config{FixerBaseURL: fixer.URL, FixerAPIKey: "fixer-key", Concurrency: 2}, nil)

	got := c.CurrencyRates(context.Background(), []string{"USD", "BAD", "EUR", "XXX"})
	want := []core.CurrencyRate{{Currency: "USD", Rate: 73.21}, {Currency: "EUR", Rate: 87.08}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rates = %+v, want %+v", got, want)
	}
}

func TestCurrencyRatesOmitsMissingRUB(t *testing.T) {
	var calls int32
	fixer := newFixer(t, &calls)
	c := New(Config{FixerBaseURL: fixer.URL, FixerAPIKey: "fixer-key", Concurrency: 1}, nil)

	got := c.CurrencyRates(context.Background(), []string{"XXX"})
	if len(got) != 0 {
		t.Fatalf("expected no rate without RUB, got %+v", got)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one fixer call, got %d", calls)
	}
}

func TestCurrencyRatesCached(t *testing.T) {
	var calls int32
	fixer := newFixer(t, &calls)
	c := New(Config{FixerBaseURL: fixer.URL, FixerAPIKey: "fixer-key"}, nil)

	c.CurrencyRates(context.Background(), []string{"USD"})
	c.CurrencyRates(context.Background(), []string{"USD"})
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single upstream call, got %d", n)
	}

	m := cache.NewManager(nil)
	c.RegisterCaches(m)
	if n := m.Sweep(); n != 0 {
		t.Fatalf("fresh entries should not be swept, got %d", n)
	}
}

func TestStockPrices(t *testing.T) {
	alpha := newAlpha(t)
	c := New(Config{AlphaVantageBaseURL: alpha.URL, AlphaVantageAPIKey: "alpha-key"}, nil)

	got := c.StockPrices(context.Background(), []string{"AAPL", "RATE", "MSFT", "DOWN"})
	want := []core.StockPrice{{Stock: "AAPL", Price: 181.18}, {Stock: "MSFT", Price: 367.75}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("prices = %+v, want %+v", got, want)
	}
}

func TestEmptyInputs(t *testing.T) {
	c := New(Config{}, nil)
	if got := c.CurrencyRates(context.Background(), nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil rates, got %#v", got)
	}
	if got := c.StockPrices(context.Background(), nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil prices, got %#v", got)
	}
}

func TestCancelledContextOmitsEverything(t *testing.T) {
	var calls int32
	fixer := newFixer(t, &calls)
	c := New(Config{FixerBaseURL: fixer.URL, FixerAPIKey: "fixer-key"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := c.CurrencyRates(ctx, []string{"USD", "EUR"}); len(got) != 0 {
		t.Fatalf("expected no rates with cancelled context, got %+v", got)
	}
}
