// Package report composes the home and events reports from a ledger, the
// user's settings and live market quotes.
//
// Reports are always rendered as JSON. Every failure inside the build path,
// panics included, collapses into one generic error document; the detail is
// logged, never returned to the caller.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledgerlens/internal/aggregate"
	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/settings"
	"ledgerlens/internal/window"
)

// Kind names a report shape.
type Kind string

const (
	KindHome   Kind = "home"
	KindEvents Kind = "events"
)

// TopTransactionCount is how many transactions the home report lists.
const TopTransactionCount = 5

const (
	MsgNoData          = "No data available."
	MsgProcessingError = "An error occurred while processing the request."
)

var (
	ErrNoData      = errors.New("no ledger data")
	ErrUnknownKind = errors.New("unknown report kind")
	ErrPanic       = errors.New("report build panicked")
)

type (
	// SettingsSource supplies the instruments to quote.
	SettingsSource interface {
		Load(ctx context.Context) (settings.Settings, error)
	}

	// QuoteSource supplies market data. Symbols it cannot quote are left out.
	QuoteSource interface {
		CurrencyRates(ctx context.Context, codes []string) []core.CurrencyRate
		StockPrices(ctx context.Context, symbols []string) []core.StockPrice
	}

	// Observer is told about build progress.
	Observer func(stage string, percent int)
)

type (
	CardView struct {
		LastDigits string  `json:"last_digits"`
		TotalSpent float64 `json:"total_spent"`
		Cashback   float64 `json:"cashback"`
	}

	TransactionView struct {
		Date        string  `json:"date"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}

	Home struct {
		Greeting        string              `json:"greeting"`
		Cards           []CardView          `json:"cards"`
		TopTransactions []TransactionView   `json:"top_transactions"`
		CurrencyRates   []core.CurrencyRate `json:"currency_rates"`
		StockPrices     []core.StockPrice   `json:"stock_prices"`
	}

	Events struct {
		Greeting      string              `json:"greeting"`
		Expenses      core.ExpenseSummary `json:"expenses"`
		Income        core.IncomeSummary  `json:"income"`
		CurrencyRates []core.CurrencyRate `json:"currency_rates"`
		StockPrices   []core.StockPrice   `json:"stock_prices"`
	}

	// ErrorPayload is the document returned instead of a report.
	ErrorPayload struct {
		Error string `json:"error"`
	}
)

// ParseKind accepts "home" or "events" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindHome, KindEvents:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Greeting returns the Russian greeting for the hour of t.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return "Доброе утро"
	case h >= 12 && h < 18:
		return "Добрый день"
	case h >= 18:
		return "Добрый вечер"
	default:
		return "Доброй ночи"
	}
}

type Builder struct {
	settings SettingsSource
	quotes   QuoteSource
	logger   *slog.Logger
	observer Observer
}

type Option func(*Builder)

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(b *Builder) { b.observer = fn }
}

func NewBuilder(s SettingsSource, q QuoteSource, opts ...Option) *Builder {
	b := &Builder{settings: s, quotes: q, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) progress(stage string, percent int) {
	if b.observer != nil {
		b.observer(stage, percent)
	}
}

// Home builds the month-to-date overview ending at ref.
func (b *Builder) Home(ctx context.Context, ref time.Time, ledger []core.Transaction) (Home, error) {
	txs := window.Filter(ledger, window.MonthToDate(ref))

	cards := aggregate.SummarizeByCard(txs)
	b.progress("cards", 30)

	top := aggregate.TopTransactions(txs, TopTransactionCount)
	b.progress("top_transactions", 50)

	rates, prices, err := b.marketData(ctx)
	if err != nil {
		return Home{}, err
	}

	h := Home{
		Greeting:        Greeting(ref),
		Cards:           make([]CardView, 0, len(cards)),
		TopTransactions: make([]TransactionView, 0, len(top)),
		CurrencyRates:   rates,
		StockPrices:     prices,
	}
	for _, c := range cards {
		h.Cards = append(h.Cards, CardView{
			LastDigits: c.LastDigits,
			TotalSpent: c.TotalSpent.InexactFloat64(),
			Cashback:   c.Cashback.InexactFloat64(),
		})
	}
	for _, t := range top {
		h.TopTransactions = append(h.TopTransactions, TransactionView{
			Date:        t.Date,
			Amount:      t.Amount.InexactFloat64(),
			Category:    t.Category,
			Description: t.Description,
		})
	}
	b.progress("done", 100)
	return h, nil
}

// Events builds the expense and income breakdown of the window selected by r.
func (b *Builder) Events(ctx context.Context, ref time.Time, ledger []core.Transaction, r window.Range) (Events, error) {
	txs := window.Filter(ledger, window.Resolve(ref, r))

	flows := aggregate.SummarizeFlows(txs)
	b.progress("flows", 40)

	rates, prices, err := b.marketData(ctx)
	if err != nil {
		return Events{}, err
	}
	b.progress("done", 100)
	return Events{
		Greeting:      Greeting(ref),
		Expenses:      flows.Expenses,
		Income:        flows.Income,
		CurrencyRates: rates,
		StockPrices:   prices,
	}, nil
}

func (b *Builder) marketData(ctx context.Context) ([]core.CurrencyRate, []core.StockPrice, error) {
	s, err := b.settings.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("user settings: %w", err)
	}
	b.progress("settings", 60)

	rates := b.quotes.CurrencyRates(ctx, s.Currencies)
	b.progress("currency_rates", 75)
	prices := b.quotes.StockPrices(ctx, s.Stocks)
	b.progress("stock_prices", 90)

	if rates == nil {
		rates = []core.CurrencyRate{}
	}
	if prices == nil {
		prices = []core.StockPrice{}
	}
	return rates, prices, nil
}

// BuildReport builds a Home or Events value. A nil ledger yields ErrNoData;
// an empty one yields a report with empty sections.
func (b *Builder) BuildReport(ctx context.Context, kind Kind, reference string, ledger []core.Transaction, rangeCode string) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	ref, err := core.ParseReference(reference)
	if err != nil {
		return nil, fmt.Errorf("reference date: %w", err)
	}
	if ledger == nil {
		return nil, ErrNoData
	}

	switch kind {
	case KindHome:
		return b.Home(ctx, ref, ledger)
	case KindEvents:
		return b.Events(ctx, ref, ledger, window.ParseRange(rangeCode))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Build renders the report as JSON. It never fails: errors are logged and
// replaced by an ErrorPayload document.
func (b *Builder) Build(ctx context.Context, kind Kind, reference string, ledger []core.Transaction, rangeCode string) []byte {
	v, err := b.BuildReport(ctx, kind, reference, ledger, rangeCode)
	if err != nil {
		return b.errorDocument(ctx, err, log.NewFields().WithReport(string(kind), reference, rangeCode))
	}
	out, err := Encode(v)
	if err != nil {
		return b.errorDocument(ctx, err, log.NewFields().WithReport(string(kind), reference, rangeCode))
	}
	return out
}

func (b *Builder) errorDocument(ctx context.Context, err error, fields log.LogFields) []byte {
	msg := MsgProcessingError
	if errors.Is(err, ErrNoData) {
		msg = MsgNoData
		b.logger.WarnContext(ctx, "Report requested without ledger data", fields.ToSlice()...)
	} else {
		b.logger.ErrorContext(ctx, "Report build failed",
			fields.WithError(err).WithOperation(log.OpBuild).ToSlice()...)
	}
	return ErrorDocument(msg)
}

// ErrorDocument renders an ErrorPayload.
func ErrorDocument(msg string) []byte {
	out, err := Encode(ErrorPayload{Error: msg})
	if err != nil {
		// a single string field always encodes
		panic(err)
	}
	return out
}

// Encode renders v as indented JSON with non-ASCII text kept verbatim.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
