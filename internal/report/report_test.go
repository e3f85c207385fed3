package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ledgerlens/internal/core"
	"ledgerlens/internal/settings"
)

type fakeQuotes struct {
	rates  map[string]float64
	prices map[string]float64
}

func (f fakeQuotes) CurrencyRates(_ context.Context, codes []string) []core.CurrencyRate {
	var out []core.CurrencyRate
	for _, c := range codes {
		if r, ok := f.rates[c]; ok {
			out = append(out, core.CurrencyRate{Currency: c, Rate: r})
		}
	}
	return out
}

func (f fakeQuotes) StockPrices(_ context.Context, symbols []string) []core.StockPrice {
	var out []core.StockPrice
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out = append(out, core.StockPrice{Stock: s, Price: p})
		}
	}
	return out
}

type failingSettings struct{ err error }

func (f failingSettings) Load(context.Context) (settings.Settings, error) {
	return settings.Settings{}, f.err
}

func tx(date, card, amount, category, description string) core.Transaction {
	t := core.Transaction{
		RawDate:     date,
		CardNumber:  card,
		Amount:      core.ParseOptionalAmount(amount),
		Category:    category,
		Description: description,
	}
	if parsed, err := core.ParseOperationTime(date); err == nil {
		t.OperationTime = parsed
	}
	return t
}

func sampleLedger() []core.Transaction {
	return []core.Transaction{
		tx("30.06.2020 23:00:00", "*7197", "-1000", "Супермаркеты", "June"),
		tx("01.07.2020 12:00:00", "*7197", "-160.89", "Супермаркеты", "Колхоз"),
		tx("05.07.2020 12:00:00", "*5091", "-64", "Переводы", "Иван И."),
		tx("10.07.2020 15:00:00", "*7197", "500", "Пополнения", "Внесение наличных"),
		tx("15.07.2020 18:30:00", "*5091", "1200", "Пополнения", "Зарплата"),
		tx("20.07.2020 15:00:00", "*7197", "-3000", "Наличные", "Снятие"),
		tx("22.07.2020 11:00:00", "*7197", "-1", "Фастфуд", "after reference"),
		tx("bad", "*0001", "999999", "Прочее", "undated"),
	}
}

func newTestBuilder(opts ...Option) *Builder {
	s := settings.Static{Currencies: []string{"USD", "EUR", "XXX"}, Stocks: []string{"AAPL", "FAIL"}}
	q := fakeQuotes{
		rates:  map[string]float64{"USD": 73.21, "EUR": 87.08},
		prices: map[string]float64{"AAPL": 181.18},
	}
	return NewBuilder(s, q, opts...)
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "Доброй ночи"},
		{5, "Доброй ночи"},
		{6, "Доброе утро"},
		{11, "Доброе утро"},
		{12, "Добрый день"},
		{17, "Добрый день"},
		{18, "Добрый вечер"},
		{23, "Добрый вечер"},
	}
	for _, tt := range tests {
		got := Greeting(time.Date(2020, 7, 22, tt.hour, 59, 0, 0, time.UTC))
		if got != tt.want {
			t.Errorf("Greeting(%02d:59) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" HOME "); err != nil || k != KindHome {
		t.Fatalf("ParseKind(HOME) = %q, %v", k, err)
	}
	if _, err := ParseKind("weekly"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestHomeReport(t *testing.T) {
	b := newTestBuilder()
	v, err := b.BuildReport(context.Background(), KindHome, "2020-07-22 10:32:50", sampleLedger(), "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	h := v.(Home)

	if h.Greeting != "Доброе утро" {
		t.Fatalf("greeting = %q", h.Greeting)
	}
	if len(h.Cards) != 2 {
		t.Fatalf("cards = %+v", h.Cards)
	}
	// *5091: -64 + 1200; *7197: -160.89 + 500 - 3000 (June and after-reference rows excluded)
	if h.Cards[0].LastDigits != "5091" || h.Cards[0].TotalSpent != 1136 || h.Cards[0].Cashback != 11.36 {
		t.Fatalf("card 5091 = %+v", h.Cards[0])
	}
	if h.Cards[1].LastDigits != "7197" || h.Cards[1].TotalSpent != -2660.89 || h.Cards[1].Cashback != -26.61 {
		t.Fatalf("card 7197 = %+v", h.Cards[1])
	}

	wantTop := []string{"1200", "500", "-64", "-160.89", "-3000"}
	if len(h.TopTransactions) != len(wantTop) {
		t.Fatalf("top = %+v", h.TopTransactions)
	}
	for i, w := range wantTop {
		want, _ := core.ParseAmount(w)
		if h.TopTransactions[i].Amount != want.InexactFloat64() {
			t.Fatalf("top[%d] = %+v, want amount %s", i, h.TopTransactions[i], w)
		}
	}
	if h.TopTransactions[0].Date != "15.07.2020" || h.TopTransactions[0].Description != "Зарплата" {
		t.Fatalf("top[0] = %+v", h.TopTransactions[0])
	}

	if len(h.CurrencyRates) != 2 || h.CurrencyRates[1].Currency != "EUR" {
		t.Fatalf("rates = %+v", h.CurrencyRates)
	}
	if len(h.StockPrices) != 1 || h.StockPrices[0].Stock != "AAPL" {
		t.Fatalf("prices = %+v", h.StockPrices)
	}
}

func TestEventsReport(t *testing.T) {
	b := newTestBuilder()
	v, err := b.BuildReport(context.Background(), KindEvents, "2020-07-22 10:32:50", sampleLedger(), "M")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	e := v.(Events)
	if e.Expenses.TotalAmount != 3225 {
		t.Fatalf("expense total = %d", e.Expenses.TotalAmount)
	}
	if len(e.Expenses.Main) != 3 || e.Expenses.Main[0].Category != "Наличные" || e.Expenses.Main[0].Amount != 3000 {
		t.Fatalf("expense main = %+v", e.Expenses.Main)
	}
	if len(e.Expenses.TransfersAndCash) != 2 || e.Expenses.TransfersAndCash[1].Category != "Переводы" {
		t.Fatalf("transfers and cash = %+v", e.Expenses.TransfersAndCash)
	}
	if e.Income.TotalAmount != 1700 || len(e.Income.Main) != 1 || e.Income.Main[0].Amount != 1700 {
		t.Fatalf("income = %+v", e.Income)
	}
}

func TestEventsReportRanges(t *testing.T) {
	b := newTestBuilder()
	ledger := sampleLedger()
	totals := map[string]int64{"W": 3000, "M": 3225, "Y": 4225, "ALL": 4225, "bogus": 3225}
	for code, want := range totals {
		v, err := b.BuildReport(context.Background(), KindEvents, "2020-07-22 10:32:50", ledger, code)
		if err != nil {
			t.Fatalf("%s: %v", code, err)
		}
		if got := v.(Events).Expenses.TotalAmount; got != want {
			t.Errorf("range %s: expense total = %d, want %d", code, got, want)
		}
	}
}

func TestBuildJSONShape(t *testing.T) {
	out := newTestBuilder().Build(context.Background(), KindHome, "2020-07-22 19:00:00", sampleLedger(), "")

	if !bytes.Contains(out, []byte("Добрый вечер")) {
		t.Fatalf("non-ASCII text must be kept verbatim:\n%s", out)
	}
	if !bytes.HasPrefix(out, []byte("{\n    \"greeting\"")) {
		t.Fatalf("expected four-space indentation:\n%s", out)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"greeting", "cards", "top_transactions", "currency_rates", "stock_prices"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestBuildIdempotent(t *testing.T) {
	b := newTestBuilder()
	ledger := sampleLedger()
	for _, kind := range []Kind{KindHome, KindEvents} {
		first := b.Build(context.Background(), kind, "2020-07-22 10:32:50", ledger, "Y")
		second := b.Build(context.Background(), kind, "2020-07-22 10:32:50", ledger, "Y")
		if !bytes.Equal(first, second) {
			t.Fatalf("%s report not idempotent:\n%s\n---\n%s", kind, first, second)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	generic := string(ErrorDocument(MsgProcessingError))
	noData := string(ErrorDocument(MsgNoData))

	var logs bytes.Buffer
	b := newTestBuilder(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	missing := NewBuilder(failingSettings{err: fs.ErrNotExist}, fakeQuotes{})

	tests := []struct {
		name    string
		b       *Builder
		kind    Kind
		ref     string
		ledger  []core.Transaction
		want    string
		wantErr error
	}{
		{"nil ledger", b, KindHome, "2020-07-22 10:32:50", nil, noData, ErrNoData},
		{"unknown kind", b, Kind("weekly"), "2020-07-22 10:32:50", sampleLedger(), generic, ErrUnknownKind},
		{"bad reference", b, KindEvents, "22.07.2020", sampleLedger(), generic, core.ErrDateParse},
		{"missing settings", missing, KindHome, "2020-07-22 10:32:50", sampleLedger(), generic, fs.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.b.Build(context.Background(), tt.kind, tt.ref, tt.ledger, "")); got != tt.want {
				t.Fatalf("Build = %s, want %s", got, tt.want)
			}
			_, err := tt.b.BuildReport(context.Background(), tt.kind, tt.ref, tt.ledger, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("BuildReport error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if !strings.Contains(logs.String(), "Report build failed") {
		t.Fatalf("failures must be logged, got %q", logs.String())
	}
}

func TestBuildRecoversPanics(t *testing.T) {
	b := NewBuilder(nil, nil)
	out := b.Build(context.Background(), KindHome, "2020-07-22 10:32:50", sampleLedger(), "")
	if string(out) != string(ErrorDocument(MsgProcessingError)) {
		t.Fatalf("Build = %s", out)
	}
	_, err := b.BuildReport(context.Background(), KindHome, "2020-07-22 10:32:50", sampleLedger(), "")
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
}

func TestEmptyLedgerGivesEmptySections(t *testing.T) {
	out := newTestBuilder().Build(context.Background(), KindEvents, "2020-07-22 10:32:50", []core.Transaction{}, "")
	var e Events
	if err := json.Unmarshal(out, &e); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if e.Expenses.Main == nil || e.Income.Main == nil || e.Expenses.TotalAmount != 0 {
		t.Fatalf("expected empty sections, got %s", out)
	}
	if !bytes.Contains(out, []byte(`"main": []`)) {
		t.Fatalf("empty lists must encode as []:\n%s", out)
	}
}

func TestObserverProgress(t *testing.T) {
	var stages []string
	var last int
	b := newTestBuilder(WithObserver(func(stage string, p int) {
		stages = append(stages, stage)
		if p < last {
			t.Errorf("progress went backwards at %s: %d < %d", stage, p, last)
		}
		last = p
	}))
	b.Build(context.Background(), KindHome, "2020-07-22 10:32:50", sampleLedger(), "")
	if last != 100 || len(stages) == 0 || stages[len(stages)-1] != "done" {
		t.Fatalf("stages = %v, last = %d", stages, last)
	}
}
