package cashback

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

func row(date, category, bonus string) core.Transaction {
	tx := core.Transaction{RawDate: date, Category: category, Bonus: core.ParseOptionalAmount(bonus)}
	if t, err := core.ParseOperationTime(date); err == nil {
		tx.OperationTime = t
	}
	return tx
}

func TestAnalyze(t *testing.T) {
	ledger := []core.Transaction{
		row("01.01.2022 12:00:00", "Food", "100"),
		row("01.01.2022 12:00:00", "Transport", "200"),
		row("01.02.2022 12:00:00", "Entertainment", "300"),
	}
	got, err := Analyze(ledger, 2022, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d categories: %+v", len(got), got)
	}
	if got[0].Category != "Transport" || !got[0].Bonus.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Category != "Food" || !got[1].Bonus.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("second = %+v", got[1])
	}
	if _, ok := got.Get("Entertainment"); ok {
		t.Fatalf("February bonus leaked into January")
	}
}

func TestAnalyzeAccumulatesAndSkipsNonPositive(t *testing.T) {
	ledger := []core.Transaction{
		row("03.03.2023 09:00:00", "Супермаркеты", "12,5"),
		row("04.03.2023 09:00:00", "Кафе", "0"),
		row("05.03.2023 09:00:00", "Супермаркеты", "7.5"),
		row("06.03.2023 09:00:00", "Кафе", ""),
		row("07.03.2023 09:00:00", "Аптеки", "-3"),
		row("08.03.2023 09:00:00", "Такси", "20"),
	}
	got, err := Analyze(ledger, 2023, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	// 20 == 20: the tie keeps first insertion order
	if got[0].Category != "Супермаркеты" || got[1].Category != "Такси" {
		t.Fatalf("unexpected order %+v", got)
	}
	if b, _ := got.Get("Супермаркеты"); !b.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("bonus = %s", b)
	}
}

func TestAnalyzeFailsOnUnparseableDate(t *testing.T) {
	ledger := []core.Transaction{
		row("01.01.2022 12:00:00", "Food", "100"),
		row("2022/01/01", "Food", "100"),
	}
	_, err := Analyze(ledger, 2022, 1)
	if !errors.Is(err, core.ErrDateParse) {
		t.Fatalf("expected ErrDateParse, got %v", err)
	}
	var pe *core.DateParseError
	if !errors.As(err, &pe) || pe.Raw != "2022/01/01" {
		t.Fatalf("expected DateParseError for the bad row, got %v", err)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	got, err := Analyze(nil, 2022, 1)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %+v, %v", got, err)
	}
	b, _ := json.Marshal(got)
	if string(b) != "{}" {
		t.Fatalf("json = %s", b)
	}
}

func TestAnalysisMarshalJSONKeepsOrder(t *testing.T) {
	a := Analysis{
		{Category: "Транспорт", Bonus: decimal.NewFromInt(200)},
		{Category: "Еда", Bonus: decimal.RequireFromString("100.5")},
	}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"Транспорт":200,"Еда":100.5}`; string(b) != want {
		t.Fatalf("json = %s, want %s", b, want)
	}
}

func TestAnalyzeIgnoresTimeOfDay(t *testing.T) {
	ledger := []core.Transaction{{
		OperationTime: time.Date(2022, 1, 31, 23, 59, 59, 0, time.UTC),
		Category:      "Late",
		Bonus:         decimal.NullDecimal{Decimal: decimal.NewFromInt(1), Valid: true},
	}}
	got, err := Analyze(ledger, 2022, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %+v, %v", got, err)
	}
}
