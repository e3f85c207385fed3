package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts used across the ledger and the reports.
const (
	// LedgerDateLayout is the layout of the "Дата операции" cell in bank exports.
	LedgerDateLayout = "02.01.2006 15:04:05"
	// ReferenceLayout is the layout of the reference timestamp a report is built for.
	ReferenceLayout = "2006-01-02 15:04:05"
	// DisplayDateLayout is how dates are rendered inside report payloads.
	DisplayDateLayout = "02.01.2006"
	// MonthLayout identifies a calendar month ("YYYY-MM").
	MonthLayout = "2006-01"
)

type (
	// Transaction is one row of the ledger, typed once at load time.
	//
	// OperationTime is zero when the raw date cell could not be parsed; RawDate
	// keeps the original text for error reporting. Amount and Bonus are invalid
	// (Valid == false) when the cell was empty or not numeric.
	Transaction struct {
		OperationTime time.Time
		RawDate       string
		PaymentDate   string
		CardNumber    string
		Status        string
		Amount        decimal.NullDecimal
		Currency      string
		Category      string
		Description   string
		Bonus         decimal.NullDecimal
	}

	// UserSettings lists the instruments a user wants quoted on reports.
	UserSettings struct {
		Currencies []string `json:"user_currencies"`
		Stocks     []string `json:"user_stocks"`
	}

	// CurrencyRate is the RUB rate of one currency.
	CurrencyRate struct {
		Currency string  `json:"currency"`
		Rate     float64 `json:"rate"`
	}

	// StockPrice is the last close of one stock symbol.
	StockPrice struct {
		Stock string  `json:"stock"`
		Price float64 `json:"price"`
	}
)

var (
	ErrDateParse     = errors.New("malformed date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// DateParseError reports a date cell that does not match LedgerDateLayout.
type DateParseError struct {
	Raw string
	Err error
}

func (e *DateParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse date %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("parse date %q: %v", e.Raw, ErrDateParse)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDateParse) hold for every DateParseError.
func (e *DateParseError) Is(target error) bool { return target == ErrDateParse }

// ParseOperationTime parses a ledger date cell.
func ParseOperationTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &DateParseError{Raw: raw}
	}
	t, err := time.Parse(LedgerDateLayout, s)
	if err != nil {
		return time.Time{}, &DateParseError{Raw: raw, Err: err}
	}
	return t, nil
}

// ParseReference parses the reference timestamp of a report request.
func ParseReference(raw string) (time.Time, error) {
	t, err := time.Parse(ReferenceLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &DateParseError{Raw: raw, Err: err}
	}
	return t, nil
}

// HasDate reports whether the operation date was parsed.
func (t Transaction) HasDate() bool {
	return !t.OperationTime.IsZero()
}

// DateError returns the parse error for a transaction without a usable date.
func (t Transaction) DateError() error {
	if t.HasDate() {
		return nil
	}
	_, err := ParseOperationTime(t.RawDate)
	if err == nil {
		return &DateParseError{Raw: t.RawDate}
	}
	return err
}

// BonusOrZero returns the bonus amount, treating absent values as zero.
func (t Transaction) BonusOrZero() decimal.Decimal {
	if !t.Bonus.Valid {
		return decimal.Zero
	}
	return t.Bonus.Decimal
}

// InMonth reports whether the transaction happened in the given calendar month.
func (t Transaction) InMonth(year, month int) bool {
	if !t.HasDate() {
		return false
	}
	return t.OperationTime.Year() == year && int(t.OperationTime.Month()) == month
}
