// Package savings computes how much a round-up savings jar would have
// collected over a month of transactions.
package savings

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

var (
	ErrInvalidMonth = errors.New("month must be formatted as YYYY-MM")
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// Observer receives progress as a percentage of processed rows.
type Observer func(percent int)

type options struct {
	logger   *slog.Logger
	observer Observer
}

// Option configures Compute.
type Option func(*options)

// WithLogger sets the logger used for skipped-row warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver reports progress while rows are processed.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// RoundUp returns the amount needed to bring amount up to the next multiple of
// limit. A value already on a multiple yields zero. For negative amounts the
// next multiple is toward zero, so -160.89 with limit 50 yields 10.89.
func RoundUp(amount, limit decimal.Decimal) decimal.Decimal {
	r := amount.Mod(limit)
	switch r.Sign() {
	case 0:
		return decimal.Zero
	case 1:
		return limit.Sub(r)
	default:
		return r.Neg()
	}
}

// Compute sums the round-up deltas of every transaction dated in month
// ("YYYY-MM"). Rows without a usable date or amount are skipped with a warning.
// The result is not rounded.
func Compute(ledger []core.Transaction, month string, limit int, opts ...Option) (decimal.Decimal, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	target, err := time.Parse(core.MonthLayout, month)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	if limit <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	step := decimal.NewFromInt(int64(limit))

	total := decimal.Zero
	for i, tx := range ledger {
		o.progress(i, len(ledger))
		switch {
		case tx.RawDate == "" && !tx.HasDate():
			o.logger.Warn("skipping transaction without date",
				"row", i, "category", tx.Category, "description", tx.Description)
			continue
		case !tx.HasDate():
			o.logger.Warn("skipping transaction with malformed date",
				"row", i, "error", tx.DateError())
			continue
		}
		if !tx.InMonth(target.Year(), int(target.Month())) {
			continue
		}
		if !tx.Amount.Valid {
			o.logger.Warn("skipping transaction with invalid amount",
				"row", i, "date", tx.RawDate, "category", tx.Category)
			continue
		}
		total = total.Add(RoundUp(tx.Amount.Decimal, step))
	}
	o.progress(len(ledger), len(ledger))
	return total, nil
}

func (o options) progress(done, total int) {
	if o.observer == nil {
		return
	}
	if total == 0 {
		o.observer(100)
		return
	}
	o.observer(done * 100 / total)
}
