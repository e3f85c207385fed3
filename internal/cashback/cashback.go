// Package cashback ranks categories by the bonus they earned in a month.
package cashback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

// Entry is the accumulated bonus of one category.
type Entry struct {
	Category string
	Bonus    decimal.Decimal
}

// Analysis lists categories by accumulated bonus, largest first.
type Analysis []Entry

// Analyze accumulates bonuses per category for transactions made in the given
// year and month. Only positive bonuses count; an absent bonus is zero.
//
// A single transaction without a parseable date fails the whole call with an
// error matching core.ErrDateParse, whatever month it belongs to.
func Analyze(ledger []core.Transaction, year, month int) (Analysis, error) {
	index := map[string]int{}
	var out Analysis
	for _, tx := range ledger {
		if !tx.HasDate() {
			return nil, fmt.Errorf("cashback analysis: %w", tx.DateError())
		}
		if !tx.InMonth(year, month) {
			continue
		}
		bonus := tx.BonusOrZero()
		if !bonus.IsPositive() {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, Entry{Category: tx.Category, Bonus: decimal.Zero})
		}
		out[i].Bonus = out[i].Bonus.Add(bonus)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Bonus.GreaterThan(out[j].Bonus)
	})
	if out == nil {
		out = Analysis{}
	}
	return out, nil
}

// Get returns the bonus accumulated for a category.
func (a Analysis) Get(category string) (decimal.Decimal, bool) {
	for _, e := range a {
		if e.Category == category {
			return e.Bonus, true
		}
	}
	return decimal.Zero, false
}

// MarshalJSON encodes the analysis as a JSON object whose keys keep the
// ranking order.
func (a Analysis) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(e.Bonus.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
