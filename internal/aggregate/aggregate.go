// Package aggregate reduces a ledger window into per-card and per-category
// summaries.
//
// Every function here is read-only over its input. Rows whose amount is not
// numeric never contribute to a sum.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

const (
	// TopCategories is how many categories make up the "main" breakdown.
	TopCategories = 7
	// OtherCategory collects expense categories left out of the top list.
	OtherCategory = "Остальное"
	// CashCategory and TransfersCategory are reported again in TransfersAndCash.
	CashCategory      = "Наличные"
	TransfersCategory = "Переводы"
)

// bucket is a category group with its running total, kept in first-seen order.
type bucket struct {
	key   string
	total decimal.Decimal
}

// groupBy sums value(tx) per key(tx) over the rows accepted by keep.
// Groups come back in the order their key first appears in the ledger.
func groupBy(ledger []core.Transaction, keep func(core.Transaction) bool, key func(core.Transaction) string) []bucket {
	index := map[string]int{}
	var out []bucket
	for _, tx := range ledger {
		if !tx.Amount.Valid || !keep(tx) {
			continue
		}
		k := key(tx)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, bucket{key: k, total: decimal.Zero})
		}
		out[i].total = out[i].total.Add(tx.Amount.Decimal)
	}
	return out
}

// largest returns the k buckets with the greatest magnitude, descending.
// Ties go to the key that sorts first.
func largest(buckets []bucket, k int, magnitude func(decimal.Decimal) decimal.Decimal) []bucket {
	sorted := make([]bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].key < sorted[j].key })
	sort.SliceStable(sorted, func(i, j int) bool {
		return magnitude(sorted[i].total).GreaterThan(magnitude(sorted[j].total))
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

func byCategory(tx core.Transaction) string { return tx.Category }

func isExpense(tx core.Transaction) bool { return tx.Amount.Decimal.IsNegative() }

func isIncome(tx core.Transaction) bool { return tx.Amount.Decimal.IsPositive() }

func abs(d decimal.Decimal) decimal.Decimal { return d.Abs() }

func identity(d decimal.Decimal) decimal.Decimal { return d }

// SummarizeByCard totals every valid amount per card regardless of sign.
// Cards are ordered by identifier.
func SummarizeByCard(ledger []core.Transaction) []core.CardSummary {
	all := func(core.Transaction) bool { return true }
	groups := groupBy(ledger, all, func(tx core.Transaction) string { return tx.CardNumber })
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].key < groups[j].key })

	out := make([]core.CardSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, core.CardSummary{
			LastDigits: LastDigits(g.key),
			TotalSpent: g.total,
			Cashback:   core.Cashback(g.total),
		})
	}
	return out
}

// LastDigits returns the rightmost four characters of a card identifier,
// left-padded with zeros when the identifier is shorter.
func LastDigits(card string) string {
	r := []rune(strings.TrimSpace(card))
	if len(r) >= 4 {
		return string(r[len(r)-4:])
	}
	return strings.Repeat("0", 4-len(r)) + string(r)
}

// SummarizeFlows returns both the expense and income breakdowns.
func SummarizeFlows(ledger []core.Transaction) core.Flows {
	return core.Flows{
		Expenses: SummarizeExpenses(ledger),
		Income:   SummarizeIncome(ledger),
	}
}

// SummarizeExpenses breaks negative amounts down by category.
//
// Main holds the TopCategories largest categories by magnitude followed by an
// OtherCategory entry when the remaining categories add up to more than zero.
// TransfersAndCash repeats the cash and transfer categories on their own; they
// also compete for a place in Main.
func SummarizeExpenses(ledger []core.Transaction) core.ExpenseSummary {
	groups := groupBy(ledger, isExpense, byCategory)

	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.total)
	}

	top := largest(groups, TopCategories, abs)
	inTop := make(map[string]bool, len(top))
	main := make([]core.CategoryAmount, 0, len(top)+1)
	for _, g := range top {
		inTop[g.key] = true
		main = append(main, core.CategoryAmount{Category: g.key, Amount: core.RoundToInt(g.total.Abs())})
	}

	other := decimal.Zero
	for _, g := range groups {
		if !inTop[g.key] {
			other = other.Add(g.total)
		}
	}
	if other = other.Abs(); other.IsPositive() {
		main = append(main, core.CategoryAmount{Category: OtherCategory, Amount: core.RoundToInt(other)})
	}

	transfers := make([]core.CategoryAmount, 0, 2)
	for _, name := range []string{CashCategory, TransfersCategory} {
		for _, g := range groups {
			if g.key == name {
				transfers = append(transfers, core.CategoryAmount{Category: name, Amount: core.RoundToInt(g.total.Abs())})
			}
		}
	}

	return core.ExpenseSummary{
		TotalAmount:      core.RoundToInt(total.Abs()),
		Main:             main,
		TransfersAndCash: transfers,
	}
}

// SummarizeIncome breaks positive amounts down into the TopCategories
// largest categories. There is no overflow entry for income.
func SummarizeIncome(ledger []core.Transaction) core.IncomeSummary {
	groups := groupBy(ledger, isIncome, byCategory)

	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.total)
	}

	top := largest(groups, TopCategories, identity)
	main := make([]core.CategoryAmount, 0, len(top))
	for _, g := range top {
		main = append(main, core.CategoryAmount{Category: g.key, Amount: core.RoundToInt(g.total)})
	}

	return core.IncomeSummary{
		TotalAmount: core.RoundToInt(total),
		Main:        main,
	}
}

// TopTransactions returns the n transactions with the largest signed amount.
// Large expenses are negative and therefore never "top". Rows without a date
// or a numeric amount are skipped; ties keep ledger order.
func TopTransactions(ledger []core.Transaction, n int) []core.TopTransaction {
	rows := make([]core.Transaction, 0, len(ledger))
	for _, tx := range ledger {
		if tx.HasDate() && tx.Amount.Valid {
			rows = append(rows, tx)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount.Decimal.GreaterThan(rows[j].Amount.Decimal)
	})
	if n < 0 {
		n = 0
	}
	if len(rows) > n {
		rows = rows[:n]
	}

	out := make([]core.TopTransaction, 0, len(rows))
	for _, tx := range rows {
		out = append(out, core.TopTransaction{
			Date:        tx.OperationTime.Format(core.DisplayDateLayout),
			Amount:      tx.Amount.Decimal,
			Category:    tx.Category,
			Description: tx.Description,
		})
	}
	return out
}
