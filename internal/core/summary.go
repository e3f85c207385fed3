package core

import "github.com/shopspring/decimal"

// CategoryAmount is an amount aggregated by category, rounded to an integer.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

// CardSummary is the per-card total of a ledger window.
type CardSummary struct {
	LastDigits string
	TotalSpent decimal.Decimal
	Cashback   decimal.Decimal
}

// TopTransaction is one of the largest transactions of a window.
type TopTransaction struct {
	Date        string
	Amount      decimal.Decimal
	Category    string
	Description string
}

// ExpenseSummary aggregates the negative side of a ledger window.
type ExpenseSummary struct {
	TotalAmount      int64            `json:"total_amount"`
	Main             []CategoryAmount `json:"main"`
	TransfersAndCash []CategoryAmount `json:"transfers_and_cash"`
}

// IncomeSummary aggregates the positive side of a ledger window.
type IncomeSummary struct {
	TotalAmount int64            `json:"total_amount"`
	Main        []CategoryAmount `json:"main"`
}

// Flows groups both sides of a window.
type Flows struct {
	Expenses ExpenseSummary
	Income   IncomeSummary
}
