// Package ledger defines how bank-export ledgers are loaded and mapped into
// typed transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerlens/internal/core"
)

// Column headers of a bank export.
const (
	ColOperationDate = "Дата операции"
	ColPaymentDate   = "Дата платежа"
	ColCardNumber    = "Номер карты"
	ColStatus        = "Статус"
	ColAmount        = "Сумма операции"
	ColCurrency      = "Валюта операции"
	ColCategory      = "Категория"
	ColDescription   = "Описание"
	ColBonus         = "Бонусы (включая кэшбэк)"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyLedger   = errors.New("ledger has no header row")
)

// Source loads a ledger.
type Source interface {
	Load(ctx context.Context, b Bounds) ([]core.Transaction, error)
}

// Bounds restricts a load to operations dated in [Start, End]. A zero Bounds
// loads everything, rows with unparseable dates included.
type Bounds struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no restriction is set.
func (b Bounds) IsZero() bool {
	return b.Start.IsZero() && b.End.IsZero()
}

// Contains reports whether tx falls inside the bounds. Undated transactions
// are only contained by zero bounds.
func (b Bounds) Contains(tx core.Transaction) bool {
	if b.IsZero() {
		return true
	}
	if !tx.HasDate() {
		return false
	}
	if !b.Start.IsZero() && tx.OperationTime.Before(b.Start) {
		return false
	}
	if !b.End.IsZero() && tx.OperationTime.After(b.End) {
		return false
	}
	return true
}

// Apply returns the transactions inside the bounds, in ledger order.
func (b Bounds) Apply(ledger []core.Transaction) []core.Transaction {
	if b.IsZero() {
		return ledger
	}
	out := make([]core.Transaction, 0, len(ledger))
	for _, tx := range ledger {
		if b.Contains(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// Columns holds the positions of known headers; -1 marks an absent column.
type Columns struct {
	OperationDate int
	PaymentDate   int
	CardNumber    int
	Status        int
	Amount        int
	Currency      int
	Category      int
	Description   int
	Bonus         int
}

// MapHeader locates the known columns in a header row. The operation date and
// amount columns are required.
func MapHeader(header []string) (Columns, error) {
	find := func(name string) int {
		for i, h := range header {
			h = strings.TrimPrefix(h, "\ufeff")
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	c := Columns{
		OperationDate: find(ColOperationDate),
		PaymentDate:   find(ColPaymentDate),
		CardNumber:    find(ColCardNumber),
		Status:        find(ColStatus),
		Amount:        find(ColAmount),
		Currency:      find(ColCurrency),
		Category:      find(ColCategory),
		Description:   find(ColDescription),
		Bonus:         find(ColBonus),
	}
	var missing []string
	if c.OperationDate < 0 {
		missing = append(missing, ColOperationDate)
	}
	if c.Amount < 0 {
		missing = append(missing, ColAmount)
	}
	if len(missing) > 0 {
		return Columns{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return c, nil
}

// Row types a single data row. Unparseable dates leave OperationTime zero and
// non-numeric amounts leave Amount invalid; RawDate keeps the original cell.
func (c Columns) Row(cells []string) core.Transaction {
	tx := core.Transaction{
		RawDate:     cell(cells, c.OperationDate),
		PaymentDate: cell(cells, c.PaymentDate),
		CardNumber:  cell(cells, c.CardNumber),
		Status:      cell(cells, c.Status),
		Amount:      core.ParseOptionalAmount(cell(cells, c.Amount)),
		Currency:    cell(cells, c.Currency),
		Category:    cell(cells, c.Category),
		Description: cell(cells, c.Description),
		Bonus:       core.ParseOptionalAmount(cell(cells, c.Bonus)),
	}
	if t, err := core.ParseOperationTime(tx.RawDate); err == nil {
		tx.OperationTime = t
	}
	return tx
}

// MapRows types a table whose first row is the header. Blank rows are dropped.
func MapRows(rows [][]string) ([]core.Transaction, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyLedger
	}
	cols, err := MapHeader(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		out = append(out, cols.Row(r))
	}
	return out, nil
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
