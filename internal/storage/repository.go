// Package storage persists imported ledgers in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
	"ledgerlens/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Source = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const insertTransaction = `INSERT INTO transactions
    (operation_time, raw_date, payment_date, card_number, status, amount, currency, category, description, bonus)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ImportTransactions appends the ledger in a single database transaction and
// returns the number of stored rows.
func (r *SQLiteRepository) ImportTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, insertTransaction)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, tx := range txs {
		_, err := stmt.ExecContext(ctx,
			nullTime(tx.OperationTime),
			tx.RawDate,
			tx.PaymentDate,
			tx.CardNumber,
			tx.Status,
			nullDecimal(tx.Amount),
			tx.Currency,
			tx.Category,
			tx.Description,
			nullDecimal(tx.Bonus),
		)
		if err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	r.logger.InfoContext(ctx, "Ledger imported to SQLite", "rows", len(txs))
	return len(txs), nil
}

// Load returns stored transactions in import order. Bounds are applied in SQL,
// which leaves undated rows out of any bounded load.
func (r *SQLiteRepository) Load(ctx context.Context, b ledger.Bounds) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if !b.IsZero() {
		where = append(where, "operation_time IS NOT NULL")
	}
	if !b.Start.IsZero() {
		where = append(where, "operation_time >= ?")
		args = append(args, b.Start.Format(core.ReferenceLayout))
	}
	if !b.End.IsZero() {
		where = append(where, "operation_time <= ?")
		args = append(args, b.End.Format(core.ReferenceLayout))
	}

	q := `SELECT operation_time, raw_date, payment_date, card_number, status, amount, currency, category, description, bonus
FROM transactions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			tx            core.Transaction
			opTime        sql.NullString
			amount, bonus decimal.NullDecimal
		)
		if err := rows.Scan(&opTime, &tx.RawDate, &tx.PaymentDate, &tx.CardNumber, &tx.Status,
			&amount, &tx.Currency, &tx.Category, &tx.Description, &bonus); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if opTime.Valid {
			t, err := time.Parse(core.ReferenceLayout, opTime.String)
			if err != nil {
				return nil, fmt.Errorf("stored operation time %q: %w", opTime.String, err)
			}
			tx.OperationTime = t
		}
		tx.Amount, tx.Bonus = amount, bonus
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(core.ReferenceLayout), Valid: true}
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}
