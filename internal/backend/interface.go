// Package backend builds the ledger source selected by configuration.
package backend

import (
	"context"

	"ledgerlens/internal/ledger"
)

// CleanupFunc releases resources held by a source.
type CleanupFunc func() error

// SourceResult is a ready ledger source and its optional cleanup.
type SourceResult struct {
	Source  ledger.Source
	Cleanup CleanupFunc
}

// Close runs the cleanup, if any.
func (r *SourceResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledger sources from configuration.
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

type Config struct {
	Type BackendType

	// csv, and the seed file of the memory backend
	LedgerPath string

	// sqlite
	SQLiteDBPath string

	// sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
}

type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SheetsBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
