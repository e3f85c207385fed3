package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"ledgerlens/internal/ledger"
	"ledgerlens/internal/ledger/csvfile"
	"ledgerlens/internal/ledger/google"
	"ledgerlens/internal/ledger/memory"
	"ledgerlens/internal/storage"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		f.logger.Info("Initialized CSV ledger source", "path", config.LedgerPath)
		return &SourceResult{Source: csvfile.New(config.LedgerPath)}, nil
	case SQLiteBackend:
		return f.createSQLiteSource(config)
	case SheetsBackend:
		return f.createSheetsSource(ctx, config)
	case MemoryBackend:
		return f.createMemorySource(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*SourceResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite ledger source", "db_path", config.SQLiteDBPath)
	return &SourceResult{Source: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*SourceResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleCredentialsJSON,
		CredentialsFile: config.GoogleCredentialsFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return &SourceResult{Source: cli}, nil
}

// createMemorySource snapshots the CSV ledger once; a missing file gives an
// empty store.
func (f *DefaultFactory) createMemorySource(ctx context.Context, config Config) (*SourceResult, error) {
	store := memory.New()
	if config.LedgerPath != "" {
		txs, err := csvfile.New(config.LedgerPath).Load(ctx, ledger.Bounds{})
		switch {
		case errors.Is(err, fs.ErrNotExist):
			f.logger.Warn("Ledger seed file not found, starting empty", "path", config.LedgerPath)
		case err != nil:
			return nil, fmt.Errorf("seed memory ledger: %w", err)
		default:
			if _, err := store.Append(ctx, txs...); err != nil {
				return nil, fmt.Errorf("seed memory ledger: %w", err)
			}
		}
	}
	f.logger.Info("Initialized memory ledger source", "seed", config.LedgerPath)
	return &SourceResult{Source: store}, nil
}
