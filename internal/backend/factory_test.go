package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ledgerlens/internal/config"
	"ledgerlens/internal/ledger"
	"ledgerlens/internal/ledger/csvfile"
	"ledgerlens/internal/ledger/memory"
	"ledgerlens/internal/storage"
)

const seed = "Дата операции;Сумма операции;Категория\n01.01.2022 10:00:00;-100;Кафе\n"

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{LedgerBackend: "sqlite", SQLiteDBPath: "x.db"})
	if err != nil || cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" {
		t.Fatalf("got %+v, %v", cfg, err)
	}
	if _, err := FromAppConfig(&config.Config{LedgerBackend: "xls"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"csv ok", Config{Type: CSVBackend, LedgerPath: "a.csv"}, false},
		{"csv no path", Config{Type: CSVBackend}, true},
		{"sqlite no path", Config{Type: SQLiteBackend}, true},
		{"sheets no creds", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"}, true},
		{"memory empty", Config{Type: MemoryBackend}, false},
		{"bad type", Config{Type: "xls"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSource(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "operations.csv")
	if err := os.WriteFile(csvPath, []byte(seed), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := NewFactory(nil)
	ctx := context.Background()

	res, err := f.CreateSource(ctx, Config{Type: CSVBackend, LedgerPath: csvPath})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if _, ok := res.Source.(*csvfile.Source); !ok {
		t.Fatalf("csv backend returned %T", res.Source)
	}

	res, err = f.CreateSource(ctx, Config{Type: MemoryBackend, LedgerPath: csvPath})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := res.Source.(*memory.Store); !ok {
		t.Fatalf("memory backend returned %T", res.Source)
	}
	txs, _ := res.Source.Load(ctx, ledger.Bounds{})
	if len(txs) != 1 {
		t.Fatalf("memory backend should be seeded, got %d rows", len(txs))
	}

	res, err = f.CreateSource(ctx, Config{Type: MemoryBackend, LedgerPath: filepath.Join(dir, "missing.csv")})
	if err != nil {
		t.Fatalf("memory without seed: %v", err)
	}
	if txs, _ := res.Source.Load(ctx, ledger.Bounds{}); len(txs) != 0 {
		t.Fatalf("expected empty store, got %d rows", len(txs))
	}

	res, err = f.CreateSource(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "l.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer res.Close()
	if _, ok := res.Source.(*storage.SQLiteRepository); !ok {
		t.Fatalf("sqlite backend returned %T", res.Source)
	}
}
