package backend

import (
	"errors"
	"fmt"

	"ledgerlens/internal/config"
)

// FromAppConfig extracts the ledger source settings from the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}

	return Config{
		Type:                  backendType,
		LedgerPath:            appConfig.LedgerPath,
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleSheetName:       appConfig.GoogleSheetName,
		GoogleCredentialsJSON: appConfig.GoogleCredentialsJSON,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend:
		if c.LedgerPath == "" {
			return errors.New("ledger path is required for csv backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			return errors.New("service account credentials are required for sheets backend")
		}
	case MemoryBackend:
		// seeded from LedgerPath when the file exists
	}
	return nil
}

// BackendTypes lists every supported backend.
func BackendTypes() []BackendType {
	return []BackendType{CSVBackend, SheetsBackend, SQLiteBackend, MemoryBackend}
}
