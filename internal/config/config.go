// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"ledgerlens/internal/log"
)

// Ledger backends.
const (
	BackendCSV    = "csv"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendCSV, BackendSheets, BackendSQLite, BackendMemory}

type Config struct {
	// HTTP Server
	Port string

	// Ledger
	LedgerBackend string
	LedgerPath    string
	SQLiteDBPath  string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Reports
	UserSettingsPath string
	ResultPath       string
	SavingsLimit     int

	// Market data
	FixerAPIKey         string
	FixerBaseURL        string
	AlphaVantageAPIKey  string
	AlphaVantageBaseURL string
	QuoteTimeout        time.Duration
	QuoteCacheTTL       time.Duration
	QuoteConcurrency    int

	// AMQP publishing, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", BackendCSV)),
		LedgerPath:    getEnv("LEDGER_PATH", "data/operations.csv"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/ledgerlens.db"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Operations"),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		UserSettingsPath: getEnv("USER_SETTINGS_PATH", "user_settings.json"),
		ResultPath:       getEnv("RESULT_PATH", "result.json"),
		SavingsLimit:     getEnvInt("SAVINGS_LIMIT", 50),

		// API and AlPHA_API are the variable names of older .env files
		FixerAPIKey:         getEnv("FIXER_API_KEY", getEnv("API", "")),
		FixerBaseURL:        getEnv("FIXER_BASE_URL", "https://api.apilayer.com"),
		AlphaVantageAPIKey:  getEnv("ALPHA_VANTAGE_API_KEY", getEnv("AlPHA_API", "")),
		AlphaVantageBaseURL: getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),
		QuoteTimeout:        getEnvDuration("QUOTE_TIMEOUT", 10*time.Second),
		QuoteCacheTTL:       getEnvDuration("QUOTE_CACHE_TTL", 15*time.Minute),
		QuoteConcurrency:    getEnvInt("QUOTE_CONCURRENCY", 4),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "ledgerlens"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "reports"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validBackends))
	}

	switch c.LedgerBackend {
	case BackendCSV:
		if c.LedgerPath == "" {
			errors = append(errors, "ledger path cannot be empty when using csv backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if c.GoogleCredentialsFile != "" && c.GoogleCredentialsJSON == "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.UserSettingsPath == "" {
		errors = append(errors, "user settings path cannot be empty")
	}
	if c.SavingsLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid savings limit %d: must be a positive integer", c.SavingsLimit))
	}

	for name, raw := range map[string]string{"Fixer": c.FixerBaseURL, "Alpha Vantage": c.AlphaVantageBaseURL} {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s base URL '%s': must be an absolute http(s) URL", name, raw))
		}
	}
	if c.QuoteTimeout <= 0 || c.QuoteTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid quote timeout %v: must be between 0 and 2 minutes", c.QuoteTimeout))
	}
	if c.QuoteCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid quote cache TTL %v: must not be negative", c.QuoteCacheTTL))
	}
	if c.QuoteConcurrency < 1 || c.QuoteConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid quote concurrency %d: must be between 1 and 32", c.QuoteConcurrency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
