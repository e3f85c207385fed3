// Package cli holds the start-up steps shared by cmd/ledgerlens and
// cmd/ledgerlens-server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerlens/internal/amqp"
	"ledgerlens/internal/config"
	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/quotes"
	"ledgerlens/internal/sink"
)

var ErrInvalidDate = errors.New("invalid date")

// LoadEnvFile loads .env for local development; a missing file is ignored.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it is
// invalid.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupLogger builds the process logger from configuration and installs it as
// the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}

// QuotesConfig maps application settings onto the quote client.
func QuotesConfig(cfg *config.Config) quotes.Config {
	return quotes.Config{
		FixerBaseURL:        cfg.FixerBaseURL,
		FixerAPIKey:         cfg.FixerAPIKey,
		AlphaVantageBaseURL: cfg.AlphaVantageBaseURL,
		AlphaVantageAPIKey:  cfg.AlphaVantageAPIKey,
		Timeout:             cfg.QuoteTimeout,
		CacheTTL:            cfg.QuoteCacheTTL,
		Concurrency:         cfg.QuoteConcurrency,
	}
}

// ReportPublisher connects to AMQP when it is configured. It returns nil
// without error when AMQP_URL is empty.
func ReportPublisher(cfg *config.Config, logger *slog.Logger) (*amqp.Publisher, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	p, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
	if err != nil {
		return nil, fmt.Errorf("connect report publisher: %w", err)
	}
	return p, nil
}

// ResultSink writes to the result file and, when given, publishes as well.
func ResultSink(path string, publisher *amqp.Publisher) sink.Sink {
	file := sink.File{Path: path}
	if publisher == nil {
		return file
	}
	return sink.Multi{file, publisher}
}

// ParseUserDate combines a user supplied calendar date with the time of day of
// now and formats it as a report reference. When any part is empty, now itself
// is used.
func ParseUserDate(year, month, day string, now time.Time) (string, error) {
	if year == "" || month == "" || day == "" {
		return now.Format(core.ReferenceLayout), nil
	}
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if err := errors.Join(errY, errM, errD); err != nil {
		return "", fmt.Errorf("%w: %s-%s-%s", ErrInvalidDate, year, month, day)
	}
	date := time.Date(y, time.Month(m), d, now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	if date.Year() != y || int(date.Month()) != m || date.Day() != d {
		return "", fmt.Errorf("%w: %s-%s-%s", ErrInvalidDate, year, month, day)
	}
	return date.Format(core.ReferenceLayout), nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs once, after the signal and before the context is cancelled, bounded by
// timeout.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()
	}()

	return ctx
}
