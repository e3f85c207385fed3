package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerlens/internal/backend"
	"ledgerlens/internal/cache"
	"ledgerlens/internal/cli"
	apphttp "ledgerlens/internal/http"
	"ledgerlens/internal/log"
	"ledgerlens/internal/quotes"
	"ledgerlens/internal/report"
	"ledgerlens/internal/settings"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	src, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateSource(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", log.FieldError, err, log.FieldBackend, bcfg.Type.String())
		os.Exit(1)
	}
	defer src.Close()

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	quoteClient := quotes.New(cli.QuotesConfig(cfg), logger.WithComponent(log.ComponentQuotes).Slog())
	quoteClient.RegisterCaches(cacheManager)

	builder := report.NewBuilder(
		settings.NewFileSource(cfg.UserSettingsPath),
		quoteClient,
		report.WithLogger(logger.WithComponent(log.ComponentReport).Slog()),
	)

	srv := apphttp.NewServer(":"+cfg.Port, src.Source, builder,
		apphttp.WithLogger(logger.WithComponent(log.ComponentHTTP)),
		apphttp.WithSavingsLimit(cfg.SavingsLimit),
		apphttp.WithRateLimit(60),
	)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2 * cfg.QuoteTimeout
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	sweep := cfg.QuoteCacheTTL
	if sweep < time.Minute {
		sweep = time.Minute
	}
	cacheManager.Start(context.Background(), sweep)

	ctx := cli.GracefulShutdown(logger.Slog(), 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
	})

	logger.Info("Starting ledgerlens server", "port", cfg.Port, log.FieldBackend, bcfg.Type.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
