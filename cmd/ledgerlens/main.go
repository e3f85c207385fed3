package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ledgerlens/internal/backend"
	"ledgerlens/internal/cashback"
	"ledgerlens/internal/cli"
	"ledgerlens/internal/config"
	"ledgerlens/internal/core"
	"ledgerlens/internal/ledger"
	"ledgerlens/internal/ledger/csvfile"
	"ledgerlens/internal/log"
	"ledgerlens/internal/quotes"
	"ledgerlens/internal/report"
	"ledgerlens/internal/savings"
	"ledgerlens/internal/settings"
	"ledgerlens/internal/storage"
)

const (
	defaultReference = "2020-07-22 10:32:50"
	defaultRange     = "M"
)

type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	a := &app{cfg: cfg, logger: cli.SetupLogger(cfg, log.ComponentCLI)}

	var err error
	switch os.Args[1] {
	case "home", "events":
		err = a.runReport(os.Args[1], os.Args[2:])
	case "cashback":
		err = a.runCashback(os.Args[2:])
	case "savings":
		err = a.runSavings(os.Args[2:])
	case "import":
		err = a.runImport(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		a.logger.Error("Command failed", "command", os.Args[1], log.FieldError, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ledgerlens")
	fmt.Println("\nUsage:")
	fmt.Println("  ledgerlens <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  home      Month-to-date cards, top transactions and market data")
	fmt.Println("  events    Expenses and income over a date range")
	fmt.Println("  cashback  Bonus earned per category in a month")
	fmt.Println("  savings   Round-up savings collected in a month")
	fmt.Println("  import    Load a CSV export into the SQLite store")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'ledgerlens <command> -h' for more information on a command.")
}

func (a *app) openSource(ctx context.Context) (*backend.SourceResult, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger.Slog()).CreateSource(ctx, bcfg)
}

// loadLedger returns nil, not an error, when the ledger cannot be read so the
// report path can answer with its no-data document.
func (a *app) loadLedger(ctx context.Context) []core.Transaction {
	src, err := a.openSource(ctx)
	if err != nil {
		a.logger.LogError(ctx, "Failed to open ledger", err, log.OpLoad, log.NewFields())
		return nil
	}
	defer src.Close()

	txs, err := src.Source.Load(ctx, ledger.Bounds{})
	if err != nil {
		a.logger.LogError(ctx, "Failed to load ledger", err, log.OpLoad, log.NewFields())
		return nil
	}
	a.logger.Info("Ledger loaded", log.FieldBackend, a.cfg.LedgerBackend, log.FieldRows, len(txs))
	return txs
}

func (a *app) output(ctx context.Context, body []byte) error {
	publisher, err := cli.ReportPublisher(a.cfg, a.logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}
	if err := cli.ResultSink(a.cfg.ResultPath, publisher).Write(ctx, body); err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}

func dateFlags(fs *flag.FlagSet) (date, year, month, day *string) {
	date = fs.String("date", defaultReference, "reference timestamp, YYYY-MM-DD HH:MM:SS")
	year = fs.String("year", "", "reference year; with -month and -day overrides -date")
	month = fs.String("month", "", "reference month")
	day = fs.String("day", "", "reference day")
	return
}

func resolveReference(date, year, month, day string) (string, error) {
	if year != "" || month != "" || day != "" {
		return cli.ParseUserDate(year, month, day, time.Now().UTC())
	}
	return date, nil
}

func (a *app) runReport(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	date, year, month, day := dateFlags(fs)
	rangeCode := fs.String("range", defaultRange, "events range: W, M, Y or ALL")
	_ = fs.Parse(args)

	reference, err := resolveReference(*date, *year, *month, *day)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	quoteLogger := a.logger.WithComponent(log.ComponentQuotes).Slog()
	builder := report.NewBuilder(
		settings.NewFileSource(a.cfg.UserSettingsPath),
		quotes.New(cli.QuotesConfig(a.cfg), quoteLogger),
		report.WithLogger(a.logger.WithComponent(log.ComponentReport).Slog()),
		report.WithObserver(func(stage string, percent int) {
			a.logger.Debug("Report progress", log.FieldStage, stage, "percent", percent)
		}),
	)

	a.logger.Info("Building report", log.NewFields().WithReport(name, reference, *rangeCode).ToSlice()...)
	body := builder.Build(ctx, report.Kind(name), reference, a.loadLedger(ctx), *rangeCode)
	return a.output(ctx, body)
}

func (a *app) runCashback(args []string) error {
	fs := flag.NewFlagSet("cashback", flag.ExitOnError)
	year := fs.Int("year", 2020, "calendar year")
	month := fs.Int("month", 7, "calendar month, 1-12")
	_ = fs.Parse(args)

	if *month < 1 || *month > 12 {
		return fmt.Errorf("invalid month %d: must be between 1 and 12", *month)
	}

	ctx := context.Background()
	txs := a.loadLedger(ctx)
	if txs == nil {
		return a.output(ctx, report.ErrorDocument(report.MsgNoData))
	}
	analysis, err := cashback.Analyze(txs, *year, *month)
	if err != nil {
		return err
	}
	body, err := report.Encode(analysis)
	if err != nil {
		return err
	}
	return a.output(ctx, body)
}

func (a *app) runSavings(args []string) error {
	fs := flag.NewFlagSet("savings", flag.ExitOnError)
	month := fs.String("month", defaultReference[:7], "calendar month, YYYY-MM")
	limit := fs.Int("limit", a.cfg.SavingsLimit, "round-up step")
	_ = fs.Parse(args)

	ctx := context.Background()
	txs := a.loadLedger(ctx)
	if txs == nil {
		return a.output(ctx, report.ErrorDocument(report.MsgNoData))
	}

	next := 0
	total, err := savings.Compute(txs, *month, *limit,
		savings.WithLogger(a.logger.Slog()),
		savings.WithObserver(func(percent int) {
			if percent >= next {
				a.logger.Debug("Savings progress", "percent", percent)
				next = percent + 25
			}
		}),
	)
	if err != nil {
		return err
	}
	body, err := report.Encode(struct {
		Month   string  `json:"month"`
		Limit   int     `json:"limit"`
		Savings float64 `json:"savings"`
	}{*month, *limit, core.RoundCents(total).InexactFloat64()})
	if err != nil {
		return err
	}
	return a.output(ctx, body)
}

func (a *app) runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", a.cfg.LedgerPath, "CSV export to import")
	db := fs.String("db", a.cfg.SQLiteDBPath, "SQLite database path")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	txs, err := csvfile.New(*file).Load(ctx, ledger.Bounds{})
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}

	repo, err := storage.NewSQLiteRepository(*db, a.logger.WithComponent(log.ComponentStorage).Slog())
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.ImportTransactions(ctx, txs)
	if err != nil {
		return err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Import completed", "file", *file, "imported", n, "stored", total)
	fmt.Printf("Imported %d transactions from %s (%d stored).\n", n, *file, total)
	return nil
}

