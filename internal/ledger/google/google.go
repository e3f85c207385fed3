// Package google reads a ledger kept in a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerlens/internal/core"
	"ledgerlens/internal/ledger"
)

var _ ledger.Source = (*Client)(nil)

var ErrMissingCredentials = errors.New("missing service account credentials")

// Config selects the spreadsheet and the service account used to read it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, cfg, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

func newClient(ctx context.Context, cfg Config, logger *slog.Logger, opts ...goption.ClientOption) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Operations"
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets ledger source ready",
		"spreadsheet_id", id, "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: id, sheetName: sheet, logger: logger}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, ErrMissingCredentials
	}
}

// Load reads every row of the ledger sheet and applies the bounds.
func (c *Client) Load(ctx context.Context, b ledger.Bounds) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	txs, err := parseValues(resp.Values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	c.logger.DebugContext(ctx, "Ledger loaded from sheet", "range", rng, "rows", len(txs))
	return b.Apply(txs), nil
}

// parseValues types a values matrix as returned by the Sheets API.
func parseValues(values [][]interface{}) ([]core.Transaction, error) {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = toStrings(v)
	}
	return ledger.MapRows(rows)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
