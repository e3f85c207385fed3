// Package csvfile reads ledgers exported by the bank as CSV.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"ledgerlens/internal/core"
	"ledgerlens/internal/ledger"
)

var _ ledger.Source = (*Source)(nil)

// Source loads a ledger from a CSV file on disk.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

// Load reads and types the whole file, then applies the bounds.
func (s *Source) Load(_ context.Context, b ledger.Bounds) ([]core.Transaction, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", s.path, err)
	}
	defer f.Close()

	txs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}
	return b.Apply(txs), nil
}

// Parse reads a CSV export. The delimiter (semicolon, comma or tab) is taken
// from the header line; a UTF-8 byte order mark is ignored.
func Parse(r io.Reader) ([]core.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return ledger.MapRows(rows)
}

func detectDelimiter(data []byte) rune {
	line := string(data)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, n := ',', strings.Count(line, ",")
	for _, c := range []rune{';', '\t'} {
		if k := strings.Count(line, string(c)); k > n {
			best, n = c, k
		}
	}
	return best
}
