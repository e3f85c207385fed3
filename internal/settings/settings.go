// Package settings loads the user's quote preferences.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"ledgerlens/internal/core"
)

// Settings lists the currencies and stocks quoted on reports.
type Settings = core.UserSettings

var ErrMalformed = errors.New("malformed user settings")

// FileSource reads settings from a JSON file with the keys "user_currencies"
// and "user_stocks". A missing file yields an error matching fs.ErrNotExist.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(_ context.Context) (Settings, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}, fmt.Errorf("load user settings: %w", err)
	}
	var out Settings
	if err := json.Unmarshal(b, &out); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}
	out.Currencies = clean(out.Currencies)
	out.Stocks = clean(out.Stocks)
	return out, nil
}

// Static serves fixed settings.
type Static Settings

func (s Static) Load(_ context.Context) (Settings, error) {
	return Settings(s), nil
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
