// Package sink delivers rendered report documents.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives a finished JSON document.
type Sink interface {
	Write(ctx context.Context, body []byte) error
}

// File overwrites a single file with every document it receives.
type File struct {
	Path string
}

func (f File) Write(_ context.Context, body []byte) error {
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create result directory: %w", err)
		}
	}
	if err := os.WriteFile(f.Path, body, 0o644); err != nil {
		return fmt.Errorf("write result %s: %w", f.Path, err)
	}
	return nil
}

// Multi writes to every sink and joins their errors.
type Multi []Sink

func (m Multi) Write(ctx context.Context, body []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
