// Package memory keeps a ledger in process memory. It backs tests and the
// "memory" ledger backend.
package memory

import (
	"context"
	"sync"

	"ledgerlens/internal/core"
	"ledgerlens/internal/ledger"
)

var _ ledger.Source = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New(txs ...core.Transaction) *Store {
	return &Store{items: append([]core.Transaction(nil), txs...)}
}

// Append adds transactions and returns the new ledger size.
func (s *Store) Append(_ context.Context, txs ...core.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, txs...)
	return len(s.items), nil
}

// Load returns a copy of the stored ledger restricted to the bounds.
func (s *Store) Load(_ context.Context, b ledger.Bounds) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		if b.Contains(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}
