// Package cache holds small in-process caches with expiry, used for market
// quotes that change at most a few times a day.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store with expiring entries.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps the registered caches.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{caches: map[string]Cleaner{}, logger: logger}
}

// Register adds a named cache to the sweep.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Sweep cleans every registered cache once and returns the number of entries
// removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		n := c.CleanExpired()
		if n > 0 {
			m.logger.Debug("Expired cache entries removed", "cache", name, "count", n)
		}
		total += n
	}
	return total
}

// Start sweeps at the given interval until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the sweep loop started by Start and waits for it to exit.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}
