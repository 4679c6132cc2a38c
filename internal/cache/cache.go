// Package cache keeps recent provider reports so repeated lookups for the
// same city do not hit the upstream API.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"skycast/internal/weather"
)

type Cache interface {
	Get(ctx context.Context, key string) (*weather.Report, bool)
	Set(ctx context.Context, key string, report *weather.Report, ttl time.Duration)
	Flush(ctx context.Context)
}

// Key normalizes a provider and city pair so "Baku" and " baku " share an
// entry.
func Key(provider, city string) string {
	return fmt.Sprintf("%s:%s", provider, strings.ToLower(strings.Join(strings.Fields(city), " ")))
}

type entry struct {
	report  *weather.Report
	expires time.Time
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (*weather.Report, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expires == e.expires {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.report, true
}

func (m *Memory) Set(_ context.Context, key string, report *weather.Report, ttl time.Duration) {
	if ttl <= 0 || report == nil {
		return
	}
	m.mu.Lock()
	m.entries[key] = entry{report: report, expires: m.now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) Flush(_ context.Context) {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
