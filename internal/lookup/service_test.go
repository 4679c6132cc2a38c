package lookup

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"skycast/config"
	"skycast/internal/cache"
	"skycast/internal/storage"
	"skycast/internal/weather"
	"skycast/internal/widget"
)

type fakeProvider struct {
	name string

	mu    sync.Mutex
	calls int
	// block, when set, holds each Lookup until the context ends or the
	// channel is closed.
	block chan struct{}
	err   error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Lookup(ctx context.Context, city string) (*weather.Report, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &weather.Report{
		Provider: f.name,
		Location: weather.Location{Name: city, Country: "Testland", LocalTime: "2025-03-15 12:00"},
		Current: weather.Current{
			TempC: 21, TempF: 69.8,
			Condition: weather.Condition{Code: 1000, Text: "Sunny"},
			IsDay:     true,
		},
		Astronomy: weather.Astronomy{Sunrise: "06:00 AM", Sunset: "06:00 PM"},
	}, nil
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(t *testing.T, p weather.Provider) (*Service, *storage.Database) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "skycast.db"))
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(ServiceConfig{Provider: p, Cache: cache.NewMemory(), Database: db, CacheTTL: time.Minute}), db
}

func TestLookupCachesAndRecords(t *testing.T) {
	provider := &fakeProvider{name: "fake"}
	svc, db := newTestService(t, provider)
	ctx := context.Background()

	view, err := svc.Lookup(ctx, "  Baku ", widget.Context{})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if view.Location.Name != "Baku" || view.Sun == nil || view.Sun.XPercent != 50 {
		t.Fatalf("view = %+v", view)
	}

	if _, err := svc.Lookup(ctx, "baku", widget.Context{Units: widget.Imperial}); err != nil {
		t.Fatalf("second Lookup failed: %v", err)
	}
	if provider.Calls() != 1 {
		t.Fatalf("provider called %d times, want 1", provider.Calls())
	}

	searches, err := db.RecentSearches(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(searches) != 2 || searches[0].Category != "clear" || searches[0].ConditionCode != 1000 {
		t.Fatalf("searches = %+v", searches)
	}
}

func TestLookupEmptyCity(t *testing.T) {
	provider := &fakeProvider{name: "fake"}
	svc, _ := newTestService(t, provider)

	if _, err := svc.Lookup(context.Background(), "   ", widget.Context{}); !errors.Is(err, weather.ErrEmptyCity) {
		t.Fatalf("expected ErrEmptyCity, got %v", err)
	}
	if provider.Calls() != 0 {
		t.Fatal("provider should not be called for an empty city")
	}
}

func TestLookupPropagatesProviderError(t *testing.T) {
	provider := &fakeProvider{name: "fake", err: weather.ErrLocationNotFound}
	svc, db := newTestService(t, provider)

	if _, err := svc.Lookup(context.Background(), "Atlantis", widget.Context{}); !errors.Is(err, weather.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
	searches, _ := db.RecentSearches(10)
	if len(searches) != 0 {
		t.Fatalf("failed lookup recorded: %+v", searches)
	}
}

func TestSetProviderFlushesCache(t *testing.T) {
	first := &fakeProvider{name: "first"}
	svc, _ := newTestService(t, first)
	ctx := context.Background()

	if _, err := svc.Lookup(ctx, "Oslo", widget.Context{}); err != nil {
		t.Fatal(err)
	}

	second := &fakeProvider{name: "second"}
	svc.SetProvider(second)
	view, err := svc.Lookup(ctx, "Oslo", widget.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if view.Provider != "second" || second.Calls() != 1 {
		t.Fatalf("provider = %q, calls = %d", view.Provider, second.Calls())
	}
}

func TestLookupLatestSupersedes(t *testing.T) {
	provider := &fakeProvider{name: "fake", block: make(chan struct{})}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.LookupLatest(ctx, "session-1", "Paris", widget.Context{})
		firstErr <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for provider.Calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first lookup never reached the provider")
		}
		time.Sleep(5 * time.Millisecond)
	}

	secondDone := make(chan error, 1)
	go func() {
		_, err := svc.LookupLatest(ctx, "session-1", "London", widget.Context{})
		secondDone <- err
	}()

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first lookup: expected ErrSuperseded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first lookup was not cancelled")
	}

	close(provider.block)
	if err := <-secondDone; err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
}

func TestLookupLatestSessionsAreIndependent(t *testing.T) {
	provider := &fakeProvider{name: "fake"}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	for _, session := range []string{"a", "b"} {
		if _, err := svc.LookupLatest(ctx, session, "Rome", widget.Context{}); err != nil {
			t.Fatalf("session %s: %v", session, err)
		}
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.WeatherConfig
		want    string
		wantErr bool
	}{
		{"weatherapi", config.WeatherConfig{Provider: "weatherapi", APIKey: "k"}, "weatherapi", false},
		{"weatherapi without key", config.WeatherConfig{Provider: "weatherapi"}, "", true},
		{"openmeteo", config.WeatherConfig{Provider: "OpenMeteo"}, "openmeteo", false},
		{"unknown", config.WeatherConfig{Provider: "darksky"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.want {
				t.Fatalf("Name() = %q, want %q", p.Name(), tt.want)
			}
		})
	}
}
