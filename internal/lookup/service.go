// Package lookup ties a weather provider, the report cache and the search log
// together and turns reports into rendered views.
package lookup

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"skycast/internal/cache"
	"skycast/internal/storage"
	"skycast/internal/weather"
	"skycast/internal/widget"
)

// ErrSuperseded is returned to a lookup whose session started a newer one
// before it finished.
var ErrSuperseded = errors.New("lookup superseded by a newer request")

type Service struct {
	mu       sync.RWMutex
	provider weather.Provider
	cache    cache.Cache
	db       *storage.Database
	ttl      time.Duration

	sessions sync.Mutex
	inflight map[string]*inflight
}

type inflight struct {
	cancel context.CancelFunc
}

type ServiceConfig struct {
	Provider weather.Provider
	Cache    cache.Cache
	Database *storage.Database
	CacheTTL time.Duration
}

func NewService(cfg ServiceConfig) *Service {
	c := cfg.Cache
	if c == nil {
		c = cache.NewMemory()
	}
	return &Service{
		provider: cfg.Provider,
		cache:    c,
		db:       cfg.Database,
		ttl:      cfg.CacheTTL,
		inflight: make(map[string]*inflight),
	}
}

func (s *Service) Provider() weather.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// SetProvider swaps the provider used by later lookups. Cached reports came
// from the old provider, so the cache is flushed.
func (s *Service) SetProvider(p weather.Provider) {
	s.mu.Lock()
	s.provider = p
	s.mu.Unlock()

	s.cache.Flush(context.Background())
	log.Printf("Weather provider switched to %s", p.Name())
}

// Lookup resolves city to a rendered view, serving from the cache when it can
// and recording the search.
func (s *Service) Lookup(ctx context.Context, city string, wctx widget.Context) (*widget.View, error) {
	report, err := s.report(ctx, city, true)
	if err != nil {
		return nil, err
	}

	view, err := widget.Render(report, wctx)
	if err != nil {
		return nil, err
	}

	s.record(view, report)
	return view, nil
}

// Peek is Lookup without the search log entry.
func (s *Service) Peek(ctx context.Context, city string, wctx widget.Context) (*widget.View, error) {
	report, err := s.report(ctx, city, true)
	if err != nil {
		return nil, err
	}
	return widget.Render(report, wctx)
}

// Fetch always asks the provider, refreshes the cache and does not touch the
// search log.
func (s *Service) Fetch(ctx context.Context, city string, wctx widget.Context) (*widget.View, error) {
	report, err := s.report(ctx, city, false)
	if err != nil {
		return nil, err
	}
	return widget.Render(report, wctx)
}

// LookupLatest is Lookup for interactive clients: a newer call for the same
// session cancels this one, which then returns ErrSuperseded.
func (s *Service) LookupLatest(ctx context.Context, session, city string, wctx widget.Context) (*widget.View, error) {
	lctx, cancel := context.WithCancel(ctx)
	token := &inflight{cancel: cancel}

	s.sessions.Lock()
	if prev, ok := s.inflight[session]; ok {
		prev.cancel()
	}
	s.inflight[session] = token
	s.sessions.Unlock()

	defer func() {
		s.sessions.Lock()
		if s.inflight[session] == token {
			delete(s.inflight, session)
		}
		s.sessions.Unlock()
		cancel()
	}()

	view, err := s.Lookup(lctx, city, wctx)

	s.sessions.Lock()
	current := s.inflight[session] == token
	s.sessions.Unlock()

	if !current && ctx.Err() == nil {
		return nil, ErrSuperseded
	}
	return view, err
}

func (s *Service) report(ctx context.Context, city string, useCache bool) (*weather.Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, weather.ErrEmptyCity
	}

	provider := s.Provider()
	if provider == nil {
		return nil, errors.New("no weather provider configured")
	}
	key := cache.Key(provider.Name(), city)

	if useCache {
		if report, ok := s.cache.Get(ctx, key); ok {
			return report, nil
		}
	}

	report, err := provider.Lookup(ctx, city)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, report, s.ttl)
	return report, nil
}

func (s *Service) record(view *widget.View, report *weather.Report) {
	if s.db == nil {
		return
	}
	search := &storage.Search{
		City:          report.Location.Name,
		Region:        report.Location.Region,
		Country:       report.Location.Country,
		Provider:      report.Provider,
		ConditionCode: report.Current.Condition.Code,
		Category:      view.Scene.Category.String(),
		TempC:         report.Current.TempC,
	}
	if err := s.db.RecordSearch(search); err != nil {
		log.Printf("Error recording search for %s: %v", search.City, err)
	}
}
