package lookup

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"skycast/internal/mqtt"
	"skycast/internal/widget"
)

// Refresher keeps the home city's view current and publishes each refresh.
type Refresher struct {
	service   *Service
	publisher *mqtt.Publisher
	wctx      widget.Context
	interval  time.Duration
	enabled   bool
	wake      chan struct{}

	mu           sync.RWMutex
	city         string
	latest       *widget.View
	updatedAt    time.Time
	isRefreshing bool
}

type RefresherConfig struct {
	Service   *Service
	Publisher *mqtt.Publisher
	City      string
	Context   widget.Context
	Interval  time.Duration
	Enabled   bool
}

func NewRefresher(cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Refresher{
		service:   cfg.Service,
		publisher: cfg.Publisher,
		city:      cfg.City,
		wctx:      cfg.Context,
		interval:  interval,
		enabled:   cfg.Enabled,
		wake:      make(chan struct{}, 1),
	}
}

func (r *Refresher) Start(ctx context.Context) error {
	if !r.enabled {
		log.Println("Refresher is disabled")
		return nil
	}
	city := r.City()
	if city == "" {
		return fmt.Errorf("refresher enabled but weather.home_city is empty")
	}

	r.mu.Lock()
	r.isRefreshing = true
	r.mu.Unlock()

	log.Printf("Starting refresher for %s with interval %s", city, r.interval)

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Refresher stopped")
			r.mu.Lock()
			r.isRefreshing = false
			r.mu.Unlock()
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.wake:
			r.refresh(ctx)
			ticker.Reset(r.interval)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	view, err := r.RefreshOnce(ctx)
	if err != nil {
		log.Printf("Error refreshing %s: %v", r.City(), err)
		return
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(view); err != nil {
			log.Printf("Error publishing to MQTT: %v", err)
		}
	}

	log.Printf("Refreshed %s: %.1f%s, %s (%s)",
		view.Location.Name, view.Current.Temperature, view.Current.TempUnit, view.Current.Condition, view.Scene.Category)
}

// RefreshOnce fetches the home city immediately and stores the result as the
// latest view.
func (r *Refresher) RefreshOnce(ctx context.Context) (*widget.View, error) {
	if r.service == nil {
		return nil, fmt.Errorf("refresher has no lookup service")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	city := r.City()
	if city == "" {
		return nil, fmt.Errorf("refresher has no home city")
	}

	view, err := r.service.Fetch(ctx, city, r.wctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.city != city {
		// The home city changed while this fetch was in flight.
		return view, nil
	}
	r.latest = view
	r.updatedAt = time.Now()
	return view, nil
}

func (r *Refresher) Latest() (*widget.View, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.updatedAt
}

func (r *Refresher) IsRefreshing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRefreshing
}

func (r *Refresher) City() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.city
}

// SetCity points the refresher at a new home city. The view of the previous
// city is dropped and a running refresher fetches the new one right away.
func (r *Refresher) SetCity(city string) {
	r.mu.Lock()
	if r.city == city {
		r.mu.Unlock()
		return
	}
	r.city = city
	r.latest = nil
	r.updatedAt = time.Time{}
	r.mu.Unlock()

	if city == "" {
		return
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Refresher) Stop() {
	if r.publisher != nil {
		r.publisher.Close()
	}
}
