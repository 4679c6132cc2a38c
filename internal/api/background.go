package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"skycast/internal/sky"
	"skycast/internal/widget"
)

const (
	unsplashRandomURL      = "https://api.unsplash.com/photos/random"
	unsplashWallpaperTTL   = 2 * time.Hour
	defaultBackgroundQuery = "sky landscape"
	userAgent              = "Skycast/1.0"
)

type backgroundConfigResponse struct {
	HasUnsplashKey bool   `json:"has_unsplash_key"`
	Provider       string `json:"provider"`
	Market         string `json:"market"`
}

type backgroundConfigRequest struct {
	UnsplashAccessKey *string `json:"unsplash_access_key"`
	ClearUnsplashKey  bool    `json:"clear_unsplash_key"`
	Market            *string `json:"market"`
}

type backgroundWallpaperPayload struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Credit   string `json:"credit,omitempty"`
	Query    string `json:"query,omitempty"`
	Category string `json:"category"`
}

type unsplashResponse struct {
	Urls struct {
		Regular string `json:"regular"`
		Full    string `json:"full"`
	} `json:"urls"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
}

type unsplashCacheEntry struct {
	FetchedAt time.Time
	Payload   backgroundWallpaperPayload
}

type backgroundChoice struct {
	UnsplashQuery string
	BingIndex     int
}

// wallpaperSource fetches and caches background images. The endpoints are
// fields so tests can point them at a local server.
type wallpaperSource struct {
	client      *http.Client
	unsplashURL string
	bingURL     string

	mu       sync.Mutex
	unsplash map[string]unsplashCacheEntry
	bing     map[string]bingWallpaperCacheEntry
}

func newWallpaperSource() *wallpaperSource {
	return &wallpaperSource{
		client:      &http.Client{Timeout: 10 * time.Second},
		unsplashURL: unsplashRandomURL,
		bingURL:     bingArchiveURL,
		unsplash:    map[string]unsplashCacheEntry{},
		bing:        map[string]bingWallpaperCacheEntry{},
	}
}

func (s *Server) getBackgroundConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	cfg := s.config.Background
	s.configMutex.RUnlock()

	c.JSON(http.StatusOK, backgroundConfigView(cfg.UnsplashAccessKey, cfg.Market))
}

func (s *Server) updateBackgroundConfigHandler(c *gin.Context) {
	var req backgroundConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Market != nil && !bingMarketPattern.MatchString(strings.TrimSpace(*req.Market)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market, expected a value like en-US"})
		return
	}

	s.configMutex.Lock()
	if req.ClearUnsplashKey {
		s.config.Background.UnsplashAccessKey = ""
	} else if req.UnsplashAccessKey != nil {
		s.config.Background.UnsplashAccessKey = strings.TrimSpace(*req.UnsplashAccessKey)
	}
	if req.Market != nil {
		s.config.Background.Market = strings.TrimSpace(*req.Market)
	}
	cfg := s.config.Background
	s.configMutex.Unlock()

	if err := s.saveConfigToFile(); err != nil {
		log.Printf("Warning: Failed to save config to file: %v", err)
	}

	c.JSON(http.StatusOK, backgroundConfigView(cfg.UnsplashAccessKey, cfg.Market))
}

func backgroundConfigView(key, market string) backgroundConfigResponse {
	response := backgroundConfigResponse{
		HasUnsplashKey: strings.TrimSpace(key) != "",
		Provider:       "bing",
		Market:         sanitizeBingMarket(market),
	}
	if response.HasUnsplashKey {
		response.Provider = "unsplash"
	}
	return response
}

func (s *Server) backgroundWallpaperHandler(c *gin.Context) {
	s.configMutex.RLock()
	cfg := s.config.Background
	s.configMutex.RUnlock()

	category, isDay := s.backgroundCondition(c)
	choice := pickBackgroundChoice(category, isDay)

	if strings.TrimSpace(cfg.UnsplashAccessKey) != "" {
		payload, err := s.wallpapers.unsplashWallpaper(c.Request.Context(), cfg.UnsplashAccessKey, choice.UnsplashQuery)
		if err == nil {
			payload.Category = category.String()
			c.JSON(http.StatusOK, payload)
			return
		}
		log.Printf("Unsplash fetch failed, falling back to Bing: %v", err)
	}

	market := cfg.Market
	if m := c.Query("mkt"); m != "" {
		market = m
	}
	market = sanitizeBingMarket(market)

	bingPayload, err := s.wallpapers.bingWallpaper(c.Request.Context(), market, choice.BingIndex)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch wallpaper", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, backgroundWallpaperPayload{
		Provider: "bing",
		URL:      bingPayload.URL,
		Title:    bingPayload.Title,
		Credit:   bingPayload.Copyright,
		Query:    choice.UnsplashQuery,
		Category: category.String(),
	})
}

// backgroundCondition picks the condition that drives the wallpaper: the
// requested city when given, otherwise the home city's latest refresh.
func (s *Server) backgroundCondition(c *gin.Context) (sky.Category, bool) {
	if city := strings.TrimSpace(c.Query("city")); city != "" && s.service != nil {
		view, err := s.service.Peek(c.Request.Context(), city, widget.Context{})
		if err == nil {
			return view.Scene.Category, view.Scene.IsDay
		}
		log.Printf("Wallpaper lookup for %q failed: %v", city, err)
		return sky.CategoryDefault, true
	}
	if s.refresher != nil {
		if view, _ := s.refresher.Latest(); view != nil {
			return view.Scene.Category, view.Scene.IsDay
		}
	}
	return sky.CategoryDefault, true
}

func pickBackgroundChoice(category sky.Category, isDay bool) backgroundChoice {
	var choice backgroundChoice
	switch category {
	case sky.CategoryThunderstorm:
		choice = backgroundChoice{UnsplashQuery: "thunderstorm lightning", BingIndex: 5}
	case sky.CategoryRain:
		choice = backgroundChoice{UnsplashQuery: "rainy sky", BingIndex: 4}
	case sky.CategorySnow:
		choice = backgroundChoice{UnsplashQuery: "snowy landscape", BingIndex: 6}
	case sky.CategoryCloudy:
		choice = backgroundChoice{UnsplashQuery: "overcast sky", BingIndex: 3}
	case sky.CategoryClear:
		if !isDay {
			return backgroundChoice{UnsplashQuery: "starry night sky", BingIndex: 2}
		}
		return backgroundChoice{UnsplashQuery: "clear blue sky", BingIndex: 1}
	default:
		return backgroundChoice{UnsplashQuery: defaultBackgroundQuery, BingIndex: 0}
	}
	if !isDay {
		choice.UnsplashQuery += " at night"
	}
	return choice
}

func (w *wallpaperSource) unsplashWallpaper(ctx context.Context, accessKey, query string) (backgroundWallpaperPayload, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = defaultBackgroundQuery
	}

	now := time.Now()
	w.mu.Lock()
	entry, ok := w.unsplash[query]
	w.mu.Unlock()
	if ok && now.Sub(entry.FetchedAt) < unsplashWallpaperTTL {
		return entry.Payload, nil
	}

	payload, err := w.fetchUnsplash(ctx, accessKey, query)
	if err != nil {
		if ok {
			return entry.Payload, nil
		}
		return backgroundWallpaperPayload{}, err
	}

	w.mu.Lock()
	w.unsplash[query] = unsplashCacheEntry{FetchedAt: now, Payload: payload}
	w.mu.Unlock()
	return payload, nil
}

func (w *wallpaperSource) fetchUnsplash(ctx context.Context, accessKey, query string) (backgroundWallpaperPayload, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.unsplashURL+"?"+params.Encode(), nil)
	if err != nil {
		return backgroundWallpaperPayload{}, fmt.Errorf("unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+strings.TrimSpace(accessKey))
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return backgroundWallpaperPayload{}, fmt.Errorf("unsplash request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return backgroundWallpaperPayload{}, fmt.Errorf("unsplash bad status: %s", resp.Status)
	}

	var payload unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return backgroundWallpaperPayload{}, fmt.Errorf("unsplash decode: %w", err)
	}

	imageURL := strings.TrimSpace(payload.Urls.Regular)
	if imageURL == "" {
		imageURL = strings.TrimSpace(payload.Urls.Full)
	}
	if imageURL == "" {
		return backgroundWallpaperPayload{}, fmt.Errorf("unsplash image URL is missing")
	}

	title := strings.TrimSpace(payload.Description)
	if title == "" {
		title = strings.TrimSpace(payload.AltDescription)
	}

	credit := ""
	if author := strings.TrimSpace(payload.User.Name); author != "" {
		credit = fmt.Sprintf("Photo by %s on Unsplash", author)
	}

	return backgroundWallpaperPayload{
		Provider: "unsplash",
		URL:      imageURL,
		Title:    title,
		Credit:   credit,
		Query:    query,
	}, nil
}
