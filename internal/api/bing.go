package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	bingArchiveURL    = "https://www.bing.com/HPImageArchive.aspx"
	bingWallpaperTTL  = 6 * time.Hour
	defaultBingMarket = "en-US"
	// the archive only serves the last eight days
	maxBingIndex = 7
)

var bingMarketPattern = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)

type bingWallpaperPayload struct {
	Provider  string `json:"provider"`
	Market    string `json:"mkt"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Copyright string `json:"copyright"`
}

type bingWallpaperResponse struct {
	Images []bingWallpaperImage `json:"images"`
}

type bingWallpaperImage struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Copyright string `json:"copyright"`
}

type bingWallpaperCacheEntry struct {
	FetchedAt time.Time
	Payload   bingWallpaperPayload
}

func sanitizeBingMarket(value string) string {
	trimmed := strings.TrimSpace(value)
	if bingMarketPattern.MatchString(trimmed) {
		return trimmed
	}
	return defaultBingMarket
}

func (w *wallpaperSource) bingWallpaper(ctx context.Context, market string, index int) (bingWallpaperPayload, error) {
	if index < 0 || index > maxBingIndex {
		index = 0
	}
	key := fmt.Sprintf("%s/%d", market, index)

	now := time.Now()
	w.mu.Lock()
	entry, ok := w.bing[key]
	w.mu.Unlock()
	if ok && now.Sub(entry.FetchedAt) < bingWallpaperTTL {
		return entry.Payload, nil
	}

	payload, err := w.fetchBing(ctx, market, index)
	if err != nil {
		if ok {
			return entry.Payload, nil
		}
		return bingWallpaperPayload{}, err
	}

	w.mu.Lock()
	w.bing[key] = bingWallpaperCacheEntry{FetchedAt: now, Payload: payload}
	w.mu.Unlock()
	return payload, nil
}

func (w *wallpaperSource) fetchBing(ctx context.Context, market string, index int) (bingWallpaperPayload, error) {
	params := url.Values{}
	params.Set("format", "js")
	params.Set("idx", strconv.Itoa(index))
	params.Set("n", "1")
	params.Set("mkt", market)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.bingURL+"?"+params.Encode(), nil)
	if err != nil {
		return bingWallpaperPayload{}, fmt.Errorf("bing request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return bingWallpaperPayload{}, fmt.Errorf("bing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return bingWallpaperPayload{}, fmt.Errorf("bing bad status: %s", resp.Status)
	}

	var payload bingWallpaperResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return bingWallpaperPayload{}, fmt.Errorf("bing decode: %w", err)
	}
	if len(payload.Images) == 0 || strings.TrimSpace(payload.Images[0].URL) == "" {
		return bingWallpaperPayload{}, fmt.Errorf("bing image URL is missing")
	}

	image := payload.Images[0]
	imageURL := strings.TrimSpace(image.URL)
	if !strings.HasPrefix(imageURL, "http") {
		imageURL = "https://www.bing.com" + imageURL
	}

	return bingWallpaperPayload{
		Provider:  "bing",
		Market:    market,
		URL:       imageURL,
		Title:     strings.TrimSpace(image.Title),
		Copyright: strings.TrimSpace(image.Copyright),
	}, nil
}
