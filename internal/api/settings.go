package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"skycast/config"
	"skycast/internal/lookup"
)

type WeatherConfigResponse struct {
	Provider       string `json:"provider"`
	HasAPIKey      bool   `json:"has_api_key"`
	BaseURL        string `json:"base_url"`
	Lang           string `json:"lang"`
	ForecastDays   int    `json:"forecast_days"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	HomeCity       string `json:"home_city"`
}

// WeatherConfigRequest leaves a stored value alone when its field is absent.
// APIKey, BaseURL and HomeCity may be sent as "" to clear them.
type WeatherConfigRequest struct {
	Provider       string  `json:"provider" binding:"required"`
	APIKey         *string `json:"api_key"`
	BaseURL        *string `json:"base_url"`
	Lang           string  `json:"lang"`
	ForecastDays   int     `json:"forecast_days" binding:"omitempty,min=1,max=14"`
	TimeoutSeconds int     `json:"timeout_seconds" binding:"omitempty,min=1,max=60"`
	HomeCity       *string `json:"home_city"`
}

func (s *Server) getWeatherConfigHandler(c *gin.Context) {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()

	c.JSON(http.StatusOK, weatherConfigResponse(s.config.Weather))
}

func (s *Server) updateWeatherConfigHandler(c *gin.Context) {
	var req WeatherConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.configMutex.RLock()
	next := s.config.Weather
	s.configMutex.RUnlock()

	next.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if req.APIKey != nil {
		next.APIKey = strings.TrimSpace(*req.APIKey)
	}
	if req.BaseURL != nil {
		next.BaseURL = strings.TrimSpace(*req.BaseURL)
	}
	if req.Lang != "" {
		next.Lang = req.Lang
	}
	if req.ForecastDays > 0 {
		next.ForecastDays = req.ForecastDays
	}
	if req.TimeoutSeconds > 0 {
		next.Timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	if req.HomeCity != nil {
		next.HomeCity = strings.TrimSpace(*req.HomeCity)
	}

	provider, err := lookup.NewProvider(next)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.configMutex.Lock()
	s.config.Weather = next
	s.configMutex.Unlock()

	if s.service != nil {
		s.service.SetProvider(provider)
	}
	if s.refresher != nil {
		s.refresher.SetCity(next.HomeCity)
	}

	if err := s.saveConfigToFile(); err != nil {
		log.Printf("Warning: Failed to save config to file: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"message": "Configuration applied but not persisted to file",
			"warning": err.Error(),
		})
		return
	}

	log.Printf("Weather configuration updated: provider=%s", next.Provider)
	c.JSON(http.StatusOK, gin.H{
		"message": "Weather configuration updated successfully",
		"config":  weatherConfigResponse(next),
	})
}

func weatherConfigResponse(cfg config.WeatherConfig) WeatherConfigResponse {
	return WeatherConfigResponse{
		Provider:       cfg.Provider,
		HasAPIKey:      strings.TrimSpace(cfg.APIKey) != "",
		BaseURL:        cfg.BaseURL,
		Lang:           cfg.Lang,
		ForecastDays:   cfg.ForecastDays,
		TimeoutSeconds: int(cfg.Timeout.Seconds()),
		HomeCity:       cfg.HomeCity,
	}
}

func (s *Server) saveConfigToFile() error {
	s.configMutex.RLock()
	snapshot := *s.config
	s.configMutex.RUnlock()

	return config.Save(s.configPath, &snapshot)
}
