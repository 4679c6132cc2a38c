package lookup

import (
	"fmt"
	"strings"

	"skycast/config"
	"skycast/internal/weather"
)

// NewProvider builds the weather provider named in cfg.
func NewProvider(cfg config.WeatherConfig) (weather.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "weatherapi":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("weatherapi provider requires weather.api_key")
		}
		return weather.NewWeatherAPIClient(cfg.APIKey, cfg.BaseURL, cfg.Lang, cfg.ForecastDays, cfg.Timeout), nil
	case "openmeteo", "open-meteo":
		return weather.NewOpenMeteoClient(cfg.Lang, cfg.ForecastDays, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", cfg.Provider)
	}
}
