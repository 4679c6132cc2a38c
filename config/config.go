package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Weather    WeatherConfig    `mapstructure:"weather"`
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Refresher  RefresherConfig  `mapstructure:"refresher"`
	Display    DisplayConfig    `mapstructure:"display"`
	Home       HomeConfig       `mapstructure:"home"`
	Background BackgroundConfig `mapstructure:"background"`

	// File is the config file Load read, or would have read if it existed.
	// Empty when the search paths found nothing.
	File string `mapstructure:"-"`
}

type WeatherConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Lang         string        `mapstructure:"lang"`
	ForecastDays int           `mapstructure:"forecast_days"`
	Timeout      time.Duration `mapstructure:"timeout"`
	HomeCity     string        `mapstructure:"home_city"`
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type RefresherConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Enabled  bool          `mapstructure:"enabled"`
}

// DisplayConfig holds the defaults used when a profile has no stored
// preference.
type DisplayConfig struct {
	Units string `mapstructure:"units"`
	Theme string `mapstructure:"theme"`
}

// HomeConfig is the reference point for map marker distances. Zero means
// unset.
type HomeConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

type BackgroundConfig struct {
	UnsplashAccessKey string `mapstructure:"unsplash_access_key"`
	Market            string `mapstructure:"market"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("weather.provider", "weatherapi")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.weatherapi.com/v1")
	v.SetDefault("weather.lang", "en")
	v.SetDefault("weather.forecast_days", 3)
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("weather.home_city", "")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.enabled", true)
	v.SetDefault("database.path", "./skycast.db")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "skycast")
	v.SetDefault("mqtt.client_id", "skycast")
	v.SetDefault("refresher.interval", "15m")
	v.SetDefault("refresher.enabled", false)
	v.SetDefault("display.units", "metric")
	v.SetDefault("display.theme", "light")
	v.SetDefault("home.latitude", 0)
	v.SetDefault("home.longitude", 0)
	v.SetDefault("background.unsplash_access_key", "")
	v.SetDefault("background.market", "en-US")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/skycast")
	}

	v.SetEnvPrefix("SKYCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("weather.api_key")
	_ = v.BindEnv("background.unsplash_access_key")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

// Save writes the settings that can be edited at runtime back to the YAML
// file at configPath, keeping any other keys already in it. An empty
// configPath means the file cfg was loaded from, then ./config.yaml.
func Save(configPath string, cfg *Config) error {
	if configPath == "" {
		configPath = cfg.File
	}
	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return err
		}
	}

	v.Set("weather.provider", cfg.Weather.Provider)
	v.Set("weather.api_key", cfg.Weather.APIKey)
	v.Set("weather.base_url", cfg.Weather.BaseURL)
	v.Set("weather.lang", cfg.Weather.Lang)
	v.Set("weather.forecast_days", cfg.Weather.ForecastDays)
	v.Set("weather.timeout", cfg.Weather.Timeout.String())
	v.Set("weather.home_city", cfg.Weather.HomeCity)
	v.Set("display.units", cfg.Display.Units)
	v.Set("display.theme", cfg.Display.Theme)
	v.Set("background.unsplash_access_key", cfg.Background.UnsplashAccessKey)
	v.Set("background.market", cfg.Background.Market)

	return v.WriteConfigAs(configPath)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
