package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Weather.Provider != "weatherapi" {
		t.Errorf("provider = %q", cfg.Weather.Provider)
	}
	if cfg.Weather.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Weather.Timeout)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.API.Port != 8080 || !cfg.API.Enabled {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Display.Units != "metric" || cfg.Display.Theme != "light" {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt should be disabled by default")
	}
}

func TestLoadOverridesAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `weather:
  provider: openmeteo
  forecast_days: 5
  home_city: Baku
api:
  port: 9090
mqtt:
  enabled: true
  broker: tcp://broker:1883
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Weather.Provider != "openmeteo" || cfg.Weather.ForecastDays != 5 || cfg.Weather.HomeCity != "Baku" {
		t.Fatalf("weather = %+v", cfg.Weather)
	}
	if cfg.API.Port != 9090 {
		t.Fatalf("port = %d", cfg.API.Port)
	}

	cfg.Display.Theme = "dark"
	cfg.Weather.Lang = "az"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Display.Theme != "dark" || reloaded.Weather.Lang != "az" {
		t.Fatalf("saved values not reloaded: %+v %+v", reloaded.Display, reloaded.Weather)
	}
	if !reloaded.MQTT.Enabled || reloaded.MQTT.Broker != "tcp://broker:1883" {
		t.Fatalf("untouched keys lost: %+v", reloaded.MQTT)
	}
}

func TestSaveCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.yaml")
	cfg := &Config{}
	cfg.Weather.Provider = "weatherapi"
	cfg.Display.Units = "imperial"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.Display.Units != "imperial" {
		t.Fatalf("units = %q", reloaded.Display.Units)
	}
}

func TestLoadRecordsFileAndSaveWritesBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("weather:\n  provider: openmeteo\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.File != path {
		t.Fatalf("File = %q, want %q", cfg.File, path)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	elsewhere := t.TempDir()
	if err := os.Chdir(elsewhere); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg.Weather.HomeCity = "Tbilisi"
	if err := Save("", cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(elsewhere, "config.yaml")); !os.IsNotExist(err) {
		t.Fatalf("Save wrote to the working directory instead of %s", path)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Weather.HomeCity != "Tbilisi" || reloaded.Weather.Provider != "openmeteo" {
		t.Fatalf("reloaded weather = %+v", reloaded.Weather)
	}
}
