package mqtt

import (
	"testing"

	"skycast/internal/sky"
	"skycast/internal/widget"
)

func TestValuesMetric(t *testing.T) {
	view := &widget.View{
		Units: widget.Metric,
		Current: widget.CurrentCard{
			Temperature: 20, Condition: "Sunny", Humidity: 40, Wind: 10,
		},
		Scene: sky.ResolveScene(1000, true, sky.ThemeLight),
		Sun:   &sky.SunPosition{XPercent: 25, YOffset: 120, Opacity: 1, Daytime: true},
	}

	got := Values(view)
	want := map[string]string{
		"temperature_c": "20.0",
		"temperature_f": "68.0",
		"condition":     "Sunny",
		"category":      "clear",
		"humidity":      "40",
		"wind_kph":      "10.0",
		"is_day":        "true",
		"sun_x":         "25.00",
		"sun_y":         "120.00",
		"sun_opacity":   "1.0",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestValuesImperialWithoutSun(t *testing.T) {
	view := &widget.View{
		Units:   widget.Imperial,
		Current: widget.CurrentCard{Temperature: 50, Wind: 10},
		Scene:   sky.ResolveScene(1183, false, sky.ThemeDark),
	}

	got := Values(view)
	if got["temperature_c"] != "10.0" || got["temperature_f"] != "50.0" {
		t.Errorf("temperatures = %q / %q", got["temperature_c"], got["temperature_f"])
	}
	if got["wind_kph"] != "16.1" {
		t.Errorf("wind_kph = %q", got["wind_kph"])
	}
	if _, ok := got["sun_x"]; ok {
		t.Error("sun values published without a sun position")
	}
	if got["category"] != "rain" || got["is_day"] != "false" {
		t.Errorf("category/is_day = %q / %q", got["category"], got["is_day"])
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewPublisher(PublisherConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	if err := p.Publish(&widget.View{}); err != nil {
		t.Errorf("Publish on disabled publisher: %v", err)
	}
	if err := p.PublishHomeAssistantDiscovery(); err != nil {
		t.Errorf("discovery on disabled publisher: %v", err)
	}
	if p.IsConnected() {
		t.Error("disabled publisher reports connected")
	}
	p.Close()
}

func TestDiscoveryConfig(t *testing.T) {
	p := &Publisher{topicPrefix: "skycast", enabled: true}
	cfg := p.discoveryConfig(sensor{"Humidity", "humidity", "%", "humidity"})

	if cfg["state_topic"] != "skycast/home/humidity" {
		t.Errorf("state_topic = %v", cfg["state_topic"])
	}
	if cfg["unique_id"] != "skycast_home_humidity" || cfg["device_class"] != "humidity" {
		t.Errorf("config = %v", cfg)
	}

	plain := p.discoveryConfig(sensor{"Condition", "condition", "", ""})
	if _, ok := plain["unit_of_measurement"]; ok {
		t.Error("empty unit should be omitted")
	}
}
