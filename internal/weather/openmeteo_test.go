package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skycast/internal/sky"
)

const openMeteoGeoFixture = `{"results":[{"name":"Lisbon","admin1":"Lisbon","country":"Portugal","latitude":38.72,"longitude":-9.13,"timezone":"Europe/Lisbon"}]}`

const openMeteoForecastFixture = `{
  "timezone": "Europe/Lisbon",
  "current": {"time": "2025-03-15T13:45", "temperature_2m": 18.0, "apparent_temperature": 17.2, "relative_humidity_2m": 61.4,
    "is_day": 1, "weather_code": 61, "surface_pressure": 1012.5, "wind_speed_10m": 20.0, "wind_direction_10m": 225},
  "daily": {
    "time": ["2025-03-15", "2025-03-16"],
    "weather_code": [61, 95],
    "temperature_2m_max": [20.0, 17.0],
    "temperature_2m_min": [10.0, 11.0],
    "sunrise": ["2025-03-15T07:20", "2025-03-16T07:18"],
    "sunset": ["2025-03-15T19:19", "2025-03-16T19:20"]
  }
}`

func newOpenMeteoServer(t *testing.T, geo string) *OpenMeteoClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "" {
			t.Error("missing name parameter")
		}
		w.Write([]byte(geo))
	})
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("forecast_days") != "2" {
			t.Errorf("forecast_days = %q", r.URL.Query().Get("forecast_days"))
		}
		w.Write([]byte(openMeteoForecastFixture))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewOpenMeteoClient("pt-PT", 2, 5*time.Second)
	client.forecastURL = srv.URL + "/v1/forecast"
	client.geocodeURL = srv.URL + "/v1/search"
	return client
}

func TestOpenMeteoLookup(t *testing.T) {
	client := newOpenMeteoServer(t, openMeteoGeoFixture)

	report, err := client.Lookup(context.Background(), "Lisbon")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if report.Location.Name != "Lisbon" || report.Location.Country != "Portugal" {
		t.Errorf("location = %+v", report.Location)
	}
	if report.Location.LocalTime != "2025-03-15 13:45" {
		t.Errorf("localtime = %q", report.Location.LocalTime)
	}
	if report.Current.TempF != 64.4 {
		t.Errorf("temp_f = %v", report.Current.TempF)
	}
	if report.Current.Humidity != 61 {
		t.Errorf("humidity = %d", report.Current.Humidity)
	}
	if report.Current.WindDir != "SW" {
		t.Errorf("wind dir = %q", report.Current.WindDir)
	}
	if sky.ClassifyCondition(report.Current.Condition.Code) != sky.CategoryRain {
		t.Errorf("code %d should classify as rain", report.Current.Condition.Code)
	}
	if len(report.Forecast) != 2 {
		t.Fatalf("forecast days = %d", len(report.Forecast))
	}
	if report.Forecast[0].AvgTempC != 15 {
		t.Errorf("avg = %v", report.Forecast[0].AvgTempC)
	}
	if sky.ClassifyCondition(report.Forecast[1].Condition.Code) != sky.CategoryThunderstorm {
		t.Errorf("day 2 code %d should classify as thunderstorm", report.Forecast[1].Condition.Code)
	}
	if report.Astronomy.Sunrise != "07:20 AM" || report.Astronomy.Sunset != "07:19 PM" {
		t.Errorf("astronomy = %+v", report.Astronomy)
	}

	if _, err := sky.ComputeSunPosition(report.Astronomy.Sunrise, report.Astronomy.Sunset, report.Location.LocalTime); err != nil {
		t.Errorf("report should feed the sun calculator: %v", err)
	}
}

func TestOpenMeteoUnknownCity(t *testing.T) {
	client := newOpenMeteoServer(t, `{}`)
	if _, err := client.Lookup(context.Background(), "Nowhere"); !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestCompassPoint(t *testing.T) {
	tests := map[float64]string{0: "N", 11: "N", 12: "NNE", 90: "E", 225: "SW", 350: "N", 360: "N", -90: "W"}
	for deg, want := range tests {
		if got := compassPoint(deg); got != want {
			t.Errorf("compassPoint(%v) = %q, want %q", deg, got, want)
		}
	}
}
