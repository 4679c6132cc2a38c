package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const currentFixture = `{
  "location": {"name": "Baku", "region": "Baki", "country": "Azerbaijan", "lat": 40.4, "lon": 49.88, "tz_id": "Asia/Baku", "localtime": "2025-03-15 9:05"},
  "current": {
    "last_updated": "2025-03-15 09:00", "temp_c": 11.2, "temp_f": 52.2, "is_day": 1,
    "condition": {"text": "Partly cloudy ", "icon": "//cdn.weatherapi.com/weather/64x64/day/116.png", "code": 1003},
    "wind_mph": 8.1, "wind_kph": 13.0, "wind_dir": "NNW", "pressure_mb": 1019.0, "pressure_in": 30.09,
    "humidity": 66, "feelslike_c": 9.8, "feelslike_f": 49.6
  }
}`

const forecastFixture = `{
  "location": {"name": "Baku", "region": "Baki", "country": "Azerbaijan", "lat": 40.4, "lon": 49.88, "tz_id": "Asia/Baku", "localtime": "2025-03-15 9:05"},
  "current": {"temp_c": 11.0, "temp_f": 51.8, "is_day": 1, "condition": {"text": "Sunny", "icon": "", "code": 1000}},
  "forecast": {"forecastday": [
    {"date": "2025-03-15", "day": {"maxtemp_c": 14.1, "maxtemp_f": 57.4, "mintemp_c": 6.3, "mintemp_f": 43.3, "avgtemp_c": 10.2, "avgtemp_f": 50.4,
      "condition": {"text": "Patchy rain nearby", "icon": "//cdn.weatherapi.com/weather/64x64/day/176.png", "code": 1063}},
     "astro": {"sunrise": "06:58 AM", "sunset": "06:52 PM", "moonrise": "08:01 PM", "moonset": "07:12 AM"}},
    {"date": "2025-03-16", "day": {"maxtemp_c": 12.0, "maxtemp_f": 53.6, "mintemp_c": 5.0, "mintemp_f": 41.0, "avgtemp_c": 8.4, "avgtemp_f": 47.1,
      "condition": {"text": "Overcast", "icon": "//cdn.weatherapi.com/weather/64x64/day/122.png", "code": 1009}},
     "astro": {"sunrise": "06:56 AM", "sunset": "06:53 PM"}}
  ]}
}`

func newWeatherAPIServer(t *testing.T, handler http.HandlerFunc) *WeatherAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWeatherAPIClient("test-key", srv.URL+"/v1", "az", 2, 5*time.Second)
}

func TestWeatherAPILookupMergesCurrentAndForecast(t *testing.T) {
	var paths []string
	client := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		q := r.URL.Query()
		if q.Get("key") != "test-key" || q.Get("q") != "Baku" || q.Get("lang") != "az" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/current.json":
			w.Write([]byte(currentFixture))
		case "/v1/forecast.json":
			if q.Get("days") != "2" {
				t.Errorf("days = %q", q.Get("days"))
			}
			w.Write([]byte(forecastFixture))
		default:
			http.NotFound(w, r)
		}
	})

	report, err := client.Lookup(context.Background(), "  Baku ")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if len(paths) != 2 || paths[0] != "/v1/current.json" || paths[1] != "/v1/forecast.json" {
		t.Fatalf("unexpected call sequence: %v", paths)
	}
	if report.Provider != "weatherapi" {
		t.Errorf("provider = %q", report.Provider)
	}
	if report.Location.Name != "Baku" || report.Location.TimeZone != "Asia/Baku" {
		t.Errorf("location = %+v", report.Location)
	}
	// current conditions come from current.json, not the forecast payload
	if report.Current.TempC != 11.2 || report.Current.Condition.Code != 1003 {
		t.Errorf("current = %+v", report.Current)
	}
	if report.Current.Condition.Text != "Partly cloudy" {
		t.Errorf("condition text = %q", report.Current.Condition.Text)
	}
	if report.Current.Condition.Icon != "https://cdn.weatherapi.com/weather/64x64/day/116.png" {
		t.Errorf("icon = %q", report.Current.Condition.Icon)
	}
	if !report.Current.IsDay {
		t.Error("expected is_day")
	}
	if len(report.Forecast) != 2 {
		t.Fatalf("forecast days = %d", len(report.Forecast))
	}
	if report.Forecast[0].AvgTempC != 10.2 || report.Forecast[0].AvgTempF != 50.4 {
		t.Errorf("forecast[0] = %+v", report.Forecast[0])
	}
	if report.Astronomy.Sunrise != "06:58 AM" || report.Astronomy.Sunset != "06:52 PM" {
		t.Errorf("astronomy = %+v", report.Astronomy)
	}
}

func TestWeatherAPILocationNotFound(t *testing.T) {
	client := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
	})

	_, err := client.Lookup(context.Background(), "Atlantis")
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestWeatherAPIErrors(t *testing.T) {
	t.Run("provider error envelope", func(t *testing.T) {
		client := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":2008,"message":"API key has been disabled."}}`))
		})
		_, err := client.Lookup(context.Background(), "Baku")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Code != 2008 || apiErr.Status != http.StatusForbidden {
			t.Fatalf("unexpected api error: %+v", apiErr)
		}
	})

	t.Run("bad status without body", func(t *testing.T) {
		client := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := client.Lookup(context.Background(), "Baku")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
			t.Fatalf("expected 502 APIError, got %v", err)
		}
	})

	t.Run("empty city", func(t *testing.T) {
		client := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		if _, err := client.Lookup(context.Background(), "   "); !errors.Is(err, ErrEmptyCity) {
			t.Fatalf("expected ErrEmptyCity, got %v", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		client := NewWeatherAPIClient("", "http://127.0.0.1:0", "", 1, time.Second)
		if _, err := client.Lookup(context.Background(), "Baku"); err == nil {
			t.Fatal("expected error for missing api key")
		}
	})
}

func TestSanitizeLang(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"az":        "az",
		"pt-BR":     "pt",
		" en ":      "en",
		"not a tag": "",
	}
	for in, want := range tests {
		if got := SanitizeLang(in); got != want {
			t.Errorf("SanitizeLang(%q) = %q, want %q", in, got, want)
		}
	}
}
