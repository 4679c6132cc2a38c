package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"skycast/internal/sky"
)

const (
	openMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
	openMeteoTimeLayout  = "2006-01-02T15:04"
)

// OpenMeteoClient needs no API key. WMO weather codes are translated into the
// weatherapi.com vocabulary so condition classification works unchanged.
type OpenMeteoClient struct {
	forecastURL string
	geocodeURL  string
	lang        string
	days        int
	client      *http.Client
}

func NewOpenMeteoClient(lang string, days int, timeout time.Duration) *OpenMeteoClient {
	if days <= 0 {
		days = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenMeteoClient{
		forecastURL: openMeteoForecastURL,
		geocodeURL:  openMeteoGeocodeURL,
		lang:        SanitizeLang(lang),
		days:        days,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OpenMeteoClient) Name() string {
	return "openmeteo"
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Current  struct {
		Time                string  `json:"time"`
		Temperature         float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		RelativeHumidity    float64 `json:"relative_humidity_2m"`
		IsDay               int     `json:"is_day"`
		WeatherCode         int     `json:"weather_code"`
		SurfacePressure     float64 `json:"surface_pressure"`
		WindSpeed           float64 `json:"wind_speed_10m"`
		WindDirection       float64 `json:"wind_direction_10m"`
	} `json:"current"`
	Daily struct {
		Time           []string  `json:"time"`
		WeatherCode    []int     `json:"weather_code"`
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
		Sunrise        []string  `json:"sunrise"`
		Sunset         []string  `json:"sunset"`
	} `json:"daily"`
}

type openMeteoGeoResponse struct {
	Results []openMeteoPlace `json:"results"`
}

type openMeteoPlace struct {
	Name      string  `json:"name"`
	Admin1    string  `json:"admin1"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

func (c *OpenMeteoClient) Lookup(ctx context.Context, city string) (*Report, error) {
	place, err := c.resolveLocation(ctx, city)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.6f", place.Latitude))
	query.Set("longitude", fmt.Sprintf("%.6f", place.Longitude))
	query.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,is_day,weather_code,surface_pressure,wind_speed_10m,wind_direction_10m")
	query.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset")
	query.Set("timezone", "auto")
	query.Set("forecast_days", strconv.Itoa(c.days))

	var payload openMeteoResponse
	if err := c.getJSON(ctx, c.forecastURL, query, &payload); err != nil {
		return nil, err
	}

	if strings.TrimSpace(payload.Current.Time) == "" {
		return nil, &APIError{Provider: c.Name(), Status: http.StatusOK, Message: "current data missing"}
	}

	timezone := payload.Timezone
	if timezone == "" {
		timezone = place.Timezone
	}

	cur := payload.Current
	report := &Report{
		Provider: c.Name(),
		Location: Location{
			Name:      place.Name,
			Region:    place.Admin1,
			Country:   place.Country,
			Latitude:  place.Latitude,
			Longitude: place.Longitude,
			TimeZone:  timezone,
			LocalTime: reformatOpenMeteoTime(cur.Time),
		},
		Current: Current{
			TempC:       cur.Temperature,
			TempF:       celsiusToFahrenheit(cur.Temperature),
			FeelsLikeC:  cur.ApparentTemperature,
			FeelsLikeF:  celsiusToFahrenheit(cur.ApparentTemperature),
			Humidity:    int(math.Round(cur.RelativeHumidity)),
			PressureMb:  cur.SurfacePressure,
			PressureIn:  round2(cur.SurfacePressure * 0.02953),
			WindKph:     cur.WindSpeed,
			WindMph:     round2(cur.WindSpeed * 0.621371),
			WindDir:     compassPoint(cur.WindDirection),
			IsDay:       cur.IsDay == 1,
			Condition:   openMeteoCondition(cur.WeatherCode),
			LastUpdated: reformatOpenMeteoTime(cur.Time),
		},
	}

	daily := payload.Daily
	for i, date := range daily.Time {
		if i >= len(daily.TemperatureMax) || i >= len(daily.TemperatureMin) || i >= len(daily.WeatherCode) {
			break
		}
		maxC, minC := daily.TemperatureMax[i], daily.TemperatureMin[i]
		avgC := round2((maxC + minC) / 2)
		day := ForecastDay{
			Date:      date,
			AvgTempC:  avgC,
			AvgTempF:  celsiusToFahrenheit(avgC),
			MaxTempC:  maxC,
			MaxTempF:  celsiusToFahrenheit(maxC),
			MinTempC:  minC,
			MinTempF:  celsiusToFahrenheit(minC),
			Condition: openMeteoCondition(daily.WeatherCode[i]),
		}
		if i < len(daily.Sunrise) {
			day.Astronomy.Sunrise = openMeteoClock(daily.Sunrise[i])
		}
		if i < len(daily.Sunset) {
			day.Astronomy.Sunset = openMeteoClock(daily.Sunset[i])
		}
		report.Forecast = append(report.Forecast, day)
	}

	if len(report.Forecast) > 0 {
		report.Astronomy = report.Forecast[0].Astronomy
	}
	FillAstronomy(report)

	return report, nil
}

func (c *OpenMeteoClient) resolveLocation(ctx context.Context, city string) (openMeteoPlace, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return openMeteoPlace{}, ErrEmptyCity
	}

	query := url.Values{}
	query.Set("name", city)
	query.Set("count", "1")
	query.Set("format", "json")
	if c.lang != "" {
		query.Set("language", c.lang)
	}

	var payload openMeteoGeoResponse
	if err := c.getJSON(ctx, c.geocodeURL, query, &payload); err != nil {
		return openMeteoPlace{}, err
	}

	if len(payload.Results) == 0 {
		return openMeteoPlace{}, fmt.Errorf("open-meteo geocoding %q: %w", city, ErrLocationNotFound)
	}
	return payload.Results[0], nil
}

func (c *OpenMeteoClient) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	target, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("open-meteo url: %w", err)
	}
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("open-meteo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("open-meteo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Provider: c.Name(), Status: resp.StatusCode, Message: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("open-meteo decode: %w", err)
	}
	return nil
}

func reformatOpenMeteoTime(value string) string {
	t, err := time.Parse(openMeteoTimeLayout, value)
	if err != nil {
		return value
	}
	return t.Format(localTimeLayout)
}

func openMeteoClock(value string) string {
	t, err := time.Parse(openMeteoTimeLayout, value)
	if err != nil {
		return ""
	}
	return sky.FormatClock(t)
}

func celsiusToFahrenheit(c float64) float64 {
	return round2(c*9/5 + 32)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

func compassPoint(degrees float64) string {
	normalized := math.Mod(degrees, 360)
	if normalized < 0 {
		normalized += 360
	}
	idx := int(math.Round(normalized/22.5)) % len(compassPoints)
	return compassPoints[idx]
}

// openMeteoCodes maps WMO weather codes to the closest weatherapi.com code.
var openMeteoCodes = map[int]Condition{
	0:  {Code: 1000, Text: "Clear"},
	1:  {Code: 1003, Text: "Mainly clear"},
	2:  {Code: 1003, Text: "Partly cloudy"},
	3:  {Code: 1009, Text: "Overcast"},
	45: {Code: 1135, Text: "Fog"},
	48: {Code: 1147, Text: "Freezing fog"},
	51: {Code: 1150, Text: "Light drizzle"},
	53: {Code: 1153, Text: "Drizzle"},
	55: {Code: 1153, Text: "Dense drizzle"},
	56: {Code: 1168, Text: "Freezing drizzle"},
	57: {Code: 1171, Text: "Heavy freezing drizzle"},
	61: {Code: 1183, Text: "Light rain"},
	63: {Code: 1189, Text: "Moderate rain"},
	65: {Code: 1195, Text: "Heavy rain"},
	66: {Code: 1198, Text: "Light freezing rain"},
	67: {Code: 1201, Text: "Heavy freezing rain"},
	71: {Code: 1213, Text: "Light snow"},
	73: {Code: 1219, Text: "Moderate snow"},
	75: {Code: 1225, Text: "Heavy snow"},
	77: {Code: 1237, Text: "Snow grains"},
	80: {Code: 1240, Text: "Light rain shower"},
	81: {Code: 1243, Text: "Rain shower"},
	82: {Code: 1246, Text: "Torrential rain shower"},
	85: {Code: 1255, Text: "Light snow showers"},
	86: {Code: 1258, Text: "Heavy snow showers"},
	95: {Code: 1273, Text: "Thunderstorm"},
	96: {Code: 1276, Text: "Thunderstorm with hail"},
	99: {Code: 1276, Text: "Thunderstorm with heavy hail"},
}

func openMeteoCondition(code int) Condition {
	if cond, ok := openMeteoCodes[code]; ok {
		return cond
	}
	return Condition{Code: 0, Text: "Unknown"}
}
