package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

	// weatherAPINoLocation is returned for q values that match nothing.
	weatherAPINoLocation = 1006
)

// WeatherAPIClient talks to weatherapi.com. A lookup is two calls, one for
// current conditions and one for the forecast with astronomy, merged into a
// single Report.
type WeatherAPIClient struct {
	apiKey  string
	baseURL string
	lang    string
	days    int
	client  *http.Client
}

func NewWeatherAPIClient(apiKey, baseURL, lang string, days int, timeout time.Duration) *WeatherAPIClient {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIBaseURL
	}
	if days <= 0 {
		days = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherAPIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		lang:    SanitizeLang(lang),
		days:    days,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *WeatherAPIClient) Name() string {
	return "weatherapi"
}

type weatherAPILocation struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	TzID      string  `json:"tz_id"`
	LocalTime string  `json:"localtime"`
}

type weatherAPICurrent struct {
	LastUpdated string    `json:"last_updated"`
	TempC       float64   `json:"temp_c"`
	TempF       float64   `json:"temp_f"`
	IsDay       int       `json:"is_day"`
	Condition   Condition `json:"condition"`
	WindMph     float64   `json:"wind_mph"`
	WindKph     float64   `json:"wind_kph"`
	WindDir     string    `json:"wind_dir"`
	PressureMb  float64   `json:"pressure_mb"`
	PressureIn  float64   `json:"pressure_in"`
	Humidity    int       `json:"humidity"`
	FeelsLikeC  float64   `json:"feelslike_c"`
	FeelsLikeF  float64   `json:"feelslike_f"`
}

type weatherAPIForecastDay struct {
	Date string `json:"date"`
	Day  struct {
		MaxTempC  float64   `json:"maxtemp_c"`
		MaxTempF  float64   `json:"maxtemp_f"`
		MinTempC  float64   `json:"mintemp_c"`
		MinTempF  float64   `json:"mintemp_f"`
		AvgTempC  float64   `json:"avgtemp_c"`
		AvgTempF  float64   `json:"avgtemp_f"`
		Condition Condition `json:"condition"`
	} `json:"day"`
	Astro Astronomy `json:"astro"`
}

type weatherAPIResponse struct {
	Location weatherAPILocation `json:"location"`
	Current  weatherAPICurrent  `json:"current"`
	Forecast struct {
		ForecastDay []weatherAPIForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type weatherAPIErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *WeatherAPIClient) Lookup(ctx context.Context, city string) (*Report, error) {
	current, err := c.Current(ctx, city)
	if err != nil {
		return nil, err
	}
	forecast, err := c.Forecast(ctx, city)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Provider: c.Name(),
		Location: current.Location,
		Current:  current.Current,
		Forecast: forecast.Forecast,
	}
	if len(forecast.Forecast) > 0 {
		report.Astronomy = forecast.Forecast[0].Astronomy
	}
	FillAstronomy(report)

	return report, nil
}

// Current fetches current conditions only. The returned report has no
// forecast or astronomy.
func (c *WeatherAPIClient) Current(ctx context.Context, city string) (*Report, error) {
	var payload weatherAPIResponse
	if err := c.get(ctx, "current.json", city, nil, &payload); err != nil {
		return nil, err
	}

	return &Report{
		Provider: c.Name(),
		Location: payload.Location.toLocation(),
		Current:  payload.Current.toCurrent(),
	}, nil
}

// Forecast fetches the daily forecast, including astronomy per day.
func (c *WeatherAPIClient) Forecast(ctx context.Context, city string) (*Report, error) {
	extra := url.Values{}
	extra.Set("days", strconv.Itoa(c.days))
	extra.Set("aqi", "no")
	extra.Set("alerts", "no")

	var payload weatherAPIResponse
	if err := c.get(ctx, "forecast.json", city, extra, &payload); err != nil {
		return nil, err
	}

	days := make([]ForecastDay, 0, len(payload.Forecast.ForecastDay))
	for _, d := range payload.Forecast.ForecastDay {
		days = append(days, ForecastDay{
			Date:      d.Date,
			AvgTempC:  d.Day.AvgTempC,
			AvgTempF:  d.Day.AvgTempF,
			MaxTempC:  d.Day.MaxTempC,
			MaxTempF:  d.Day.MaxTempF,
			MinTempC:  d.Day.MinTempC,
			MinTempF:  d.Day.MinTempF,
			Condition: normalizeCondition(d.Day.Condition),
			Astronomy: d.Astro,
		})
	}

	return &Report{
		Provider: c.Name(),
		Location: payload.Location.toLocation(),
		Current:  payload.Current.toCurrent(),
		Forecast: days,
	}, nil
}

func (c *WeatherAPIClient) get(ctx context.Context, endpoint, city string, extra url.Values, out interface{}) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return ErrEmptyCity
	}
	if c.apiKey == "" {
		return fmt.Errorf("weatherapi api key is empty")
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("weatherapi base url: %w", err)
	}

	query := url.Values{}
	for k, v := range extra {
		query[k] = v
	}
	query.Set("key", c.apiKey)
	query.Set("q", city)
	if c.lang != "" {
		query.Set("lang", c.lang)
	}

	base.Path = strings.TrimRight(base.Path, "/") + "/" + endpoint
	base.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return fmt.Errorf("weatherapi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("weatherapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeWeatherAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("weatherapi decode: %w", err)
	}
	return nil
}

func decodeWeatherAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload weatherAPIErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Code == 0 {
		return &APIError{
			Provider: "weatherapi",
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(resp.Status),
		}
	}

	if payload.Error.Code == weatherAPINoLocation {
		return fmt.Errorf("weatherapi: %s: %w", payload.Error.Message, ErrLocationNotFound)
	}
	return &APIError{
		Provider: "weatherapi",
		Status:   resp.StatusCode,
		Code:     payload.Error.Code,
		Message:  payload.Error.Message,
	}
}

func (l weatherAPILocation) toLocation() Location {
	return Location{
		Name:      l.Name,
		Region:    l.Region,
		Country:   l.Country,
		Latitude:  l.Lat,
		Longitude: l.Lon,
		TimeZone:  l.TzID,
		LocalTime: l.LocalTime,
	}
}

func (c weatherAPICurrent) toCurrent() Current {
	return Current{
		TempC:       c.TempC,
		TempF:       c.TempF,
		FeelsLikeC:  c.FeelsLikeC,
		FeelsLikeF:  c.FeelsLikeF,
		Humidity:    c.Humidity,
		PressureMb:  c.PressureMb,
		PressureIn:  c.PressureIn,
		WindKph:     c.WindKph,
		WindMph:     c.WindMph,
		WindDir:     c.WindDir,
		IsDay:       c.IsDay == 1,
		Condition:   normalizeCondition(c.Condition),
		LastUpdated: c.LastUpdated,
	}
}

// normalizeCondition turns protocol-relative icon URLs into https ones.
func normalizeCondition(cond Condition) Condition {
	icon := strings.TrimSpace(cond.Icon)
	if strings.HasPrefix(icon, "//") {
		icon = "https:" + icon
	}
	cond.Icon = icon
	cond.Text = strings.TrimSpace(cond.Text)
	return cond
}

// SanitizeLang reduces a language tag to its base language ("pt-BR" -> "pt").
// Invalid tags yield "" so the provider falls back to English.
func SanitizeLang(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}
