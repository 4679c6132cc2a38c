package weather

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyCity        = errors.New("city is empty")
	ErrLocationNotFound = errors.New("location not found")
)

type Provider interface {
	Name() string
	Lookup(ctx context.Context, city string) (*Report, error)
}

// APIError is a provider failure that is not a missing location.
type APIError struct {
	Provider string
	Status   int
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error %d (status %d): %s", e.Provider, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s bad status %d: %s", e.Provider, e.Status, e.Message)
}

// Report merges current conditions, forecast and today's astronomy for one
// location. Temperatures are carried in both unit systems.
type Report struct {
	Provider  string        `json:"provider"`
	Location  Location      `json:"location"`
	Current   Current       `json:"current"`
	Forecast  []ForecastDay `json:"forecast"`
	Astronomy Astronomy     `json:"astronomy"`
}

type Location struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	TimeZone  string  `json:"tz_id"`
	LocalTime string  `json:"localtime"`
}

type Condition struct {
	Code int    `json:"code"`
	Text string `json:"text"`
	Icon string `json:"icon"`
}

type Current struct {
	TempC       float64   `json:"temp_c"`
	TempF       float64   `json:"temp_f"`
	FeelsLikeC  float64   `json:"feelslike_c"`
	FeelsLikeF  float64   `json:"feelslike_f"`
	Humidity    int       `json:"humidity"`
	PressureMb  float64   `json:"pressure_mb"`
	PressureIn  float64   `json:"pressure_in"`
	WindKph     float64   `json:"wind_kph"`
	WindMph     float64   `json:"wind_mph"`
	WindDir     string    `json:"wind_dir"`
	IsDay       bool      `json:"is_day"`
	Condition   Condition `json:"condition"`
	LastUpdated string    `json:"last_updated"`
}

type ForecastDay struct {
	Date      string    `json:"date"`
	AvgTempC  float64   `json:"avgtemp_c"`
	AvgTempF  float64   `json:"avgtemp_f"`
	MaxTempC  float64   `json:"maxtemp_c"`
	MaxTempF  float64   `json:"maxtemp_f"`
	MinTempC  float64   `json:"mintemp_c"`
	MinTempF  float64   `json:"mintemp_f"`
	Condition Condition `json:"condition"`
	Astronomy Astronomy `json:"astronomy"`
}

// Astronomy times are 12-hour clock strings ("06:45 AM") in the location's
// local time.
type Astronomy struct {
	Sunrise  string `json:"sunrise"`
	Sunset   string `json:"sunset"`
	Moonrise string `json:"moonrise,omitempty"`
	Moonset  string `json:"moonset,omitempty"`
}
