// Package widget turns a merged weather report into the view model the page
// and the JSON API render: unit-converted cards, a map marker, the sun arc
// and the condition scene.
package widget

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/umahmood/haversine"

	"skycast/internal/sky"
	"skycast/internal/weather"
)

type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

func ParseUnits(value string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(value))) {
	case Metric, "c", "celsius":
		return Metric, nil
	case Imperial, "f", "fahrenheit":
		return Imperial, nil
	default:
		return "", fmt.Errorf("unknown units %q", value)
	}
}

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Context carries the display preferences for one render. Home is optional.
type Context struct {
	Units Units
	Theme sky.Theme
	Home  *Coordinates
}

type View struct {
	Location weather.Location `json:"location"`
	Marker   Marker           `json:"marker"`
	Current  CurrentCard      `json:"current"`
	Forecast []DayCard        `json:"forecast"`
	Sunrise  string           `json:"sunrise"`
	Sunset   string           `json:"sunset"`
	Sun      *sky.SunPosition `json:"sun"`
	Scene    sky.Scene        `json:"scene"`
	Units    Units            `json:"units"`
	Notices  []string         `json:"notices,omitempty"`
	Provider string           `json:"provider"`
}

type Marker struct {
	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lon"`
	Label      string   `json:"label"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type CurrentCard struct {
	Temperature  float64 `json:"temperature"`
	FeelsLike    float64 `json:"feels_like"`
	TempUnit     string  `json:"temp_unit"`
	Condition    string  `json:"condition"`
	Icon         string  `json:"icon"`
	Code         int     `json:"code"`
	Humidity     int     `json:"humidity"`
	Pressure     float64 `json:"pressure"`
	PressureUnit string  `json:"pressure_unit"`
	Wind         float64 `json:"wind"`
	WindUnit     string  `json:"wind_unit"`
	WindDir      string  `json:"wind_dir"`
	IsDay        bool    `json:"is_day"`
}

type DayCard struct {
	Date      string       `json:"date"`
	Average   float64      `json:"average"`
	High      float64      `json:"high"`
	Low       float64      `json:"low"`
	TempUnit  string       `json:"temp_unit"`
	Condition string       `json:"condition"`
	Icon      string       `json:"icon"`
	Code      int          `json:"code"`
	Category  sky.Category `json:"category"`
}

// Render never fails on bad astronomy data: the sun indicator is dropped and
// a notice explains why. Only a missing report is an error.
func Render(report *weather.Report, ctx Context) (*View, error) {
	if report == nil {
		return nil, fmt.Errorf("render: report is nil")
	}
	if ctx.Units == "" {
		ctx.Units = Metric
	}
	if ctx.Theme == "" {
		ctx.Theme = sky.ThemeLight
	}

	view := &View{
		Location: report.Location,
		Marker:   buildMarker(report.Location, ctx.Home),
		Current:  buildCurrent(report.Current, ctx.Units),
		Sunrise:  report.Astronomy.Sunrise,
		Sunset:   report.Astronomy.Sunset,
		Scene:    sky.ResolveScene(report.Current.Condition.Code, report.Current.IsDay, ctx.Theme),
		Units:    ctx.Units,
		Provider: report.Provider,
	}

	for _, day := range report.Forecast {
		view.Forecast = append(view.Forecast, buildDay(day, ctx.Units))
	}

	pos, err := sky.ComputeSunPosition(report.Astronomy.Sunrise, report.Astronomy.Sunset, report.Location.LocalTime)
	if err != nil {
		log.Printf("Sun position unavailable for %s: %v", report.Location.Name, err)
		view.Notices = append(view.Notices, "Sun position unavailable: astronomy data for this location is incomplete")
	} else {
		view.Sun = &pos
	}

	return view, nil
}

func buildMarker(loc weather.Location, home *Coordinates) Marker {
	label := loc.Name
	if loc.Country != "" {
		label = fmt.Sprintf("%s, %s", loc.Name, loc.Country)
	}
	marker := Marker{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Label:     label,
	}
	if home != nil {
		_, km := haversine.Distance(
			haversine.Coord{Lat: home.Latitude, Lon: home.Longitude},
			haversine.Coord{Lat: loc.Latitude, Lon: loc.Longitude},
		)
		rounded := math.Round(km*10) / 10
		marker.DistanceKm = &rounded
	}
	return marker
}

func buildCurrent(cur weather.Current, units Units) CurrentCard {
	card := CurrentCard{
		Condition: cur.Condition.Text,
		Icon:      cur.Condition.Icon,
		Code:      cur.Condition.Code,
		Humidity:  cur.Humidity,
		WindDir:   cur.WindDir,
		IsDay:     cur.IsDay,
	}
	if units == Imperial {
		card.Temperature = cur.TempF
		card.FeelsLike = cur.FeelsLikeF
		card.TempUnit = "°F"
		card.Pressure = cur.PressureIn
		card.PressureUnit = "inHg"
		card.Wind = cur.WindMph
		card.WindUnit = "mph"
		return card
	}
	card.Temperature = cur.TempC
	card.FeelsLike = cur.FeelsLikeC
	card.TempUnit = "°C"
	card.Pressure = cur.PressureMb
	card.PressureUnit = "mb"
	card.Wind = cur.WindKph
	card.WindUnit = "km/h"
	return card
}

func buildDay(day weather.ForecastDay, units Units) DayCard {
	card := DayCard{
		Date:      day.Date,
		Condition: day.Condition.Text,
		Icon:      day.Condition.Icon,
		Code:      day.Condition.Code,
		Category:  sky.ClassifyCondition(day.Condition.Code),
	}
	if units == Imperial {
		card.Average, card.High, card.Low = day.AvgTempF, day.MaxTempF, day.MinTempF
		card.TempUnit = "°F"
		return card
	}
	card.Average, card.High, card.Low = day.AvgTempC, day.MaxTempC, day.MinTempC
	card.TempUnit = "°C"
	return card
}
