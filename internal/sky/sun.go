package sky

import (
	"errors"
	"fmt"
)

const (
	// ArcHeight is the vertical extent of the sun arc in layout units.
	ArcHeight = 160.0

	FullOpacity = 1.0
	DimOpacity  = 0.2
)

var ErrInvalidDaylight = errors.New("invalid daylight window")

// SunPosition places the sun indicator on its arc. YOffset is measured down
// from the top of the arc while the sun is up; at night the indicator rests at
// YOffset 0 on the edge nearest the adjacent daylight boundary.
type SunPosition struct {
	XPercent float64 `json:"x_percent"`
	YOffset  float64 `json:"y_offset"`
	Opacity  float64 `json:"opacity"`
	Daytime  bool    `json:"daytime"`
}

// DaylightWindow holds sunrise and sunset as minutes since midnight.
type DaylightWindow struct {
	Sunrise int `json:"sunrise_minutes"`
	Sunset  int `json:"sunset_minutes"`
}

func NewDaylightWindow(sunrise, sunset ClockTime) (DaylightWindow, error) {
	w := DaylightWindow{Sunrise: sunrise.MinutesOfDay(), Sunset: sunset.MinutesOfDay()}
	if w.Sunset <= w.Sunrise {
		return DaylightWindow{}, fmt.Errorf("%w: sunset %s is not after sunrise %s", ErrInvalidDaylight, sunset, sunrise)
	}
	return w, nil
}

func (w DaylightWindow) Span() int {
	return w.Sunset - w.Sunrise
}

func (w DaylightWindow) Contains(now ClockTime) bool {
	m := now.MinutesOfDay()
	return m >= w.Sunrise && m <= w.Sunset
}

// Position follows a downward parabola peaking halfway between sunrise and
// sunset. Both boundaries count as daytime.
func (w DaylightWindow) Position(now ClockTime) SunPosition {
	m := now.MinutesOfDay()

	if !w.Contains(now) {
		x := 100.0
		if m < w.Sunrise {
			x = 0
		}
		return SunPosition{XPercent: x, YOffset: 0, Opacity: DimOpacity}
	}

	progress := float64(m-w.Sunrise) / float64(w.Span())
	centered := progress - 0.5
	height := -4*centered*centered + 1

	return SunPosition{
		XPercent: progress * 100,
		YOffset:  ArcHeight - height*ArcHeight,
		Opacity:  FullOpacity,
		Daytime:  true,
	}
}

// ComputeSunPosition takes sunrise and sunset as 12-hour clock strings and now
// as a local date-time. All three must share the provider's local frame.
func ComputeSunPosition(sunrise, sunset, now string) (SunPosition, error) {
	rise, err := ParseClockTime(sunrise)
	if err != nil {
		return SunPosition{}, fmt.Errorf("sunrise: %w", err)
	}
	set, err := ParseClockTime(sunset)
	if err != nil {
		return SunPosition{}, fmt.Errorf("sunset: %w", err)
	}
	current, err := ClockFromDateTime(now)
	if err != nil {
		return SunPosition{}, fmt.Errorf("now: %w", err)
	}

	window, err := NewDaylightWindow(rise, set)
	if err != nil {
		return SunPosition{}, err
	}
	return window.Position(current), nil
}
