package weather

import (
	"strings"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"skycast/internal/sky"
)

const localTimeLayout = "2006-01-02 15:04"

func missingClock(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "" || strings.HasPrefix(v, "no ")
}

// FillAstronomy computes sunrise and sunset from the location's coordinates
// when the provider left them out. Polar days and nights stay empty.
func FillAstronomy(report *Report) {
	if report == nil {
		return
	}
	astro := &report.Astronomy
	if !missingClock(astro.Sunrise) && !missingClock(astro.Sunset) {
		return
	}

	zone := time.UTC
	if report.Location.TimeZone != "" {
		if loaded, err := time.LoadLocation(report.Location.TimeZone); err == nil {
			zone = loaded
		}
	}

	day := time.Now().In(zone)
	if parsed, err := time.ParseInLocation(localTimeLayout, report.Location.LocalTime, zone); err == nil {
		day = parsed
	}

	rise, set := sunrise.SunriseSunset(
		report.Location.Latitude, report.Location.Longitude,
		day.Year(), day.Month(), day.Day())
	if rise.IsZero() || set.IsZero() {
		return
	}

	if missingClock(astro.Sunrise) {
		astro.Sunrise = sky.FormatClock(rise.In(zone))
	}
	if missingClock(astro.Sunset) {
		astro.Sunset = sky.FormatClock(set.In(zone))
	}
}
