package weather

import (
	"testing"

	"skycast/internal/sky"
)

func TestFillAstronomyFromCoordinates(t *testing.T) {
	report := &Report{
		Location: Location{
			Latitude:  0,
			Longitude: 0,
			TimeZone:  "UTC",
			LocalTime: "2025-03-20 12:00",
		},
		Astronomy: Astronomy{Sunrise: "No sunrise", Sunset: ""},
	}

	FillAstronomy(report)

	rise, err := sky.ParseClockTime(report.Astronomy.Sunrise)
	if err != nil {
		t.Fatalf("sunrise %q: %v", report.Astronomy.Sunrise, err)
	}
	set, err := sky.ParseClockTime(report.Astronomy.Sunset)
	if err != nil {
		t.Fatalf("sunset %q: %v", report.Astronomy.Sunset, err)
	}

	// equator at the equinox: roughly 06:00 to 18:00 UTC
	if m := rise.MinutesOfDay(); m < 5*60+40 || m > 6*60+30 {
		t.Errorf("sunrise %s outside expected range", rise)
	}
	if m := set.MinutesOfDay(); m < 17*60+40 || m > 18*60+30 {
		t.Errorf("sunset %s outside expected range", set)
	}
}

func TestFillAstronomyKeepsProviderValues(t *testing.T) {
	report := &Report{
		Location:  Location{Latitude: 40.4, Longitude: 49.9, TimeZone: "UTC", LocalTime: "2025-03-15 09:00"},
		Astronomy: Astronomy{Sunrise: "06:58 AM", Sunset: "06:52 PM"},
	}
	FillAstronomy(report)
	if report.Astronomy.Sunrise != "06:58 AM" || report.Astronomy.Sunset != "06:52 PM" {
		t.Fatalf("provider values overwritten: %+v", report.Astronomy)
	}

	FillAstronomy(nil)
}
