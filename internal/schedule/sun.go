package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nathan-osman/go-sunrise"

	"github.com/wheelibin/lumalite/internal/config"
)

// SunTimes returns the sunrise and sunset on the day of date, in date's location.
// ok is false when no location is known.
type SunTimes func(date time.Time) (sunrise time.Time, sunset time.Time, ok bool)

// SunBounds optionally clamps the calculated times, e.g. to stop a summer sunrise firing at 4am.
// Values are "HH:MM", empty means unbounded.
type SunBounds struct {
	SunriseMin string
	SunriseMax string
	SunsetMin  string
	SunsetMax  string
}

// NewSunTimes calculates sun times for the given coordinates
func NewSunTimes(lat float64, lng float64, bounds SunBounds) SunTimes {
	return func(date time.Time) (time.Time, time.Time, bool) {
		rise, set := sunrise.SunriseSunset(lat, lng, date.Year(), date.Month(), date.Day())
		if rise.IsZero() || set.IsZero() {
			// polar day or night
			return time.Time{}, time.Time{}, false
		}
		rise = clampToDay(rise.In(date.Location()), bounds.SunriseMin, bounds.SunriseMax, date)
		set = clampToDay(set.In(date.Location()), bounds.SunsetMin, bounds.SunsetMax, date)
		return rise, set, true
	}
}

// SunTimesFromConfig uses the configured "geoLocation" ("lat,lng") and optional sun bounds.
// It returns nil when no location is configured.
func SunTimesFromConfig(logger *log.Logger, cfg *config.Config) SunTimes {
	if cfg == nil || cfg.GeoLocation == "" {
		return nil
	}
	lat, lng, err := ParseGeoLocation(cfg.GeoLocation)
	if err != nil {
		logger.Error("Ignoring invalid geoLocation, sun relative schedules are disabled", "err", err)
		return nil
	}

	sun := NewSunTimes(lat, lng, SunBounds{
		SunriseMin: cfg.SunriseMin,
		SunriseMax: cfg.SunriseMax,
		SunsetMin:  cfg.SunsetMin,
		SunsetMax:  cfg.SunsetMax,
	})
	if rise, set, ok := sun(time.Now()); ok {
		logger.Info("Calculated local sunrise and sunset",
			"sunrise", rise.Local().Format("15:04"),
			"sunset", set.Local().Format("15:04"),
		)
	}
	return sun
}

func ParseGeoLocation(geo string) (float64, float64, error) {
	latLng := strings.Split(geo, ",")
	if len(latLng) != 2 {
		return 0, 0, fmt.Errorf("invalid geoLocation %q, expected \"lat,lng\"", geo)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latLng[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in geoLocation %q: %w", geo, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(latLng[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in geoLocation %q: %w", geo, err)
	}
	return lat, lng, nil
}

func clampToDay(t time.Time, minHM string, maxHM string, day time.Time) time.Time {
	if earliest, ok := timeOnDay(minHM, day); ok && t.Before(earliest) {
		t = earliest
	}
	if latest, ok := timeOnDay(maxHM, day); ok && t.After(latest) {
		t = latest
	}
	return t
}
