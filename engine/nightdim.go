package engine

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// NightDimmer caps effective brightness between sunset and sunrise at
// the configured location. The cap multiplies the operator-set
// brightness per frame; the stored parameter itself is never touched,
// so daylight restores the operator's value.
type NightDimmer struct {
	lat, lon float64
	nightCap float64
}

func NewNightDimmer(lat, lon, nightCap float64) *NightDimmer {
	return &NightDimmer{lat: lat, lon: lon, nightCap: nightCap}
}

// Factor returns the brightness multiplier in effect at the given time.
func (d *NightDimmer) Factor(now time.Time) float64 {
	rise, set := sunrise.SunriseSunset(d.lat, d.lon, now.Year(), now.Month(), now.Day())
	if now.Before(rise) || now.After(set) {
		return d.nightCap
	}
	return 1.0
}
