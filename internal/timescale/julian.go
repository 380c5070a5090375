// Package timescale converts civil dates and clock times into Julian Days.
package timescale

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// J2000 is the Julian Day of the J2000.0 epoch (January 1, 2000, 12:00:00).
const J2000 = 2451545.0

// ErrInvalidInput is returned when a date or clock string does not split into
// the expected number of integer fields.
var ErrInvalidInput = errors.New("invalid date or time format")

// Date is a Gregorian calendar date.
type Date struct {
	Year, Month, Day int
}

// Clock is a local wall-clock time with minute resolution.
type Clock struct {
	Hour, Minute int
}

// ParseDate parses "YYYY-MM-DD". Any field count other than three, or a
// non-integer field, yields ErrInvalidInput.
func ParseDate(s string) (Date, error) {
	f, err := splitInts(s, "-", 3)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return Date{Year: f[0], Month: f[1], Day: f[2]}, nil
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	f, err := splitInts(s, ":", 2)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: time %q", ErrInvalidInput, s)
	}
	return Clock{Hour: f[0], Minute: f[1]}, nil
}

func splitInts(s, sep string, n int) ([]int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, sep)
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d fields, got %d", n, len(parts))
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// UTCHour converts a local clock reading to a fractional UTC hour.
// The result is not normalised: it may be negative or exceed 24.
func UTCHour(c Clock, tzOffsetHours float64) float64 {
	return float64(c.Hour) - tzOffsetHours + float64(c.Minute)/60.0
}

// JulianDay returns the Gregorian-calendar Julian Day for the given date at
// hour UTC. hour is added linearly, so values outside [0, 24) roll across the
// day boundary instead of being rejected.
func JulianDay(year, month, day int, hour float64) float64 {
	y := float64(year)
	m := float64(month)
	d := float64(day)

	// Treat Jan/Feb as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	return jd + hour/24.0
}

// ToJulianDay parses a local date and clock time, shifts it to UTC by
// tzOffsetHours (east positive) and returns the Julian Day.
func ToJulianDay(date, clock string, tzOffsetHours float64) (float64, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	c, err := ParseClock(clock)
	if err != nil {
		return 0, err
	}
	return JulianDay(d.Year, d.Month, d.Day, UTCHour(c, tzOffsetHours)), nil
}

// JulianDate converts a time.Time to a Julian Day (UTC).
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	h := float64(t.Hour()) +
		float64(t.Minute())/60.0 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600.0
	return JulianDay(t.Year(), int(t.Month()), t.Day(), h)
}

// Centuries returns Julian centuries elapsed since J2000.0.
func Centuries(jd float64) float64 {
	return (jd - J2000) / 36525.0
}
