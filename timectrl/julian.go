package timectrl

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// JDSecond is one second expressed in Julian days. It is also the time rate
	// that corresponds to real-time speed.
	JDSecond = 1.0 / 86400.0
	// JDMinute is one minute expressed in Julian days.
	JDMinute = 1.0 / 1440.0
	// JDHour is one hour expressed in Julian days.
	JDHour = 1.0 / 24.0

	// J2000 is the Julian day of the J2000.0 epoch.
	J2000 = 2451545.0

	// MinJulianDay and MaxJulianDay bound the supported simulated dates
	// (roughly the years -100000 and +100000).
	MinJulianDay = -34803211.500012
	MaxJulianDay = 38245309.499988

	unixEpochJD = 2440587.5
)

// JulianDayFromTime converts an instant to its (UTC) Julian day.
func JulianDayFromTime(t time.Time) float64 {
	sec := t.Unix()
	nsec := t.Nanosecond()
	return unixEpochJD + (float64(sec)+float64(nsec)/1e9)/86400.0
}

// TimeFromJulianDay converts a Julian day back to a UTC instant.
func TimeFromJulianDay(jd float64) time.Time {
	total := (jd - unixEpochJD) * 86400.0
	sec, frac := math.Modf(total)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// WallJulianDay returns the Julian day of t's calendar date and clock reading
// taken as if they were UTC. Subtracting the zone's GMT shift yields the true
// Julian day.
func WallJulianDay(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return JulianDayFromTime(wall)
}

// GMTShift returns the offset, in hours, of loc from UTC at the instant jd.
func GMTShift(jd float64, loc *time.Location) float64 {
	if loc == nil {
		loc = time.Local
	}
	_, offset := TimeFromJulianDay(jd).In(loc).Zone()
	return float64(offset) / 3600.0
}

// ClampJulianDay limits jd to the supported range.
func ClampJulianDay(jd float64) float64 {
	if jd > MaxJulianDay {
		return MaxJulianDay
	}
	if jd < MinJulianDay {
		return MinJulianDay
	}
	return jd
}

// TimeOfDay is a local wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// InvalidTimeOfDay is returned by ParseTimeOfDay when parsing fails.
var InvalidTimeOfDay = TimeOfDay{Hour: -1, Minute: -1, Second: -1}

// ErrInvalidTimeOfDay indicates a malformed or out-of-range time of day.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// Valid reports whether every component is within its range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 &&
		t.Minute >= 0 && t.Minute < 60 &&
		t.Second >= 0 && t.Second < 60
}

// String formats the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return InvalidTimeOfDay, fmt.Errorf("parse time of day %q: %w: want HH:MM or HH:MM:SS", s, ErrInvalidTimeOfDay)
	}
	vals := [3]int{}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return InvalidTimeOfDay, fmt.Errorf("parse time of day %q: %w: %v", s, ErrInvalidTimeOfDay, err)
		}
		vals[i] = v
	}
	tod := TimeOfDay{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if !tod.Valid() {
		return InvalidTimeOfDay, fmt.Errorf("parse time of day %q: %w: out of range", s, ErrInvalidTimeOfDay)
	}
	return tod, nil
}

// presetLayouts are the date formats accepted for a preset sky time, tried in
// order. Values are read as wall-clock readings without a zone.
var presetLayouts = []string{
	time.ANSIC,
	"Mon Jan 2 15:04:05 2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsePresetSkyTime accepts either a floating Julian day or a date/time
// string. The numeric form takes precedence. Date strings are read as local
// wall-clock readings and returned as a wall Julian day (see WallJulianDay).
// An RFC 3339 string names an instant; it is returned as the local wall
// reading of that instant.
func ParsePresetSkyTime(s string) (float64, error) {
	return ParsePresetSkyTimeIn(s, time.Local)
}

// ParsePresetSkyTimeIn is ParsePresetSkyTime with loc as the local zone.
func ParsePresetSkyTimeIn(s string, loc *time.Location) (float64, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if jd, err := strconv.ParseFloat(s, 64); err == nil {
		return jd, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return WallJulianDay(t.In(loc)), nil
	}
	for _, layout := range presetLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return JulianDayFromTime(t), nil
		}
	}
	return 0, fmt.Errorf("parse preset sky time %q: not a Julian day or recognised date", s)
}
