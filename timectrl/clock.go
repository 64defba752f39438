package timectrl

import (
	"math"
	"time"
)

// WallClock supplies the real-world current instant.
type WallClock func() time.Time

// SimulatedClock holds the simulated Julian day and the rate at which it
// advances per real second. It is not safe for concurrent use; the owner
// serialises access.
type SimulatedClock struct {
	julianDay float64
	rate      float64
	wall      WallClock

	// isRealTime cache
	checked      bool
	lastCheckJD  float64
	lastRealTime bool
}

// NewSimulatedClock returns a clock running at real-time speed, set to the
// current instant reported by wall. A nil wall uses time.Now.
func NewSimulatedClock(wall WallClock) *SimulatedClock {
	if wall == nil {
		wall = time.Now
	}
	c := &SimulatedClock{rate: JDSecond, wall: wall}
	c.SetNow()
	return c
}

// JulianDay returns the current simulated Julian day.
func (c *SimulatedClock) JulianDay() float64 { return c.julianDay }

// Rate returns the time rate in Julian days per real second.
func (c *SimulatedClock) Rate() float64 { return c.rate }

// SetRate sets the time rate. Zero pauses the clock, negative runs backward.
func (c *SimulatedClock) SetRate(rate float64) { c.rate = rate }

// Now returns the real-world current instant.
func (c *SimulatedClock) Now() time.Time { return c.wall() }

// SetJulianDay sets the simulated Julian day, clamped to the supported range.
func (c *SimulatedClock) SetJulianDay(jd float64) {
	c.julianDay = ClampJulianDay(jd)
}

// SetNow sets the simulated time to the real-world current instant.
func (c *SimulatedClock) SetNow() {
	c.SetJulianDay(JulianDayFromTime(c.wall()))
}

// Advance moves simulated time forward by rate*realSeconds.
func (c *SimulatedClock) Advance(realSeconds float64) {
	c.SetJulianDay(c.julianDay + c.rate*realSeconds)
}

// AddDays adds n (possibly negative) days to the simulated time.
func (c *SimulatedClock) AddDays(n float64) {
	c.SetJulianDay(c.julianDay + n)
}

// IncreaseRate scales the rate up by factor. Around zero the rate snaps to
// real-time speed or to a stop so it never gets stuck near zero.
func (c *SimulatedClock) IncreaseRate(factor float64) {
	s := c.rate
	switch {
	case s >= JDSecond:
		s *= factor
	case s < -JDSecond:
		s /= factor
	case s >= 0 && s < JDSecond:
		s = JDSecond
	default: // -JDSecond <= s < 0
		s = 0
	}
	c.rate = s
}

// DecreaseRate is the mirror of IncreaseRate.
func (c *SimulatedClock) DecreaseRate(factor float64) {
	s := c.rate
	switch {
	case s > JDSecond:
		s /= factor
	case s <= -JDSecond:
		s *= factor
	case s > -JDSecond && s <= 0:
		s = -JDSecond
	default: // 0 < s <= JDSecond
		s = 0
	}
	c.rate = s
}

// IsRealTime reports whether the simulated time is within one second of the
// real-world instant. The comparison is cached and only redone once the
// simulated time has moved by more than a quarter second since the last one,
// since reading the system clock every frame is comparatively slow.
func (c *SimulatedClock) IsRealTime() bool {
	if !c.checked || math.Abs(c.lastCheckJD-c.julianDay) > JDSecond/4 {
		c.checked = true
		c.lastCheckJD = c.julianDay
		c.lastRealTime = math.Abs(c.julianDay-JulianDayFromTime(c.wall())) < JDSecond
	}
	return c.lastRealTime
}
