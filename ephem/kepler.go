package ephem

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const julianCentury = 36525.0

// heliocentricPosition returns the body's position in the J2000 ecliptic
// frame, in AU, at Julian day jd.
func (e *orbitalElements) heliocentricPosition(jd float64) mgl64.Vec3 {
	t := (jd - 2451545.0) / julianCentury

	a := e.A + e.ADot*t
	ecc := e.E + e.EDot*t
	inc := mgl64.DegToRad(e.I + e.IDot*t)
	meanLong := e.L + e.LDot*t
	longPeri := e.LongPeri + e.LongPeriDot*t
	node := e.LongNode + e.NodeDot*t

	argPeri := mgl64.DegToRad(longPeri - node)
	meanAnomaly := normalizeDegrees(meanLong - longPeri)
	ea := solveKepler(mgl64.DegToRad(meanAnomaly), ecc)

	xp := a * (math.Cos(ea) - ecc)
	yp := a * math.Sqrt(1-ecc*ecc) * math.Sin(ea)

	om := mgl64.DegToRad(node)
	cw, sw := math.Cos(argPeri), math.Sin(argPeri)
	co, so := math.Cos(om), math.Sin(om)
	ci, si := math.Cos(inc), math.Sin(inc)

	return mgl64.Vec3{
		(cw*co-sw*so*ci)*xp + (-sw*co-cw*so*ci)*yp,
		(cw*so+sw*co*ci)*xp + (-sw*so+cw*co*ci)*yp,
		(sw*si)*xp + (cw*si)*yp,
	}
}

// solveKepler solves M = E - e sin E for the eccentric anomaly E (radians)
// by Newton iteration.
func solveKepler(m, e float64) float64 {
	ea := m + e*math.Sin(m)
	for i := 0; i < 30; i++ {
		delta := (ea - e*math.Sin(ea) - m) / (1 - e*math.Cos(ea))
		ea -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return ea
}

// normalizeDegrees maps an angle to [-180, 180).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
