package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AUKm is one astronomical unit in kilometres.
const AUKm = 149597870.691

// epsilon below which a direction is treated as degenerate.
const epsilon = 1e-12

// SphericalToRect converts a longitude/latitude pair in radians to a unit
// vector. Longitude is measured from +x toward +y, latitude toward +z.
func SphericalToRect(lon, lat float64) mgl64.Vec3 {
	cosLat := math.Cos(lat)
	return mgl64.Vec3{
		math.Cos(lon) * cosLat,
		math.Sin(lon) * cosLat,
		math.Sin(lat),
	}
}

// RectToSpherical is the inverse of SphericalToRect. The vector need not be
// normalised; a zero vector yields (0, 0).
func RectToSpherical(v mgl64.Vec3) (lon, lat float64) {
	r := v.Len()
	if r < epsilon {
		return 0, 0
	}
	return math.Atan2(v[1], v[0]), math.Asin(clamp(v[2]/r, -1, 1))
}

// AltAzFromVector returns the altitude and azimuth, in degrees, of a
// direction in the alt-azimuthal frame (x toward South, y toward East, z
// toward the zenith). Azimuth is counted from North through East in [0, 360).
func AltAzFromVector(v mgl64.Vec3) (altDeg, azDeg float64) {
	lon, lat := RectToSpherical(v)
	az := 180 - mgl64.RadToDeg(lon)
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	return mgl64.RadToDeg(lat), az
}

// VectorFromAltAz is the inverse of AltAzFromVector.
func VectorFromAltAz(altDeg, azDeg float64) mgl64.Vec3 {
	return SphericalToRect(mgl64.DegToRad(180-azDeg), mgl64.DegToRad(altDeg))
}

// safeNormalize returns v scaled to unit length, or the zero vector when v is
// too short to carry a direction.
func safeNormalize(v mgl64.Vec3) (mgl64.Vec3, bool) {
	l := v.Len()
	if l < epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}, false
	}
	return v.Mul(1 / l), true
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// translation returns the translation column of an affine matrix.
func translation(m mgl64.Mat4) mgl64.Vec3 {
	return mgl64.Vec3{m[12], m[13], m[14]}
}
