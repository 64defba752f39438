package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/settings"
)

// MountMode selects which frame the view is stabilised in.
type MountMode int

const (
	// MountAltAzimuthal keeps the horizon level.
	MountAltAzimuthal MountMode = iota
	// MountEquatorial keeps the celestial pole up.
	MountEquatorial
)

// ParseMountMode maps the persisted viewing mode ("horizon" or "equator") to
// a MountMode.
func ParseMountMode(s string) (MountMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case settings.ViewingModeHorizon:
		return MountAltAzimuthal, nil
	case settings.ViewingModeEquator:
		return MountEquatorial, nil
	default:
		return 0, fmt.Errorf("viewing mode %q: %w", s, settings.ErrUnknownViewingMode)
	}
}

// ViewingMode returns the persisted spelling of m.
func (m MountMode) ViewingMode() string {
	if m == MountEquatorial {
		return settings.ViewingModeEquator
	}
	return settings.ViewingModeHorizon
}

func (m MountMode) String() string {
	if m == MountEquatorial {
		return "equatorial"
	}
	return "alt-azimuthal"
}

// VisionDirection is the viewing direction expressed in the three frames the
// navigator keeps in step.
type VisionDirection struct {
	AltAz     mgl64.Vec3
	EquOfDate mgl64.Vec3
	J2000     mgl64.Vec3
}

// buildViewMatrix returns the alt-az-to-view rotation that maps the vision
// direction onto -z, together with the "right" axis it used. The up axis
// points toward the zenith in alt-azimuthal mount and toward the celestial
// pole in equatorial mount. prevRight is used when the direction is parallel
// to that up axis and no right axis can be derived from it.
func buildViewMatrix(dir VisionDirection, mode MountMode, m *TransformMatrices, prevRight mgl64.Vec3) (mgl64.Mat4, mgl64.Vec3) {
	f, ok := safeNormalize(dir.AltAz)
	if !ok {
		f = mgl64.Vec3{1, 0, 0}
	}

	var s mgl64.Vec3
	degenerate := false
	if mode == MountEquatorial {
		fe := dir.EquOfDate
		s = mgl64.Vec3{fe[1], -fe[0], 0}
		if s.Len() < epsilon*math.Max(1, fe.Len()) {
			degenerate = true
		} else {
			s = m.EquOfDateToAltAzDir(s)
		}
	} else {
		s = mgl64.Vec3{f[1], -f[0], 0}
		degenerate = s.Len() < epsilon
	}

	if degenerate {
		s = perpendicularTo(f, prevRight)
	}

	u, ok := safeNormalize(s.Cross(f))
	if !ok {
		s = perpendicularTo(f, mgl64.Vec3{})
		u, _ = safeNormalize(s.Cross(f))
	}
	s, _ = safeNormalize(s)

	view := mgl64.Mat4{
		s[0], u[0], -f[0], 0,
		s[1], u[1], -f[1], 0,
		s[2], u[2], -f[2], 0,
		0, 0, 0, 1,
	}
	return view, s
}

// perpendicularTo projects hint onto the plane perpendicular to the unit
// vector f. When hint is unusable a coordinate axis is projected instead.
func perpendicularTo(f, hint mgl64.Vec3) mgl64.Vec3 {
	candidates := []mgl64.Vec3{hint, {1, 0, 0}, {0, 1, 0}}
	for _, c := range candidates {
		p := c.Sub(f.Mul(c.Dot(f)))
		if n, ok := safeNormalize(p); ok && p.Len() > 1e-6 {
			return n
		}
	}
	return mgl64.Vec3{0, 0, 1}
}
