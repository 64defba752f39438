package core

import "github.com/go-gl/mathgl/mgl64"

// Fixed frame rotations. VSOP87 is the heliocentric ecliptic frame of J2000.
var (
	J2000ToVSOP87 = mgl64.HomogRotate3DX(mgl64.DegToRad(-23.4392803055555556)).
			Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(0.0000275)))
	VSOP87ToJ2000 = J2000ToVSOP87.Transpose()

	J2000ToGalactic = mgl64.Mat4{
		-0.054875539726, 0.494109453312, -0.867666135858, 0,
		-0.873437108010, -0.444829589425, -0.198076386122, 0,
		-0.483834985808, 0.746982251810, 0.455983795705, 0,
		0, 0, 0, 1,
	}
	GalacticToJ2000 = J2000ToGalactic.Transpose()
)

// TransformMatrices are the time- and observer-dependent frame conversions.
// Pure rotations come in transposed pairs; the two heliocentric matrices also
// translate, so their inverse is not a transpose.
type TransformMatrices struct {
	AltAzToEquOfDate mgl64.Mat4
	EquOfDateToAltAz mgl64.Mat4

	EquOfDateToJ2000 mgl64.Mat4
	J2000ToEquOfDate mgl64.Mat4

	J2000ToAltAz mgl64.Mat4

	HelioEclipticToEquOfDate mgl64.Mat4
	AltAzToHelioEcliptic     mgl64.Mat4
	HelioEclipticToAltAz     mgl64.Mat4
}

// frameSource is what the matrices are derived from; *Observer implements it.
type frameSource interface {
	RotAltAzToEquOfDate(jd float64) mgl64.Mat4
	RotEquatorialToEcliptic() mgl64.Mat4
	CenterEclipticPos() mgl64.Vec3
	DistanceFromCenter() float64
}

func deriveTransformMatrices(jd float64, obs frameSource) TransformMatrices {
	var m TransformMatrices

	m.AltAzToEquOfDate = obs.RotAltAzToEquOfDate(jd)
	m.EquOfDateToAltAz = m.AltAzToEquOfDate.Transpose()

	m.EquOfDateToJ2000 = VSOP87ToJ2000.Mul4(obs.RotEquatorialToEcliptic())
	m.J2000ToEquOfDate = m.EquOfDateToJ2000.Transpose()

	m.J2000ToAltAz = m.EquOfDateToAltAz.Mul4(m.J2000ToEquOfDate)

	center := obs.CenterEclipticPos()
	dist := obs.DistanceFromCenter()

	m.HelioEclipticToEquOfDate = m.J2000ToEquOfDate.
		Mul4(VSOP87ToJ2000).
		Mul4(mgl64.Translate3D(-center[0], -center[1], -center[2]))

	rot := J2000ToVSOP87.Mul4(m.EquOfDateToJ2000).Mul4(m.AltAzToEquOfDate)
	m.AltAzToHelioEcliptic = mgl64.Translate3D(center[0], center[1], center[2]).
		Mul4(rot).
		Mul4(mgl64.Translate3D(0, 0, dist))
	m.HelioEclipticToAltAz = mgl64.Translate3D(0, 0, -dist).
		Mul4(rot.Transpose()).
		Mul4(mgl64.Translate3D(-center[0], -center[1], -center[2]))

	return m
}

// AltAzToEquOfDateDir rotates an alt-az direction into the equatorial frame of date.
func (m *TransformMatrices) AltAzToEquOfDateDir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, m.AltAzToEquOfDate)
}

func (m *TransformMatrices) EquOfDateToAltAzDir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, m.EquOfDateToAltAz)
}

func (m *TransformMatrices) EquOfDateToJ2000Dir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, m.EquOfDateToJ2000)
}

func (m *TransformMatrices) J2000ToEquOfDateDir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, m.J2000ToEquOfDate)
}

func (m *TransformMatrices) J2000ToAltAzDir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, m.J2000ToAltAz)
}

// HelioEclipticToAltAzPos maps a heliocentric ecliptic position (AU) into the
// observer-centred alt-az frame.
func (m *TransformMatrices) HelioEclipticToAltAzPos(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, m.HelioEclipticToAltAz)
}

// HelioEclipticToEquOfDatePos maps a heliocentric ecliptic position (AU) into
// the equatorial frame of date centred on the home body.
func (m *TransformMatrices) HelioEclipticToEquOfDatePos(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, m.HelioEclipticToEquOfDate)
}

// J2000ToGalacticDir rotates a J2000 direction into galactic coordinates.
func J2000ToGalacticDir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, J2000ToGalactic)
}

// GalacticToJ2000Dir is the inverse of J2000ToGalacticDir.
func GalacticToJ2000Dir(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, GalacticToJ2000)
}
