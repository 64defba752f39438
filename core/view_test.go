package core

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

func TestParseMountMode(t *testing.T) {
	cases := map[string]MountMode{
		"horizon":   MountAltAzimuthal,
		"equator":   MountEquatorial,
		" Equator ": MountEquatorial,
	}
	for in, want := range cases {
		got, err := ParseMountMode(in)
		if err != nil {
			t.Fatalf("ParseMountMode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMountMode(%q) = %v, want %v", in, got, want)
		}
		if again, _ := ParseMountMode(got.ViewingMode()); again != got {
			t.Fatalf("ViewingMode %q does not parse back to %v", got.ViewingMode(), got)
		}
	}
	if _, err := ParseMountMode("galactic"); !errors.Is(err, settings.ErrUnknownViewingMode) {
		t.Fatalf("ParseMountMode(galactic) err = %v", err)
	}
}

func assertOrthonormal(t *testing.T, view mgl64.Mat4) {
	t.Helper()
	for i, v := range view {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("view[%d] = %v", i, v)
		}
	}
	prod := view.Mul4(view.Transpose())
	ident := mgl64.Ident4()
	for i := range prod {
		if math.Abs(prod[i]-ident[i]) > 1e-12 {
			t.Fatalf("view matrix is not orthonormal: %v", prod)
		}
	}
}

func TestViewMatrixVerticalDirectionKeepsPreviousRight(t *testing.T) {
	eph := newFakeEphemeris()
	m := deriveTransformMatrices(timectrl.J2000, NewStaticObserver(paris, eph))

	dir := VisionDirection{AltAz: mgl64.Vec3{1, 0, 0}}
	_, right := buildViewMatrix(dir, MountAltAzimuthal, &m, mgl64.Vec3{})
	if !vecClose(right, mgl64.Vec3{0, -1, 0}, 1e-15) {
		t.Fatalf("right for a southward view = %v, want (0,-1,0)", right)
	}

	up := VisionDirection{AltAz: mgl64.Vec3{0, 0, 1}}
	view, right2 := buildViewMatrix(up, MountAltAzimuthal, &m, right)
	if !vecClose(right2, right, 1e-15) {
		t.Fatalf("right at the zenith = %v, want previous %v", right2, right)
	}
	assertOrthonormal(t, view)
	if got := mgl64.TransformNormal(up.AltAz, view); !vecClose(got, mgl64.Vec3{0, 0, -1}, 1e-12) {
		t.Fatalf("view * zenith = %v, want (0,0,-1)", got)
	}
}

func TestViewMatrixVerticalDirectionWithoutHistory(t *testing.T) {
	eph := newFakeEphemeris()
	m := deriveTransformMatrices(timectrl.J2000, NewStaticObserver(paris, eph))

	for _, f := range []mgl64.Vec3{{0, 0, 1}, {0, 0, -3}} {
		view, right := buildViewMatrix(VisionDirection{AltAz: f}, MountAltAzimuthal, &m, mgl64.Vec3{})
		assertOrthonormal(t, view)
		if math.Abs(right.Len()-1) > 1e-12 {
			t.Fatalf("right = %v, want unit length", right)
		}
	}
}

func TestViewMatrixEquatorialAtCelestialPole(t *testing.T) {
	eph := newFakeEphemeris()
	m := deriveTransformMatrices(timectrl.J2000, NewStaticObserver(paris, eph))

	equ := mgl64.Vec3{0, 0, 1}
	dir := VisionDirection{AltAz: m.EquOfDateToAltAzDir(equ), EquOfDate: equ}
	view, _ := buildViewMatrix(dir, MountEquatorial, &m, mgl64.Vec3{0, 1, 0})
	assertOrthonormal(t, view)

	f := dir.AltAz.Normalize()
	if got := mgl64.TransformNormal(f, view); !vecClose(got, mgl64.Vec3{0, 0, -1}, 1e-12) {
		t.Fatalf("view * pole = %v, want (0,0,-1)", got)
	}
}

func TestNavigatorZenithViewHasNoNaN(t *testing.T) {
	nav, _ := mustNavigator(t)
	nav.SetAltAzVisionDirection(mgl64.Vec3{0, 0, 1})
	assertOrthonormal(t, nav.ViewMatrix())
	nav.AdvanceTime(1)
	assertOrthonormal(t, nav.ViewMatrix())
}
