package geo

import "math"

// Anchor turns a stream of fixes into offsets relative to the first fix it saw.
//
// Offsets are only comparable while the same reference is in effect; Reset starts a
// new frame without touching offsets already handed out.
type Anchor struct {
	ref     Fix
	haveRef bool
}

// NewAnchor returns an anchor with no reference.
func NewAnchor() *Anchor {
	return &Anchor{}
}

// Observe consumes a fix. The first fix after construction or Reset becomes the
// reference and no offset is produced (ok == false). Every later fix yields a fresh
// offset from the reference; there is no smoothing or outlier rejection.
func (a *Anchor) Observe(fix Fix) (offset Offset, ok bool) {
	if !a.haveRef {
		a.ref = fix
		a.haveRef = true
		return Offset{}, false
	}
	return OffsetFrom(a.ref, fix), true
}

// Reference returns the fix defining the local origin, if any.
func (a *Anchor) Reference() (Fix, bool) {
	return a.ref, a.haveRef
}

// HasReference reports whether a reference fix is in effect.
func (a *Anchor) HasReference() bool {
	return a.haveRef
}

// Reset drops the reference; the next Observe establishes a new one.
func (a *Anchor) Reset() {
	a.ref = Fix{}
	a.haveRef = false
}

// OffsetFrom projects fix into the tangent frame anchored at ref.
//
// The bearing β (clockwise from north) is turned into the planar angle θ = π/2 − β
// (counter-clockwise from east) so x = d·cos θ lands on east and y = d·sin θ on north.
// Using β directly as the angle would put north on x: a fix 100 m due north must
// come out as (0, 100), not (100, 0).
func OffsetFrom(ref, fix Fix) Offset {
	d := Distance(ref, fix)
	theta := math.Pi/2 - InitialBearing(ref, fix)
	return Offset{
		X: float32(d * math.Cos(theta)),
		Y: float32(d * math.Sin(theta)),
		Z: float32(fix.Altitude - ref.Altitude),
	}
}
