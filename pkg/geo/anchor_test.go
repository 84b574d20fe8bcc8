package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorFirstFixEstablishesReference(t *testing.T) {
	a := NewAnchor()
	ref := Fix{Latitude: 34.0, Longitude: -118.0, Altitude: 100}

	_, ok := a.Observe(ref)
	assert.False(t, ok, "first fix must not produce an offset")

	got, have := a.Reference()
	require.True(t, have)
	assert.Equal(t, ref, got)
}

func TestAnchorDueNorth(t *testing.T) {
	a := NewAnchor()
	a.Observe(Fix{Latitude: 34.0, Longitude: -118.0, Altitude: 100})

	off, ok := a.Observe(Fix{Latitude: 34.0009, Longitude: -118.0, Altitude: 105})
	require.True(t, ok)

	assert.InDelta(t, 0, off.X, 0.01)
	assert.InDelta(t, 100, off.Y, 0.5)
	assert.InDelta(t, 5, off.Z, 1e-6)
}

func TestAnchorDueEast(t *testing.T) {
	a := NewAnchor()
	a.Observe(Fix{Latitude: 34.0, Longitude: -118.0, Altitude: 10})

	off, ok := a.Observe(Fix{Latitude: 34.0, Longitude: -117.999, Altitude: 8})
	require.True(t, ok)

	want := 0.001 * math.Pi / 180 * EarthRadiusMeters * math.Cos(34.0*math.Pi/180)
	assert.InDelta(t, want, off.X, 0.05)
	assert.InDelta(t, 0, off.Y, 0.01)
	assert.InDelta(t, -2, off.Z, 1e-6)
}

func TestAnchorSouthWestQuadrant(t *testing.T) {
	a := NewAnchor()
	a.Observe(Fix{Latitude: 10, Longitude: 20})

	off, ok := a.Observe(Fix{Latitude: 9.999, Longitude: 19.999})
	require.True(t, ok)
	assert.Less(t, off.X, float32(0))
	assert.Less(t, off.Y, float32(0))
}

func TestAnchorFixEqualToReferenceIsZero(t *testing.T) {
	a := NewAnchor()
	ref := Fix{Latitude: 51.4779, Longitude: -0.0015, Altitude: 46}
	a.Observe(ref)

	// move away first so the zero below is not an artefact of the previous call
	_, ok := a.Observe(Fix{Latitude: 51.48, Longitude: -0.002, Altitude: 50})
	require.True(t, ok)

	off, ok := a.Observe(ref)
	require.True(t, ok)
	assert.Equal(t, Offset{}, off)
}

func TestAnchorIsDeterministic(t *testing.T) {
	ref := Fix{Latitude: -33.8568, Longitude: 151.2153, Altitude: 5}
	fix := Fix{Latitude: -33.8572, Longitude: 151.2160, Altitude: 9}

	a := NewAnchor()
	a.Observe(ref)
	first, _ := a.Observe(fix)
	second, _ := a.Observe(fix)

	b := NewAnchor()
	b.Observe(ref)
	other, _ := b.Observe(fix)

	assert.Equal(t, first, second)
	assert.Equal(t, first, other)
	assert.Equal(t, OffsetFrom(ref, fix), first)
}

func TestAnchorReset(t *testing.T) {
	a := NewAnchor()
	a.Observe(Fix{Latitude: 1, Longitude: 1})
	a.Reset()

	assert.False(t, a.HasReference())

	next := Fix{Latitude: 2, Longitude: 2, Altitude: 3}
	_, ok := a.Observe(next)
	assert.False(t, ok, "observe after reset re-establishes the reference")

	got, _ := a.Reference()
	assert.Equal(t, next, got)
}

func TestInitialBearing(t *testing.T) {
	origin := Fix{Latitude: 0, Longitude: 0}

	tests := []struct {
		name string
		to   Fix
		want float64
	}{
		{name: "north", to: Fix{Latitude: 1}, want: 0},
		{name: "east", to: Fix{Longitude: 1}, want: math.Pi / 2},
		{name: "south", to: Fix{Latitude: -1}, want: math.Pi},
		{name: "west", to: Fix{Longitude: -1}, want: 3 * math.Pi / 2},
		{name: "same point", to: origin, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, InitialBearing(origin, tt.to), 1e-9)
		})
	}
}

func TestDistanceOneDegreeOfLatitude(t *testing.T) {
	d := Distance(Fix{Latitude: 0}, Fix{Latitude: 1})
	assert.InDelta(t, EarthRadiusMeters*math.Pi/180, d, 1e-6)
	assert.Equal(t, 0.0, Distance(Fix{Latitude: 5, Longitude: 5}, Fix{Latitude: 5, Longitude: 5}))
}
