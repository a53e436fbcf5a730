package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaneFromPointNormal(t *testing.T) {
	assert := assert.New(t)

	p, err := PlaneFromPointNormal(0, 5, 0, 0, 2, 0)
	require.NoError(t, err)

	assert.InDelta(1.0, float64(p.Normal[1]), 1e-6) // normalized
	assert.InDelta(-5.0, float64(p.Distance), 1e-6)
	assert.InDelta(0.0, float64(p.SignedDistance(3, 5, -7)), 1e-6)
	assert.InDelta(2.0, float64(p.SignedDistance(0, 7, 0)), 1e-6)
}

func TestPlaneDegenerateNormal(t *testing.T) {
	_, err := PlaneFromPointNormal(1, 2, 3, 0, 0, 0)
	assert.ErrorIs(t, err, ErrDegeneratePlane)

	p := Plane{}
	assert.ErrorIs(t, p.Normalize(), ErrDegeneratePlane)
}

func TestPlanePointOn(t *testing.T) {
	assert := assert.New(t)

	p, err := PlaneFromPointNormal(2, -3, 1, 1, 1, 1)
	require.NoError(t, err)

	x, y, z := p.PointOn()
	assert.InDelta(0.0, float64(p.SignedDistance(x, y, z)), 1e-5)
}

func TestPlaneOffset(t *testing.T) {
	assert := assert.New(t)

	p, err := PlaneFromPointNormal(0, 0, 0, 0, 1, 0)
	require.NoError(t, err)

	shifted := p.Offset(0.5)
	assert.InDelta(0.0, float64(shifted.SignedDistance(0, 0.5, 0)), 1e-6)
	// Original plane is untouched.
	assert.InDelta(0.0, float64(p.SignedDistance(0, 0, 0)), 1e-6)
}

func TestPlaneIsUnit(t *testing.T) {
	assert := assert.New(t)

	assert.True(Plane{Normal: [3]float32{0, 0, 1}}.IsUnit())
	assert.False(Plane{Normal: [3]float32{0, 0, 2}}.IsUnit())
	assert.False(Plane{}.IsUnit())
}
