package common

import (
	"errors"
	"math"
)

// ErrDegeneratePlane is returned when a plane's normal is zero-length (or close
// enough that normalizing it would amplify noise into garbage geometry).
var ErrDegeneratePlane = errors.New("invalid geometry: degenerate plane normal")

// unitTolerance is the allowed deviation from unit length for plane normals
// passed to the reflection math. Callers are expected to normalize upstream;
// this tolerance only absorbs float32 rounding, not un-normalized input.
const unitTolerance = 1e-3

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the signed distance term. All points p
// on the plane satisfy dot(Normal, p) + Distance = 0.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// PlaneFromPointNormal builds a plane passing through the given point with the
// given normal. The normal is normalized; a zero normal is an error.
//
// Parameters:
//   - px, py, pz: a point on the plane in world space
//   - nx, ny, nz: the plane normal (any non-zero length)
//
// Returns:
//   - Plane: the normalized plane
//   - error: ErrDegeneratePlane if the normal is zero-length
func PlaneFromPointNormal(px, py, pz, nx, ny, nz float32) (Plane, error) {
	p := Plane{Normal: [3]float32{nx, ny, nz}}
	if err := p.Normalize(); err != nil {
		return Plane{}, err
	}
	p.Distance = -(p.Normal[0]*px + p.Normal[1]*py + p.Normal[2]*pz)
	return p, nil
}

// Normalize scales the plane equation so the normal has unit length.
// The distance term is scaled by the same factor, preserving the plane.
//
// Returns:
//   - error: ErrDegeneratePlane if the normal is zero-length
func (p *Plane) Normalize() error {
	lenSq := float64(p.Normal[0]*p.Normal[0] + p.Normal[1]*p.Normal[1] + p.Normal[2]*p.Normal[2])
	if lenSq < 1e-12 {
		return ErrDegeneratePlane
	}
	inv := float32(1.0 / math.Sqrt(lenSq))
	p.Normal[0] *= inv
	p.Normal[1] *= inv
	p.Normal[2] *= inv
	p.Distance *= inv
	return nil
}

// IsUnit reports whether the plane's normal is unit length within tolerance.
//
// Returns:
//   - bool: true if |Normal| ≈ 1
func (p Plane) IsUnit() bool {
	lenSq := float64(p.Normal[0]*p.Normal[0] + p.Normal[1]*p.Normal[1] + p.Normal[2]*p.Normal[2])
	return math.Abs(math.Sqrt(lenSq)-1.0) <= unitTolerance
}

// SignedDistance returns the signed distance from a point to the plane.
// Positive values lie on the side the normal points toward.
//
// Parameters:
//   - x, y, z: the point in world space
//
// Returns:
//   - float32: dot(Normal, point) + Distance
func (p Plane) SignedDistance(x, y, z float32) float32 {
	return p.Normal[0]*x + p.Normal[1]*y + p.Normal[2]*z + p.Distance
}

// PointOn returns a point lying exactly on the plane (the projection of the
// origin onto the plane).
//
// Returns:
//   - x, y, z: a point satisfying the plane equation
func (p Plane) PointOn() (x, y, z float32) {
	return -p.Distance * p.Normal[0], -p.Distance * p.Normal[1], -p.Distance * p.Normal[2]
}

// Offset returns a copy of the plane shifted along its normal by the given
// world-unit bias. Positive bias moves the plane toward the normal direction.
//
// Parameters:
//   - bias: shift distance in world units
//
// Returns:
//   - Plane: the shifted plane
func (p Plane) Offset(bias float32) Plane {
	return Plane{Normal: p.Normal, Distance: p.Distance - bias}
}
