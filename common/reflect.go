package common

import "math"

// obliqueEpsilon is the minimum magnitude of the camera-space clip plane's
// z-component before the oblique projection adjustment is considered
// numerically unstable and skipped.
const obliqueEpsilon = 1e-5

// ReflectionMatrix builds the 4x4 Householder reflection matrix for a plane:
// the linear part is I - 2*n*nᵗ and the translation column is -2*d*n, so the
// matrix maps any point or direction to its mirror image across the plane.
// Points on the plane are fixed points; applying the matrix twice is the
// identity.
//
// The plane's normal must already be unit length — this function validates but
// does not re-normalize. Callers normalize upstream via Plane.Normalize.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements, column-major)
//   - p: the mirror plane with unit normal
//
// Returns:
//   - error: ErrDegeneratePlane if the normal is not unit length
func ReflectionMatrix(out []float32, p Plane) error {
	if !p.IsUnit() {
		return ErrDegeneratePlane
	}
	nx, ny, nz, d := p.Normal[0], p.Normal[1], p.Normal[2], p.Distance

	out[0] = 1 - 2*nx*nx
	out[1] = -2 * ny * nx
	out[2] = -2 * nz * nx
	out[3] = 0

	out[4] = -2 * nx * ny
	out[5] = 1 - 2*ny*ny
	out[6] = -2 * nz * ny
	out[7] = 0

	out[8] = -2 * nx * nz
	out[9] = -2 * ny * nz
	out[10] = 1 - 2*nz*nz
	out[11] = 0

	out[12] = -2 * d * nx
	out[13] = -2 * d * ny
	out[14] = -2 * d * nz
	out[15] = 1

	return nil
}

// ReflectPoint mirrors a world-space point across the plane.
//
// Parameters:
//   - p: the mirror plane with unit normal
//   - x, y, z: the point to mirror
//
// Returns:
//   - rx, ry, rz: the mirrored point
func ReflectPoint(p Plane, x, y, z float32) (rx, ry, rz float32) {
	d := p.SignedDistance(x, y, z)
	return x - 2*d*p.Normal[0], y - 2*d*p.Normal[1], z - 2*d*p.Normal[2]
}

// ReflectVector mirrors a direction vector across the plane's orientation.
// The plane's distance term does not participate; only the normal matters.
//
// Parameters:
//   - p: the mirror plane with unit normal
//   - x, y, z: the direction to mirror
//
// Returns:
//   - rx, ry, rz: the mirrored direction
func ReflectVector(p Plane, x, y, z float32) (rx, ry, rz float32) {
	d := p.Normal[0]*x + p.Normal[1]*y + p.Normal[2]*z
	return x - 2*d*p.Normal[0], y - 2*d*p.Normal[1], z - 2*d*p.Normal[2]
}

// ViewSpaceClipPlane transforms a world-space plane (given as point + normal)
// into the clip plane of a camera's view space, as the 4-component form
// (nx, ny, nz, w) with w = -dot(point, normal) in view space. The sign flips
// the plane orientation so the clipped half-space faces away from the camera.
//
// Parameters:
//   - view: the camera's world-to-view matrix (16 elements, column-major)
//   - px, py, pz: a point on the plane in world space
//   - nx, ny, nz: the plane's world-space unit normal
//   - sign: +1 or -1 to orient the clip half-space
//
// Returns:
//   - [4]float32: the view-space clip plane
func ViewSpaceClipPlane(view []float32, px, py, pz, nx, ny, nz, sign float32) [4]float32 {
	cp := MulVec4(view, [4]float32{px, py, pz, 1})

	// Directions transform by the upper-left 3x3. View matrices here are
	// products of rotations, reflections, and translations, so the 3x3 is
	// orthogonal and no inverse-transpose is needed.
	cnx := view[0]*nx + view[4]*ny + view[8]*nz
	cny := view[1]*nx + view[5]*ny + view[9]*nz
	cnz := view[2]*nx + view[6]*ny + view[10]*nz

	lenSq := float64(cnx*cnx + cny*cny + cnz*cnz)
	if lenSq > 0 {
		inv := sign / float32(math.Sqrt(lenSq))
		cnx *= inv
		cny *= inv
		cnz *= inv
	}

	return [4]float32{cnx, cny, cnz, -(cp[0]*cnx + cp[1]*cny + cp[2]*cnz)}
}

// ObliqueProjection rewrites a projection matrix's near-plane row so the
// frustum's near clip coincides with an arbitrary view-space plane instead of
// the perpendicular near distance (Lengyel's oblique near-plane clipping,
// adapted for the [0, 1] depth range). Geometry behind the clip plane is
// discarded by the GPU without any change to culling or scene traversal.
//
// When the clip plane is nearly edge-on to the view direction the adjustment
// degenerates; in that case out receives the unmodified projection and the
// function returns false.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements, column-major)
//   - proj: the base projection matrix (16 elements, column-major)
//   - clip: the view-space clip plane from ViewSpaceClipPlane
//
// Returns:
//   - bool: true if the oblique adjustment was applied, false on fallback
func ObliqueProjection(out, proj []float32, clip [4]float32) bool {
	copy(out[:16], proj[:16])

	if float32(math.Abs(float64(clip[2]))) < obliqueEpsilon {
		return false
	}

	var inv [16]float32
	if !Invert4(inv[:], proj) {
		return false
	}

	// Corner of the frustum furthest opposite the clip plane, pulled back
	// into view space through the inverse projection.
	q := MulVec4(inv[:], [4]float32{sign(clip[0]), sign(clip[1]), 1, 1})

	dot := clip[0]*q[0] + clip[1]*q[1] + clip[2]*q[2] + clip[3]*q[3]
	if float32(math.Abs(float64(dot))) < obliqueEpsilon {
		return false
	}

	// Replace the third row so z_clip = 0 exactly on the clip plane.
	a := 1 / dot
	out[2] = clip[0] * a
	out[6] = clip[1] * a
	out[10] = clip[2] * a
	out[14] = clip[3] * a

	if HasNonFinite(out[:16]) {
		copy(out[:16], proj[:16])
		return false
	}
	return true
}

// FlipHandedness writes the scale(1, -1, 1) matrix used to invert handedness
// before composing with a reflection matrix (a mirror flips winding; negating
// the view's y-axis flips it back).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
func FlipHandedness(out []float32) {
	Identity(out)
	out[5] = -1
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
