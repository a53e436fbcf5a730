package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMul4Identity(t *testing.T) {
	assert := assert.New(t)

	var id, m, out [16]float32
	Identity(id[:])
	LookAt(m[:], 1, 2, 3, 0, 0, 0, 0, 1, 0)

	Mul4(out[:], id[:], m[:])
	assert.Equal(m, out)

	Mul4(out[:], m[:], id[:])
	assert.Equal(m, out)
}

func TestMul4Aliasing(t *testing.T) {
	assert := assert.New(t)

	var a, b, want [16]float32
	LookAt(a[:], 0, 5, 10, 0, 0, 0, 0, 1, 0)
	Perspective(b[:], 1.0, 1.5, 0.1, 100)
	Mul4(want[:], a[:], b[:])

	// Output aliasing the left operand must still be correct.
	got := a
	Mul4(got[:], got[:], b[:])
	assert.Equal(want, got)
}

func TestInvert4Roundtrip(t *testing.T) {
	assert := assert.New(t)

	var m, inv, out, id [16]float32
	LookAt(m[:], 3, -1, 7, 0, 2, 0, 0, 1, 0)
	Identity(id[:])

	assert.True(Invert4(inv[:], m[:]))
	Mul4(out[:], m[:], inv[:])
	for i := range out {
		assert.InDelta(id[i], out[i], 1e-5)
	}
}

func TestInvert4Singular(t *testing.T) {
	var m, out [16]float32 // all zeros is singular
	assert.False(t, Invert4(out[:], m[:]))
}

func TestMulVec4(t *testing.T) {
	assert := assert.New(t)

	var m [16]float32
	Identity(m[:])
	m[12], m[13], m[14] = 10, 20, 30 // translation

	got := MulVec4(m[:], [4]float32{1, 2, 3, 1})
	assert.Equal([4]float32{11, 22, 33, 1}, got)

	// Directions (w=0) ignore translation.
	got = MulVec4(m[:], [4]float32{1, 2, 3, 0})
	assert.Equal([4]float32{1, 2, 3, 0}, got)
}

func TestPerspectiveDepthRange(t *testing.T) {
	assert := assert.New(t)

	var proj [16]float32
	Perspective(proj[:], 1.0, 1.0, 0.5, 100)

	// A view-space point on the near plane lands on z_clip/w = 0.
	near := MulVec4(proj[:], [4]float32{0, 0, -0.5, 1})
	assert.InDelta(0, near[2]/near[3], 1e-5)

	// A point on the far plane lands on z_clip/w = 1.
	far := MulVec4(proj[:], [4]float32{0, 0, -100, 1})
	assert.InDelta(1, far[2]/far[3], 1e-4)
}

func TestHasNonFinite(t *testing.T) {
	assert := assert.New(t)

	var m [16]float32
	Identity(m[:])
	assert.False(HasNonFinite(m[:]))

	m[7] = float32(1) / m[3] // +Inf (m[3] is 0)
	assert.True(HasNonFinite(m[:]))
}
