package camera

import (
	"testing"

	"github.com/bodardr/reflections/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraDefaults(t *testing.T) {
	assert := assert.New(t)

	c := NewCamera()
	assert.True(c.Enabled())
	assert.Equal(DefaultCullingMask, c.CullingMask())
	assert.True(c.RenderShadows())
	assert.Nil(c.RenderTarget())

	id := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	assert.Equal(id, c.ViewMatrix())
}

func TestCameraUpdateFromController(t *testing.T) {
	assert := assert.New(t)

	ctrl := NewLookAtController(0, 5, 0, 0, 0, 0)
	c := NewCamera(
		WithController(ctrl),
		WithUp(0, 0, -1),
		WithPixelSize(1920, 1080),
	)

	px, py, pz := c.Position()
	assert.Equal([3]float32{0, 5, 0}, [3]float32{px, py, pz})

	fx, fy, fz := c.Forward()
	assert.InDelta(0.0, float64(fx), 1e-6)
	assert.InDelta(-1.0, float64(fy), 1e-6)
	assert.InDelta(0.0, float64(fz), 1e-6)

	// The view matrix maps the controller position to the view-space origin.
	view := c.ViewMatrix()
	origin := common.MulVec4(view[:], [4]float32{0, 5, 0, 1})
	assert.InDelta(0.0, float64(origin[0]), 1e-5)
	assert.InDelta(0.0, float64(origin[1]), 1e-5)
	assert.InDelta(0.0, float64(origin[2]), 1e-5)

	// Moving the controller and updating follows.
	ctrl.SetPosition(3, 5, 0)
	c.Update()
	px, _, _ = c.Position()
	assert.InDelta(3.0, float64(px), 1e-6)
}

func TestCameraExplicitMatrixOverride(t *testing.T) {
	assert := assert.New(t)

	ctrl := NewLookAtController(0, 0, 10, 0, 0, 0)
	c := NewCamera(WithController(ctrl))

	var custom [16]float32
	common.LookAt(custom[:], 0, -7, 0, 0, 0, 0, 0, 0, 1)
	c.SetViewMatrix(custom)

	// Update must not clobber the explicit view matrix.
	ctrl.SetPosition(99, 99, 99)
	c.Update()
	assert.Equal(custom, c.ViewMatrix())

	// Clearing the override returns matrix ownership to the controller.
	c.ClearMatrixOverrides()
	assert.NotEqual(custom, c.ViewMatrix())
}

func TestCameraCloneConfig(t *testing.T) {
	assert := assert.New(t)

	src := NewCamera(
		WithFov(1.2),
		WithNear(0.5),
		WithFar(250),
		WithPixelSize(800, 600),
	)

	dup := NewCamera(src.CloneConfig()...)
	assert.Equal(src.Fov(), dup.Fov())
	assert.Equal(src.Near(), dup.Near())
	assert.Equal(src.Far(), dup.Far())
	assert.Equal(src.Aspect(), dup.Aspect())

	w, h := dup.PixelSize()
	assert.Equal(800, w)
	assert.Equal(600, h)

	// Clones do not inherit the enabled flag or target binding.
	assert.True(dup.Enabled())
	assert.Nil(dup.RenderTarget())
}

func TestCameraPixelSizeDrivesAspect(t *testing.T) {
	c := NewCamera()
	c.SetPixelSize(1920, 1080)
	assert.InDelta(t, 1920.0/1080.0, float64(c.Aspect()), 1e-6)
}

func TestGPUCameraUniformMarshal(t *testing.T) {
	assert := assert.New(t)

	ctrl := NewLookAtController(1, 2, 3, 0, 0, 0)
	c := NewCamera(WithController(ctrl))

	u := NewGPUCameraUniform(c)
	require.Equal(t, [3]float32{1, 2, 3}, u.CameraPosition)

	buf := u.Marshal()
	assert.Len(buf, 80)
}
