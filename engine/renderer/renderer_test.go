package renderer

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/bodardr/reflections/engine/camera"
)

type fakeBackend struct {
	surfaceWidth  int
	surfaceHeight int
	presentCalls  int

	targetRenders  []renderRecord
	surfaceRenders []renderRecord

	targetErr error

	// onRenderToTarget runs inside RenderToTarget when set, before the error
	// check, so tests can exercise re-entrancy.
	onRenderToTarget func()
}

type renderRecord struct {
	target    *ColorTarget
	cam       camera.Camera
	drawables []Drawable
	state     RenderState
}

func (f *fakeBackend) ConfigureSurface(width, height int) {
	f.surfaceWidth = width
	f.surfaceHeight = height
}

func (f *fakeBackend) SetPresentMode(mode PresentMode) {}

func (f *fakeBackend) CreateColorTarget(width, height int) (*ColorTarget, error) {
	return &ColorTarget{Width: width, Height: height, MipLevelCount: mipLevelCountFor(width, height)}, nil
}

func (f *fakeBackend) RenderToTarget(target *ColorTarget, cam camera.Camera, drawables []Drawable, state RenderState) error {
	if f.onRenderToTarget != nil {
		f.onRenderToTarget()
	}
	if f.targetErr != nil {
		return f.targetErr
	}
	f.targetRenders = append(f.targetRenders, renderRecord{target: target, cam: cam, drawables: drawables, state: state})
	return nil
}

func (f *fakeBackend) RenderToSurface(cam camera.Camera, drawables []Drawable, state RenderState) error {
	f.surfaceRenders = append(f.surfaceRenders, renderRecord{cam: cam, drawables: drawables, state: state})
	return nil
}

func (f *fakeBackend) Present() {
	f.presentCalls++
}

func (f *fakeBackend) ReadTargetPixels(target *ColorTarget) ([]byte, error) {
	return make([]byte, target.Width*target.Height*targetBytesPerPixel), nil
}

func (f *fakeBackend) Device() *wgpu.Device { return nil }
func (f *fakeBackend) Queue() *wgpu.Queue   { return nil }

type fakeDrawable struct {
	layerMask uint32
	prepared  int
	encoded   int
}

func (d *fakeDrawable) LayerMask() uint32 { return d.layerMask }

func (d *fakeDrawable) Prepare(cam camera.Camera, state RenderState, pass PassInfo) { d.prepared++ }

func (d *fakeDrawable) Encode(encoder *wgpu.RenderPassEncoder, state RenderState, pass PassInfo) {
	d.encoded++
}

func newTestRenderer(t *testing.T, backend RendererBackend) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeWGPU, nil, WithBackend(backend), WithCaptureWorkers(0))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func TestRendererStateDefaults(t *testing.T) {
	assert := assert.New(t)
	r := newTestRenderer(t, &fakeBackend{})

	assert.True(r.FogEnabled())
	assert.InDelta(1.0, r.LODBias(), 1e-6)
	assert.Equal(0, r.MaximumLODLevel())
	assert.False(r.InvertCulling())
	assert.InDelta(1.0, r.RenderScale(), 1e-6)
}

func TestRendererSnapshotRestore(t *testing.T) {
	assert := assert.New(t)
	r := newTestRenderer(t, &fakeBackend{})

	snap := r.Snapshot()

	r.SetFogEnabled(false)
	r.SetLODBias(0.25)
	r.SetMaximumLODLevel(3)
	r.SetInvertCulling(true)
	r.SetRenderScale(0.5)

	assert.False(r.FogEnabled())
	assert.InDelta(0.25, r.LODBias(), 1e-6)
	assert.Equal(3, r.MaximumLODLevel())
	assert.True(r.InvertCulling())
	assert.InDelta(0.5, r.RenderScale(), 1e-6)

	r.Restore(snap)

	assert.True(r.FogEnabled())
	assert.InDelta(1.0, r.LODBias(), 1e-6)
	assert.Equal(0, r.MaximumLODLevel())
	assert.False(r.InvertCulling())
	assert.InDelta(1.0, r.RenderScale(), 1e-6)
}

func TestRendererRenderScaleRejectsNonPositive(t *testing.T) {
	assert := assert.New(t)
	r := newTestRenderer(t, &fakeBackend{})

	r.SetRenderScale(-2)
	assert.InDelta(1.0, r.RenderScale(), 1e-6)

	r.SetRenderScale(0.25)
	assert.InDelta(0.25, r.RenderScale(), 1e-6)
}

func TestRendererSkipsDisabledCameras(t *testing.T) {
	assert := assert.New(t)
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	enabled := camera.NewCamera()
	disabled := camera.NewCamera(camera.WithEnabled(false))
	r.RegisterCamera(enabled)
	r.RegisterCamera(disabled)

	assert.NoError(r.RenderFrame())
	assert.Len(backend.surfaceRenders, 1)
	assert.Equal(enabled, backend.surfaceRenders[0].cam)
	assert.Equal(1, backend.presentCalls)
}

func TestRendererCullingMaskFiltersDrawables(t *testing.T) {
	assert := assert.New(t)
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	cam := camera.NewCamera(camera.WithCullingMask(0x1))
	r.RegisterCamera(cam)

	visible := &fakeDrawable{layerMask: 0x1}
	hidden := &fakeDrawable{layerMask: 0x2}
	r.RegisterDrawable(visible)
	r.RegisterDrawable(hidden)

	assert.NoError(r.RenderFrame())
	assert.Len(backend.surfaceRenders, 1)
	assert.Len(backend.surfaceRenders[0].drawables, 1)
	assert.Equal(Drawable(visible), backend.surfaceRenders[0].drawables[0])
}

func TestRendererSubscriberDispatch(t *testing.T) {
	assert := assert.New(t)
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	cam := camera.NewCamera()
	r.RegisterCamera(cam)

	var order []int
	first := r.SubscribeBeforeCameraRender(func(c camera.Camera) {
		order = append(order, 1)
		assert.Equal(cam, c)
	})
	r.SubscribeBeforeCameraRender(func(c camera.Camera) {
		order = append(order, 2)
	})

	assert.NoError(r.RenderFrame())
	assert.Equal([]int{1, 2}, order)

	r.UnsubscribeBeforeCameraRender(first)
	order = nil
	assert.NoError(r.RenderFrame())
	assert.Equal([]int{2}, order)

	// Unknown ids are ignored.
	r.UnsubscribeBeforeCameraRender(9999)
}

func TestRendererRenderCameraToTarget(t *testing.T) {
	assert := assert.New(t)
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	cam := camera.NewCamera()
	d := &fakeDrawable{layerMask: camera.DefaultCullingMask}
	r.RegisterDrawable(d)

	target, err := r.CreateColorTarget(256, 128)
	assert.NoError(err)
	assert.Equal(256, target.Width)

	assert.NoError(r.RenderCameraToTarget(cam, target))
	assert.Len(backend.targetRenders, 1)
	assert.Equal(target, backend.targetRenders[0].target)
}

func TestRendererRenderCameraToTargetNil(t *testing.T) {
	assert := assert.New(t)
	r := newTestRenderer(t, &fakeBackend{})

	assert.Error(r.RenderCameraToTarget(camera.NewCamera(), nil))
}

func TestRendererRenderCameraToTargetPropagatesError(t *testing.T) {
	assert := assert.New(t)
	backend := &fakeBackend{targetErr: errors.New("device lost")}
	r := newTestRenderer(t, backend)

	target, _ := r.CreateColorTarget(64, 64)
	err := r.RenderCameraToTarget(camera.NewCamera(), target)
	assert.ErrorContains(err, "device lost")
}

func TestRendererRenderCameraToTargetRejectsReentry(t *testing.T) {
	assert := assert.New(t)
	backend := &fakeBackend{}
	r := newTestRenderer(t, backend)

	cam := camera.NewCamera()
	target, _ := r.CreateColorTarget(64, 64)

	var nestedErr error
	backend.onRenderToTarget = func() {
		inner := backend.onRenderToTarget
		backend.onRenderToTarget = nil
		defer func() { backend.onRenderToTarget = inner }()
		nestedErr = r.RenderCameraToTarget(cam, target)
	}

	assert.NoError(r.RenderCameraToTarget(cam, target))
	assert.ErrorContains(nestedErr, "already in progress")

	// The guard clears after the outer render returns.
	backend.onRenderToTarget = nil
	assert.NoError(r.RenderCameraToTarget(cam, target))
}

func TestRendererGlobalTextures(t *testing.T) {
	assert := assert.New(t)
	r := newTestRenderer(t, &fakeBackend{})

	assert.Nil(r.GlobalTexture("ReflectionTexture"))

	view := &wgpu.TextureView{}
	r.SetGlobalTexture("ReflectionTexture", view)
	assert.Equal(view, r.GlobalTexture("ReflectionTexture"))

	r.SetGlobalTexture("ReflectionTexture", nil)
	assert.Nil(r.GlobalTexture("ReflectionTexture"))
}

func TestRendererCaptureDisabled(t *testing.T) {
	assert := assert.New(t)
	r := newTestRenderer(t, &fakeBackend{})

	target, _ := r.CreateColorTarget(32, 32)
	assert.ErrorContains(r.CaptureTarget(target, "/tmp/out.webp"), "capture pool disabled")
}

func TestMipLevelCountFor(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1, mipLevelCountFor(1, 1))
	assert.Equal(9, mipLevelCountFor(256, 256))
	assert.Equal(10, mipLevelCountFor(512, 256))
	assert.Equal(11, mipLevelCountFor(1920, 1080))
}

func TestHalfToFloat(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(0.0, halfToFloat(0x0000), 1e-9)
	assert.InDelta(1.0, halfToFloat(0x3C00), 1e-6)
	assert.InDelta(0.5, halfToFloat(0x3800), 1e-6)
	assert.InDelta(-2.0, halfToFloat(0xC000), 1e-6)
	assert.InDelta(65504.0, halfToFloat(0x7BFF), 1.0)
	// Smallest positive subnormal.
	assert.InDelta(5.9604645e-8, halfToFloat(0x0001), 1e-12)
}

func TestToneMapChannel(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint8(0), toneMapChannel(-1))
	assert.Equal(uint8(0), toneMapChannel(0))
	assert.Equal(uint8(255), toneMapChannel(1))
	assert.Equal(uint8(255), toneMapChannel(10))
	mid := toneMapChannel(0.5)
	assert.Greater(mid, uint8(127))
	assert.Less(mid, uint8(255))
}
