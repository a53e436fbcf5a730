package reflection

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/bodardr/reflections/common"
	"github.com/bodardr/reflections/engine/camera"
	"github.com/bodardr/reflections/engine/renderer"
)

type hostRender struct {
	cam    camera.Camera
	target *renderer.ColorTarget
	state  renderer.RenderState
}

// fakeHost implements HostPipeline without a GPU. It tracks renderer-wide
// state, created targets, renders, and the global texture table.
type fakeHost struct {
	state renderer.RenderState

	subs   map[int]renderer.BeforeCameraRenderFunc
	nextID int

	createdTargets int
	createErr      error
	renderErr      error

	renders   []hostRender
	published map[string]*wgpu.TextureView

	publishCount int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		state: renderer.RenderState{
			FogEnabled:  true,
			LODBias:     1.0,
			RenderScale: 1.0,
		},
		subs:      make(map[int]renderer.BeforeCameraRenderFunc),
		published: make(map[string]*wgpu.TextureView),
	}
}

func (h *fakeHost) SubscribeBeforeCameraRender(fn renderer.BeforeCameraRenderFunc) int {
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return id
}

func (h *fakeHost) UnsubscribeBeforeCameraRender(id int) {
	delete(h.subs, id)
}

func (h *fakeHost) RenderCameraToTarget(cam camera.Camera, target *renderer.ColorTarget) error {
	if h.renderErr != nil {
		return h.renderErr
	}
	h.renders = append(h.renders, hostRender{cam: cam, target: target, state: h.state})
	return nil
}

func (h *fakeHost) CreateColorTarget(width, height int) (*renderer.ColorTarget, error) {
	if h.createErr != nil {
		return nil, h.createErr
	}
	h.createdTargets++
	return &renderer.ColorTarget{
		Width:  width,
		Height: height,
		View:   &wgpu.TextureView{},
	}, nil
}

func (h *fakeHost) RenderScale() float32 { return h.state.RenderScale }

func (h *fakeHost) Snapshot() renderer.RenderState { return h.state }

func (h *fakeHost) Restore(state renderer.RenderState) { h.state = state }

func (h *fakeHost) SetFogEnabled(enabled bool) { h.state.FogEnabled = enabled }

func (h *fakeHost) SetLODBias(bias float32) { h.state.LODBias = bias }

func (h *fakeHost) SetMaximumLODLevel(level int) { h.state.MaximumLODLevel = level }

func (h *fakeHost) SetInvertCulling(invert bool) { h.state.InvertCulling = invert }

func (h *fakeHost) SetGlobalTexture(name string, view *wgpu.TextureView) {
	if view == nil {
		delete(h.published, name)
		return
	}
	h.published[name] = view
	h.publishCount++
}

// fire simulates the host pipeline's pre-render notification for cam.
func (h *fakeHost) fire(cam camera.Camera) {
	for _, fn := range h.subs {
		fn(cam)
	}
}

// overheadCamera looks straight down at the origin from (0,5,0). The up vector
// leans forward because the view direction is parallel to world up.
func overheadCamera() camera.Camera {
	return camera.NewCamera(
		camera.WithUp(0, 0, -1),
		camera.WithPixelSize(800, 600),
		camera.WithController(camera.NewLookAtController(0, 5, 0, 0, -5, 0)),
	)
}

func floorProvider() PlaneProvider {
	return SurfacePoseFunc(func() (position, up [3]float32) {
		return [3]float32{0, 0, 0}, [3]float32{0, 1, 0}
	})
}

func newStartedReflection(t *testing.T, host *fakeHost, cam camera.Camera, options ...PlanarReflectionBuilderOption) PlanarReflection {
	t.Helper()
	p, err := NewPlanarReflection(host, cam, floorProvider(), options...)
	if err != nil {
		t.Fatalf("NewPlanarReflection: %v", err)
	}
	p.Start()
	return p
}

func TestResolutionFor(t *testing.T) {
	assert := assert.New(t)

	w, h, err := resolutionFor(800, 600, 1.0, ResolutionScaleHalf)
	assert.NoError(err)
	assert.Equal(400, w)
	assert.Equal(300, h)

	w, h, err = resolutionFor(800, 600, 1.0, ResolutionScaleDouble)
	assert.NoError(err)
	assert.Equal(1600, w)
	assert.Equal(1200, h)

	// Tiers below the floor clamp to the minimum.
	w, h, err = resolutionFor(800, 600, 1.0, ResolutionScale(1))
	assert.NoError(err)
	assert.Equal(96, w)
	assert.Equal(72, h)

	// Dimensions never collapse below one pixel.
	w, h, err = resolutionFor(4, 4, 0.1, ResolutionScaleEighth)
	assert.NoError(err)
	assert.GreaterOrEqual(w, 1)
	assert.GreaterOrEqual(h, 1)
}

func TestResolutionForMonotonic(t *testing.T) {
	assert := assert.New(t)

	tiers := []ResolutionScale{ResolutionScaleEighth, ResolutionScaleQuarter, ResolutionScaleHalf, ResolutionScaleFull, ResolutionScaleDouble}
	prevW, prevH := 0, 0
	for _, tier := range tiers {
		w, h, err := resolutionFor(1920, 1080, 1.0, tier)
		assert.NoError(err)
		assert.GreaterOrEqual(w, prevW)
		assert.GreaterOrEqual(h, prevH)
		prevW, prevH = w, h
	}

	prevW, prevH = 0, 0
	for _, scale := range []float32{0.25, 0.5, 1.0, 1.5, 2.0} {
		w, h, err := resolutionFor(1920, 1080, scale, ResolutionScaleFull)
		assert.NoError(err)
		assert.GreaterOrEqual(w, prevW)
		assert.GreaterOrEqual(h, prevH)
		prevW, prevH = w, h
	}
}

func TestResolutionForPreconditions(t *testing.T) {
	assert := assert.New(t)

	_, _, err := resolutionFor(0, 600, 1.0, ResolutionScaleFull)
	assert.ErrorContains(err, "invalid geometry")

	_, _, err = resolutionFor(800, -1, 1.0, ResolutionScaleFull)
	assert.ErrorContains(err, "invalid geometry")

	_, _, err = resolutionFor(800, 600, 0, ResolutionScaleFull)
	assert.ErrorContains(err, "invalid geometry")
}

func TestBufferManagerReusesTarget(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	var buffers bufferManager

	first, err := buffers.getOrCreate(host, 800, 600, ResolutionScaleHalf)
	assert.NoError(err)
	assert.Equal(400, first.Width)

	// A different quality tier must not reallocate or resize.
	second, err := buffers.getOrCreate(host, 800, 600, ResolutionScaleDouble)
	assert.NoError(err)
	assert.Same(first, second)
	assert.Equal(400, second.Width)
	assert.Equal(1, host.createdTargets)
}

func TestBufferManagerRetriesAfterAllocationFailure(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	host.createErr = errors.New("out of memory")
	var buffers bufferManager

	_, err := buffers.getOrCreate(host, 800, 600, ResolutionScaleHalf)
	assert.ErrorContains(err, "out of memory")
	assert.Nil(buffers.target)

	host.createErr = nil
	target, err := buffers.getOrCreate(host, 800, 600, ResolutionScaleHalf)
	assert.NoError(err)
	assert.NotNil(target)
}

func TestBufferManagerReleaseIdempotent(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	var buffers bufferManager

	_, err := buffers.getOrCreate(host, 800, 600, ResolutionScaleHalf)
	assert.NoError(err)

	buffers.release()
	assert.Nil(buffers.target)
	buffers.release()
}

func TestCameraControllerEnsureCreated(t *testing.T) {
	assert := assert.New(t)
	main := overheadCamera()
	var controller cameraController

	settings := Settings{ResolutionScale: ResolutionScaleHalf, CullingMask: 0xF, RenderShadows: true}
	cam := controller.ensureCreated(main, settings)

	assert.False(cam.Enabled())
	assert.False(cam.OcclusionCulling())
	assert.False(cam.RequestRenderTextures())
	assert.True(cam.RenderShadows())
	assert.Equal(uint32(0xF), cam.CullingMask())
	assert.InDelta(main.Fov(), cam.Fov(), 1e-6)
	assert.InDelta(main.Aspect(), cam.Aspect(), 1e-6)

	// Subsequent calls return the same camera.
	assert.Equal(cam, controller.ensureCreated(main, settings))

	controller.teardown()
	assert.Nil(controller.cam)
	controller.teardown()
}

func TestCameraControllerUpdateMirrorsPose(t *testing.T) {
	assert := assert.New(t)
	main := overheadCamera()
	var controller cameraController

	settings := DefaultSettings()
	controller.ensureCreated(main, settings)

	plane, err := floorPlane()
	assert.NoError(err)
	assert.NoError(controller.update(main, plane, settings))

	x, y, z := controller.cam.Position()
	assert.InDelta(0.0, x, 1e-5)
	assert.InDelta(-5.0, y, 1e-5)
	assert.InDelta(0.0, z, 1e-5)

	fx, fy, fz := controller.cam.Forward()
	assert.InDelta(0.0, fx, 1e-5)
	assert.InDelta(1.0, fy, 1e-5)
	assert.InDelta(0.0, fz, 1e-5)
}

func TestCameraControllerUpdateIsInvolution(t *testing.T) {
	assert := assert.New(t)
	main := overheadCamera()
	var controller cameraController

	settings := DefaultSettings()
	controller.ensureCreated(main, settings)

	plane, err := floorPlane()
	assert.NoError(err)
	assert.NoError(controller.update(main, plane, settings))

	// Mirror the mirrored camera across the same plane: back to the original.
	mirrored := controller.cam
	var second cameraController
	second.ensureCreated(mirrored, settings)
	assert.NoError(second.update(mirrored, plane, settings))

	x, y, z := second.cam.Position()
	assert.InDelta(0.0, x, 1e-5)
	assert.InDelta(5.0, y, 1e-5)
	assert.InDelta(0.0, z, 1e-5)
}

func TestCameraControllerUpdateWithoutCamera(t *testing.T) {
	assert := assert.New(t)
	var controller cameraController

	plane, _ := floorPlane()
	assert.Error(controller.update(overheadCamera(), plane, DefaultSettings()))
}

func floorPlane() (common.Plane, error) {
	return common.PlaneFromPointNormal(0, 0, 0, 0, 1, 0)
}

func TestStateBracketDuringRender(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	host.state.FogEnabled = true
	host.state.LODBias = 2.0

	main := overheadCamera()
	p := newStartedReflection(t, host, main)
	defer p.Stop()

	host.fire(main)

	// One mirror render happened, with the overrides in effect.
	assert.Len(host.renders, 1)
	during := host.renders[0].state
	assert.False(during.FogEnabled)
	assert.InDelta(1.0, during.LODBias, 1e-6)
	assert.Equal(1, during.MaximumLODLevel)
	assert.True(during.InvertCulling)

	// After the frame, the globals are restored exactly.
	assert.True(host.state.FogEnabled)
	assert.InDelta(2.0, host.state.LODBias, 1e-6)
	assert.Equal(0, host.state.MaximumLODLevel)
	assert.False(host.state.InvertCulling)
}

func TestReflectionCameraPoseEndToEnd(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()
	p := newStartedReflection(t, host, main)
	defer p.Stop()

	host.fire(main)

	refCam := p.ReflectionCamera()
	assert.NotNil(refCam)

	x, y, z := refCam.Position()
	assert.InDelta(0.0, x, 1e-5)
	assert.InDelta(-5.0, y, 1e-5)
	assert.InDelta(0.0, z, 1e-5)

	fx, fy, fz := refCam.Forward()
	assert.InDelta(0.0, fx, 1e-5)
	assert.InDelta(1.0, fy, 1e-5)
	assert.InDelta(0.0, fz, 1e-5)

	// The buffer is bound as the camera's target and published globally.
	assert.NotNil(refCam.RenderTarget())
	assert.NotNil(host.published[ReflectionTextureName])
}

func TestStartStopWithoutFrameLeavesNothing(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()
	p := newStartedReflection(t, host, main)

	assert.True(p.Started())
	p.Stop()
	assert.False(p.Started())

	assert.Nil(p.ReflectionCamera())
	assert.Equal(0, host.createdTargets)
	assert.Empty(host.subs)
	assert.Empty(host.published)

	// Idempotent.
	p.Stop()
}

func TestConsecutiveFramesReuseBuffer(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()
	p := newStartedReflection(t, host, main)
	defer p.Stop()

	host.fire(main)
	host.fire(main)

	assert.Len(host.renders, 2)
	assert.Equal(1, host.createdTargets)
	assert.Same(host.renders[0].target, host.renders[1].target)
}

func TestBufferReallocatesAfterRestart(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()
	p := newStartedReflection(t, host, main)

	host.fire(main)
	assert.Equal(1, host.createdTargets)

	p.Stop()
	p.Start()
	host.fire(main)
	assert.Equal(2, host.createdTargets)
	p.Stop()
}

func TestRenderFailureRestoresStateAndKeepsStalePublish(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	host.state.FogEnabled = true
	host.state.LODBias = 2.0

	main := overheadCamera()
	p := newStartedReflection(t, host, main)
	defer p.Stop()

	// A first successful frame publishes the buffer.
	host.fire(main)
	published := host.published[ReflectionTextureName]
	assert.NotNil(published)

	// The next frame's dispatch fails: state must still restore, and the
	// previous frame's binding must remain.
	host.renderErr = errors.New("device lost")
	host.fire(main)

	assert.True(host.state.FogEnabled)
	assert.InDelta(2.0, host.state.LODBias, 1e-6)
	assert.Equal(published, host.published[ReflectionTextureName])
	assert.Equal(1, host.publishCount)
}

func TestAllocationFailureSkipsPublish(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	host.createErr = errors.New("out of memory")

	main := overheadCamera()
	p := newStartedReflection(t, host, main)
	defer p.Stop()

	host.fire(main)
	assert.Empty(host.published)
	assert.True(host.state.FogEnabled)

	// Allocation recovers on a later frame.
	host.createErr = nil
	host.fire(main)
	assert.NotNil(host.published[ReflectionTextureName])
}

func TestDegeneratePlaneSkipsFrame(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()

	degenerate := SurfacePoseFunc(func() (position, up [3]float32) {
		return [3]float32{0, 0, 0}, [3]float32{0, 0, 0}
	})
	p, err := NewPlanarReflection(host, main, degenerate)
	assert.NoError(err)
	p.Start()
	defer p.Stop()

	host.fire(main)
	assert.Empty(host.renders)
	assert.Empty(host.published)
}

func TestIgnoresOtherCameras(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()
	other := camera.NewCamera()

	p := newStartedReflection(t, host, main)
	defer p.Stop()

	host.fire(other)
	assert.Empty(host.renders)
	assert.Nil(p.ReflectionCamera())
}

func TestNewPlanarReflectionValidation(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()

	_, err := NewPlanarReflection(nil, main, floorProvider())
	assert.ErrorContains(err, "host pipeline is nil")

	_, err = NewPlanarReflection(host, nil, floorProvider())
	assert.ErrorContains(err, "main camera is nil")

	_, err = NewPlanarReflection(host, main, nil)
	assert.ErrorContains(err, "plane provider is nil")
}

func TestBuilderOptions(t *testing.T) {
	assert := assert.New(t)
	host := newFakeHost()
	main := overheadCamera()

	p, err := NewPlanarReflection(host, main, floorProvider(),
		WithResolutionScale(ResolutionScaleQuarter),
		WithClipPlaneOffset(0.05),
		WithCullingMask(0x3),
		WithRenderShadows(true),
	)
	assert.NoError(err)

	settings := p.Settings()
	assert.Equal(ResolutionScaleQuarter, settings.ResolutionScale)
	assert.InDelta(0.05, settings.ClipPlaneOffset, 1e-6)
	assert.Equal(uint32(0x3), settings.CullingMask)
	assert.True(settings.RenderShadows)
}
