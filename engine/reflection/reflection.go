package reflection

import (
	"log"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bodardr/reflections/common"
	"github.com/bodardr/reflections/engine/camera"
	"github.com/bodardr/reflections/engine/renderer"
)

// ReflectionTextureName is the shader-global identifier the reflection buffer
// is published under. Valid only after at least one successful render pass
// since the system was started.
const ReflectionTextureName = "PlanarReflectionTexture"

// PlaneProvider supplies the mirror surface's world pose, read fresh every
// frame. Typically backed by the reflective object's transform.
type PlaneProvider interface {
	// SurfacePose returns the mirror surface's world position and up axis.
	// The up axis need not be normalized.
	//
	// Returns:
	//   - position: a world-space point on the surface
	//   - up: the surface's outward axis
	SurfacePose() (position, up [3]float32)
}

// SurfacePoseFunc adapts a function to the PlaneProvider interface.
type SurfacePoseFunc func() (position, up [3]float32)

// SurfacePose returns the mirror surface's world position and up axis.
func (f SurfacePoseFunc) SurfacePose() (position, up [3]float32) {
	return f()
}

// HostPipeline is the narrow slice of the renderer the reflection system
// consumes: a pre-render notification, a synchronous render-to-target
// dispatch, target allocation, renderer-wide state, and the global texture
// table. Satisfied by renderer.Renderer.
type HostPipeline interface {
	SubscribeBeforeCameraRender(fn renderer.BeforeCameraRenderFunc) int
	UnsubscribeBeforeCameraRender(id int)

	RenderCameraToTarget(cam camera.Camera, target *renderer.ColorTarget) error
	CreateColorTarget(width, height int) (*renderer.ColorTarget, error)

	RenderScale() float32
	Snapshot() renderer.RenderState
	Restore(state renderer.RenderState)
	SetFogEnabled(enabled bool)
	SetLODBias(bias float32)
	SetMaximumLODLevel(level int)
	SetInvertCulling(invert bool)

	SetGlobalTexture(name string, view *wgpu.TextureView)
}

var _ HostPipeline = renderer.Renderer(nil)

// PlanarReflection renders a mirror image of the scene across a planar
// surface into an offscreen buffer once per main-camera frame, and publishes
// the buffer under ReflectionTextureName for surface shaders to sample.
type PlanarReflection interface {
	// Start subscribes to the host's pre-render notification. The reflection
	// camera and buffer are created lazily on the first qualifying frame.
	// No-op when already started.
	Start()

	// Stop unsubscribes from the host, destroys the reflection camera, and
	// releases the buffer. Safe to call when not started; after Stop the
	// published texture binding is removed.
	Stop()

	// Started reports whether the system is subscribed to the host.
	//
	// Returns:
	//   - bool: true between Start and Stop
	Started() bool

	// Settings returns the configuration the system was built with.
	//
	// Returns:
	//   - Settings: the active configuration
	Settings() Settings

	// ReflectionCamera returns the system-owned mirror camera, or nil before
	// the first rendered frame.
	//
	// Returns:
	//   - camera.Camera: the reflection camera or nil
	ReflectionCamera() camera.Camera
}

type planarReflection struct {
	mu sync.Mutex

	host     HostPipeline
	mainCam  camera.Camera
	provider PlaneProvider
	settings Settings

	controller cameraController
	buffers    bufferManager

	subID   int
	started bool

	// rendering guards against the reflection render re-entering the hook
	// through the host's notification path.
	rendering bool
}

var _ PlanarReflection = &planarReflection{}

func (p *planarReflection) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.subID = p.host.SubscribeBeforeCameraRender(p.handleBeforeCameraRender)
	p.started = true
}

func (p *planarReflection) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.host.UnsubscribeBeforeCameraRender(p.subID)
	p.started = false

	p.controller.teardown()
	// The published view belongs to the buffer being released; unbind it so
	// shaders cannot sample a dead texture.
	if p.buffers.target != nil {
		p.host.SetGlobalTexture(ReflectionTextureName, nil)
	}
	p.buffers.release()
}

func (p *planarReflection) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *planarReflection) Settings() Settings {
	return p.settings
}

func (p *planarReflection) ReflectionCamera() camera.Camera {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controller.cam
}

// handleBeforeCameraRender runs the full reflection sequence when the main
// camera is about to render: derive the plane, bracket the global state
// mutation around a synchronous render into the buffer, then publish.
func (p *planarReflection) handleBeforeCameraRender(cam camera.Camera) {
	if cam != p.mainCam {
		return
	}

	p.mu.Lock()
	if !p.started || p.rendering {
		p.mu.Unlock()
		return
	}
	p.rendering = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.rendering = false
		p.mu.Unlock()
	}()

	plane, err := p.surfacePlane()
	if err != nil {
		log.Printf("reflection: %v", err)
		return
	}

	target, ok := p.renderReflection(plane)
	if ok {
		// Publish only after a successful render; on failure the previous
		// frame's binding stays in place.
		p.host.SetGlobalTexture(ReflectionTextureName, target.View)
	}
}

// surfacePlane reads the provider's pose and builds a unit-normal plane.
func (p *planarReflection) surfacePlane() (common.Plane, error) {
	position, up := p.provider.SurfacePose()
	return common.PlaneFromPointNormal(
		position[0], position[1], position[2],
		up[0], up[1], up[2],
	)
}

// renderReflection performs the save/mutate/restore bracket around the mirror
// render. The snapshot is restored on every path out, including failures.
func (p *planarReflection) renderReflection(plane common.Plane) (target *renderer.ColorTarget, ok bool) {
	snap := p.host.Snapshot()
	defer p.host.Restore(snap)

	// Mirrored geometry reverses triangle winding. Fog and full-detail LODs
	// are wrong or wasted in a mirror pass.
	p.host.SetInvertCulling(!snap.InvertCulling)
	p.host.SetFogEnabled(false)
	p.host.SetMaximumLODLevel(1)
	p.host.SetLODBias(snap.LODBias * 0.5)

	refCam := p.controller.ensureCreated(p.mainCam, p.settings)
	if err := p.controller.update(p.mainCam, plane, p.settings); err != nil {
		log.Printf("reflection: camera update failed: %v", err)
		return nil, false
	}

	width, height := p.mainCam.PixelSize()
	target, err := p.buffers.getOrCreate(p.host, width, height, p.settings.ResolutionScale)
	if err != nil {
		log.Printf("reflection: %v", err)
		return nil, false
	}
	refCam.SetRenderTarget(target)

	if err := p.host.RenderCameraToTarget(refCam, target); err != nil {
		log.Printf("reflection: render dispatch failed: %v", err)
		return nil, false
	}
	return target, true
}
