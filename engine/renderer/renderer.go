package renderer

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bodardr/reflections/engine/camera"
	"github.com/bodardr/reflections/engine/window"
)

// BeforeCameraRenderFunc is invoked immediately before a camera's scene pass
// is encoded. Subscribers may render auxiliary passes here, but must restore
// any renderer state they modify before returning.
type BeforeCameraRenderFunc func(cam camera.Camera)

// Renderer is the central rendering coordinator. It owns the camera registry,
// the drawable list, renderer-wide state, and the global texture table, and
// drives the per-frame render loop through its backend.
type Renderer interface {
	// RegisterCamera adds a camera to the per-frame render loop. Cameras are
	// rendered in registration order; disabled cameras are skipped.
	RegisterCamera(cam camera.Camera)

	// UnregisterCamera removes a camera from the per-frame render loop.
	UnregisterCamera(cam camera.Camera)

	// RegisterDrawable adds a drawable to the scene.
	RegisterDrawable(d Drawable)

	// UnregisterDrawable removes a drawable from the scene.
	UnregisterDrawable(d Drawable)

	// SubscribeBeforeCameraRender registers a callback invoked before each
	// camera's scene pass. Returns a subscription id for removal.
	//
	// Parameters:
	//   - fn: the callback to invoke
	//
	// Returns:
	//   - int: the subscription id
	SubscribeBeforeCameraRender(fn BeforeCameraRenderFunc) int

	// UnsubscribeBeforeCameraRender removes a previously registered callback.
	// Unknown ids are ignored.
	UnsubscribeBeforeCameraRender(id int)

	// RenderFrame renders all enabled cameras to the surface and presents.
	//
	// Returns:
	//   - error: the first error encountered while rendering
	RenderFrame() error

	// RenderCameraToTarget synchronously renders the scene from the given
	// camera into an offscreen target, honoring the camera's culling mask and
	// the current renderer state.
	//
	// Parameters:
	//   - cam: the camera to render from
	//   - target: the offscreen target to render into
	//
	// Returns:
	//   - error: an error if the render could not be completed
	RenderCameraToTarget(cam camera.Camera, target *ColorTarget) error

	// CreateColorTarget allocates an offscreen render target.
	CreateColorTarget(width, height int) (*ColorTarget, error)

	// CaptureTarget asynchronously encodes the current contents of a target
	// to a WebP file. The pixel readback is synchronous; the encode runs on a
	// worker pool.
	//
	// Parameters:
	//   - target: the target to capture
	//   - path: the destination file path
	//
	// Returns:
	//   - error: an error if the readback fails or the pool rejects the task
	CaptureTarget(target *ColorTarget, path string) error

	// FogEnabled reports whether distance fog is applied.
	FogEnabled() bool
	// SetFogEnabled toggles distance fog for subsequent passes.
	SetFogEnabled(enabled bool)

	// LODBias returns the level-of-detail distance bias multiplier.
	LODBias() float32
	// SetLODBias sets the level-of-detail distance bias multiplier.
	SetLODBias(bias float32)

	// MaximumLODLevel returns the coarsest forced LOD level. 0 means no limit.
	MaximumLODLevel() int
	// SetMaximumLODLevel sets the coarsest forced LOD level.
	SetMaximumLODLevel(level int)

	// InvertCulling reports whether triangle winding interpretation is
	// inverted for subsequent passes.
	InvertCulling() bool
	// SetInvertCulling sets winding inversion for subsequent passes.
	SetInvertCulling(invert bool)

	// RenderScale returns the global resolution multiplier applied to
	// secondary render targets.
	RenderScale() float32
	// SetRenderScale sets the global resolution multiplier. Values are
	// clamped to be strictly positive.
	SetRenderScale(scale float32)

	// Snapshot returns a copy of the current renderer-wide state.
	Snapshot() RenderState

	// Restore replaces the renderer-wide state with a previously captured
	// snapshot.
	Restore(state RenderState)

	// SetGlobalTexture binds a texture view under a well-known name that any
	// material can sample. A nil view removes the binding.
	SetGlobalTexture(name string, view *wgpu.TextureView)

	// GlobalTexture returns the texture view bound under name, or nil.
	GlobalTexture(name string) *wgpu.TextureView

	// Resize reconfigures the presentation surface.
	Resize(width, height int)

	// Device returns the underlying GPU device, or nil for non-GPU backends.
	Device() *wgpu.Device

	// Queue returns the underlying GPU queue, or nil for non-GPU backends.
	Queue() *wgpu.Queue

	// Release shuts down the capture pool and releases backend resources.
	Release()
}

type renderer struct {
	mu sync.Mutex

	backend     RendererBackend
	backendType RendererBackendType
	state       RenderState

	pendingPresentMode   *PresentMode
	forceFallbackAdapter bool
	captureWorkers       int

	cameras   []camera.Camera
	drawables []Drawable

	subscribers map[int]BeforeCameraRenderFunc
	nextSubID   int

	globalTextures map[string]*wgpu.TextureView

	capture *capturePool

	rendering bool
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer by constructing the requested backend against
// the given window's surface and applying any builder options.
//
// Parameters:
//   - backendType: the RendererBackendType to construct
//   - win: the window supplying the surface descriptor and initial size
//   - options: optional RendererBuilderOption functions
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if the backend could not be initialized
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		backendType:    backendType,
		state:          defaultRenderState(),
		subscribers:    make(map[int]BeforeCameraRenderFunc),
		globalTextures: make(map[string]*wgpu.TextureView),
		captureWorkers: defaultCaptureWorkers,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			backend, err := newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter)
			if err != nil {
				return nil, fmt.Errorf("failed to create renderer: %w", err)
			}
			r.backend = backend
		}

		if r.pendingPresentMode != nil {
			r.backend.SetPresentMode(*r.pendingPresentMode)
		}
		r.backend.ConfigureSurface(win.Width(), win.Height())
	}

	if r.captureWorkers > 0 {
		r.capture = newCapturePool(r.captureWorkers)
	}
	return r, nil
}

func (r *renderer) RegisterCamera(cam camera.Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cameras {
		if c == cam {
			return
		}
	}
	r.cameras = append(r.cameras, cam)
}

func (r *renderer) UnregisterCamera(cam camera.Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.cameras {
		if c == cam {
			r.cameras = append(r.cameras[:i], r.cameras[i+1:]...)
			return
		}
	}
}

func (r *renderer) RegisterDrawable(d Drawable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.drawables {
		if existing == d {
			return
		}
	}
	r.drawables = append(r.drawables, d)
}

func (r *renderer) UnregisterDrawable(d Drawable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.drawables {
		if existing == d {
			r.drawables = append(r.drawables[:i], r.drawables[i+1:]...)
			return
		}
	}
}

func (r *renderer) SubscribeBeforeCameraRender(fn BeforeCameraRenderFunc) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	return id
}

func (r *renderer) UnsubscribeBeforeCameraRender(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, id)
}

func (r *renderer) RenderFrame() error {
	r.mu.Lock()
	cameras := make([]camera.Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		if cam.Enabled() {
			cameras = append(cameras, cam)
		}
	}
	r.mu.Unlock()

	var firstErr error
	for _, cam := range cameras {
		cam.Update()
		r.notifyBeforeCameraRender(cam)

		r.mu.Lock()
		state := r.state
		visible := visibleTo(cam, r.drawables)
		r.mu.Unlock()

		if err := r.backend.RenderToSurface(cam, visible, state); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to render camera to surface: %w", err)
			}
			log.Printf("renderer: surface pass failed: %v", err)
			continue
		}
	}
	r.backend.Present()
	return firstErr
}

func (r *renderer) RenderCameraToTarget(cam camera.Camera, target *ColorTarget) error {
	if target == nil {
		return fmt.Errorf("failed to render to target: target is nil")
	}

	r.mu.Lock()
	if r.rendering {
		r.mu.Unlock()
		return fmt.Errorf("failed to render to target: render pass already in progress")
	}
	r.rendering = true
	state := r.state
	visible := visibleTo(cam, r.drawables)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.rendering = false
		r.mu.Unlock()
	}()

	if err := r.backend.RenderToTarget(target, cam, visible, state); err != nil {
		return fmt.Errorf("failed to render to target: %w", err)
	}
	return nil
}

func (r *renderer) CreateColorTarget(width, height int) (*ColorTarget, error) {
	return r.backend.CreateColorTarget(width, height)
}

func (r *renderer) CaptureTarget(target *ColorTarget, path string) error {
	if r.capture == nil {
		return fmt.Errorf("failed to capture target: capture pool disabled")
	}
	pixels, err := r.backend.ReadTargetPixels(target)
	if err != nil {
		return fmt.Errorf("failed to capture target: %w", err)
	}
	return r.capture.submit(pixels, target.Width, target.Height, path)
}

func (r *renderer) FogEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.FogEnabled
}

func (r *renderer) SetFogEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.FogEnabled = enabled
}

func (r *renderer) LODBias() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.LODBias
}

func (r *renderer) SetLODBias(bias float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.LODBias = bias
}

func (r *renderer) MaximumLODLevel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.MaximumLODLevel
}

func (r *renderer) SetMaximumLODLevel(level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.MaximumLODLevel = level
}

func (r *renderer) InvertCulling() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.InvertCulling
}

func (r *renderer) SetInvertCulling(invert bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.InvertCulling = invert
}

func (r *renderer) RenderScale() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.RenderScale
}

func (r *renderer) SetRenderScale(scale float32) {
	if scale <= 0 {
		scale = 1.0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.RenderScale = scale
}

func (r *renderer) Snapshot() RenderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *renderer) Restore(state RenderState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func (r *renderer) SetGlobalTexture(name string, view *wgpu.TextureView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if view == nil {
		delete(r.globalTextures, name)
		return
	}
	r.globalTextures[name] = view
}

func (r *renderer) GlobalTexture(name string) *wgpu.TextureView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalTextures[name]
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.backend.Queue()
}

func (r *renderer) Release() {
	if r.capture != nil {
		r.capture.stop()
		r.capture = nil
	}
	if backend, ok := r.backend.(interface{ Release() }); ok {
		backend.Release()
	}
}

// notifyBeforeCameraRender dispatches subscribers in ascending id order so
// dispatch order is stable across frames.
func (r *renderer) notifyBeforeCameraRender(cam camera.Camera) {
	r.mu.Lock()
	ids := make([]int, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]BeforeCameraRenderFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.subscribers[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(cam)
	}
}
