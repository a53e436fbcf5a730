package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bodardr/reflections/engine/camera"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// RendererBackend is the GPU-facing half of the Renderer. The frontend owns
// camera bookkeeping, subscriber dispatch, and render state; the backend owns
// device resources, passes, and submission.
type RendererBackend interface {
	// ConfigureSurface (re)configures the presentation surface for a new size.
	// Must be called on window resize.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. A call to ConfigureSurface
	// is required for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateColorTarget allocates an offscreen HDR color+depth target with a
	// full mip chain.
	//
	// Parameters:
	//   - width: target width in pixels
	//   - height: target height in pixels
	//
	// Returns:
	//   - *ColorTarget: the allocated target
	//   - error: an error if texture allocation fails
	CreateColorTarget(width, height int) (*ColorTarget, error)

	// RenderToTarget synchronously renders the given drawables with the given
	// camera into an offscreen target, then regenerates the target's mip
	// chain. Returns only after the work has been recorded and submitted.
	//
	// Parameters:
	//   - target: the offscreen target to render into
	//   - cam: the camera supplying view/projection matrices
	//   - drawables: the pre-filtered drawables to render
	//   - state: the renderer-wide settings in effect for this pass
	//
	// Returns:
	//   - error: an error if command recording or submission fails
	RenderToTarget(target *ColorTarget, cam camera.Camera, drawables []Drawable, state RenderState) error

	// RenderToSurface renders the given drawables with the given camera into
	// the presentation surface. Must be followed by Present.
	//
	// Parameters:
	//   - cam: the camera supplying view/projection matrices
	//   - drawables: the pre-filtered drawables to render
	//   - state: the renderer-wide settings in effect for this pass
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	RenderToSurface(cam camera.Camera, drawables []Drawable, state RenderState) error

	// Present presents the surface to the display and releases the swapchain
	// texture. Must be called once per frame after RenderToSurface.
	Present()

	// ReadTargetPixels copies the level-0 contents of a target into CPU
	// memory. Blocks until the copy completes. The returned bytes are tightly
	// packed RGBA16Float rows (8 bytes per pixel, no row padding).
	//
	// Parameters:
	//   - target: the target to read back
	//
	// Returns:
	//   - []byte: tightly packed RGBA16Float pixel data
	//   - error: an error if the copy or mapping fails
	ReadTargetPixels(target *ColorTarget) ([]byte, error)

	// Device returns the underlying GPU device, or nil for non-GPU backends.
	Device() *wgpu.Device

	// Queue returns the underlying GPU queue, or nil for non-GPU backends.
	Queue() *wgpu.Queue
}
