package renderer

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// defaultCaptureWorkers is the number of WebP encode workers the renderer
// starts when no explicit count is configured.
const defaultCaptureWorkers = 2

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for running on headless machines.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithRenderScale sets the initial global resolution multiplier for secondary
// render targets. Non-positive values are ignored and the default of 1.0 is kept.
//
// Parameters:
//   - scale: the resolution multiplier, must be strictly positive
//
// Returns:
//   - RendererBuilderOption: a function that applies the render scale option to a renderer
func WithRenderScale(scale float32) RendererBuilderOption {
	return func(r *renderer) {
		if scale > 0 {
			r.state.RenderScale = scale
		}
	}
}

// WithCaptureWorkers sets the number of workers used to encode debug captures.
// A count of 0 disables the capture pool entirely.
//
// Parameters:
//   - workers: the worker count, 0 to disable captures
//
// Returns:
//   - RendererBuilderOption: a function that applies the capture workers option to a renderer
func WithCaptureWorkers(workers int) RendererBuilderOption {
	return func(r *renderer) {
		if workers >= 0 {
			r.captureWorkers = workers
		}
	}
}

// WithBackend supplies a pre-built backend, skipping backend construction and
// surface configuration. The window argument to NewRenderer is not touched.
//
// Parameters:
//   - backend: the RendererBackend to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}
