package reflection

import (
	"fmt"

	"github.com/bodardr/reflections/engine/camera"
)

// PlanarReflectionBuilderOption is a functional option applied during
// construction via NewPlanarReflection.
type PlanarReflectionBuilderOption func(*planarReflection)

// NewPlanarReflection creates a PlanarReflection bound to a host pipeline, a
// main camera, and a mirror surface. The system is inert until Start is
// called.
//
// Parameters:
//   - host: the pipeline that renders and owns global state (must not be nil)
//   - mainCamera: the camera whose view is mirrored (must not be nil)
//   - provider: the mirror surface's pose source (must not be nil)
//   - options: functional options to configure the reflection
//
// Returns:
//   - PlanarReflection: the configured reflection system
//   - error: an error if a required dependency is nil
func NewPlanarReflection(host HostPipeline, mainCamera camera.Camera, provider PlaneProvider, options ...PlanarReflectionBuilderOption) (PlanarReflection, error) {
	if host == nil {
		return nil, fmt.Errorf("failed to create planar reflection: host pipeline is nil")
	}
	if mainCamera == nil {
		return nil, fmt.Errorf("failed to create planar reflection: main camera is nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("failed to create planar reflection: plane provider is nil")
	}

	p := &planarReflection{
		host:     host,
		mainCam:  mainCamera,
		provider: provider,
		settings: DefaultSettings(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// WithSettings replaces the entire configuration.
//
// Parameters:
//   - settings: the configuration to use
//
// Returns:
//   - PlanarReflectionBuilderOption: a function that applies the settings option
func WithSettings(settings Settings) PlanarReflectionBuilderOption {
	return func(p *planarReflection) {
		p.settings = settings
	}
}

// WithResolutionScale sets the buffer quality tier.
//
// Parameters:
//   - scale: the ResolutionScale tier
//
// Returns:
//   - PlanarReflectionBuilderOption: a function that applies the resolution scale option
func WithResolutionScale(scale ResolutionScale) PlanarReflectionBuilderOption {
	return func(p *planarReflection) {
		p.settings.ResolutionScale = scale
	}
}

// WithClipPlaneOffset sets the world-unit bias applied along the plane normal.
//
// Parameters:
//   - offset: the bias in world units
//
// Returns:
//   - PlanarReflectionBuilderOption: a function that applies the clip plane offset option
func WithClipPlaneOffset(offset float32) PlanarReflectionBuilderOption {
	return func(p *planarReflection) {
		p.settings.ClipPlaneOffset = offset
	}
}

// WithCullingMask sets the layer bitset the reflection camera draws.
//
// Parameters:
//   - mask: the layer bitset
//
// Returns:
//   - PlanarReflectionBuilderOption: a function that applies the culling mask option
func WithCullingMask(mask uint32) PlanarReflectionBuilderOption {
	return func(p *planarReflection) {
		p.settings.CullingMask = mask
	}
}

// WithRenderShadows enables shadow passes for the reflection camera.
//
// Parameters:
//   - renderShadows: true to render shadows in the reflection
//
// Returns:
//   - PlanarReflectionBuilderOption: a function that applies the render shadows option
func WithRenderShadows(renderShadows bool) PlanarReflectionBuilderOption {
	return func(p *planarReflection) {
		p.settings.RenderShadows = renderShadows
	}
}
