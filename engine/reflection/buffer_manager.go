package reflection

import (
	"fmt"

	"github.com/bodardr/reflections/engine/renderer"
)

// bufferManager owns the offscreen reflection buffer. The buffer is allocated
// lazily on first use and its resolution is fixed for its lifetime; quality or
// camera size changes only take effect after a release/reallocate cycle.
type bufferManager struct {
	target *renderer.ColorTarget
}

// resolutionFor computes the reflection buffer dimensions from the main
// camera's pixel size, the pipeline-wide render scale, and the configured
// quality tier. Dimensions are floored at one pixel.
//
// Parameters:
//   - width, height: the main camera's pixel size
//   - renderScale: the pipeline-wide render scale multiplier
//   - scale: the configured quality tier
//
// Returns:
//   - int, int: the buffer width and height in pixels
//   - error: a precondition violation for non-positive inputs
func resolutionFor(width, height int, renderScale float32, scale ResolutionScale) (int, int, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid geometry: non-positive camera pixel size %dx%d", width, height)
	}
	if renderScale <= 0 {
		return 0, 0, fmt.Errorf("invalid geometry: non-positive render scale %v", renderScale)
	}

	factor := renderScale * float32(effectiveScale(scale)) / 100.0
	w := int(float32(width) * factor)
	h := int(float32(height) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, nil
}

// getOrCreate returns the existing buffer, or allocates one by computing the
// resolution once and calling the host allocator. On allocation failure no
// handle is stored, so the next frame retries.
//
// Parameters:
//   - host: the pipeline that allocates color targets
//   - width, height: the main camera's pixel size
//   - scale: the configured quality tier
//
// Returns:
//   - *renderer.ColorTarget: the reflection buffer
//   - error: a resolution precondition violation or an allocation error
func (b *bufferManager) getOrCreate(host HostPipeline, width, height int, scale ResolutionScale) (*renderer.ColorTarget, error) {
	if b.target != nil {
		return b.target, nil
	}

	w, h, err := resolutionFor(width, height, host.RenderScale(), scale)
	if err != nil {
		return nil, err
	}

	target, err := host.CreateColorTarget(w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate reflection buffer: %w", err)
	}
	b.target = target
	return target, nil
}

// release frees the buffer and clears the handle. No-op when already released.
func (b *bufferManager) release() {
	if b.target == nil {
		return
	}
	b.target.Release()
	b.target = nil
}
