package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/bodardr/reflections/engine/camera"
)

// PassInfo describes the attachments of the pass a drawable is rendering
// into. Pipelines must be created against these formats, so drawables that
// render both to the surface and to offscreen targets keep one pipeline
// variant per format pair.
type PassInfo struct {
	// ColorFormat is the color attachment's texture format.
	ColorFormat wgpu.TextureFormat

	// DepthFormat is the depth attachment's texture format.
	DepthFormat wgpu.TextureFormat
}

// Drawable is a renderable object registered with the Renderer. The renderer
// owns pass setup (targets, clears, camera selection); drawables own their
// pipelines, geometry, and bind groups.
//
// Prepare runs before the render pass opens and is where uniform uploads and
// pipeline creation for the given camera belong (neither is allowed inside a
// pass). Encode runs inside the pass and issues the draw commands. Both
// receive the renderer-wide RenderState so drawables can honor settings the
// pass cannot apply for them (fog, LOD selection, winding inversion on their
// pipelines).
type Drawable interface {
	// LayerMask returns the renderable-layer bits this drawable belongs to.
	// Cameras draw it only when cam.CullingMask() & LayerMask() != 0.
	//
	// Returns:
	//   - uint32: the layer bitset
	LayerMask() uint32

	// Prepare uploads per-camera data before the render pass opens.
	//
	// Parameters:
	//   - cam: the camera about to render
	//   - state: the renderer-wide settings in effect for this pass
	//   - pass: the attachment formats of the upcoming pass
	Prepare(cam camera.Camera, state RenderState, pass PassInfo)

	// Encode issues draw commands into the open render pass.
	//
	// Parameters:
	//   - encoder: the open render pass encoder
	//   - state: the renderer-wide settings in effect for this pass
	//   - pass: the attachment formats of the open pass
	Encode(encoder *wgpu.RenderPassEncoder, state RenderState, pass PassInfo)
}

// visibleTo filters drawables against a camera's culling mask. The returned
// slice is freshly allocated per call.
func visibleTo(cam camera.Camera, drawables []Drawable) []Drawable {
	mask := cam.CullingMask()
	out := make([]Drawable, 0, len(drawables))
	for _, d := range drawables {
		if mask&d.LayerMask() != 0 {
			out = append(out, d)
		}
	}
	return out
}
