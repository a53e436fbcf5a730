package renderer

// RenderState is the snapshot of the renderer-wide settings that are not
// scoped per camera. The planar reflection pass temporarily overrides these
// for its offscreen render and restores the snapshot afterwards; no other
// camera may render between the override and the restore.
type RenderState struct {
	// FogEnabled toggles distance fog in fragment shading.
	FogEnabled bool

	// LODBias scales the distance at which models switch detail levels.
	// Values below 1 select coarser detail earlier.
	LODBias float32

	// MaximumLODLevel clamps the finest level-of-detail models may use.
	// 0 allows full detail; higher values force coarser meshes.
	MaximumLODLevel int

	// InvertCulling flips the front-face winding convention for every draw.
	// Mirrored rendering reverses triangle winding, so the reflection pass
	// renders with this inverted.
	InvertCulling bool

	// RenderScale is the pipeline-wide multiplier applied to camera pixel
	// sizes when deriving buffer resolutions.
	RenderScale float32
}

// defaultRenderState returns the state a fresh renderer starts with.
func defaultRenderState() RenderState {
	return RenderState{
		FogEnabled:      true,
		LODBias:         1.0,
		MaximumLODLevel: 0,
		InvertCulling:   false,
		RenderScale:     1.0,
	}
}
