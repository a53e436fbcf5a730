package reflection

// ResolutionScale is a quality tier applied to the reflection buffer's
// resolution, expressed in percent of the main camera's pixel size.
type ResolutionScale int

const (
	// ResolutionScaleDouble supersamples the reflection at twice the main
	// camera's resolution.
	ResolutionScaleDouble ResolutionScale = 200

	// ResolutionScaleFull matches the main camera's resolution.
	ResolutionScaleFull ResolutionScale = 100

	// ResolutionScaleHalf renders the reflection at half resolution.
	ResolutionScaleHalf ResolutionScale = 50

	// ResolutionScaleQuarter renders the reflection at quarter resolution.
	ResolutionScaleQuarter ResolutionScale = 25

	// ResolutionScaleEighth is the coarsest tier.
	ResolutionScaleEighth ResolutionScale = 12
)

// MinimumResolutionScale is the floor applied to configured tiers so the
// buffer never collapses to near-zero dimensions.
const MinimumResolutionScale = ResolutionScaleEighth

// Settings is the externally authored configuration for a planar reflection.
// It is read every frame and never mutated by the reflection system itself.
type Settings struct {
	// ResolutionScale is the quality tier for the reflection buffer. The
	// buffer resolution is fixed at first allocation; changing the tier takes
	// effect only after a Stop/Start cycle.
	ResolutionScale ResolutionScale

	// ClipPlaneOffset is a world-unit bias added along the plane normal when
	// positioning the mirror plane, used to hide sorting artifacts at the
	// reflective surface itself.
	ClipPlaneOffset float32

	// CullingMask selects which layers the reflection camera draws.
	CullingMask uint32

	// RenderShadows controls whether shadow passes run for the reflection
	// camera.
	RenderShadows bool
}

// DefaultSettings returns the configuration used when no explicit settings
// are provided: half resolution, no clip bias, all layers, no shadows.
//
// Returns:
//   - Settings: the default configuration
func DefaultSettings() Settings {
	return Settings{
		ResolutionScale: ResolutionScaleHalf,
		ClipPlaneOffset: 0,
		CullingMask:     0xFFFFFFFF,
		RenderShadows:   false,
	}
}

// effectiveScale clamps a configured tier to the minimum floor. Unknown values
// between tiers are accepted as-is; only the lower bound is enforced.
func effectiveScale(scale ResolutionScale) ResolutionScale {
	if scale < MinimumResolutionScale {
		return MinimumResolutionScale
	}
	return scale
}
