package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ColorTarget is an offscreen render target: an HDR color texture with a full
// mip chain plus a matching depth texture. Reflections are sampled at reduced
// detail through the mip chain, so mips are always generated after a render.
//
// The wgpu fields are nil when the target was produced by a non-GPU backend
// (tests); Release tolerates that.
type ColorTarget struct {
	// Width and Height are the level-0 dimensions in pixels.
	Width  int
	Height int

	// MipLevelCount is the number of mip levels in the color texture.
	MipLevelCount int

	// Texture is the HDR color texture (RGBA16Float).
	Texture *wgpu.Texture

	// View covers the full mip chain and is what shaders sample.
	View *wgpu.TextureView

	// RenderView covers mip level 0 only and is the render attachment.
	RenderView *wgpu.TextureView

	// MipViews holds one single-level view per mip, used by the mip generator.
	MipViews []*wgpu.TextureView

	// DepthTexture and DepthView form the Depth32Float attachment.
	DepthTexture *wgpu.Texture
	DepthView    *wgpu.TextureView
}

// TargetSize returns the level-0 dimensions in pixels, satisfying
// camera.RenderTarget.
//
// Returns:
//   - width, height: buffer dimensions in pixels
func (t *ColorTarget) TargetSize() (width, height int) {
	return t.Width, t.Height
}

// Release frees the GPU resources held by the target. Safe to call on targets
// without GPU resources and safe to call more than once.
func (t *ColorTarget) Release() {
	for _, v := range t.MipViews {
		if v != nil {
			v.Release()
		}
	}
	t.MipViews = nil
	// RenderView aliases MipViews[0]; it was released above.
	t.RenderView = nil
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Release()
		t.Texture = nil
	}
	if t.DepthView != nil {
		t.DepthView.Release()
		t.DepthView = nil
	}
	if t.DepthTexture != nil {
		t.DepthTexture.Release()
		t.DepthTexture = nil
	}
}

// mipLevelCountFor returns the number of mip levels for a full chain over the
// given dimensions.
func mipLevelCountFor(width, height int) int {
	levels := 1
	for width > 1 || height > 1 {
		width = max(width/2, 1)
		height = max(height/2, 1)
		levels++
	}
	return levels
}
