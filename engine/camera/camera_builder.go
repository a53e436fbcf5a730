package camera

// CameraBuilderOption is a functional option applied during NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = [3]float32{x, y, z}
	}
}

// WithFov sets the camera's field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}

// WithPixelSize sets the camera's output dimensions in pixels and derives the
// aspect ratio from them.
//
// Parameters:
//   - width, height: output dimensions in pixels
//
// Returns:
//   - CameraBuilderOption: functional option to set the pixel size
func WithPixelSize(width, height int) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.pixelWidth = width
		c.pixelHeight = height
		if height > 0 {
			c.aspect = float32(width) / float32(height)
		}
	}
}

// WithEnabled includes or excludes the camera from automatic rendering.
// Disabled cameras render only when explicitly dispatched.
//
// Parameters:
//   - enabled: true to auto-render each frame
//
// Returns:
//   - CameraBuilderOption: functional option to set the enabled flag
func WithEnabled(enabled bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.enabled = enabled
	}
}

// WithCullingMask sets the bitset of renderable layers the camera draws.
//
// Parameters:
//   - mask: the layer bitset
//
// Returns:
//   - CameraBuilderOption: functional option to set the culling mask
func WithCullingMask(mask uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.cullingMask = mask
	}
}

// WithRenderShadows enables or disables shadow passes for the camera.
//
// Parameters:
//   - renderShadows: true to render shadows
//
// Returns:
//   - CameraBuilderOption: functional option to set the shadow flag
func WithRenderShadows(renderShadows bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.renderShadows = renderShadows
	}
}

// WithOcclusionCulling enables or disables occlusion culling for the camera.
//
// Parameters:
//   - enabled: true to occlusion-cull
//
// Returns:
//   - CameraBuilderOption: functional option to set occlusion culling
func WithOcclusionCulling(enabled bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.occlusionCulling = enabled
	}
}

// WithRequestRenderTextures enables or disables auxiliary color/depth texture
// requests for the camera.
//
// Parameters:
//   - request: true to request auxiliary textures
//
// Returns:
//   - CameraBuilderOption: functional option to set the texture request flag
func WithRequestRenderTextures(request bool) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.requestRenderTextures = request
	}
}

// WithController attaches a controller to the camera.
// After all options are applied, the camera recomputes its matrices from the
// controller's state.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
