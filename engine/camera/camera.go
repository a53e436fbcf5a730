package camera

import (
	"math"
	"sync"

	"github.com/bodardr/reflections/common"
)

// DefaultCullingMask renders every layer.
const DefaultCullingMask uint32 = 0xFFFFFFFF

// RenderTarget is an offscreen color buffer a camera can render into instead
// of the surface. Implemented by the renderer's ColorTarget.
type RenderTarget interface {
	// TargetSize returns the buffer dimensions in pixels.
	//
	// Returns:
	//   - width, height: buffer dimensions in pixels
	TargetSize() (width, height int)
}

type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	pixelWidth  int
	pixelHeight int

	enabled           bool
	cullingMask       uint32
	renderShadows     bool
	occlusionCulling  bool
	requestRenderTextures bool

	position [3]float32
	forward  [3]float32

	viewMatrix              [16]float32
	projectionMatrix        [16]float32
	viewProjectionMatrix    [16]float32
	inverseProjectionMatrix [16]float32

	// When set, the matrices were written explicitly (e.g. by the reflection
	// system) and Update must not recompute them from the controller.
	viewOverridden bool
	projOverridden bool

	renderTarget RenderTarget
	controller   CameraController
}

// Camera holds perspective settings, a world pose, and view/projection
// matrices. Matrices are either derived from an attached CameraController each
// frame via Update(), or written explicitly through SetViewMatrix /
// SetProjectionMatrix by systems that compute their own transforms (such as
// the planar reflection pass).
type Camera interface {
	// Up returns the camera's up vector.
	//
	// Returns:
	//   - x, y, z: up vector components
	Up() (x, y, z float32)

	// Fov returns the field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Position returns the camera's world-space position. Derived from the
	// controller when one is attached, or from the last SetPose call.
	//
	// Returns:
	//   - x, y, z: world-space position
	Position() (x, y, z float32)

	// Forward returns the camera's normalized world-space view direction.
	//
	// Returns:
	//   - x, y, z: view direction components
	Forward() (x, y, z float32)

	// PixelSize returns the camera's output dimensions in pixels.
	//
	// Returns:
	//   - width, height: output dimensions in pixels
	PixelSize() (width, height int)

	// Enabled reports whether the camera participates in the renderer's
	// automatic per-frame camera loop. Disabled cameras render only by
	// explicit request (RenderCameraToTarget).
	//
	// Returns:
	//   - bool: true if the camera is auto-rendered each frame
	Enabled() bool

	// CullingMask returns the bitset of renderable layers this camera draws.
	//
	// Returns:
	//   - uint32: the layer bitset
	CullingMask() uint32

	// RenderShadows reports whether shadow passes run for this camera.
	//
	// Returns:
	//   - bool: true if shadows are rendered
	RenderShadows() bool

	// OcclusionCulling reports whether occlusion culling runs for this camera.
	//
	// Returns:
	//   - bool: true if occlusion culling is enabled
	OcclusionCulling() bool

	// RequestRenderTextures reports whether the camera asks the pipeline for
	// its own auxiliary color/depth textures.
	//
	// Returns:
	//   - bool: true if auxiliary textures are requested
	RequestRenderTextures() bool

	// RenderTarget returns the offscreen target bound to this camera, or nil
	// when the camera renders to the surface.
	//
	// Returns:
	//   - RenderTarget: the bound target or nil
	RenderTarget() RenderTarget

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the combined view-projection matrix.
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// InverseProjectionMatrix returns the inverse of the projection matrix.
	//
	// Returns:
	//   - [16]float32: the inverse projection matrix
	InverseProjectionMatrix() [16]float32

	// Controller returns the attached CameraController, or nil.
	//
	// Returns:
	//   - CameraController: the attached controller or nil
	Controller() CameraController

	// Update reads position/target from the controller and recomputes any
	// matrices that have not been explicitly overridden. Should be called once
	// per frame. No-op when no controller is attached.
	Update()

	// CloneConfig returns builder options reproducing this camera's optical
	// configuration (up, fov, aspect, near/far, pixel size). Used to derive
	// secondary cameras from a main camera.
	//
	// Returns:
	//   - []CameraBuilderOption: options recreating the configuration
	CloneConfig() []CameraBuilderOption

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - x, y, z: up vector components
	SetUp(x, y, z float32)

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// SetPixelSize sets the camera's output dimensions in pixels.
	//
	// Parameters:
	//   - width, height: output dimensions in pixels
	SetPixelSize(width, height int)

	// SetEnabled includes or excludes the camera from automatic rendering.
	//
	// Parameters:
	//   - enabled: true to auto-render each frame
	SetEnabled(enabled bool)

	// SetCullingMask sets the bitset of renderable layers.
	//
	// Parameters:
	//   - mask: the layer bitset
	SetCullingMask(mask uint32)

	// SetRenderShadows enables or disables shadow passes for this camera.
	//
	// Parameters:
	//   - renderShadows: true to render shadows
	SetRenderShadows(renderShadows bool)

	// SetOcclusionCulling enables or disables occlusion culling.
	//
	// Parameters:
	//   - enabled: true to occlusion-cull
	SetOcclusionCulling(enabled bool)

	// SetRequestRenderTextures enables or disables auxiliary texture requests.
	//
	// Parameters:
	//   - request: true to request auxiliary color/depth textures
	SetRequestRenderTextures(request bool)

	// SetRenderTarget binds an offscreen target, or nil for the surface.
	//
	// Parameters:
	//   - target: the target to bind or nil
	SetRenderTarget(target RenderTarget)

	// SetPose sets the camera's world position and view direction directly,
	// without touching the matrices. Used together with SetViewMatrix by
	// systems that derive both.
	//
	// Parameters:
	//   - px, py, pz: world-space position
	//   - fx, fy, fz: view direction (normalized by the caller)
	SetPose(px, py, pz, fx, fy, fz float32)

	// SetViewMatrix writes the view matrix explicitly and marks it overridden:
	// Update will no longer recompute it from the controller until
	// ClearMatrixOverrides is called.
	//
	// Parameters:
	//   - m: the view matrix (column-major)
	SetViewMatrix(m [16]float32)

	// SetProjectionMatrix writes the projection matrix explicitly and marks it
	// overridden, like SetViewMatrix.
	//
	// Parameters:
	//   - m: the projection matrix (column-major)
	SetProjectionMatrix(m [16]float32)

	// ClearMatrixOverrides returns matrix ownership to the controller path.
	ClearMatrixOverrides()

	// SetController attaches a CameraController to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings.
// Cameras default to enabled with all culling layers visible.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:                    &sync.Mutex{},
		up:                    [3]float32{0, 1, 0},
		fov:                   45.0 * (math.Pi / 180.0), // radians
		aspect:                1.0,
		near:                  0.1,
		far:                   100.0,
		enabled:               true,
		cullingMask:           DefaultCullingMask,
		renderShadows:         true,
		occlusionCulling:      true,
		requestRenderTextures: true,
		forward:               [3]float32{0, 0, -1},
		viewMatrix:            [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		projectionMatrix:      [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		viewProjectionMatrix:  [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.updateMatrices()
	}
	return c
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position[0], c.position[1], c.position[2]
}

func (c *cameraImpl) Forward() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forward[0], c.forward[1], c.forward[2]
}

func (c *cameraImpl) PixelSize() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pixelWidth, c.pixelHeight
}

func (c *cameraImpl) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *cameraImpl) CullingMask() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cullingMask
}

func (c *cameraImpl) RenderShadows() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderShadows
}

func (c *cameraImpl) OcclusionCulling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.occlusionCulling
}

func (c *cameraImpl) RequestRenderTextures() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestRenderTextures
}

func (c *cameraImpl) RenderTarget() RenderTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderTarget
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) CloneConfig() []CameraBuilderOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return []CameraBuilderOption{
		WithUp(c.up[0], c.up[1], c.up[2]),
		WithFov(c.fov),
		WithAspect(c.aspect),
		WithNear(c.near),
		WithFar(c.far),
		WithPixelSize(c.pixelWidth, c.pixelHeight),
	}
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetPixelSize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pixelWidth = width
	c.pixelHeight = height
	if height > 0 {
		c.aspect = float32(width) / float32(height)
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *cameraImpl) SetCullingMask(mask uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cullingMask = mask
}

func (c *cameraImpl) SetRenderShadows(renderShadows bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderShadows = renderShadows
}

func (c *cameraImpl) SetOcclusionCulling(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.occlusionCulling = enabled
}

func (c *cameraImpl) SetRequestRenderTextures(request bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestRenderTextures = request
}

func (c *cameraImpl) SetRenderTarget(target RenderTarget) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderTarget = target
}

func (c *cameraImpl) SetPose(px, py, pz, fx, fy, fz float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [3]float32{px, py, pz}
	c.forward = [3]float32{fx, fy, fz}
}

func (c *cameraImpl) SetViewMatrix(m [16]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewMatrix = m
	c.viewOverridden = true
	c.composeMatrices()
}

func (c *cameraImpl) SetProjectionMatrix(m [16]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectionMatrix = m
	c.projOverridden = true
	c.composeMatrices()
}

func (c *cameraImpl) ClearMatrixOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewOverridden = false
	c.projOverridden = false
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// updateMatrices recalculates any non-overridden matrices from the controller
// and perspective settings, then recomposes the derived products.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil && !c.viewOverridden {
		px, py, pz := c.controller.Position()
		tx, ty, tz := c.controller.Target()

		common.LookAt(c.viewMatrix[:],
			px, py, pz,
			tx, ty, tz,
			c.up[0], c.up[1], c.up[2],
		)

		c.position = [3]float32{px, py, pz}
		dx, dy, dz := tx-px, ty-py, tz-pz
		lenSq := float64(dx*dx + dy*dy + dz*dz)
		if lenSq > 0 {
			inv := float32(1.0 / math.Sqrt(lenSq))
			c.forward = [3]float32{dx * inv, dy * inv, dz * inv}
		}
	}

	if !c.projOverridden {
		common.Perspective(c.projectionMatrix[:],
			c.fov, c.aspect, c.near, c.far,
		)
	}

	c.composeMatrices()
}

// composeMatrices refreshes the view-projection product and the inverse
// projection. Caller must hold the mutex.
func (c *cameraImpl) composeMatrices() {
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	common.Invert4(c.inverseProjectionMatrix[:], c.projectionMatrix[:])
}
