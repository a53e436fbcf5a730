package reflection

import (
	"fmt"

	"github.com/bodardr/reflections/common"
	"github.com/bodardr/reflections/engine/camera"
)

// cameraController owns the reflection camera. The camera is created lazily by
// cloning the main camera's optical configuration and is recomputed every
// frame from the main camera and the mirror plane. It is never registered with
// the renderer's automatic camera loop; it renders only by explicit request.
type cameraController struct {
	cam camera.Camera
}

// ensureCreated creates the reflection camera on first use by duplicating the
// main camera's configuration, then forcing the flags a system-owned mirror
// camera requires.
func (c *cameraController) ensureCreated(main camera.Camera, settings Settings) camera.Camera {
	if c.cam != nil {
		return c.cam
	}

	cam := camera.NewCamera(main.CloneConfig()...)
	cam.SetEnabled(false)
	cam.SetOcclusionCulling(false)
	cam.SetRequestRenderTextures(false)
	cam.SetRenderShadows(settings.RenderShadows)
	cam.SetCullingMask(settings.CullingMask)
	c.cam = cam
	return cam
}

// update recomputes the reflection camera's pose and matrices from the main
// camera's current state. The plane normal must be unit length; callers
// normalize upstream. No rendering happens here.
func (c *cameraController) update(main camera.Camera, p common.Plane, settings Settings) error {
	if c.cam == nil {
		return fmt.Errorf("reflection camera not created")
	}

	mainView := main.ViewMatrix()
	mainProj := main.ProjectionMatrix()
	if common.HasNonFinite(mainView[:]) || common.HasNonFinite(mainProj[:]) {
		return fmt.Errorf("invalid geometry: non-finite main camera matrices")
	}

	// The clip bias shifts the mirror plane along its normal so geometry
	// exactly on the reflective surface does not z-fight its own reflection.
	biased := p.Offset(settings.ClipPlaneOffset)

	var refl [16]float32
	if err := common.ReflectionMatrix(refl[:], biased); err != nil {
		return err
	}

	px, py, pz := main.Position()
	fx, fy, fz := main.Forward()
	mx, my, mz := common.ReflectPoint(biased, px, py, pz)
	mfx, mfy, mfz := common.ReflectVector(biased, fx, fy, fz)

	// view_reflect = view_main * flip(y) * M. The handedness flip keeps the
	// mirrored scene from rendering inside out.
	var flip, tmp, view [16]float32
	common.FlipHandedness(flip[:])
	common.Mul4(tmp[:], mainView[:], flip[:])
	common.Mul4(view[:], tmp[:], refl[:])

	// Skew the near plane onto the mirror so geometry behind it never
	// renders. The sign orients the clip plane toward the camera's side.
	sideSign := float32(1)
	if biased.SignedDistance(px, py, pz) < 0 {
		sideSign = -1
	}
	cpx, cpy, cpz := biased.PointOn()
	clip := common.ViewSpaceClipPlane(view[:], cpx, cpy, cpz, biased.Normal[0], biased.Normal[1], biased.Normal[2], sideSign)

	var proj [16]float32
	common.ObliqueProjection(proj[:], mainProj[:], clip)

	c.cam.SetCullingMask(settings.CullingMask)
	c.cam.SetRenderShadows(settings.RenderShadows)
	c.cam.SetPose(mx, my, mz, mfx, mfy, mfz)
	c.cam.SetViewMatrix(view)
	c.cam.SetProjectionMatrix(proj)
	return nil
}

// teardown destroys the owned camera. Safe to call when none exists.
func (c *cameraController) teardown() {
	c.cam = nil
}
