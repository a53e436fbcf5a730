package camera

import "sync"

// CameraController owns the positional state a camera derives its view matrix
// from. The camera reads position and target during Update and computes the
// matrices itself.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - x, y, z: world-space camera position
	Position() (x, y, z float32)

	// Target returns the look-at point.
	//
	// Returns:
	//   - x, y, z: world-space target position
	Target() (x, y, z float32)

	// SetPosition sets the camera's world-space position directly.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetPosition(x, y, z float32)

	// SetTarget sets the look-at point.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)
}

type lookAtController struct {
	mu       *sync.Mutex
	position [3]float32
	target   [3]float32
}

var _ CameraController = &lookAtController{}

// NewLookAtController creates a controller holding an explicit position and
// look-at target.
//
// Parameters:
//   - px, py, pz: initial world-space position
//   - tx, ty, tz: initial look-at target
//
// Returns:
//   - CameraController: the newly created controller
func NewLookAtController(px, py, pz, tx, ty, tz float32) CameraController {
	return &lookAtController{
		mu:       &sync.Mutex{},
		position: [3]float32{px, py, pz},
		target:   [3]float32{tx, ty, tz},
	}
}

func (l *lookAtController) Position() (x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position[0], l.position[1], l.position[2]
}

func (l *lookAtController) Target() (x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target[0], l.target[1], l.target[2]
}

func (l *lookAtController) SetPosition(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = [3]float32{x, y, z}
}

func (l *lookAtController) SetTarget(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target = [3]float32{x, y, z}
}
