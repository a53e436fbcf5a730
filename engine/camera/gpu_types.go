package camera

import (
	"github.com/bodardr/reflections/common"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform
// struct. Matches GPUCameraUniform layout exactly (80 bytes, std140 aligned).
const GPUCameraUniformSource = `struct CameraUniform {
    view_proj: mat4x4<f32>,
    camera_position: vec3<f32>,
};
`

// GPUCameraUniform is the GPU-aligned representation of the camera uniform
// buffer. Matches the WGSL CameraUniform struct layout exactly.
// Size: 80 bytes.
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	CameraPosition [3]float32  // offset 64: world-space camera position (vec3<f32>)
	_              float32     // offset 76: padding to 80 bytes
}

// NewGPUCameraUniform snapshots a camera's matrices and pose into the GPU
// uniform layout.
//
// Parameters:
//   - cam: the camera to snapshot
//
// Returns:
//   - GPUCameraUniform: the uniform data ready for upload
func NewGPUCameraUniform(cam Camera) GPUCameraUniform {
	px, py, pz := cam.Position()
	return GPUCameraUniform{
		ViewProj:       cam.ViewProjectionMatrix(),
		CameraPosition: [3]float32{px, py, pz},
	}
}

// Marshal serializes the uniform into a byte buffer suitable for GPU upload.
// The returned slice views the struct's memory directly.
//
// Returns:
//   - []byte: the serialized byte buffer (80 bytes)
func (g *GPUCameraUniform) Marshal() []byte {
	return common.StructToBytes(g)
}
