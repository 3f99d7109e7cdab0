package animator

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-assets/common"
)

// GPUJointMatricesSource is the canonical WGSL definition of the JointMatrices storage buffer.
// Every element is one column-major mat4x4<f32> (64 bytes).
//
//go:embed assets/joint_matrices.wgsl
var GPUJointMatricesSource string

// JointMatrixSize is the size of one marshalled joint matrix in bytes.
const JointMatrixSize = 64

// JointMatricesBinding is the binding index of the skinning storage buffer.
const JointMatricesBinding = 0

// MarshalJointMatrices serializes skinning matrices into a storage buffer payload.
//
// Parameters:
//   - matrices: column-major matrices, one per joint
//
// Returns:
//   - []byte: len(matrices)*64 bytes ready for GPU upload
func MarshalJointMatrices(matrices []common.Mat4) []byte {
	buf := make([]byte, len(matrices)*JointMatrixSize)
	for i, m := range matrices {
		base := i * JointMatrixSize
		for j := range 16 {
			binary.LittleEndian.PutUint32(buf[base+j*4:base+(j+1)*4], math.Float32bits(m[j]))
		}
	}
	return buf
}
