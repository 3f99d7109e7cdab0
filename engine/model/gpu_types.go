package model

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// ModelVertexSource is the canonical WGSL definition of the VertexInput struct for model pipelines.
// Matches ModelVertex layout exactly (96 bytes).
//
//go:embed assets/model_vertex.wgsl
var ModelVertexSource string

// ModelVertexSize is the size of one marshalled ModelVertex in bytes.
const ModelVertexSize = 96

// ModelVertex is the GPU-aligned representation of a single mesh vertex.
// Every model uses the same layout; static meshes carry zero joints and weights (1, 0, 0, 0).
// Size: 96 bytes, little-endian.
type ModelVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	Tangent  [4]float32 // offset 24: tangent vector (xyz) + handedness (w) for normal mapping (16 bytes)
	UV0      [2]float32 // offset 40: primary texture coordinate (8 bytes)
	UV1      [2]float32 // offset 48: secondary texture coordinate (8 bytes)
	Color    [4]float32 // offset 56: per-vertex RGBA color (16 bytes)
	Joints   [4]uint16  // offset 72: indices of up to 4 influencing joints (8 bytes)
	Weights  [4]float32 // offset 80: blend weights for each joint (16 bytes)
}

// Size returns the size of the marshalled ModelVertex in bytes.
//
// Returns:
//   - int: the size of the vertex in bytes.
func (v *ModelVertex) Size() int {
	return ModelVertexSize
}

// Marshal serializes the ModelVertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (v *ModelVertex) Marshal() []byte {
	buf := make([]byte, ModelVertexSize)
	v.put(buf)
	return buf
}

func (v *ModelVertex) put(buf []byte) {
	putF32 := func(off int, f float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
	}
	for i := 0; i < 3; i++ {
		putF32(0+i*4, v.Position[i])
		putF32(12+i*4, v.Normal[i])
	}
	for i := 0; i < 4; i++ {
		putF32(24+i*4, v.Tangent[i])
		putF32(56+i*4, v.Color[i])
		binary.LittleEndian.PutUint16(buf[72+i*2:74+i*2], v.Joints[i])
		putF32(80+i*4, v.Weights[i])
	}
	for i := 0; i < 2; i++ {
		putF32(40+i*4, v.UV0[i])
		putF32(48+i*4, v.UV1[i])
	}
}

// MarshalVertices serializes a slice of vertices into one contiguous vertex buffer.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: len(vertices)*96 bytes ready for GPU upload
func MarshalVertices(vertices []ModelVertex) []byte {
	buf := make([]byte, len(vertices)*ModelVertexSize)
	for i := range vertices {
		vertices[i].put(buf[i*ModelVertexSize : (i+1)*ModelVertexSize])
	}
	return buf
}

// MarshalIndices serializes u32 indices into a little-endian index buffer.
//
// Parameters:
//   - indices: the triangle indices
//
// Returns:
//   - []byte: len(indices)*4 bytes ready for GPU upload
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], idx)
	}
	return buf
}

// ModelVertexBufferLayout returns the vertex buffer layout matching ModelVertex and ModelVertexSource.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout with 8 attributes and a 96-byte stride
func ModelVertexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: ModelVertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 24, ShaderLocation: 2},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 40, ShaderLocation: 3},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 48, ShaderLocation: 4},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 56, ShaderLocation: 5},
			{Format: wgpu.VertexFormatUint16x4, Offset: 72, ShaderLocation: 6},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 80, ShaderLocation: 7},
		},
	}
}

// ComputeBounds calculates the axis-aligned bounding box of a set of vertices.
//
// Parameters:
//   - vertices: the vertex data to compute the bounds from
//
// Returns:
//   - [3]float32: the minimum corner, zero for an empty slice
//   - [3]float32: the maximum corner, zero for an empty slice
func ComputeBounds(vertices []ModelVertex) ([3]float32, [3]float32) {
	if len(vertices) == 0 {
		return [3]float32{}, [3]float32{}
	}
	lo, hi := vertices[0].Position, vertices[0].Position
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], v.Position[i])
			hi[i] = max(hi[i], v.Position[i])
		}
	}
	return lo, hi
}

// ComputeBoundingRadius calculates the bounding sphere radius from a slice of
// ModelVertex positions. The radius is the maximum distance from the origin
// across all vertices in the slice.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []ModelVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return math32.Sqrt(maxDistSq)
}
