package material

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-assets/common"
)

// GPUMaterialUniformSource is the canonical WGSL definition of the MaterialUniform struct and the material bind group.
// Matches GPUMaterialUniform layout exactly (80 bytes).
//
//go:embed assets/material_uniform.wgsl
var GPUMaterialUniformSource string

// GPUMaterialUniformSize is the size of the marshalled material uniform in bytes.
const GPUMaterialUniformSize = 80

// UniformBinding is the binding index of the material uniform buffer.
const UniformBinding = 0

// TextureBinding returns the binding index of the texture view for a slot. The sampler binds at TextureBinding+1.
//
// Parameters:
//   - slot: the texture slot
//
// Returns:
//   - int: the texture binding index (1, 3, 5, 7 or 9)
func TextureBinding(slot common.TextureSlot) int {
	return 1 + 2*int(slot)
}

// SamplerBinding returns the binding index of the sampler for a slot.
//
// Parameters:
//   - slot: the texture slot
//
// Returns:
//   - int: the sampler binding index (2, 4, 6, 8 or 10)
func SamplerBinding(slot common.TextureSlot) int {
	return 2 + 2*int(slot)
}

// GPUMaterialUniform is the GPU-aligned uniform for a material.
// Matches the WGSL MaterialUniform struct layout exactly (see GPUMaterialUniformSource).
type GPUMaterialUniform struct {
	BaseColour        [4]float32 // offset 0
	Emissive          [3]float32 // offset 16
	EmissiveStrength  float32    // offset 28
	Metallic          float32    // offset 32
	Roughness         float32    // offset 36
	NormalScale       float32    // offset 40
	OcclusionStrength float32    // offset 44
	AlphaCutoff       float32    // offset 48
	UVTiling          [2]float32 // offset 52
	HasNormal         uint32     // offset 60
	HasEmissive       uint32     // offset 64
	HasMetallic       uint32     // offset 68
	HasOcclusion      uint32     // offset 72
	_                 uint32     // offset 76
}

// Size returns the size of the marshalled uniform in bytes.
//
// Returns:
//   - int: the size of the uniform in bytes.
func (g *GPUMaterialUniform) Size() int {
	return GPUMaterialUniformSize
}

// Marshal serializes the GPUMaterialUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUMaterialUniform) Marshal() []byte {
	buf := make([]byte, GPUMaterialUniformSize)
	putF32 := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}

	for i := 0; i < 4; i++ {
		putF32(i*4, g.BaseColour[i])
	}
	for i := 0; i < 3; i++ {
		putF32(16+i*4, g.Emissive[i])
	}
	putF32(28, g.EmissiveStrength)
	putF32(32, g.Metallic)
	putF32(36, g.Roughness)
	putF32(40, g.NormalScale)
	putF32(44, g.OcclusionStrength)
	putF32(48, g.AlphaCutoff)
	putF32(52, g.UVTiling[0])
	putF32(56, g.UVTiling[1])
	binary.LittleEndian.PutUint32(buf[60:64], g.HasNormal)
	binary.LittleEndian.PutUint32(buf[64:68], g.HasEmissive)
	binary.LittleEndian.PutUint32(buf[68:72], g.HasMetallic)
	binary.LittleEndian.PutUint32(buf[72:76], g.HasOcclusion)
	return buf
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
