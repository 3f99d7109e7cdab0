package material

import (
	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithTint is an option builder that sets the base colour factor of the material.
//
// Parameters:
//   - tint: the base colour as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the tint option to a material
func WithTint(tint [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.tint = tint
	}
}

// WithEmissive is an option builder that sets the emissive colour and strength.
//
// Parameters:
//   - emissive: the RGB emissive colour
//   - strength: the emissive multiplier
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive option to a material
func WithEmissive(emissive [3]float32, strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = emissive
		m.emissiveStrength = strength
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithAlpha is an option builder that sets the alpha mode and mask cutoff.
//
// Parameters:
//   - mode: the blending mode
//   - cutoff: the mask threshold used with common.AlphaMask
//
// Returns:
//   - MaterialBuilderOption: a function that applies the alpha option to a material
func WithAlpha(mode common.AlphaMode, cutoff float32) MaterialBuilderOption {
	return func(m *material) {
		m.alphaMode = mode
		m.alphaCutoff = cutoff
	}
}

// WithDoubleSided is an option builder that disables back-face culling.
//
// Parameters:
//   - doubleSided: true to render both faces
//
// Returns:
//   - MaterialBuilderOption: a function that applies the double-sided option to a material
func WithDoubleSided(doubleSided bool) MaterialBuilderOption {
	return func(m *material) {
		m.doubleSided = doubleSided
	}
}

// WithTexture is an option builder that sets the CPU-side texture of a slot.
//
// Parameters:
//   - slot: the texture slot
//   - tex: the imported texture data
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(slot common.TextureSlot, tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		if slot >= 0 && int(slot) < common.TextureSlotCount {
			m.textures[slot] = tex
		}
	}
}

// WithWrapMode is an option builder that sets the wrap mode reported by the material.
//
// Parameters:
//   - mode: the U address mode of the diffuse sampler
//
// Returns:
//   - MaterialBuilderOption: a function that applies the wrap mode option to a material
func WithWrapMode(mode wgpu.AddressMode) MaterialBuilderOption {
	return func(m *material) {
		m.wrapMode = mode
	}
}

// WithImported is an option builder that copies every field of an imported material.
//
// Parameters:
//   - imp: the material extracted from a scene file
//
// Returns:
//   - MaterialBuilderOption: a function that applies the imported fields to a material
func WithImported(imp *common.ImportedMaterial) MaterialBuilderOption {
	return func(m *material) {
		m.name = imp.Name
		m.tint = imp.Tint
		m.emissive = imp.Emissive
		m.emissiveStrength = imp.EmissiveStrength
		m.metallic = imp.Metallic
		m.roughness = imp.Roughness
		m.normalScale = imp.NormalScale
		m.occlusionStrength = imp.OcclusionStrength
		m.alphaCutoff = imp.AlphaCutoff
		m.uvTiling = imp.UVTiling
		m.alphaMode = imp.AlphaMode
		m.doubleSided = imp.DoubleSided
		m.wrapMode = common.Coalesce(imp.WrapMode, wgpu.AddressModeRepeat)
		m.textureTag = imp.TextureTag
		m.textures = imp.Textures
	}
}

// WithBindGroupProvider is an option builder that sets the bind group provider for the material.
//
// Parameters:
//   - provider: the bind group provider containing GPU resources for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the bind group provider option to a material
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) MaterialBuilderOption {
	return func(m *material) {
		m.bindGroupProvider = provider
	}
}
