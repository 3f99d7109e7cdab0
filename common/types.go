// package common contains common types that are used throughout the asset pipeline. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PixelFormat describes the channel layout of decoded image pixels before GPU upload.
type PixelFormat int

const (
	// PixelFormatUnknown is an unrecognized layout. It is never uploaded.
	PixelFormatUnknown PixelFormat = iota
	// PixelFormatR8 is one 8-bit channel per pixel.
	PixelFormatR8
	// PixelFormatRG8 is two 8-bit channels per pixel.
	PixelFormatRG8
	// PixelFormatRGB8 is three 8-bit channels per pixel. It is expanded to RGBA8 before upload.
	PixelFormatRGB8
	// PixelFormatRGBA8 is four 8-bit channels per pixel.
	PixelFormatRGBA8
)

// Channels returns the number of 8-bit channels per pixel, or 0 for an unknown format.
func (f PixelFormat) Channels() int {
	switch f {
	case PixelFormatR8:
		return 1
	case PixelFormatRG8:
		return 2
	case PixelFormatRGB8:
		return 3
	case PixelFormatRGBA8:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatR8:
		return "R8"
	case PixelFormatRG8:
		return "RG8"
	case PixelFormatRGB8:
		return "RGB8"
	case PixelFormatRGBA8:
		return "RGBA8"
	default:
		return "Unknown"
	}
}

// AlphaMode is the alpha blending mode of a material.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaMask:
		return "Mask"
	case AlphaBlend:
		return "Blend"
	default:
		return "Opaque"
	}
}

// TextureSlot identifies one of the five material texture slots.
type TextureSlot int

const (
	SlotDiffuse TextureSlot = iota
	SlotNormal
	SlotEmissive
	SlotMetallicRoughness
	SlotOcclusion

	// TextureSlotCount is the number of material texture slots.
	TextureSlotCount = 5
)

// String returns the slot name used in labels and logs.
func (s TextureSlot) String() string {
	switch s {
	case SlotDiffuse:
		return "diffuse"
	case SlotNormal:
		return "normal"
	case SlotEmissive:
		return "emissive"
	case SlotMetallicRoughness:
		return "metallic_roughness"
	case SlotOcclusion:
		return "occlusion"
	default:
		return "unknown"
	}
}

// SRGB reports whether textures bound to this slot hold colour data and are sampled as sRGB.
func (s TextureSlot) SRGB() bool {
	return s == SlotDiffuse || s == SlotEmissive
}

// TextureStagingData holds pixel data for a texture pending GPU upload.
// This is produced on CPU workers and consumed by the renderer Device when creating the GPU texture.
type TextureStagingData struct {
	// Pixels is the level 0 pixel data, tightly packed rows of Width*Format.Channels() bytes.
	Pixels []byte
	// Width is the width of level 0 in pixels.
	Width uint32
	// Height is the height of level 0 in pixels.
	Height uint32
	// Format is the channel layout of Pixels. Only R8, RG8 and RGBA8 are uploadable.
	Format PixelFormat
	// SRGB selects the sRGB variant of the GPU format for RGBA8 colour data.
	SRGB bool
	// Mips holds the pixel data for levels 1..n, each half the size of the previous level.
	Mips [][]byte
}

// MipLevelCount returns the number of mip levels carried by the staging data, including level 0.
func (t TextureStagingData) MipLevelCount() uint32 {
	return uint32(1 + len(t.Mips))
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DefaultSamplerStagingData returns a repeat-wrapping, linearly filtered sampler.
func DefaultSamplerStagingData() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// ImportedMaterial represents material properties extracted from a scene file, before any GPU work.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// Tint is the base colour factor (RGBA).
	Tint [4]float32

	// Emissive is the emissive colour factor (RGB).
	Emissive [3]float32

	// EmissiveStrength scales Emissive. 1 unless the source declares otherwise.
	EmissiveStrength float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	// NormalScale scales the sampled tangent-space normal.
	NormalScale float32

	// OcclusionStrength blends the occlusion texture in.
	OcclusionStrength float32

	// AlphaCutoff is the mask threshold used with AlphaMask.
	AlphaCutoff float32

	// UVTiling scales texture coordinates.
	UVTiling [2]float32

	// AlphaMode is the blending mode.
	AlphaMode AlphaMode

	// DoubleSided disables back-face culling.
	DoubleSided bool

	// WrapMode is the U address mode of the diffuse sampler, or repeat when there is no diffuse texture.
	WrapMode wgpu.AddressMode

	// TextureTag is an optional tag for the material's main texture, taken from the diffuse image name.
	TextureTag string

	// Textures holds the per-slot texture data, indexed by TextureSlot. A nil entry means the slot is absent.
	Textures [TextureSlotCount]*ImportedTexture
}

// Texture returns the imported texture in the given slot, or nil if the slot is absent.
func (m *ImportedMaterial) Texture(slot TextureSlot) *ImportedTexture {
	if slot < 0 || int(slot) >= TextureSlotCount {
		return nil
	}
	return m.Textures[slot]
}

// ImportedTexture represents texture data extracted from a scene file.
// Data holds the encoded image bytes; Staging is filled once the image has been decoded and normalized.
type ImportedTexture struct {
	// Name is an identifier for this texture (image name, or "<material>_<slot>").
	Name string

	// Data contains the encoded image bytes (PNG/JPEG/...).
	Data []byte

	// MimeType is the declared image format (e.g., "image/png").
	MimeType string

	// Sampler holds the GPU sampler parameters mapped from the source sampler.
	Sampler SamplerStagingData

	// Staging holds the decoded, normalized pixels. Nil until decoded.
	Staging *TextureStagingData
}
