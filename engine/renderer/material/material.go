package material

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNotRealized is returned by Sync when the material has no GPU resources yet.
var ErrNotRealized = errors.New("material has no GPU resources")

// material is the implementation of the Material interface.
type material struct {
	mu sync.RWMutex

	name              string
	tint              [4]float32
	emissive          [3]float32
	emissiveStrength  float32
	metallic          float32
	roughness         float32
	normalScale       float32
	occlusionStrength float32
	alphaCutoff       float32
	uvTiling          [2]float32
	alphaMode         common.AlphaMode
	doubleSided       bool
	wrapMode          wgpu.AddressMode
	textureTag        string

	// textures holds the CPU-side texture data per slot; nil means the source had no texture in that slot.
	textures [common.TextureSlotCount]*common.ImportedTexture

	dirty             bool
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material defines the interface for a PBR material: surface factors, per-slot textures and the
// GPU resources (uniform buffer, textures and bind group) needed for draw calls.
//
// Every scalar setter marks the material dirty; Sync rewrites the uniform buffer when dirty.
// Texture data is set at load time and is read-only through this interface.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Tint retrieves the base colour factor.
	//
	// Returns:
	//   - [4]float32: the RGBA tint
	Tint() [4]float32

	// SetTint sets the base colour factor and marks the material dirty.
	//
	// Parameters:
	//   - tint: the RGBA tint
	SetTint(tint [4]float32)

	// Emissive retrieves the emissive colour factor.
	//
	// Returns:
	//   - [3]float32: the RGB emissive colour
	Emissive() [3]float32

	// SetEmissive sets the emissive colour factor and marks the material dirty.
	//
	// Parameters:
	//   - emissive: the RGB emissive colour
	SetEmissive(emissive [3]float32)

	// EmissiveStrength retrieves the emissive multiplier.
	//
	// Returns:
	//   - float32: the emissive strength
	EmissiveStrength() float32

	// SetEmissiveStrength sets the emissive multiplier and marks the material dirty.
	//
	// Parameters:
	//   - strength: the emissive strength
	SetEmissiveStrength(strength float32)

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// SetMetallic sets the metallic factor and marks the material dirty.
	//
	// Parameters:
	//   - metallic: the metallic factor
	SetMetallic(metallic float32)

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// SetRoughness sets the roughness factor and marks the material dirty.
	//
	// Parameters:
	//   - roughness: the roughness factor
	SetRoughness(roughness float32)

	// NormalScale retrieves the normal map scale.
	//
	// Returns:
	//   - float32: the normal scale
	NormalScale() float32

	// SetNormalScale sets the normal map scale and marks the material dirty.
	//
	// Parameters:
	//   - scale: the normal scale
	SetNormalScale(scale float32)

	// OcclusionStrength retrieves the occlusion strength.
	//
	// Returns:
	//   - float32: the occlusion strength
	OcclusionStrength() float32

	// SetOcclusionStrength sets the occlusion strength and marks the material dirty.
	//
	// Parameters:
	//   - strength: the occlusion strength
	SetOcclusionStrength(strength float32)

	// AlphaCutoff retrieves the alpha mask threshold.
	//
	// Returns:
	//   - float32: the alpha cutoff
	AlphaCutoff() float32

	// SetAlphaCutoff sets the alpha mask threshold and marks the material dirty.
	//
	// Parameters:
	//   - cutoff: the alpha cutoff
	SetAlphaCutoff(cutoff float32)

	// UVTiling retrieves the texture coordinate scale.
	//
	// Returns:
	//   - [2]float32: the UV tiling
	UVTiling() [2]float32

	// SetUVTiling sets the texture coordinate scale and marks the material dirty.
	//
	// Parameters:
	//   - tiling: the UV tiling
	SetUVTiling(tiling [2]float32)

	// AlphaMode retrieves the blending mode.
	//
	// Returns:
	//   - common.AlphaMode: the alpha mode
	AlphaMode() common.AlphaMode

	// SetAlphaMode sets the blending mode and marks the material dirty.
	//
	// Parameters:
	//   - mode: the alpha mode
	SetAlphaMode(mode common.AlphaMode)

	// DoubleSided reports whether back-face culling is disabled.
	//
	// Returns:
	//   - bool: true if double sided
	DoubleSided() bool

	// SetDoubleSided sets double-sidedness and marks the material dirty.
	//
	// Parameters:
	//   - doubleSided: true to disable back-face culling
	SetDoubleSided(doubleSided bool)

	// WrapMode retrieves the U address mode of the diffuse sampler.
	//
	// Returns:
	//   - wgpu.AddressMode: the wrap mode
	WrapMode() wgpu.AddressMode

	// TextureTag retrieves the optional tag of the main texture.
	//
	// Returns:
	//   - string: the tag, or "" when unset
	TextureTag() string

	// SetTextureTag sets the optional tag of the main texture.
	//
	// Parameters:
	//   - tag: the tag
	SetTextureTag(tag string)

	// ImportedTexture retrieves the CPU-side texture data of a slot.
	//
	// Parameters:
	//   - slot: the texture slot
	//
	// Returns:
	//   - *common.ImportedTexture: the texture data, or nil when the source had none
	ImportedTexture(slot common.TextureSlot) *common.ImportedTexture

	// HasTexture reports whether the source provided a texture for a slot.
	//
	// Parameters:
	//   - slot: the texture slot
	//
	// Returns:
	//   - bool: true if the slot holds source texture data
	HasTexture(slot common.TextureSlot) bool

	// Texture retrieves the GPU texture bound for a slot. After realization every slot is bound, with fallbacks for absent slots.
	//
	// Parameters:
	//   - slot: the texture slot
	//
	// Returns:
	//   - renderer.Texture: the bound texture, or nil before realization
	Texture(slot common.TextureSlot) renderer.Texture

	// Diffuse retrieves the GPU diffuse texture.
	//
	// Returns:
	//   - renderer.Texture: the diffuse texture, or nil before realization
	Diffuse() renderer.Texture

	// Normal retrieves the GPU normal texture.
	//
	// Returns:
	//   - renderer.Texture: the normal texture, or nil before realization
	Normal() renderer.Texture

	// Uniform builds the GPU uniform from the current factors and texture flags.
	//
	// Returns:
	//   - GPUMaterialUniform: the uniform
	Uniform() GPUMaterialUniform

	// IsDirty reports whether a setter was called since the last Sync or realization.
	//
	// Returns:
	//   - bool: true if the uniform buffer is stale
	IsDirty() bool

	// Sync rewrites the uniform buffer when the material is dirty.
	//
	// Parameters:
	//   - dev: the device that realized the material
	//
	// Returns:
	//   - error: ErrNotRealized before realization, or the device write error
	Sync(dev renderer.Device) error

	// BindGroupProvider retrieves the bind group provider holding GPU-side resources for this material.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider, or nil if not yet realized
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetBindGroupProvider sets the bind group provider for this material.
	// The provider's uniform buffer is assumed to hold the current Uniform, so the material is marked clean.
	//
	// Parameters:
	//   - provider: the bind group provider containing GPU resources for this material
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)

	// Clone copies the factors and the CPU-side texture data into a new, unrealized material.
	// The imported texture data is shared; GPU resources are not. The copy is dirty until it is realized.
	//
	// Returns:
	//   - Material: the copy
	Clone() Material

	// Release frees the GPU resources held by the bind group provider. Shared fallback textures are not released.
	Release()
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// Defaults follow glTF: white tint, metallic 1, roughness 1, alpha cutoff 0.5, unit scales.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		tint:              [4]float32{1, 1, 1, 1},
		emissiveStrength:  1.0,
		metallic:          1.0,
		roughness:         1.0,
		normalScale:       1.0,
		occlusionStrength: 1.0,
		alphaCutoff:       0.5,
		uvTiling:          [2]float32{1, 1},
		wrapMode:          wgpu.AddressModeRepeat,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Tint() [4]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tint
}

func (m *material) SetTint(tint [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tint = tint
	m.dirty = true
}

func (m *material) Emissive() [3]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emissive
}

func (m *material) SetEmissive(emissive [3]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emissive = emissive
	m.dirty = true
}

func (m *material) EmissiveStrength() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emissiveStrength
}

func (m *material) SetEmissiveStrength(strength float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emissiveStrength = strength
	m.dirty = true
}

func (m *material) Metallic() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metallic
}

func (m *material) SetMetallic(metallic float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metallic = metallic
	m.dirty = true
}

func (m *material) Roughness() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roughness
}

func (m *material) SetRoughness(roughness float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roughness = roughness
	m.dirty = true
}

func (m *material) NormalScale() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.normalScale
}

func (m *material) SetNormalScale(scale float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.normalScale = scale
	m.dirty = true
}

func (m *material) OcclusionStrength() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.occlusionStrength
}

func (m *material) SetOcclusionStrength(strength float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occlusionStrength = strength
	m.dirty = true
}

func (m *material) AlphaCutoff() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alphaCutoff
}

func (m *material) SetAlphaCutoff(cutoff float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alphaCutoff = cutoff
	m.dirty = true
}

func (m *material) UVTiling() [2]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uvTiling
}

func (m *material) SetUVTiling(tiling [2]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uvTiling = tiling
	m.dirty = true
}

func (m *material) AlphaMode() common.AlphaMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alphaMode
}

func (m *material) SetAlphaMode(mode common.AlphaMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alphaMode = mode
	m.dirty = true
}

func (m *material) DoubleSided() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doubleSided
}

func (m *material) SetDoubleSided(doubleSided bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doubleSided = doubleSided
	m.dirty = true
}

func (m *material) WrapMode() wgpu.AddressMode {
	return m.wrapMode
}

func (m *material) TextureTag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.textureTag
}

func (m *material) SetTextureTag(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textureTag = tag
}

func (m *material) ImportedTexture(slot common.TextureSlot) *common.ImportedTexture {
	if slot < 0 || int(slot) >= common.TextureSlotCount {
		return nil
	}
	return m.textures[slot]
}

func (m *material) HasTexture(slot common.TextureSlot) bool {
	return m.ImportedTexture(slot) != nil
}

func (m *material) Texture(slot common.TextureSlot) renderer.Texture {
	p := m.BindGroupProvider()
	if p == nil {
		return nil
	}
	return p.Texture(TextureBinding(slot))
}

func (m *material) Diffuse() renderer.Texture {
	return m.Texture(common.SlotDiffuse)
}

func (m *material) Normal() renderer.Texture {
	return m.Texture(common.SlotNormal)
}

func (m *material) Uniform() GPUMaterialUniform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uniformLocked()
}

// uniformLocked builds the uniform; the caller holds mu.
func (m *material) uniformLocked() GPUMaterialUniform {
	return GPUMaterialUniform{
		BaseColour:        m.tint,
		Emissive:          m.emissive,
		EmissiveStrength:  m.emissiveStrength,
		Metallic:          m.metallic,
		Roughness:         m.roughness,
		NormalScale:       m.normalScale,
		OcclusionStrength: m.occlusionStrength,
		AlphaCutoff:       m.alphaCutoff,
		UVTiling:          m.uvTiling,
		HasNormal:         boolU32(m.textures[common.SlotNormal] != nil),
		HasEmissive:       boolU32(m.textures[common.SlotEmissive] != nil),
		HasMetallic:       boolU32(m.textures[common.SlotMetallicRoughness] != nil),
		HasOcclusion:      boolU32(m.textures[common.SlotOcclusion] != nil),
	}
}

func (m *material) IsDirty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirty
}

func (m *material) Sync(dev renderer.Device) error {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	p := m.bindGroupProvider
	if p == nil || p.Buffer(UniformBinding) == nil {
		m.mu.Unlock()
		return fmt.Errorf("material %q: %w", m.name, ErrNotRealized)
	}
	u := m.uniformLocked()
	m.dirty = false
	m.mu.Unlock()

	if err := bind_group_provider.WriteBuffers(dev, []bind_group_provider.BufferWrite{
		{Provider: p, Binding: UniformBinding, Offset: 0, Data: u.Marshal()},
	}); err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return fmt.Errorf("material %q: %w", m.name, err)
	}
	return nil
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindGroupProvider
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindGroupProvider = provider
	m.dirty = false
}

func (m *material) Clone() Material {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &material{
		name:              m.name,
		tint:              m.tint,
		emissive:          m.emissive,
		emissiveStrength:  m.emissiveStrength,
		metallic:          m.metallic,
		roughness:         m.roughness,
		normalScale:       m.normalScale,
		occlusionStrength: m.occlusionStrength,
		alphaCutoff:       m.alphaCutoff,
		uvTiling:          m.uvTiling,
		alphaMode:         m.alphaMode,
		doubleSided:       m.doubleSided,
		wrapMode:          m.wrapMode,
		textureTag:        m.textureTag,
		textures:          m.textures,
		dirty:             true,
	}
}

func (m *material) Release() {
	m.mu.Lock()
	p := m.bindGroupProvider
	m.bindGroupProvider = nil
	m.mu.Unlock()

	if p != nil {
		p.Release()
	}
}
