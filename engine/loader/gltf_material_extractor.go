package loader

import (
	"encoding/json"
	"fmt"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
)

// Material extensions read by the extractor.
const (
	extEmissiveStrength = "KHR_materials_emissive_strength"
	extTextureTransform = "KHR_texture_transform"
)

// emissiveStrength is the payload of KHR_materials_emissive_strength.
type emissiveStrength struct {
	EmissiveStrength *float32 `json:"emissiveStrength"`
}

// textureTransform is the payload of KHR_texture_transform. Only the scale feeds the material's UV tiling.
type textureTransform struct {
	Offset   [2]float32  `json:"offset"`
	Rotation float32     `json:"rotation"`
	Scale    *[2]float32 `json:"scale"`
	TexCoord *uint32     `json:"texCoord"`
}

func init() {
	gltf.RegisterExtension(extEmissiveStrength, func(data []byte) (any, error) {
		ext := new(emissiveStrength)
		if err := json.Unmarshal(data, ext); err != nil {
			return nil, err
		}
		return ext, nil
	})
	gltf.RegisterExtension(extTextureTransform, func(data []byte) (any, error) {
		ext := new(textureTransform)
		if err := json.Unmarshal(data, ext); err != nil {
			return nil, err
		}
		return ext, nil
	})
}

// extensionAs resolves an extension entry into T whether it was decoded by a registered
// unmarshaler or left as raw JSON.
func extensionAs[T any](exts gltf.Extensions, name string) (*T, bool) {
	raw, ok := exts[name]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case *T:
		return v, true
	case json.RawMessage:
		out := new(T)
		if err := json.Unmarshal(v, out); err != nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser        gltfParser
	maxAnisotropy uint16
}

// gltfMaterialExtractor defines the interface for extracting material and texture data
// from a parsed glTF document into ImportedMaterial structs. Texture entries carry the encoded image
// bytes and the mapped sampler; decoding happens later in the texture processor.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index, including the encoded bytes of every referenced image.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - *common.ImportedMaterial: the extracted material
	//   - error: an error wrapping ErrMalformedContainer if a texture reference cannot be resolved
	ExtractMaterial(materialIndex int) (*common.ImportedMaterial, error)

	// MaterialCount returns the number of materials ExtractMaterial accepts.
	// A document without materials still yields one default material.
	//
	// Returns:
	//   - int: the material count, at least 1
	MaterialCount() int
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - maxAnisotropy: the anisotropy written into every sampler (values below 1 mean 1)
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser, maxAnisotropy uint16) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser, maxAnisotropy: max(maxAnisotropy, 1)}
}

// defaultImportedMaterial returns the material used when a document declares none.
func defaultImportedMaterial() *common.ImportedMaterial {
	return &common.ImportedMaterial{
		Name:              "Default",
		Tint:              [4]float32{1, 1, 1, 1},
		EmissiveStrength:  1,
		Metallic:          1,
		Roughness:         1,
		NormalScale:       1,
		OcclusionStrength: 1,
		AlphaCutoff:       0.5,
		UVTiling:          [2]float32{1, 1},
		AlphaMode:         common.AlphaOpaque,
		WrapMode:          wgpu.AddressModeRepeat,
	}
}

func (e *gltfMaterialExtractorImpl) MaterialCount() int {
	doc := e.parser.Document()
	if doc == nil || len(doc.Materials) == 0 {
		return 1
	}
	return len(doc.Materials)
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (*common.ImportedMaterial, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if len(doc.Materials) == 0 && materialIndex == 0 {
		logger.Info("document has no materials, using default")
		return defaultImportedMaterial(), nil
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, malformed("material %d out of range", materialIndex)
	}

	mat := doc.Materials[materialIndex]
	result := defaultImportedMaterial()
	result.Name = mat.Name
	if result.Name == "" {
		result.Name = fmt.Sprintf("material_%d", materialIndex)
	}
	result.Emissive = mat.EmissiveFactor
	result.AlphaCutoff = mat.AlphaCutoffOrDefault()
	result.DoubleSided = mat.DoubleSided
	switch mat.AlphaMode {
	case gltf.AlphaMask:
		result.AlphaMode = common.AlphaMask
	case gltf.AlphaBlend:
		result.AlphaMode = common.AlphaBlend
	default:
		result.AlphaMode = common.AlphaOpaque
	}
	if ext, ok := extensionAs[emissiveStrength](mat.Extensions, extEmissiveStrength); ok && ext.EmissiveStrength != nil {
		result.EmissiveStrength = *ext.EmissiveStrength
	}

	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		result.Tint = pbr.BaseColorFactorOrDefault()
		result.Metallic = pbr.MetallicFactorOrDefault()
		result.Roughness = pbr.RoughnessFactorOrDefault()

		if info := pbr.BaseColorTexture; info != nil {
			if err := e.attach(result, common.SlotDiffuse, info.Index); err != nil {
				return nil, err
			}
			if ext, ok := extensionAs[textureTransform](info.Extensions, extTextureTransform); ok && ext.Scale != nil {
				result.UVTiling = *ext.Scale
			}
		}
		if info := pbr.MetallicRoughnessTexture; info != nil {
			if err := e.attach(result, common.SlotMetallicRoughness, info.Index); err != nil {
				return nil, err
			}
		}
	}

	if nt := mat.NormalTexture; nt != nil {
		result.NormalScale = nt.ScaleOrDefault()
		if nt.Index != nil {
			if err := e.attach(result, common.SlotNormal, *nt.Index); err != nil {
				return nil, err
			}
		}
	}
	if ot := mat.OcclusionTexture; ot != nil {
		result.OcclusionStrength = ot.StrengthOrDefault()
		if ot.Index != nil {
			if err := e.attach(result, common.SlotOcclusion, *ot.Index); err != nil {
				return nil, err
			}
		}
	}
	if info := mat.EmissiveTexture; info != nil {
		if err := e.attach(result, common.SlotEmissive, info.Index); err != nil {
			return nil, err
		}
	}

	if diffuse := result.Textures[common.SlotDiffuse]; diffuse != nil {
		result.WrapMode = diffuse.Sampler.AddressModeU
	}
	for slot := range common.TextureSlotCount {
		if result.Textures[slot] == nil {
			logger.Debug("material slot has no texture",
				zap.String("material", result.Name), zap.Stringer("slot", common.TextureSlot(slot)))
		}
	}

	return result, nil
}

// attach resolves a texture reference into the given slot of the material.
func (e *gltfMaterialExtractorImpl) attach(mat *common.ImportedMaterial, slot common.TextureSlot, textureIndex uint32) error {
	tex, tag, err := e.loadTexture(textureIndex)
	if err != nil {
		return fmt.Errorf("material %q: %s texture: %w", mat.Name, slot, err)
	}
	if tex == nil {
		return nil
	}
	if tex.Name == "" {
		tex.Name = fmt.Sprintf("%s_%s", mat.Name, slot)
	}
	if slot == common.SlotDiffuse {
		mat.TextureTag = tag
	}
	mat.Textures[slot] = tex
	return nil
}

// loadTexture resolves a glTF texture index into an ImportedTexture holding the encoded image bytes.
// The returned tag is the source image name.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex uint32) (*common.ImportedTexture, string, error) {
	doc := e.parser.Document()
	if int(textureIndex) >= len(doc.Textures) {
		return nil, "", malformed("texture %d out of range", textureIndex)
	}

	tex := doc.Textures[textureIndex]
	if tex.Source == nil {
		return nil, "", nil
	}

	sampler := common.DefaultSamplerStagingData()
	if tex.Sampler != nil {
		if int(*tex.Sampler) >= len(doc.Samplers) {
			return nil, "", malformed("sampler %d out of range", *tex.Sampler)
		}
		sampler = samplerStagingData(doc.Samplers[*tex.Sampler])
	}
	sampler.MaxAnisotropy = e.maxAnisotropy

	data, mime, err := e.parser.ImageData(*tex.Source)
	if err != nil {
		return nil, "", err
	}
	name := doc.Images[*tex.Source].Name

	return &common.ImportedTexture{
		Name:     name,
		Data:     data,
		MimeType: mime,
		Sampler:  sampler,
	}, name, nil
}

// samplerStagingData converts a glTF sampler into SamplerStagingData.
// Unset filters fall back to linear filtering with linear mip selection; wrap W is always repeat.
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - common.SamplerStagingData: the converted sampler description
func samplerStagingData(s *gltf.Sampler) common.SamplerStagingData {
	result := common.DefaultSamplerStagingData()

	if s.MagFilter == gltf.MagNearest {
		result.MagFilter = wgpu.FilterModeNearest
	}

	switch s.MinFilter {
	case gltf.MinNearest:
		result.MinFilter, result.MipmapFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
	case gltf.MinLinear:
		result.MinFilter, result.MipmapFilter = wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest
	case gltf.MinNearestMipMapNearest:
		result.MinFilter, result.MipmapFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
	case gltf.MinLinearMipMapNearest:
		result.MinFilter, result.MipmapFilter = wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest
	case gltf.MinNearestMipMapLinear:
		result.MinFilter, result.MipmapFilter = wgpu.FilterModeNearest, wgpu.MipmapFilterModeLinear
	default:
		result.MinFilter, result.MipmapFilter = wgpu.FilterModeLinear, wgpu.MipmapFilterModeLinear
	}

	result.AddressModeU = wrapToAddressMode(s.WrapS)
	result.AddressModeV = wrapToAddressMode(s.WrapT)
	result.AddressModeW = wgpu.AddressModeRepeat
	return result
}

// wrapToAddressMode converts a glTF wrap mode to a wgpu AddressMode.
func wrapToAddressMode(wrap gltf.WrappingMode) wgpu.AddressMode {
	switch wrap {
	case gltf.WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltf.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
