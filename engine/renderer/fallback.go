package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/common"
)

var (
	// GreyRGBA is the colour of the diffuse fallback texture.
	GreyRGBA = [4]uint8{128, 128, 128, 255}
	// FlatNormalRGBA encodes the tangent-space normal (0, 0, 1).
	FlatNormalRGBA = [4]uint8{128, 128, 255, 255}
	// WhiteRGBA is the colour of the emissive, metallic-roughness and occlusion fallbacks.
	WhiteRGBA = [4]uint8{255, 255, 255, 255}
)

// FallbackTextures provides shared 1x1 solid-colour textures that stand in for absent material slots.
// Textures are memoized per Device and colour, so every material that falls back to the same colour binds the same Texture.
// Fallback textures are owned by the provider; callers must not Release them directly.
type FallbackTextures interface {
	// Grey returns the shared (128,128,128,255) sRGB texture used for absent diffuse slots.
	//
	// Parameters:
	//   - dev: the device to create the texture on
	//
	// Returns:
	//   - Texture: the shared texture
	//   - error: error if the texture could not be created
	Grey(dev Device) (Texture, error)

	// FlatNormal returns the shared (128,128,255,255) linear texture used for absent normal slots.
	//
	// Parameters:
	//   - dev: the device to create the texture on
	//
	// Returns:
	//   - Texture: the shared texture
	//   - error: error if the texture could not be created
	FlatNormal(dev Device) (Texture, error)

	// White returns the shared white texture.
	//
	// Parameters:
	//   - dev: the device to create the texture on
	//   - srgb: whether the texture is sampled as sRGB
	//
	// Returns:
	//   - Texture: the shared texture
	//   - error: error if the texture could not be created
	White(dev Device, srgb bool) (Texture, error)

	// Solid returns a shared 1x1 texture of the given colour.
	//
	// Parameters:
	//   - dev: the device to create the texture on
	//   - rgba: the texel colour
	//   - srgb: whether the texture is sampled as sRGB
	//
	// Returns:
	//   - Texture: the shared texture
	//   - error: error if the texture could not be created
	Solid(dev Device, rgba [4]uint8, srgb bool) (Texture, error)

	// IsFallback reports whether tex is one of the shared textures.
	//
	// Parameters:
	//   - tex: the texture to check
	//
	// Returns:
	//   - bool: true if the provider owns tex
	IsFallback(tex Texture) bool

	// Release frees every shared texture created on dev.
	//
	// Parameters:
	//   - dev: the device whose textures are released
	Release(dev Device)
}

type fallbackKey struct {
	dev  Device
	rgba [4]uint8
	srgb bool
}

type fallbackTextures struct {
	mu       sync.Mutex
	textures map[fallbackKey]Texture
	owned    map[Texture]struct{}
}

var _ FallbackTextures = &fallbackTextures{}

// NewFallbackTextures creates an empty fallback provider.
//
// Returns:
//   - FallbackTextures: the provider
func NewFallbackTextures() FallbackTextures {
	return &fallbackTextures{
		textures: make(map[fallbackKey]Texture),
		owned:    make(map[Texture]struct{}),
	}
}

func (f *fallbackTextures) Grey(dev Device) (Texture, error) {
	return f.Solid(dev, GreyRGBA, true)
}

func (f *fallbackTextures) FlatNormal(dev Device) (Texture, error) {
	return f.Solid(dev, FlatNormalRGBA, false)
}

func (f *fallbackTextures) White(dev Device, srgb bool) (Texture, error) {
	return f.Solid(dev, WhiteRGBA, srgb)
}

func (f *fallbackTextures) Solid(dev Device, rgba [4]uint8, srgb bool) (Texture, error) {
	key := fallbackKey{dev: dev, rgba: rgba, srgb: srgb}

	f.mu.Lock()
	defer f.mu.Unlock()

	if tex, ok := f.textures[key]; ok {
		return tex, nil
	}

	space := "linear"
	if srgb {
		space = "srgb"
	}
	label := fmt.Sprintf("Fallback %02x%02x%02x%02x %s", rgba[0], rgba[1], rgba[2], rgba[3], space)
	tex, err := dev.CreateTexture(label, common.TextureStagingData{
		Pixels: []byte{rgba[0], rgba[1], rgba[2], rgba[3]},
		Width:  1,
		Height: 1,
		Format: common.PixelFormatRGBA8,
		SRGB:   srgb,
	}, common.DefaultSamplerStagingData())
	if err != nil {
		return nil, err
	}

	f.textures[key] = tex
	f.owned[tex] = struct{}{}
	return tex, nil
}

func (f *fallbackTextures) IsFallback(tex Texture) bool {
	if tex == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.owned[tex]
	return ok
}

func (f *fallbackTextures) Release(dev Device) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, tex := range f.textures {
		if key.dev != dev {
			continue
		}
		tex.Release()
		delete(f.owned, tex)
		delete(f.textures, key)
	}
}
