package loader

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/anthonynsimon/bild/transform"
	"go.uber.org/zap"
)

// textureProcessor decodes imported textures and prepares their staging data on a CPU worker.
type textureProcessor struct {
	decoder ImageDecoder
	mipmaps bool
}

// newTextureProcessor creates a texture processor.
//
// Parameters:
//   - decoder: the image decoder to use
//   - mipmaps: whether to build the full mip chain for RGBA8 textures
//
// Returns:
//   - *textureProcessor: the processor
func newTextureProcessor(decoder ImageDecoder, mipmaps bool) *textureProcessor {
	return &textureProcessor{decoder: decoder, mipmaps: mipmaps}
}

// ProcessMaterial decodes every present texture slot of a material in place.
//
// Parameters:
//   - mat: the material whose textures receive staging data
//
// Returns:
//   - error: error wrapping ErrUnsupportedTextureFormat for an image that cannot be uploaded
func (p *textureProcessor) ProcessMaterial(mat *common.ImportedMaterial) error {
	for slot := range common.TextureSlotCount {
		tex := mat.Textures[slot]
		if tex == nil || tex.Staging != nil {
			continue
		}
		if err := p.Process(tex, common.TextureSlot(slot)); err != nil {
			return fmt.Errorf("material %q: %s texture %q: %w", mat.Name, common.TextureSlot(slot), tex.Name, err)
		}
	}
	return nil
}

// Process decodes one texture and fills its Staging field.
//
// Parameters:
//   - tex: the texture holding encoded bytes
//   - slot: the slot the texture is bound to, which selects sRGB or linear sampling
//
// Returns:
//   - error: error if the image cannot be decoded or normalized
func (p *textureProcessor) Process(tex *common.ImportedTexture, slot common.TextureSlot) error {
	if sniffed := sniffMime(tex.Data); sniffed != "" && tex.MimeType != "" && sniffed != tex.MimeType {
		logger.Warn("image content does not match declared mime type",
			zap.String("texture", tex.Name), zap.String("declared", tex.MimeType), zap.String("detected", sniffed))
	}

	decoded, err := p.decoder.Decode(tex.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedTextureFormat, err)
	}

	pixels, format, err := normalizePixels(decoded.Pixels, decoded.Width, decoded.Height, decoded.Format)
	if err != nil {
		return err
	}

	staging := &common.TextureStagingData{
		Pixels: pixels,
		Width:  decoded.Width,
		Height: decoded.Height,
		Format: format,
		SRGB:   slot.SRGB(),
	}
	if p.mipmaps && format == common.PixelFormatRGBA8 {
		staging.Mips = buildMipChain(pixels, decoded.Width, decoded.Height)
	}
	tex.Staging = staging
	return nil
}

// normalizePixels converts decoded pixels into an uploadable layout.
// R8, RG8 and RGBA8 pass through; RGB8 is expanded to RGBA8 with opaque alpha.
//
// Parameters:
//   - pixels: the decoded pixel bytes
//   - width, height: the image extent
//   - format: the layout of pixels
//
// Returns:
//   - []byte: the uploadable pixels
//   - common.PixelFormat: their layout
//   - error: ErrUnsupportedTextureFormat for an unknown layout or a size mismatch
func normalizePixels(pixels []byte, width, height uint32, format common.PixelFormat) ([]byte, common.PixelFormat, error) {
	channels := format.Channels()
	if channels == 0 {
		return nil, common.PixelFormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedTextureFormat, format)
	}
	if want := int(width) * int(height) * channels; len(pixels) != want {
		return nil, common.PixelFormatUnknown, fmt.Errorf("%w: %s %dx%d needs %d bytes, got %d",
			ErrUnsupportedTextureFormat, format, width, height, want, len(pixels))
	}

	if format != common.PixelFormatRGB8 {
		return pixels, format, nil
	}

	out := make([]byte, 0, len(pixels)/3*4)
	for i := 0; i+2 < len(pixels); i += 3 {
		out = append(out, pixels[i], pixels[i+1], pixels[i+2], 255)
	}
	return out, common.PixelFormatRGBA8, nil
}

// mipLevelCount returns floor(log2(max(w, h))) + 1.
func mipLevelCount(width, height uint32) uint32 {
	size := max(width, height)
	if size == 0 {
		return 1
	}
	return uint32(bits.Len32(size))
}

// buildMipChain downsamples RGBA8 level 0 into levels 1..n, each half the previous extent.
func buildMipChain(pixels []byte, width, height uint32) [][]byte {
	levels := mipLevelCount(width, height)
	if levels <= 1 {
		return nil
	}

	var src image.Image = &image.RGBA{
		Pix:    pixels,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}
	mips := make([][]byte, 0, levels-1)
	w, h := width, height
	for range levels - 1 {
		w, h = renderer.MipExtent(w), renderer.MipExtent(h)
		level := transform.Resize(src, int(w), int(h), transform.Linear)
		mips = append(mips, packRows(level.Pix, level.Stride, int(w)*4, int(h)))
		src = level
	}
	return mips
}
