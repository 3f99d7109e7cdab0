package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	_ "github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodedImage is the raw pixel result of decoding one encoded image.
type DecodedImage struct {
	// Pixels are tightly packed rows of Width*Format.Channels() bytes.
	Pixels []byte
	// Width is the image width in pixels.
	Width uint32
	// Height is the image height in pixels.
	Height uint32
	// Format is the channel layout of Pixels.
	Format common.PixelFormat
}

// ImageDecoder turns encoded image bytes (PNG, JPEG, ...) into raw pixels.
// Implementations must be safe for concurrent use; the loader decodes textures on several workers at once.
type ImageDecoder interface {
	// Decode decodes one image.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - DecodedImage: the decoded pixels and their layout
	//   - error: error if the bytes are not a decodable image
	Decode(data []byte) (DecodedImage, error)
}

// stdImageDecoder decodes through the image package registry.
type stdImageDecoder struct{}

var _ ImageDecoder = stdImageDecoder{}

// NewImageDecoder returns the default ImageDecoder. It understands png, jpeg, gif, bmp, tiff, webp and tga.
//
// Returns:
//   - ImageDecoder: the default decoder
func NewImageDecoder() ImageDecoder {
	return stdImageDecoder{}
}

func (stdImageDecoder) Decode(data []byte) (DecodedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return DecodedImage{}, fmt.Errorf("decode image: %w", err)
	}
	logger.Debug("decoded image", zap.String("format", format), zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return imageToPixels(img), nil
}

// imageToPixels maps a decoded image onto a PixelFormat. Grey images stay single channel,
// 8-bit straight-alpha images pass through and everything else is converted to straight-alpha RGBA8.
func imageToPixels(img image.Image) DecodedImage {
	b := img.Bounds()
	out := DecodedImage{Width: uint32(b.Dx()), Height: uint32(b.Dy())}

	switch src := img.(type) {
	case *image.Gray:
		out.Format = common.PixelFormatR8
		out.Pixels = packRows(src.Pix, src.Stride, b.Dx(), b.Dy())
	case *image.NRGBA:
		out.Format = common.PixelFormatRGBA8
		out.Pixels = packRows(src.Pix, src.Stride, b.Dx()*4, b.Dy())
	case *image.RGBA:
		out.Format = common.PixelFormatRGBA8
		if src.Opaque() {
			out.Pixels = packRows(src.Pix, src.Stride, b.Dx()*4, b.Dy())
			break
		}
		out.Pixels = toNRGBA(img)
	default:
		out.Format = common.PixelFormatRGBA8
		out.Pixels = toNRGBA(img)
	}
	return out
}

// toNRGBA draws img into a straight-alpha buffer; premultiplied sources are unpremultiplied on the way.
func toNRGBA(img image.Image) []byte {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix
}

// packRows copies rows of rowBytes out of a strided pixel buffer.
func packRows(pix []byte, stride, rowBytes, rows int) []byte {
	if stride == rowBytes && len(pix) == rowBytes*rows {
		return pix
	}
	out := make([]byte, rowBytes*rows)
	for y := range rows {
		copy(out[y*rowBytes:(y+1)*rowBytes], pix[y*stride:y*stride+rowBytes])
	}
	return out
}

// sniffMime reports the content type detected from the image bytes, or "" when unknown.
func sniffMime(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
