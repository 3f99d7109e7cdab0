package loader

import (
	"image"
	"image/color"
	"testing"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePixels(t *testing.T) {
	tests := []struct {
		name   string
		pixels []byte
		w, h   uint32
		format common.PixelFormat
		want   []byte
		out    common.PixelFormat
		err    bool
	}{
		{"rgb expands", []byte{1, 2, 3, 4, 5, 6}, 2, 1, common.PixelFormatRGB8, []byte{1, 2, 3, 255, 4, 5, 6, 255}, common.PixelFormatRGBA8, false},
		{"rgba passes", []byte{1, 2, 3, 4}, 1, 1, common.PixelFormatRGBA8, []byte{1, 2, 3, 4}, common.PixelFormatRGBA8, false},
		{"r8 passes", []byte{9, 8}, 2, 1, common.PixelFormatR8, []byte{9, 8}, common.PixelFormatR8, false},
		{"rg8 passes", []byte{9, 8}, 1, 1, common.PixelFormatRG8, []byte{9, 8}, common.PixelFormatRG8, false},
		{"short buffer", []byte{1, 2, 3}, 2, 1, common.PixelFormatRGB8, nil, common.PixelFormatUnknown, true},
		{"unknown format", []byte{1}, 1, 1, common.PixelFormatUnknown, nil, common.PixelFormatUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, format, err := normalizePixels(tt.pixels, tt.w, tt.h, tt.format)
			if tt.err {
				assert.ErrorIs(t, err, ErrUnsupportedTextureFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.out, format)
		})
	}
}

func TestMipLevelCount(t *testing.T) {
	assert.Equal(t, uint32(1), mipLevelCount(1, 1))
	assert.Equal(t, uint32(2), mipLevelCount(2, 1))
	assert.Equal(t, uint32(9), mipLevelCount(256, 256))
	assert.Equal(t, uint32(9), mipLevelCount(300, 17))
	assert.Equal(t, uint32(1), mipLevelCount(0, 0))
}

func TestBuildMipChain(t *testing.T) {
	pixels := make([]byte, 4*2*4)
	for i := range pixels {
		pixels[i] = 200
	}
	mips := buildMipChain(pixels, 4, 2)
	require.Len(t, mips, 2)
	assert.Len(t, mips[0], 2*1*4)
	assert.Len(t, mips[1], 1*1*4)
	assert.InDelta(t, 200, int(mips[1][0]), 1)

	assert.Nil(t, buildMipChain([]byte{1, 2, 3, 4}, 1, 1))
}

func TestProcessUsesSlotColourSpace(t *testing.T) {
	p := newTextureProcessor(NewImageDecoder(), true)

	mat := defaultImportedMaterial()
	mat.Textures[common.SlotDiffuse] = &common.ImportedTexture{Name: "albedo", MimeType: "image/png", Data: solidPNG(t, 4, 4, color.NRGBA{R: 255, A: 255})}
	mat.Textures[common.SlotMetallicRoughness] = &common.ImportedTexture{Name: "mr", MimeType: "image/png", Data: solidPNG(t, 2, 2, color.NRGBA{G: 255, A: 255})}
	require.NoError(t, p.ProcessMaterial(mat))

	diffuse := mat.Textures[common.SlotDiffuse].Staging
	require.NotNil(t, diffuse)
	assert.True(t, diffuse.SRGB)
	assert.Equal(t, common.PixelFormatRGBA8, diffuse.Format)
	assert.Equal(t, []byte{255, 0, 0, 255}, diffuse.Pixels[:4])
	assert.Len(t, diffuse.Mips, 2)

	mr := mat.Textures[common.SlotMetallicRoughness].Staging
	require.NotNil(t, mr)
	assert.False(t, mr.SRGB)
}

func TestProcessRejectsUndecodableImage(t *testing.T) {
	p := newTextureProcessor(NewImageDecoder(), false)
	mat := defaultImportedMaterial()
	mat.Textures[common.SlotNormal] = &common.ImportedTexture{Name: "broken", Data: []byte("not an image")}

	err := p.ProcessMaterial(mat)
	assert.ErrorIs(t, err, ErrUnsupportedTextureFormat)
}

func TestSniffMime(t *testing.T) {
	assert.Equal(t, "image/png", sniffMime(solidPNG(t, 1, 1, color.NRGBA{A: 255})))
	assert.Equal(t, "", sniffMime([]byte("plain text")))
}

func TestDecodedAlphaIsStraight(t *testing.T) {
	texel := color.NRGBA{R: 200, G: 100, B: 50, A: 128}
	want := []byte{200, 100, 50, 128}

	paletted := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{texel})
	premul := image.NewRGBA(image.Rect(0, 0, 2, 1))
	premul.Set(0, 0, texel)
	premul.Set(1, 0, texel)
	wide := image.NewNRGBA64(image.Rect(0, 0, 2, 1))
	wide.Set(0, 0, texel)
	wide.Set(1, 0, texel)
	straight := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	straight.SetNRGBA(0, 0, texel)
	straight.SetNRGBA(1, 0, texel)

	tests := []struct {
		name string
		img  image.Image
	}{
		{"paletted", paletted},
		{"premultiplied", premul},
		{"16 bit", wide},
		{"straight", straight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imageToPixels(tt.img)
			require.Equal(t, common.PixelFormatRGBA8, got.Format)
			require.Len(t, got.Pixels, 8)
			for i, v := range want {
				assert.InDelta(t, int(v), int(got.Pixels[i]), 1, "channel %d", i)
				assert.InDelta(t, int(v), int(got.Pixels[4+i]), 1, "channel %d", i)
			}
		})
	}
}
