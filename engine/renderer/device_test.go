package renderer_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormatFor(t *testing.T) {
	tests := []struct {
		name    string
		staging common.TextureStagingData
		want    wgpu.TextureFormat
		wantErr error
	}{
		{
			name:    "r8",
			staging: common.TextureStagingData{Pixels: make([]byte, 4), Width: 2, Height: 2, Format: common.PixelFormatR8},
			want:    wgpu.TextureFormatR8Unorm,
		},
		{
			name:    "rg8",
			staging: common.TextureStagingData{Pixels: make([]byte, 8), Width: 2, Height: 2, Format: common.PixelFormatRG8},
			want:    wgpu.TextureFormatRG8Unorm,
		},
		{
			name:    "rgba8 linear",
			staging: common.TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2, Format: common.PixelFormatRGBA8},
			want:    wgpu.TextureFormatRGBA8Unorm,
		},
		{
			name:    "rgba8 srgb with mips",
			staging: common.TextureStagingData{Pixels: make([]byte, 32), Width: 4, Height: 2, Format: common.PixelFormatRGBA8, SRGB: true, Mips: [][]byte{make([]byte, 8), make([]byte, 4)}},
			want:    wgpu.TextureFormatRGBA8UnormSrgb,
		},
		{
			name:    "rgb8 must be expanded first",
			staging: common.TextureStagingData{Pixels: make([]byte, 12), Width: 2, Height: 2, Format: common.PixelFormatRGB8},
			wantErr: renderer.ErrUnsupportedFormat,
		},
		{
			name:    "unknown",
			staging: common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1},
			wantErr: renderer.ErrUnsupportedFormat,
		},
		{
			name:    "short level 0",
			staging: common.TextureStagingData{Pixels: make([]byte, 15), Width: 2, Height: 2, Format: common.PixelFormatRGBA8},
			wantErr: renderer.ErrInvalidStaging,
		},
		{
			name:    "bad mip",
			staging: common.TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2, Format: common.PixelFormatRGBA8, Mips: [][]byte{make([]byte, 3)}},
			wantErr: renderer.ErrInvalidStaging,
		},
		{
			name:    "zero extent",
			staging: common.TextureStagingData{Format: common.PixelFormatRGBA8},
			wantErr: renderer.ErrInvalidStaging,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderer.TextureFormatFor(tt.staging)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMipExtent(t *testing.T) {
	assert.Equal(t, uint32(4), renderer.MipExtent(8))
	assert.Equal(t, uint32(2), renderer.MipExtent(5))
	assert.Equal(t, uint32(1), renderer.MipExtent(1))
	assert.Equal(t, uint32(1), renderer.MipExtent(0))
}

func TestParseBackendType(t *testing.T) {
	b, err := renderer.ParseBackendType("wgpu")
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeWGPU, b)

	b, err = renderer.ParseBackendType("")
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeMemory, b)

	_, err = renderer.ParseBackendType("metal")
	assert.Error(t, err)

	dev, err := renderer.NewDevice(renderer.BackendTypeMemory, renderer.WithLabel("test"))
	require.NoError(t, err)
	assert.Equal(t, "test", dev.Label())
}
