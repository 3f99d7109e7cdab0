package renderer_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidStaging() common.TextureStagingData {
	return common.TextureStagingData{Pixels: []byte{1, 2, 3, 4}, Width: 1, Height: 1, Format: common.PixelFormatRGBA8}
}

func TestMemoryDeviceBuffers(t *testing.T) {
	dev := renderer.NewMemoryDevice()

	buf, err := dev.CreateBuffer("uniform", []byte{0, 0, 0, 0}, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), buf.Size())
	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, buf.Usage())

	require.NoError(t, dev.WriteBuffer(buf, 2, []byte{7, 8}))
	assert.Equal(t, []byte{0, 0, 7, 8}, dev.BufferContents(buf))

	assert.Error(t, dev.WriteBuffer(buf, 3, []byte{1, 2}), "write past the end")

	_, err = dev.CreateBuffer("empty", nil, wgpu.BufferUsageVertex)
	assert.Error(t, err)

	other := renderer.NewMemoryDevice()
	assert.ErrorIs(t, other.WriteBuffer(buf, 0, []byte{1}), renderer.ErrForeignResource)

	buf.Release()
	buf.Release()
	assert.ErrorIs(t, dev.WriteBuffer(buf, 0, []byte{1}), renderer.ErrReleased)

	s := dev.Stats()
	assert.Equal(t, 1, s.BuffersCreated)
	assert.Equal(t, 0, s.LiveBuffers)
	assert.Equal(t, 1, s.BufferWrites)
}

func TestMemoryDeviceBindGroup(t *testing.T) {
	dev := renderer.NewMemoryDevice()

	buf, err := dev.CreateBuffer("u", make([]byte, 16), wgpu.BufferUsageUniform)
	require.NoError(t, err)
	tex, err := dev.CreateTexture("t", solidStaging(), common.DefaultSamplerStagingData())
	require.NoError(t, err)

	bg, err := dev.CreateBindGroup("bg", []renderer.BindingEntry{
		{Binding: 2, Kind: renderer.BindingSampler, Texture: tex},
		{Binding: 0, Kind: renderer.BindingUniformBuffer, Buffer: buf},
		{Binding: 1, Kind: renderer.BindingTexture, Texture: tex},
	})
	require.NoError(t, err)
	entries := bg.Entries()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, uint32(i), e.Binding, "entries are sorted by binding")
	}

	_, err = dev.CreateBindGroup("dup", []renderer.BindingEntry{
		{Binding: 0, Kind: renderer.BindingUniformBuffer, Buffer: buf},
		{Binding: 0, Kind: renderer.BindingTexture, Texture: tex},
	})
	assert.Error(t, err)

	tex.Release()
	_, err = dev.CreateBindGroup("released", []renderer.BindingEntry{
		{Binding: 1, Kind: renderer.BindingTexture, Texture: tex},
	})
	assert.ErrorIs(t, err, renderer.ErrReleased)

	bg.Release()
	assert.Equal(t, 0, dev.Stats().LiveBindGroups)
}

func TestMemoryDeviceFailHook(t *testing.T) {
	dev := renderer.NewMemoryDevice()
	boom := errors.New("boom")
	dev.SetFailHook(func(op renderer.MemoryOp, label string) error {
		if op == renderer.OpCreateTexture {
			return boom
		}
		return nil
	})

	_, err := dev.CreateTexture("t", solidStaging(), common.SamplerStagingData{})
	assert.ErrorIs(t, err, boom)
	_, err = dev.CreateBuffer("b", []byte{1}, wgpu.BufferUsageVertex)
	assert.NoError(t, err)

	dev.SetFailHook(nil)
	tex, err := dev.CreateTexture("t", solidStaging(), common.SamplerStagingData{})
	require.NoError(t, err)
	staged, ok := dev.TextureContents(tex)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, staged.Pixels)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, tex.Format())
	assert.Equal(t, uint32(1), tex.MipLevelCount())
}
