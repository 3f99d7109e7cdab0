package bind_group_provider_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texture(t *testing.T, dev renderer.Device, label string) renderer.Texture {
	t.Helper()
	tex, err := dev.CreateTexture(label, common.TextureStagingData{
		Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1, Format: common.PixelFormatRGBA8,
	}, common.DefaultSamplerStagingData())
	require.NoError(t, err)
	return tex
}

func TestEntries(t *testing.T) {
	dev := renderer.NewMemoryDevice()
	uniform, err := dev.CreateBuffer("u", make([]byte, 80), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	storage, err := dev.CreateBuffer("s", make([]byte, 64), wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)

	p := bind_group_provider.NewBindGroupProvider("mat",
		bind_group_provider.WithBuffer(0, uniform),
		bind_group_provider.WithTexture(3, texture(t, dev, "normal")),
	)
	p.SetTexture(1, texture(t, dev, "diffuse"), false)
	p.SetBuffer(11, storage)

	entries := p.Entries()
	require.Len(t, entries, 6)
	kinds := []renderer.BindingKind{
		renderer.BindingUniformBuffer,
		renderer.BindingTexture, renderer.BindingSampler,
		renderer.BindingTexture, renderer.BindingSampler,
		renderer.BindingStorageBuffer,
	}
	bindings := []uint32{0, 1, 2, 3, 4, 11}
	for i, e := range entries {
		assert.Equal(t, bindings[i], e.Binding)
		assert.Equal(t, kinds[i], e.Kind)
	}

	bg, err := dev.CreateBindGroup(p.Label(), entries)
	require.NoError(t, err)
	p.SetBindGroup(bg)
	assert.Equal(t, bg, p.BindGroup())
}

func TestReleaseSkipsShared(t *testing.T) {
	dev := renderer.NewMemoryDevice()
	shared := texture(t, dev, "shared")
	owned := texture(t, dev, "owned")
	vb, err := dev.CreateBuffer("vb", make([]byte, 96), wgpu.BufferUsageVertex)
	require.NoError(t, err)
	ib, err := dev.CreateBuffer("ib", make([]byte, 12), wgpu.BufferUsageIndex)
	require.NoError(t, err)

	p := bind_group_provider.NewBindGroupProvider("x", bind_group_provider.WithMeshBuffers(vb, ib, 3))
	p.SetTexture(1, shared, true)
	p.SetTexture(3, owned, false)
	assert.True(t, p.IsShared(1))
	assert.False(t, p.IsShared(3))
	assert.Equal(t, 3, p.IndexCount())

	p.Release()
	p.Release()
	assert.True(t, p.Released())

	s := dev.Stats()
	assert.Equal(t, 1, s.LiveTextures, "shared texture survives")
	assert.Equal(t, 0, s.LiveBuffers)
	_, ok := dev.TextureContents(shared)
	assert.True(t, ok)
}

func TestWriteBuffers(t *testing.T) {
	dev := renderer.NewMemoryDevice()
	buf, err := dev.CreateBuffer("u", make([]byte, 8), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	p := bind_group_provider.NewBindGroupProvider("u", bind_group_provider.WithBuffer(0, buf))

	require.NoError(t, bind_group_provider.WriteBuffers(dev, []bind_group_provider.BufferWrite{
		{Provider: p, Binding: 0, Offset: 4, Data: []byte{9, 9, 9, 9}},
		{Provider: p, Binding: 5, Data: []byte{1}},
	}))
	assert.Equal(t, []byte{0, 0, 0, 0, 9, 9, 9, 9}, dev.BufferContents(buf))

	err = bind_group_provider.WriteBuffers(dev, []bind_group_provider.BufferWrite{
		{Provider: p, Binding: 0, Offset: 6, Data: []byte{1, 2, 3}},
	})
	assert.ErrorContains(t, err, "u binding 0")
}
