package material_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func TestUniformLayout(t *testing.T) {
	u := material.GPUMaterialUniform{
		BaseColour:        [4]float32{0.1, 0.2, 0.3, 0.4},
		Emissive:          [3]float32{0.5, 0.6, 0.7},
		EmissiveStrength:  2,
		Metallic:          0.25,
		Roughness:         0.75,
		NormalScale:       1.5,
		OcclusionStrength: 0.9,
		AlphaCutoff:       0.5,
		UVTiling:          [2]float32{3, 4},
		HasNormal:         1,
		HasOcclusion:      1,
	}
	buf := u.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, 80, u.Size())

	assert.Equal(t, float32(0.4), f32At(buf, 12))
	assert.Equal(t, float32(0.5), f32At(buf, 16))
	assert.Equal(t, float32(2), f32At(buf, 28))
	assert.Equal(t, float32(0.25), f32At(buf, 32))
	assert.Equal(t, float32(0.75), f32At(buf, 36))
	assert.Equal(t, float32(1.5), f32At(buf, 40))
	assert.Equal(t, float32(0.9), f32At(buf, 44))
	assert.Equal(t, float32(0.5), f32At(buf, 48))
	assert.Equal(t, float32(3), f32At(buf, 52))
	assert.Equal(t, float32(4), f32At(buf, 56))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[60:64]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[64:68]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[68:72]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[72:76]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf[76:80]))

	assert.Contains(t, material.GPUMaterialUniformSource, "struct MaterialUniform")
}

func TestBindings(t *testing.T) {
	assert.Equal(t, 1, material.TextureBinding(common.SlotDiffuse))
	assert.Equal(t, 2, material.SamplerBinding(common.SlotDiffuse))
	assert.Equal(t, 3, material.TextureBinding(common.SlotNormal))
	assert.Equal(t, 5, material.TextureBinding(common.SlotEmissive))
	assert.Equal(t, 7, material.TextureBinding(common.SlotMetallicRoughness))
	assert.Equal(t, 9, material.TextureBinding(common.SlotOcclusion))
	assert.Equal(t, 10, material.SamplerBinding(common.SlotOcclusion))
}

func TestDefaults(t *testing.T) {
	m := material.NewMaterial(material.WithName("m"))
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.Tint())
	assert.Equal(t, float32(0.5), m.AlphaCutoff())
	assert.Equal(t, [2]float32{1, 1}, m.UVTiling())
	assert.Equal(t, float32(1), m.EmissiveStrength())
	assert.Equal(t, wgpu.AddressModeRepeat, m.WrapMode())
	assert.False(t, m.IsDirty())
	assert.Nil(t, m.Diffuse())
}

func TestWithImported(t *testing.T) {
	normal := &common.ImportedTexture{Name: "n"}
	imp := &common.ImportedMaterial{
		Name:        "brick",
		Tint:        [4]float32{1, 0, 0, 1},
		Metallic:    0.1,
		Roughness:   0.2,
		AlphaMode:   common.AlphaMask,
		AlphaCutoff: 0.3,
		UVTiling:    [2]float32{2, 2},
		WrapMode:    wgpu.AddressModeClampToEdge,
		TextureTag:  "bricks",
	}
	imp.Textures[common.SlotNormal] = normal

	m := material.NewMaterial(material.WithImported(imp))
	assert.Equal(t, "brick", m.Name())
	assert.Equal(t, common.AlphaMask, m.AlphaMode())
	assert.Equal(t, wgpu.AddressModeClampToEdge, m.WrapMode())
	assert.Equal(t, "bricks", m.TextureTag())
	assert.True(t, m.HasTexture(common.SlotNormal))
	assert.False(t, m.HasTexture(common.SlotDiffuse))
	assert.Same(t, normal, m.ImportedTexture(common.SlotNormal))
	assert.Equal(t, uint32(1), m.Uniform().HasNormal)
	assert.Equal(t, uint32(0), m.Uniform().HasEmissive)
}

func TestSetterMarksDirtyAndSync(t *testing.T) {
	dev := renderer.NewMemoryDevice()
	m := material.NewMaterial(material.WithName("m"))

	setters := map[string]func(){
		"tint":       func() { m.SetTint([4]float32{0, 1, 0, 1}) },
		"emissive":   func() { m.SetEmissive([3]float32{1, 1, 1}) },
		"strength":   func() { m.SetEmissiveStrength(3) },
		"metallic":   func() { m.SetMetallic(0.3) },
		"roughness":  func() { m.SetRoughness(0.4) },
		"normal":     func() { m.SetNormalScale(0.5) },
		"occlusion":  func() { m.SetOcclusionStrength(0.6) },
		"cutoff":     func() { m.SetAlphaCutoff(0.7) },
		"tiling":     func() { m.SetUVTiling([2]float32{8, 8}) },
		"alpha mode": func() { m.SetAlphaMode(common.AlphaBlend) },
		"two sided":  func() { m.SetDoubleSided(true) },
	}

	// not realized yet
	m.SetMetallic(0)
	assert.ErrorIs(t, m.Sync(dev), material.ErrNotRealized)

	u := m.Uniform()
	buf, err := dev.CreateBuffer("u", u.Marshal(), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	m.SetBindGroupProvider(bind_group_provider.NewBindGroupProvider("m", bind_group_provider.WithBuffer(material.UniformBinding, buf)))
	assert.False(t, m.IsDirty())

	for name, set := range setters {
		t.Run(name, func(t *testing.T) {
			set()
			assert.True(t, m.IsDirty())
			require.NoError(t, m.Sync(dev))
			assert.False(t, m.IsDirty())
		})
	}

	got := dev.BufferContents(buf)
	assert.Equal(t, float32(0.4), f32At(got, 36))
	assert.Equal(t, float32(8), f32At(got, 52))

	writes := dev.Stats().BufferWrites
	require.NoError(t, m.Sync(dev))
	assert.Equal(t, writes, dev.Stats().BufferWrites, "clean sync is a no-op")

	m.Release()
	assert.Nil(t, m.BindGroupProvider())
	assert.Equal(t, 0, dev.Stats().LiveBuffers)
}

func TestFailedSyncStaysDirty(t *testing.T) {
	dev := renderer.NewMemoryDevice()
	m := material.NewMaterial(material.WithName("m"))
	u := m.Uniform()
	buf, err := dev.CreateBuffer("u", u.Marshal(), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	m.SetBindGroupProvider(bind_group_provider.NewBindGroupProvider("m", bind_group_provider.WithBuffer(material.UniformBinding, buf)))

	dev.SetFailHook(func(op renderer.MemoryOp, _ string) error {
		if op == renderer.OpWriteBuffer {
			return assert.AnError
		}
		return nil
	})
	m.SetRoughness(0.25)
	assert.Error(t, m.Sync(dev))
	assert.True(t, m.IsDirty())

	dev.SetFailHook(nil)
	require.NoError(t, m.Sync(dev))
	assert.False(t, m.IsDirty())
	assert.Equal(t, float32(0.25), f32At(dev.BufferContents(buf), 36))
}

func TestCloneIsIndependent(t *testing.T) {
	dev := renderer.NewMemoryDevice()
	diffuse := &common.ImportedTexture{Name: "albedo"}
	m := material.NewMaterial(material.WithName("m"), material.WithTexture(common.SlotDiffuse, diffuse))
	u := m.Uniform()
	buf, err := dev.CreateBuffer("u", u.Marshal(), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	m.SetBindGroupProvider(bind_group_provider.NewBindGroupProvider("m", bind_group_provider.WithBuffer(material.UniformBinding, buf)))

	c := m.Clone()
	assert.Equal(t, "m", c.Name())
	assert.Same(t, diffuse, c.ImportedTexture(common.SlotDiffuse))
	assert.Nil(t, c.BindGroupProvider())
	assert.True(t, c.IsDirty())

	c.SetTint([4]float32{1, 0, 0, 1})
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.Tint())
	assert.False(t, m.IsDirty())

	c.Release()
	assert.NotNil(t, m.BindGroupProvider())
	assert.Equal(t, 1, dev.Stats().LiveBuffers)
}
