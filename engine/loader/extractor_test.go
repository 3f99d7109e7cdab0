package loader

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseFixture encodes the fixture and returns a parser over the result.
func parseFixture(t *testing.T, f *glbFixture) gltfParser {
	t.Helper()
	p := newGLTFParser(nil)
	require.NoError(t, p.Parse(f.bytes()))
	return p
}

func assertQuatNear(t *testing.T, want, got [4]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "component %d", i)
	}
}

func TestCheckContainer(t *testing.T) {
	header := func(magic, version, length uint32) []byte {
		b := make([]byte, 12)
		binary.LittleEndian.PutUint32(b[0:], magic)
		binary.LittleEndian.PutUint32(b[4:], version)
		binary.LittleEndian.PutUint32(b[8:], length)
		return b
	}
	chunk := func(kind uint32, payload []byte) []byte {
		b := make([]byte, 8, 8+len(payload))
		binary.LittleEndian.PutUint32(b[0:], uint32(len(payload)))
		binary.LittleEndian.PutUint32(b[4:], kind)
		return append(b, payload...)
	}
	glb := func(chunks ...[]byte) []byte {
		var body []byte
		for _, c := range chunks {
			body = append(body, c...)
		}
		return append(header(glbMagic, 2, uint32(12+len(body))), body...)
	}

	tests := []struct {
		name string
		data []byte
		ok   bool
	}{
		{"json document", []byte(` {"asset":{"version":"2.0"}}`), true},
		{"json and bin", glb(chunk(glbChunkJSON, []byte("{}  ")), chunk(glbChunkBIN, make([]byte, 4))), true},
		{"empty", nil, false},
		{"short header", []byte("glTF"), false},
		{"bad magic", header(0x12345678, 2, 12), false},
		{"version 1", header(glbMagic, 1, 12), false},
		{"length beyond data", header(glbMagic, 2, 64), false},
		{"no chunks", header(glbMagic, 2, 12), false},
		{"bin first", glb(chunk(glbChunkBIN, make([]byte, 4))), false},
		{"second chunk not bin", glb(chunk(glbChunkJSON, []byte("{}  ")), chunk(glbChunkJSON, []byte("{}  "))), false},
		{"chunk overrun", append(header(glbMagic, 2, 24), chunk(glbChunkJSON, []byte("{}  "))[:8]...), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkContainer(tt.data)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrMalformedContainer)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	p := newGLTFParser(nil)
	assert.ErrorIs(t, p.Parse([]byte("not a scene file")), ErrMalformedContainer)
	assert.ErrorIs(t, p.Parse([]byte(`{"asset":`)), ErrMalformedContainer)
}

func TestExternalReferencesRejected(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"buffer", `{"asset":{"version":"2.0"},"buffers":[{"uri":"mesh.bin","byteLength":12}]}`},
		{"image", `{"asset":{"version":"2.0"},"images":[{"uri":"albedo.png"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newGLTFParser(nil).Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrMalformedContainer)
			assert.ErrorContains(t, err, "external uri")
		})
	}

	// a data uri stays inside the container
	inline := `{"asset":{"version":"2.0"},"buffers":[{"uri":"data:application/octet-stream;base64,AAAAAA==","byteLength":4}]}`
	assert.NoError(t, newGLTFParser(nil).Parse([]byte(inline)))
}

func TestAccessorBeyondBufferIsMalformed(t *testing.T) {
	f := newGLBFixture(t)
	prim := f.quad("quad")
	f.doc.Accessors[prim.Attributes["POSITION"]].Count = 1000

	p := parseFixture(t, f)
	_, err := p.ReadVec3(prim.Attributes["POSITION"])
	assert.ErrorIs(t, err, ErrMalformedContainer)

	_, err = p.ReadVec3(99)
	assert.ErrorIs(t, err, ErrMalformedContainer)
}

func TestSceneTree(t *testing.T) {
	f := newGLBFixture(t)
	f.doc.Nodes = []*gltf.Node{
		{Name: "root", Children: []uint32{1, 2}},
		{Children: []uint32{3}, Translation: [3]float32{1, 2, 3}},
		{Name: "leaf", Matrix: [16]float32{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 4, 5, 6, 1}},
		{Name: "grandchild"},
	}
	f.doc.Scenes[0].Nodes = []uint32{0}

	nodes, err := newGLTFSceneExtractor(parseFixture(t, f)).ExtractNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.Equal(t, "node_1", nodes[1].Name)
	assert.Equal(t, -1, nodes[0].Parent)
	for i, n := range nodes {
		for _, c := range n.Children {
			assert.Equal(t, i, nodes[c].Parent, "child %d of %d", c, i)
		}
		if n.Parent >= 0 {
			assert.Contains(t, nodes[n.Parent].Children, i)
		}
		assert.Equal(t, -1, n.Mesh)
		assert.Equal(t, -1, n.Skin)
	}

	assert.Equal(t, [3]float32{1, 2, 3}, nodes[1].Transform.Translation)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, nodes[1].Transform.Rotation)
	assert.Equal(t, [3]float32{4, 5, 6}, nodes[2].Transform.Translation)
	assert.InDeltaSlice(t, []float32{2, 2, 2}, nodes[2].Transform.Scale[:], 1e-6)
}

func TestSceneTreeRejectsBadGraphs(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*gltf.Node
	}{
		{"two parents", []*gltf.Node{{Children: []uint32{2}}, {Children: []uint32{2}}, {}}},
		{"cycle", []*gltf.Node{{Children: []uint32{1}}, {Children: []uint32{0}}}},
		{"self child", []*gltf.Node{{Children: []uint32{0}}}},
		{"child out of range", []*gltf.Node{{Children: []uint32{7}}}},
		{"mesh out of range", []*gltf.Node{{Mesh: gltf.Index(3)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGLBFixture(t)
			f.doc.Nodes = tt.nodes
			_, err := newGLTFSceneExtractor(parseFixture(t, f)).ExtractNodes()
			assert.ErrorIs(t, err, ErrMalformedContainer)
		})
	}
}

func TestSkinWithoutInverseBindMatrices(t *testing.T) {
	f := newGLBFixture(t)
	f.node(&gltf.Node{Name: "hip", Children: []uint32{1}})
	f.doc.Nodes = append(f.doc.Nodes, &gltf.Node{Name: "knee"})
	f.doc.Skins = []*gltf.Skin{{Joints: []uint32{0, 1}, Skeleton: gltf.Index(0)}}

	skins, err := newGLTFSkinExtractor(parseFixture(t, f)).ExtractAllSkins()
	require.NoError(t, err)
	require.Len(t, skins, 1)

	skin := skins[0]
	assert.Equal(t, "skin_0", skin.Name)
	assert.Equal(t, []int{0, 1}, skin.Joints)
	assert.Equal(t, 0, skin.Skeleton)
	require.Len(t, skin.InverseBindMatrices, 2)
	for _, m := range skin.InverseBindMatrices {
		assert.Equal(t, common.IdentityMat4(), m)
	}
}

func TestSkinInverseBindMatrices(t *testing.T) {
	f := newGLBFixture(t)
	f.node(&gltf.Node{Name: "hip"})
	ibm := modeler.WriteAccessor(f.doc, gltf.TargetNone, [][4][4]float32{
		{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {-1, -2, -3, 1}},
	})
	f.doc.Skins = []*gltf.Skin{{Name: "rig", Joints: []uint32{0}, InverseBindMatrices: gltf.Index(ibm)}}

	skin, err := newGLTFSkinExtractor(parseFixture(t, f)).ExtractSkin(0)
	require.NoError(t, err)
	assert.Equal(t, -1, skin.Skeleton)
	require.Len(t, skin.InverseBindMatrices, 1)
	assert.Equal(t, [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, -1, -2, -3, 1}, skin.InverseBindMatrices[0])
}

func TestSkinJointOutOfRange(t *testing.T) {
	f := newGLBFixture(t)
	f.node(&gltf.Node{Name: "hip"})
	f.doc.Skins = []*gltf.Skin{{Joints: []uint32{0, 5}}}

	_, err := newGLTFSkinExtractor(parseFixture(t, f)).ExtractSkin(0)
	assert.ErrorIs(t, err, ErrMalformedContainer)
}

// animatedFixture returns a fixture with one node animated by a single rotation channel.
func animatedFixture(t *testing.T, interpolation gltf.Interpolation, times []float32, values [][4]float32) *glbFixture {
	f := newGLBFixture(t)
	f.node(&gltf.Node{Name: "spinner"})
	input := modeler.WriteAccessor(f.doc, gltf.TargetNone, times)
	output := modeler.WriteAccessor(f.doc, gltf.TargetNone, values)
	f.doc.Animations = []*gltf.Animation{{
		Samplers: []*gltf.AnimationSampler{{
			Input:         gltf.Index(input),
			Output:        gltf.Index(output),
			Interpolation: interpolation,
		}},
		Channels: []*gltf.Channel{{
			Sampler: gltf.Index(0),
			Target:  gltf.ChannelTarget{Node: gltf.Index(0), Path: gltf.TRSRotation},
		}},
	}}
	return f
}

func TestCubicSplineRotationsNormalized(t *testing.T) {
	f := animatedFixture(t, gltf.InterpolationCubicSpline, []float32{0, 1.5}, [][4]float32{
		{2, 0, 0, 0}, {0, 0, 0, 2}, {0, 3, 0, 0},
		{0, 0, 5, 0}, {0, 3, 0, 4}, {1, 1, 1, 1},
	})

	anim, err := newGLTFAnimationExtractor(parseFixture(t, f)).ExtractAnimation(0)
	require.NoError(t, err)
	assert.Equal(t, "animation_0", anim.Name)
	assert.Equal(t, float32(1.5), anim.Duration)
	require.Len(t, anim.Channels, 1)

	ch := anim.Channels[0]
	assert.Equal(t, model.InterpolationCubicSpline, ch.Interpolation)
	assert.Equal(t, 0, ch.TargetNode)

	rotations := ch.Values.Rotations()
	require.Len(t, rotations, 6)
	assertQuatNear(t, [4]float32{0, 0, 0, 1}, rotations[1])
	assertQuatNear(t, [4]float32{0, 0.6, 0, 0.8}, rotations[4])

	// tangents keep their magnitude
	assert.Equal(t, [4]float32{2, 0, 0, 0}, rotations[0])
	assert.Equal(t, [4]float32{0, 3, 0, 0}, rotations[2])
	assert.Equal(t, [4]float32{1, 1, 1, 1}, rotations[5])
}

func TestLinearRotationsNormalized(t *testing.T) {
	f := animatedFixture(t, gltf.InterpolationLinear, []float32{0, 1}, [][4]float32{{0, 0, 0, 3}, {4, 0, 0, 3}})

	anim, err := newGLTFAnimationExtractor(parseFixture(t, f)).ExtractAnimation(0)
	require.NoError(t, err)
	rotations := anim.Channels[0].Values.Rotations()
	require.Len(t, rotations, 2)
	assertQuatNear(t, [4]float32{0, 0, 0, 1}, rotations[0])
	assertQuatNear(t, [4]float32{0.8, 0, 0, 0.6}, rotations[1])
	for _, q := range rotations {
		assert.InDelta(t, 1, math32.Sqrt(q[0]*q[0]+q[1]*q[1]+q[2]*q[2]+q[3]*q[3]), 1e-6)
	}
}

func TestAnimationSampleCountMismatch(t *testing.T) {
	f := animatedFixture(t, gltf.InterpolationCubicSpline, []float32{0, 1}, [][4]float32{{0, 0, 0, 1}, {0, 0, 0, 1}})

	_, err := newGLTFAnimationExtractor(parseFixture(t, f)).ExtractAnimation(0)
	assert.ErrorIs(t, err, ErrMalformedContainer)
}

func TestWeightsChannelSkipped(t *testing.T) {
	f := animatedFixture(t, gltf.InterpolationStep, []float32{0, 2}, [][4]float32{{0, 0, 0, 1}, {0, 0, 0, 1}})
	weights := modeler.WriteAccessor(f.doc, gltf.TargetNone, []float32{0, 1})
	anim := f.doc.Animations[0]
	anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
		Input:  anim.Samplers[0].Input,
		Output: gltf.Index(weights),
	})
	anim.Channels = append(anim.Channels, &gltf.Channel{
		Sampler: gltf.Index(1),
		Target:  gltf.ChannelTarget{Node: gltf.Index(0), Path: gltf.TRSWeights},
	})

	got, err := newGLTFAnimationExtractor(parseFixture(t, f)).ExtractAnimation(0)
	require.NoError(t, err)
	require.Len(t, got.Channels, 1)
	assert.Equal(t, model.InterpolationStep, got.Channels[0].Interpolation)
	assert.Equal(t, model.ChannelRotations, got.Channels[0].Values.Kind)
	assert.Equal(t, float32(2), got.Duration)
}

func TestSamplerStagingData(t *testing.T) {
	tests := []struct {
		name    string
		sampler gltf.Sampler
		mag     wgpu.FilterMode
		min     wgpu.FilterMode
		mip     wgpu.MipmapFilterMode
		u, v    wgpu.AddressMode
	}{
		{"defaults", gltf.Sampler{}, wgpu.FilterModeLinear, wgpu.FilterModeLinear, wgpu.MipmapFilterModeLinear, wgpu.AddressModeRepeat, wgpu.AddressModeRepeat},
		{"nearest", gltf.Sampler{MagFilter: gltf.MagNearest, MinFilter: gltf.MinNearest}, wgpu.FilterModeNearest, wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest, wgpu.AddressModeRepeat, wgpu.AddressModeRepeat},
		{"linear no mip", gltf.Sampler{MagFilter: gltf.MagLinear, MinFilter: gltf.MinLinear}, wgpu.FilterModeLinear, wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest, wgpu.AddressModeRepeat, wgpu.AddressModeRepeat},
		{"nearest mip nearest", gltf.Sampler{MinFilter: gltf.MinNearestMipMapNearest}, wgpu.FilterModeLinear, wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest, wgpu.AddressModeRepeat, wgpu.AddressModeRepeat},
		{"linear mip nearest", gltf.Sampler{MinFilter: gltf.MinLinearMipMapNearest}, wgpu.FilterModeLinear, wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest, wgpu.AddressModeRepeat, wgpu.AddressModeRepeat},
		{"nearest mip linear", gltf.Sampler{MinFilter: gltf.MinNearestMipMapLinear}, wgpu.FilterModeLinear, wgpu.FilterModeNearest, wgpu.MipmapFilterModeLinear, wgpu.AddressModeRepeat, wgpu.AddressModeRepeat},
		{"clamp and mirror", gltf.Sampler{WrapS: gltf.WrapClampToEdge, WrapT: gltf.WrapMirroredRepeat}, wgpu.FilterModeLinear, wgpu.FilterModeLinear, wgpu.MipmapFilterModeLinear, wgpu.AddressModeClampToEdge, wgpu.AddressModeMirrorRepeat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := samplerStagingData(&tt.sampler)
			assert.Equal(t, tt.mag, got.MagFilter)
			assert.Equal(t, tt.min, got.MinFilter)
			assert.Equal(t, tt.mip, got.MipmapFilter)
			assert.Equal(t, tt.u, got.AddressModeU)
			assert.Equal(t, tt.v, got.AddressModeV)
			assert.Equal(t, wgpu.AddressModeRepeat, got.AddressModeW)
		})
	}
}

func TestMaterialExtraction(t *testing.T) {
	f := newGLBFixture(t)
	tex := f.texture("bricks", "image/png", []byte("png"), &gltf.Sampler{WrapS: gltf.WrapClampToEdge})
	f.material(&gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float32{0.5, 0.5, 0.5, 1},
			MetallicFactor:   gltf.Float(0.25),
			BaseColorTexture: &gltf.TextureInfo{Index: tex},
		},
		EmissiveFactor:   [3]float32{1, 0, 0},
		AlphaMode:        gltf.AlphaMask,
		AlphaCutoff:      gltf.Float(0.3),
		DoubleSided:      true,
		OcclusionTexture: &gltf.OcclusionTexture{Index: gltf.Index(tex), Strength: gltf.Float(0.5)},
	})

	e := newGLTFMaterialExtractor(parseFixture(t, f), 8)
	require.Equal(t, 1, e.MaterialCount())
	mat, err := e.ExtractMaterial(0)
	require.NoError(t, err)

	assert.Equal(t, "material_0", mat.Name)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, mat.Tint)
	assert.Equal(t, float32(0.25), mat.Metallic)
	assert.Equal(t, float32(1), mat.Roughness)
	assert.Equal(t, [3]float32{1, 0, 0}, mat.Emissive)
	assert.Equal(t, common.AlphaMask, mat.AlphaMode)
	assert.Equal(t, float32(0.3), mat.AlphaCutoff)
	assert.Equal(t, float32(0.5), mat.OcclusionStrength)
	assert.True(t, mat.DoubleSided)
	assert.Equal(t, "bricks", mat.TextureTag)
	assert.Equal(t, wgpu.AddressModeClampToEdge, mat.WrapMode)

	diffuse := mat.Textures[common.SlotDiffuse]
	require.NotNil(t, diffuse)
	assert.Equal(t, []byte("png"), diffuse.Data)
	assert.Equal(t, "image/png", diffuse.MimeType)
	assert.Equal(t, uint16(8), diffuse.Sampler.MaxAnisotropy)
	assert.NotNil(t, mat.Textures[common.SlotOcclusion])
	assert.Nil(t, mat.Textures[common.SlotNormal])
}

func TestDefaultMaterialForEmptyList(t *testing.T) {
	f := newGLBFixture(t)
	f.quad("quad")

	e := newGLTFMaterialExtractor(parseFixture(t, f), 1)
	require.Equal(t, 1, e.MaterialCount())
	mat, err := e.ExtractMaterial(0)
	require.NoError(t, err)
	assert.Equal(t, *defaultImportedMaterial(), *mat)
}

func TestGenerateNormalsAndTangents(t *testing.T) {
	f := newGLBFixture(t)
	f.primitive("flat", quadPositions(), []uint32{0, 1, 2, 0, 2, 3}, map[string]uint32{
		"TEXCOORD_0": modeler.WriteTextureCoord(f.doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}),
	})
	p := parseFixture(t, f)

	plain, err := newGLTFMeshExtractor(p, false, false).ExtractMesh(0)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{0, 1, 0}, plain[0].Vertices[0].Normal)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, plain[0].Vertices[0].Tangent)

	generated, err := newGLTFMeshExtractor(p, true, true).ExtractMesh(0)
	require.NoError(t, err)
	for _, v := range generated[0].Vertices {
		assert.InDeltaSlice(t, []float32{0, 0, 1}, v.Normal[:], 1e-5)
		assert.InDeltaSlice(t, []float32{1, 0, 0}, v.Tangent[:3], 1e-5)
	}
	assert.Equal(t, [3]float32{0, 0, 0}, generated[0].BoundingMin)
	assert.Equal(t, [3]float32{1, 1, 0}, generated[0].BoundingMax)
}

func TestPrimitiveNaming(t *testing.T) {
	f := newGLBFixture(t)
	prim := f.quad("")
	f.doc.Meshes[0].Primitives = append(f.doc.Meshes[0].Primitives, &gltf.Primitive{
		Attributes: prim.Attributes,
		Indices:    prim.Indices,
	})

	meshes, err := newGLTFMeshExtractor(parseFixture(t, f), false, false).ExtractAllMeshes(4)
	require.NoError(t, err)
	require.Len(t, meshes, 2)
	assert.Equal(t, "mesh_0_0", meshes[0].Name)
	assert.Equal(t, "mesh_0_1", meshes[1].Name)
	assert.Equal(t, 0, meshes[1].SourceMesh)
}

func TestIndexOutOfRangeIsMalformed(t *testing.T) {
	f := newGLBFixture(t)
	f.primitive("tri", [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 3}, nil)

	_, err := newGLTFMeshExtractor(parseFixture(t, f), false, false).ExtractMesh(0)
	assert.ErrorIs(t, err, ErrMalformedContainer)
}

func TestNormalizeWeights(t *testing.T) {
	assert.Equal(t, [4]float32{0.5, 0.5, 0, 0}, normalizeWeights([4]float32{1, 1, 0, 0}))
	assert.Equal(t, [4]float32{0, 0, 0, 0}, normalizeWeights([4]float32{}))
	assert.Equal(t, [4]float32{1, 0, 0, 0}, normalizeWeights([4]float32{1, 0, 0, 0}))
}
