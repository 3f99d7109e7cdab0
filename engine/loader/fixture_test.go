package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/require"
)

// glbFixture builds small GLB containers for tests.
type glbFixture struct {
	t   *testing.T
	doc *gltf.Document
}

func newGLBFixture(t *testing.T) *glbFixture {
	t.Helper()
	return &glbFixture{t: t, doc: gltf.NewDocument()}
}

// quadPositions returns the four corners of a unit quad in the XY plane.
func quadPositions() [][3]float32 {
	return [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
}

// primitive appends a mesh with one indexed primitive and a node that references it.
// attrs may add or override attributes; POSITION and the indices are always written.
func (f *glbFixture) primitive(name string, positions [][3]float32, indices []uint32, attrs map[string]uint32) *gltf.Primitive {
	prim := &gltf.Primitive{
		Attributes: map[string]uint32{"POSITION": modeler.WritePosition(f.doc, positions)},
		Indices:    gltf.Index(modeler.WriteIndices(f.doc, indices)),
	}
	for k, v := range attrs {
		prim.Attributes[k] = v
	}
	f.doc.Meshes = append(f.doc.Meshes, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}})
	f.node(&gltf.Node{Name: name, Mesh: gltf.Index(uint32(len(f.doc.Meshes) - 1))})
	return prim
}

// quad appends a two-triangle quad mesh.
func (f *glbFixture) quad(name string) *gltf.Primitive {
	return f.primitive(name, quadPositions(), []uint32{0, 1, 2, 0, 2, 3}, map[string]uint32{
		"NORMAL":     modeler.WriteNormal(f.doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
		"TEXCOORD_0": modeler.WriteTextureCoord(f.doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}),
	})
}

// node appends a node and, when it is a root, adds it to the default scene.
func (f *glbFixture) node(n *gltf.Node) uint32 {
	f.doc.Nodes = append(f.doc.Nodes, n)
	idx := uint32(len(f.doc.Nodes) - 1)
	f.doc.Scenes[0].Nodes = append(f.doc.Scenes[0].Nodes, idx)
	return idx
}

// material appends a material and returns its index.
func (f *glbFixture) material(m *gltf.Material) uint32 {
	f.doc.Materials = append(f.doc.Materials, m)
	return uint32(len(f.doc.Materials) - 1)
}

// texture embeds encoded image bytes and returns the index of a texture sampling them.
func (f *glbFixture) texture(name, mime string, data []byte, sampler *gltf.Sampler) uint32 {
	img, err := modeler.WriteImage(f.doc, name, mime, bytes.NewReader(data))
	require.NoError(f.t, err)

	tex := &gltf.Texture{Source: gltf.Index(img)}
	if sampler != nil {
		f.doc.Samplers = append(f.doc.Samplers, sampler)
		tex.Sampler = gltf.Index(uint32(len(f.doc.Samplers) - 1))
	}
	f.doc.Textures = append(f.doc.Textures, tex)
	return uint32(len(f.doc.Textures) - 1)
}

// bytes encodes the document as a GLB container.
func (f *glbFixture) bytes() []byte {
	f.t.Helper()
	for _, b := range f.doc.Buffers {
		b.ByteLength = uint32(len(b.Data))
	}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(f.t, enc.Encode(f.doc))
	return buf.Bytes()
}

// solidPNG encodes a w x h image of one colour.
func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// staticDecoder is an ImageDecoder that ignores its input and returns a fixed image.
type staticDecoder struct {
	image DecodedImage
	calls atomic.Int32
}

func (d *staticDecoder) Decode([]byte) (DecodedImage, error) {
	d.calls.Add(1)
	return d.image, nil
}
