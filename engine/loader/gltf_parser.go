package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Carmen-Shannon/oxy-assets/engine/profiler"
	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// GLB container constants.
const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	glbHeaderSize = 12
	glbChunkJSON  = 0x4E4F534A // "JSON"
	glbChunkBIN   = 0x004E4942 // "BIN\0"
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	document *gltf.Document
	profiler *profiler.ImportProfiler
}

// gltfParser decodes a self-contained glTF container and provides bounds-checked, typed accessor reads.
// This is internal to the loader package.
type gltfParser interface {
	// Parse validates the container framing and decodes the document.
	// Buffers must be carried in the GLB BIN chunk or as data URIs; any external URI is rejected.
	//
	// Parameters:
	//   - data: the GLB bytes (or a JSON document with embedded buffers)
	//
	// Returns:
	//   - error: an error wrapping ErrMalformedContainer if the data cannot be decoded
	Parse(data []byte) error

	// Document returns the decoded document, or nil before a successful Parse.
	//
	// Returns:
	//   - *gltf.Document: the decoded document
	Document() *gltf.Document

	// Accessor resolves an accessor index and validates that its data lies inside its buffer.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - *gltf.Accessor: the accessor
	//   - error: an error wrapping ErrMalformedContainer if the index or its byte range is invalid
	Accessor(index uint32) (*gltf.Accessor, error)

	// AccessorRange returns the buffer backing an accessor with the byte offset of its first element and its stride.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - []byte: the whole backing buffer
	//   - int: offset of the first element (view offset + accessor offset)
	//   - int: element stride (view stride, or the natural element size when unset)
	//   - error: an error wrapping ErrMalformedContainer if the accessor is invalid
	AccessorRange(index uint32) ([]byte, int, int, error)

	// ReadScalars reads a SCALAR float accessor.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - []float32: the values
	//   - error: an error if the accessor is invalid or not a float scalar
	ReadScalars(index uint32) ([]float32, error)

	// ReadVec2 reads a VEC2 accessor, accepting float or normalized integer components.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - [][2]float32: the values
	//   - error: an error if the accessor is invalid or of another shape
	ReadVec2(index uint32) ([][2]float32, error)

	// ReadVec3 reads a VEC3 accessor, accepting float or normalized integer components.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - [][3]float32: the values
	//   - error: an error if the accessor is invalid or of another shape
	ReadVec3(index uint32) ([][3]float32, error)

	// ReadVec4 reads a VEC4 accessor, accepting float or normalized integer components.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - [][4]float32: the values
	//   - error: an error if the accessor is invalid or of another shape
	ReadVec4(index uint32) ([][4]float32, error)

	// ReadJoints reads a VEC4 joint accessor with unsigned byte or short components.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - [][4]uint16: the joint indices
	//   - error: an error if the accessor is invalid
	ReadJoints(index uint32) ([][4]uint16, error)

	// ReadIndices reads a SCALAR index accessor with unsigned byte, short or int components.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - []uint32: the indices widened to u32
	//   - error: an error if the accessor is invalid
	ReadIndices(index uint32) ([]uint32, error)

	// ImageData returns the encoded bytes of an image and its declared mime type.
	// The bytes come from the image's buffer view or from an embedded data URI.
	//
	// Parameters:
	//   - index: the image index
	//
	// Returns:
	//   - []byte: the encoded image
	//   - string: the declared mime type, possibly empty
	//   - error: an error wrapping ErrMalformedContainer for an external URI or an invalid view
	ImageData(index uint32) ([]byte, string, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Parameters:
//   - prof: the import profiler whose parse counter is incremented by every Parse call, may be nil
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser(prof *profiler.ImportProfiler) gltfParser {
	return &gltfParserImpl{profiler: prof}
}

func (p *gltfParserImpl) Document() *gltf.Document {
	return p.document
}

func (p *gltfParserImpl) Parse(data []byte) error {
	if p.profiler != nil {
		p.profiler.AddParse()
	}

	if err := checkContainer(data); err != nil {
		return err
	}

	doc := new(gltf.Document)
	dec := gltf.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(doc); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformedContainer, err)
	}
	if err := checkEmbedded(doc); err != nil {
		return err
	}

	p.document = doc
	return nil
}

// checkEmbedded rejects buffers and images that point outside the container.
// The decoder leaves such buffers empty instead of failing.
func checkEmbedded(doc *gltf.Document) error {
	for i, b := range doc.Buffers {
		if b.URI != "" && !b.IsEmbeddedResource() {
			return malformed("buffer %d: external uri %q is not supported", i, b.URI)
		}
	}
	for i, img := range doc.Images {
		if img.URI != "" && !img.IsEmbeddedResource() {
			return malformed("image %d: external uri %q is not supported", i, img.URI)
		}
	}
	return nil
}

// checkContainer validates the GLB header and chunk framing. JSON documents pass through untouched.
func checkContainer(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return nil
	}

	if len(data) < glbHeaderSize {
		return malformed("truncated header: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != glbMagic {
		return malformed("bad magic 0x%08x", magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != glbVersion {
		return malformed("unsupported container version %d", version)
	}
	length := int(binary.LittleEndian.Uint32(data[8:12]))
	if length > len(data) {
		return malformed("declared length %d exceeds data length %d", length, len(data))
	}

	offset := glbHeaderSize
	chunks := 0
	for offset < length {
		if offset+8 > length {
			return malformed("truncated chunk header at offset %d", offset)
		}
		chunkLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		if offset+8+chunkLen > length {
			return malformed("chunk at offset %d overruns container", offset)
		}
		if chunks == 0 && chunkType != glbChunkJSON {
			return malformed("first chunk is not JSON")
		}
		if chunks == 1 && chunkType != glbChunkBIN {
			return malformed("second chunk is not BIN")
		}
		offset += 8 + chunkLen
		chunks++
	}
	if chunks == 0 {
		return malformed("missing JSON chunk")
	}
	return nil
}

// elementSize returns the byte size of one accessor element, or 0 for an unknown component or type.
func elementSize(acr *gltf.Accessor) int {
	var component int
	switch acr.ComponentType {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		component = 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		component = 2
	case gltf.ComponentUint, gltf.ComponentFloat:
		component = 4
	default:
		return 0
	}

	switch acr.Type {
	case gltf.AccessorScalar:
		return component
	case gltf.AccessorVec2:
		return 2 * component
	case gltf.AccessorVec3:
		return 3 * component
	case gltf.AccessorVec4:
		return 4 * component
	case gltf.AccessorMat2:
		// columns are padded to 4-byte boundaries
		return 2 * align4(2*component)
	case gltf.AccessorMat3:
		return 3 * align4(3*component)
	case gltf.AccessorMat4:
		return 16 * component
	default:
		return 0
	}
}

func align4(n int) int {
	return (n + 3) &^ 3
}

func (p *gltfParserImpl) AccessorRange(index uint32) ([]byte, int, int, error) {
	doc := p.document
	if doc == nil || int(index) >= len(doc.Accessors) {
		return nil, 0, 0, malformed("accessor %d out of range", index)
	}
	acr := doc.Accessors[index]
	if acr.BufferView == nil {
		return nil, 0, 0, malformed("accessor %d has no buffer view", index)
	}
	if int(*acr.BufferView) >= len(doc.BufferViews) {
		return nil, 0, 0, malformed("accessor %d: buffer view %d out of range", index, *acr.BufferView)
	}
	view := doc.BufferViews[*acr.BufferView]
	if int(view.Buffer) >= len(doc.Buffers) {
		return nil, 0, 0, malformed("buffer view %d: buffer %d out of range", *acr.BufferView, view.Buffer)
	}
	data := doc.Buffers[view.Buffer].Data

	size := elementSize(acr)
	if size == 0 {
		return nil, 0, 0, malformed("accessor %d: unsupported component or element type", index)
	}
	stride := size
	if view.ByteStride != 0 {
		stride = int(view.ByteStride)
	}

	viewStart := int(view.ByteOffset)
	viewEnd := viewStart + int(view.ByteLength)
	if viewEnd > len(data) {
		return nil, 0, 0, malformed("buffer view %d: range [%d, %d) exceeds buffer of %d bytes", *acr.BufferView, viewStart, viewEnd, len(data))
	}
	offset := viewStart + int(acr.ByteOffset)
	if acr.Count > 0 {
		end := offset + stride*(int(acr.Count)-1) + size
		if end > viewEnd {
			return nil, 0, 0, malformed("accessor %d: read of %d elements exceeds buffer view", index, acr.Count)
		}
	}
	return data, offset, stride, nil
}

func (p *gltfParserImpl) Accessor(index uint32) (*gltf.Accessor, error) {
	if _, _, _, err := p.AccessorRange(index); err != nil {
		return nil, err
	}
	return p.document.Accessors[index], nil
}

// read validates an accessor and decodes it through the modeler package.
func (p *gltfParserImpl) read(index uint32, want gltf.AccessorType) (*gltf.Accessor, any, error) {
	acr, err := p.Accessor(index)
	if err != nil {
		return nil, nil, err
	}
	if acr.Type != want {
		return nil, nil, malformed("accessor %d: expected %v, got %v", index, want, acr.Type)
	}
	data, err := modeler.ReadAccessor(p.document, acr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: accessor %d: %v", ErrMalformedContainer, index, err)
	}
	return acr, data, nil
}

func (p *gltfParserImpl) ReadScalars(index uint32) ([]float32, error) {
	_, data, err := p.read(index, gltf.AccessorScalar)
	if err != nil {
		return nil, err
	}
	values, ok := data.([]float32)
	if !ok {
		return nil, malformed("accessor %d: expected float scalars", index)
	}
	return values, nil
}

func (p *gltfParserImpl) ReadVec2(index uint32) ([][2]float32, error) {
	acr, data, err := p.read(index, gltf.AccessorVec2)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][2]float32:
		return v, nil
	case [][2]uint8:
		return dequantizeVec2(v, acr)
	case [][2]int8:
		return dequantizeVec2(v, acr)
	case [][2]uint16:
		return dequantizeVec2(v, acr)
	case [][2]int16:
		return dequantizeVec2(v, acr)
	}
	return nil, malformed("accessor %d: unsupported vec2 component type %v", index, acr.ComponentType)
}

func (p *gltfParserImpl) ReadVec3(index uint32) ([][3]float32, error) {
	acr, data, err := p.read(index, gltf.AccessorVec3)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][3]float32:
		return v, nil
	case [][3]uint8:
		return dequantizeVec3(v, acr)
	case [][3]int8:
		return dequantizeVec3(v, acr)
	case [][3]uint16:
		return dequantizeVec3(v, acr)
	case [][3]int16:
		return dequantizeVec3(v, acr)
	}
	return nil, malformed("accessor %d: unsupported vec3 component type %v", index, acr.ComponentType)
}

func (p *gltfParserImpl) ReadVec4(index uint32) ([][4]float32, error) {
	acr, data, err := p.read(index, gltf.AccessorVec4)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][4]float32:
		return v, nil
	case [][4]uint8:
		return dequantizeVec4(v, acr)
	case [][4]int8:
		return dequantizeVec4(v, acr)
	case [][4]uint16:
		return dequantizeVec4(v, acr)
	case [][4]int16:
		return dequantizeVec4(v, acr)
	}
	return nil, malformed("accessor %d: unsupported vec4 component type %v", index, acr.ComponentType)
}

func (p *gltfParserImpl) ReadJoints(index uint32) ([][4]uint16, error) {
	acr, err := p.Accessor(index)
	if err != nil {
		return nil, err
	}
	if acr.Type != gltf.AccessorVec4 {
		return nil, malformed("accessor %d: joints must be VEC4, got %v", index, acr.Type)
	}
	joints, err := modeler.ReadJoints(p.document, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: accessor %d: %v", ErrMalformedContainer, index, err)
	}
	return joints, nil
}

func (p *gltfParserImpl) ReadIndices(index uint32) ([]uint32, error) {
	acr, err := p.Accessor(index)
	if err != nil {
		return nil, err
	}
	if acr.Type != gltf.AccessorScalar {
		return nil, malformed("accessor %d: indices must be SCALAR, got %v", index, acr.Type)
	}
	indices, err := modeler.ReadIndices(p.document, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: accessor %d: %v", ErrMalformedContainer, index, err)
	}
	return indices, nil
}

func (p *gltfParserImpl) ImageData(index uint32) ([]byte, string, error) {
	doc := p.document
	if doc == nil || int(index) >= len(doc.Images) {
		return nil, "", malformed("image %d out of range", index)
	}
	img := doc.Images[index]

	switch {
	case img.BufferView != nil:
		bv := *img.BufferView
		if int(bv) >= len(doc.BufferViews) {
			return nil, "", malformed("image %d: buffer view %d out of range", index, bv)
		}
		view := doc.BufferViews[bv]
		if int(view.Buffer) >= len(doc.Buffers) ||
			int(view.ByteOffset)+int(view.ByteLength) > len(doc.Buffers[view.Buffer].Data) {
			return nil, "", malformed("image %d: buffer view %d exceeds its buffer", index, bv)
		}
		data, err := modeler.ReadBufferView(doc, view)
		if err != nil {
			return nil, "", fmt.Errorf("%w: image %d: %v", ErrMalformedContainer, index, err)
		}
		return data, img.MimeType, nil
	case img.IsEmbeddedResource():
		data, err := img.MarshalData()
		if err != nil {
			return nil, "", fmt.Errorf("%w: image %d: %v", ErrMalformedContainer, index, err)
		}
		return data, img.MimeType, nil
	case img.URI != "":
		return nil, "", malformed("image %d: external uri %q is not supported", index, img.URI)
	default:
		return nil, "", malformed("image %d has no data source", index)
	}
}

// quantized lists the integer component types glTF allows for normalized attributes.
type quantized interface {
	~int8 | ~uint8 | ~int16 | ~uint16
}

// unpackComponent maps a normalized integer component onto [0, 1] or [-1, 1].
func unpackComponent(v float32, ct gltf.ComponentType) float32 {
	switch ct {
	case gltf.ComponentUbyte:
		return v / 255
	case gltf.ComponentUshort:
		return v / 65535
	case gltf.ComponentByte:
		return math32.Max(v/127, -1)
	case gltf.ComponentShort:
		return math32.Max(v/32767, -1)
	default:
		return v
	}
}

func dequantizeVec2[T quantized](src [][2]T, acr *gltf.Accessor) ([][2]float32, error) {
	if !acr.Normalized {
		return nil, malformed("integer vec2 accessor must be normalized")
	}
	out := make([][2]float32, len(src))
	for i, v := range src {
		for c := range 2 {
			out[i][c] = unpackComponent(float32(v[c]), acr.ComponentType)
		}
	}
	return out, nil
}

func dequantizeVec3[T quantized](src [][3]T, acr *gltf.Accessor) ([][3]float32, error) {
	if !acr.Normalized {
		return nil, malformed("integer vec3 accessor must be normalized")
	}
	out := make([][3]float32, len(src))
	for i, v := range src {
		for c := range 3 {
			out[i][c] = unpackComponent(float32(v[c]), acr.ComponentType)
		}
	}
	return out, nil
}

func dequantizeVec4[T quantized](src [][4]T, acr *gltf.Accessor) ([][4]float32, error) {
	if !acr.Normalized {
		return nil, malformed("integer vec4 accessor must be normalized")
	}
	out := make([][4]float32, len(src))
	for i, v := range src {
		for c := range 4 {
			out[i][c] = unpackComponent(float32(v[c]), acr.ComponentType)
		}
	}
	return out, nil
}
