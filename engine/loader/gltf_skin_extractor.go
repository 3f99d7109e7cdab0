package loader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"go.uber.org/zap"
)

// inverseBindMatrixSize is the byte size of one column-major mat4 of f32.
const inverseBindMatrixSize = 64

// gltfSkinExtractorImpl is the implementation of the gltfSkinExtractor interface.
type gltfSkinExtractorImpl struct {
	parser gltfParser
}

// gltfSkinExtractor defines the interface for extracting skins (joint lists and inverse bind matrices) from a parsed glTF document.
type gltfSkinExtractor interface {
	// ExtractSkin extracts a single skin by index.
	// A skin without inverse bind matrices gets identity matrices for every joint.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - model.Skin: the extracted skin
	//   - error: an error wrapping ErrMalformedContainer if the matrices cannot be read
	ExtractSkin(skinIndex int) (model.Skin, error)

	// ExtractAllSkins extracts every skin in document order.
	//
	// Returns:
	//   - []model.Skin: all skins
	//   - error: error if extraction fails
	ExtractAllSkins() ([]model.Skin, error)
}

var _ gltfSkinExtractor = &gltfSkinExtractorImpl{}

// newGLTFSkinExtractor creates a new skin extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSkinExtractor: the skin extractor
func newGLTFSkinExtractor(parser gltfParser) gltfSkinExtractor {
	return &gltfSkinExtractorImpl{parser: parser}
}

func (e *gltfSkinExtractorImpl) ExtractAllSkins() ([]model.Skin, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	skins := make([]model.Skin, len(doc.Skins))
	for i := range doc.Skins {
		skin, err := e.ExtractSkin(i)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", i, err)
		}
		skins[i] = skin
	}
	return skins, nil
}

func (e *gltfSkinExtractorImpl) ExtractSkin(skinIndex int) (model.Skin, error) {
	doc := e.parser.Document()
	if doc == nil {
		return model.Skin{}, fmt.Errorf("no document loaded")
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return model.Skin{}, malformed("skin %d out of range", skinIndex)
	}
	src := doc.Skins[skinIndex]

	skin := model.Skin{
		Name:     src.Name,
		Joints:   make([]int, len(src.Joints)),
		Skeleton: -1,
	}
	if skin.Name == "" {
		skin.Name = fmt.Sprintf("skin_%d", skinIndex)
	}
	for i, joint := range src.Joints {
		if int(joint) >= len(doc.Nodes) {
			return model.Skin{}, malformed("joint %d: node %d out of range", i, joint)
		}
		skin.Joints[i] = int(joint)
	}
	if src.Skeleton != nil {
		if int(*src.Skeleton) >= len(doc.Nodes) {
			return model.Skin{}, malformed("skeleton node %d out of range", *src.Skeleton)
		}
		skin.Skeleton = int(*src.Skeleton)
	}

	if src.InverseBindMatrices == nil {
		logger.Info("skin has no inverse bind matrices, using identity",
			zap.String("skin", skin.Name), zap.Int("joints", len(skin.Joints)))
		skin.InverseBindMatrices = make([][16]float32, len(skin.Joints))
		for i := range skin.InverseBindMatrices {
			skin.InverseBindMatrices[i] = common.IdentityMat4()
		}
		return skin, nil
	}

	matrices, err := e.readInverseBindMatrices(*src.InverseBindMatrices, len(skin.Joints))
	if err != nil {
		return model.Skin{}, fmt.Errorf("inverse bind matrices: %w", err)
	}
	skin.InverseBindMatrices = matrices
	return skin, nil
}

// readInverseBindMatrices reads one 64-byte little-endian matrix per joint at offset+i*stride.
func (e *gltfSkinExtractorImpl) readInverseBindMatrices(accessor uint32, joints int) ([][16]float32, error) {
	data, offset, stride, err := e.parser.AccessorRange(accessor)
	if err != nil {
		return nil, err
	}
	if stride < inverseBindMatrixSize {
		stride = inverseBindMatrixSize
	}

	matrices := make([][16]float32, joints)
	for i := range matrices {
		start := offset + i*stride
		if start+inverseBindMatrixSize > len(data) {
			return nil, malformed("joint %d: matrix at byte %d exceeds buffer of %d bytes", i, start, len(data))
		}
		matrices[i] = readMatrix(data[start : start+inverseBindMatrixSize])
	}
	return matrices, nil
}

func readMatrix(data []byte) [16]float32 {
	var mat [16]float32
	for i := range 16 {
		mat[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return mat
}
