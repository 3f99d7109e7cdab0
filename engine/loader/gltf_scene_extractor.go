package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
)

// gltfSceneExtractorImpl is the implementation of the gltfSceneExtractor interface.
type gltfSceneExtractorImpl struct {
	parser gltfParser
}

// gltfSceneExtractor builds the node hierarchy of a parsed document.
type gltfSceneExtractor interface {
	// ExtractNodes converts every document node into a model.Node and links parents to children.
	// The result is a forest: each node has at most one parent and no node is its own ancestor.
	//
	// Returns:
	//   - []model.Node: the nodes in document order
	//   - error: an error wrapping ErrMalformedContainer if the hierarchy is not a forest
	ExtractNodes() ([]model.Node, error)
}

var _ gltfSceneExtractor = &gltfSceneExtractorImpl{}

// newGLTFSceneExtractor creates a new scene extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSceneExtractor: the scene extractor
func newGLTFSceneExtractor(parser gltfParser) gltfSceneExtractor {
	return &gltfSceneExtractorImpl{parser: parser}
}

func (e *gltfSceneExtractorImpl) ExtractNodes() ([]model.Node, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	nodes := make([]model.Node, len(doc.Nodes))
	for i, src := range doc.Nodes {
		node := model.Node{
			Name:   src.Name,
			Parent: -1,
			Mesh:   -1,
			Skin:   -1,
		}
		if node.Name == "" {
			node.Name = fmt.Sprintf("node_%d", i)
		}

		if m := common.Mat4(src.MatrixOrDefault()); !common.IsIdentity(m) {
			t, r, s := common.DecomposeMatrix(m)
			node.Transform = model.Transform{Translation: t, Rotation: r, Scale: s}
		} else {
			node.Transform = model.Transform{
				Translation: src.TranslationOrDefault(),
				Rotation:    src.RotationOrDefault(),
				Scale:       src.ScaleOrDefault(),
			}
		}

		if src.Mesh != nil {
			if int(*src.Mesh) >= len(doc.Meshes) {
				return nil, malformed("node %d: mesh %d out of range", i, *src.Mesh)
			}
			node.Mesh = int(*src.Mesh)
		}
		if src.Skin != nil {
			if int(*src.Skin) >= len(doc.Skins) {
				return nil, malformed("node %d: skin %d out of range", i, *src.Skin)
			}
			node.Skin = int(*src.Skin)
		}

		if len(src.Children) > 0 {
			node.Children = make([]int, len(src.Children))
			for c, child := range src.Children {
				node.Children[c] = int(child)
			}
		}
		nodes[i] = node
	}

	for i := range nodes {
		for _, child := range nodes[i].Children {
			if child < 0 || child >= len(nodes) {
				return nil, malformed("node %d: child %d out of range", i, child)
			}
			if child == i {
				return nil, malformed("node %d lists itself as a child", i)
			}
			if nodes[child].Parent != -1 {
				return nil, malformed("node %d has two parents (%d and %d)", child, nodes[child].Parent, i)
			}
			nodes[child].Parent = i
		}
	}

	// with single parents enforced, a cycle shows up as a parent chain longer than the node count
	for i := range nodes {
		steps := 0
		for p := nodes[i].Parent; p != -1; p = nodes[p].Parent {
			steps++
			if steps > len(nodes) {
				return nil, malformed("node %d is part of a cycle", i)
			}
		}
	}

	return nodes, nil
}
