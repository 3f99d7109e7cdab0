package model

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/material"
	"github.com/jinzhu/copier"
)

// model is the implementation of the Model interface.
type model struct {
	hash       uint64
	label      string
	source     string
	nodes      []Node
	skins      []Skin
	animations []Animation
	meshes     []*Mesh
	materials  []material.Material

	releaseOnce sync.Once
	shared      bool
}

// Model defines the interface for an imported scene asset.
// A Model is a GPU-ready container holding the scene graph, skins, animation clips,
// realized meshes and materials. It is produced by the Loader after importing and
// realizing a scene file, and is read-only once published.
//
// Invariants: every mesh material index is in range of Materials(), and every
// animation target and skin joint is in range of Nodes().
type Model interface {
	// Hash retrieves the content hash the model is cached under.
	//
	// Returns:
	//   - uint64: the cache key
	Hash() uint64

	// Handle retrieves the cache handle of the model.
	//
	// Returns:
	//   - AssetHandle: the handle, equal to Hash()
	Handle() AssetHandle

	// Label retrieves the optional label the model was imported with.
	//
	// Returns:
	//   - string: the label, or "" when imported by content only
	Label() string

	// Source retrieves the opaque locator the model was read from (a file path or "memory").
	//
	// Returns:
	//   - string: the source locator
	Source() string

	// Nodes retrieves the scene graph.
	//
	// Returns:
	//   - []Node: the nodes; Parent/Children index into this slice
	Nodes() []Node

	// RootNodes returns the indices of nodes without a parent.
	//
	// Returns:
	//   - []int: the root node indices in document order
	RootNodes() []int

	// Skins retrieves the skins.
	//
	// Returns:
	//   - []Skin: the skins
	Skins() []Skin

	// Animations retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []Animation: the animation clips
	Animations() []Animation

	// AnimationIndex returns the index of an animation by name, or -1 if not found.
	//
	// Parameters:
	//   - name: the animation clip name to search for
	//
	// Returns:
	//   - int: the animation index, or -1 if not found
	AnimationIndex(name string) int

	// Meshes retrieves the realized meshes.
	//
	// Returns:
	//   - []*Mesh: the meshes in document order
	Meshes() []*Mesh

	// MeshesForNode returns the meshes of the source mesh attached to a node.
	//
	// Parameters:
	//   - node: the node index
	//
	// Returns:
	//   - []*Mesh: the primitives, or nil when the node has no mesh
	MeshesForNode(node int) []*Mesh

	// Materials retrieves the realized materials.
	//
	// Returns:
	//   - []material.Material: the materials
	Materials() []material.Material

	// BoundingRadius returns the bounding sphere radius across every mesh, measured as
	// the maximum vertex distance from the origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Clone deep-copies the CPU-side data (nodes, skins, animations, mesh vertex snapshots) and shares
	// the mesh GPU buffers. Every material is cloned unrealized, so the copy can be mutated without
	// touching the source; realize the copies with Loader.InitMaterialGPU before drawing.
	// Releasing a clone frees only the GPU resources of its own materials.
	//
	// Returns:
	//   - Model: the copy
	//   - error: error if the copy failed
	Clone() (Model, error)

	// Release frees every GPU resource held by the meshes and materials.
	// Calling Release more than once is a no-op; releasing a clone leaves the shared mesh buffers alive.
	Release()
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{source: "memory"}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Hash() uint64 {
	return m.hash
}

func (m *model) Handle() AssetHandle {
	return AssetHandle(m.hash)
}

func (m *model) Label() string {
	return m.label
}

func (m *model) Source() string {
	return m.source
}

func (m *model) Nodes() []Node {
	return m.nodes
}

func (m *model) RootNodes() []int {
	var roots []int
	for i, n := range m.nodes {
		if n.Parent < 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

func (m *model) Skins() []Skin {
	return m.skins
}

func (m *model) Animations() []Animation {
	return m.animations
}

func (m *model) AnimationIndex(name string) int {
	for i, anim := range m.animations {
		if anim.Name == name {
			return i
		}
	}
	return -1
}

func (m *model) Meshes() []*Mesh {
	return m.meshes
}

func (m *model) MeshesForNode(node int) []*Mesh {
	if node < 0 || node >= len(m.nodes) || m.nodes[node].Mesh < 0 {
		return nil
	}
	src := m.nodes[node].Mesh
	var out []*Mesh
	for _, mesh := range m.meshes {
		if mesh.SourceMesh == src {
			out = append(out, mesh)
		}
	}
	return out
}

func (m *model) Materials() []material.Material {
	return m.materials
}

func (m *model) BoundingRadius() float32 {
	var r float32
	for _, mesh := range m.meshes {
		r = max(r, ComputeBoundingRadius(mesh.Vertices))
	}
	return r
}

func (m *model) Clone() (Model, error) {
	c := &model{
		hash:      m.hash,
		label:     m.label,
		source:    m.source,
		materials: make([]material.Material, len(m.materials)),
		shared:    true,
	}
	for i, mat := range m.materials {
		c.materials[i] = mat.Clone()
	}

	opt := copier.Option{CaseSensitive: true, DeepCopy: true}
	if err := copier.CopyWithOption(&c.nodes, &m.nodes, opt); err != nil {
		return nil, err
	}
	if err := copier.CopyWithOption(&c.skins, &m.skins, opt); err != nil {
		return nil, err
	}
	if err := copier.CopyWithOption(&c.animations, &m.animations, opt); err != nil {
		return nil, err
	}

	c.meshes = make([]*Mesh, len(m.meshes))
	for i, src := range m.meshes {
		dst := &Mesh{}
		if err := copier.CopyWithOption(dst, src, opt); err != nil {
			return nil, err
		}
		dst.Provider = src.Provider
		c.meshes[i] = dst
	}

	return c, nil
}

func (m *model) Release() {
	m.releaseOnce.Do(func() {
		if !m.shared {
			for _, mesh := range m.meshes {
				if mesh.Provider != nil {
					mesh.Provider.Release()
				}
			}
		}
		for _, mat := range m.materials {
			mat.Release()
		}
	})
}
