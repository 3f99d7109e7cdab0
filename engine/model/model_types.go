package model

import (
	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/bind_group_provider"
)

// --- Scene Graph Types ---

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns the transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// Matrix composes the transform into a column-major matrix (T * R * S).
func (t Transform) Matrix() common.Mat4 {
	return common.ComposeTRS(t.Translation, t.Rotation, t.Scale)
}

// Node is one entry of the scene graph. Parent and Children hold indices into Model.Nodes().
type Node struct {
	// Name is the node identifier; unnamed nodes are called "node_<index>".
	Name string

	// Parent is the index of the parent node, or -1 for a root.
	Parent int

	// Children are the indices of the child nodes in document order.
	Children []int

	// Transform is the node's local transform relative to its parent.
	Transform Transform

	// Mesh is the index of the source mesh attached to this node, or -1.
	Mesh int

	// Skin is the index of the skin used by this node's mesh, or -1.
	Skin int
}

// Skin binds a set of joint nodes to inverse bind matrices.
type Skin struct {
	// Name is the skin identifier.
	Name string

	// Joints are node indices; Joints[i] pairs with InverseBindMatrices[i].
	Joints []int

	// InverseBindMatrices are column-major 4x4 matrices, one per joint.
	InverseBindMatrices [][16]float32

	// Skeleton is the optional root node of the joint hierarchy, or -1.
	Skeleton int
}

// --- Animation Types ---

// Interpolation selects how an animation channel is sampled between keyframes.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationStep:
		return "STEP"
	case InterpolationCubicSpline:
		return "CUBICSPLINE"
	default:
		return "LINEAR"
	}
}

// ChannelKind identifies which node property an animation channel drives.
type ChannelKind int

const (
	ChannelTranslations ChannelKind = iota
	ChannelRotations
	ChannelScales
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelRotations:
		return "rotation"
	case ChannelScales:
		return "scale"
	default:
		return "translation"
	}
}

// ChannelValues holds the output samples of an animation channel.
// Translations and scales live in Vec3; rotations (x, y, z, w) live in Quat.
// For cubic-spline channels every keyframe contributes three samples: in-tangent, value, out-tangent.
type ChannelValues struct {
	Kind ChannelKind
	Vec3 [][3]float32
	Quat [][4]float32
}

// Translations returns the translation samples, or nil for another kind.
func (v ChannelValues) Translations() [][3]float32 {
	if v.Kind != ChannelTranslations {
		return nil
	}
	return v.Vec3
}

// Rotations returns the rotation samples, or nil for another kind.
func (v ChannelValues) Rotations() [][4]float32 {
	if v.Kind != ChannelRotations {
		return nil
	}
	return v.Quat
}

// Scales returns the scale samples, or nil for another kind.
func (v ChannelValues) Scales() [][3]float32 {
	if v.Kind != ChannelScales {
		return nil
	}
	return v.Vec3
}

// Len returns the number of samples of the channel's kind.
func (v ChannelValues) Len() int {
	if v.Kind == ChannelRotations {
		return len(v.Quat)
	}
	return len(v.Vec3)
}

// AnimationChannel animates one property of one node.
type AnimationChannel struct {
	// TargetNode is the index of the animated node.
	TargetNode int

	// Times are the keyframe timestamps in seconds, ascending.
	Times []float32

	// Values are the keyframe outputs.
	Values ChannelValues

	// Interpolation selects the sampling mode.
	Interpolation Interpolation
}

// Animation is a named set of channels (walk, run, attack, etc.).
type Animation struct {
	// Name is the animation identifier; unnamed animations are called "animation_<index>".
	Name string

	// Channels contains the per-node keyframe data.
	Channels []AnimationChannel

	// Duration is the largest last keyframe time across all channels, in seconds.
	Duration float32
}

// --- Mesh Types ---

// Mesh is one realized primitive: CPU vertex snapshot plus GPU buffers.
type Mesh struct {
	// Name is "<mesh>" for single-primitive meshes and "<mesh>_<i>" otherwise.
	Name string

	// SourceMesh is the index of the source mesh this primitive belongs to; Node.Mesh refers to it.
	SourceMesh int

	// MaterialIndex references Model.Materials().
	MaterialIndex int

	// ElementCount is the number of indices drawn.
	ElementCount int

	// Vertices is the CPU-retained vertex snapshot.
	Vertices []ModelVertex

	// Indices is the CPU-retained u32 index snapshot.
	Indices []uint32

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin [3]float32

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax [3]float32

	// Provider holds the vertex and index buffers. It is shared, not copied, by Model.Clone.
	Provider bind_group_provider.BindGroupProvider `copier:"-"`
}

// --- Import Types ---

// ImportedMesh represents a single assembled primitive before GPU realization.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// SourceMesh is the index of the source mesh this primitive belongs to.
	SourceMesh int

	// Vertices are the assembled vertices.
	Vertices []ModelVertex

	// Indices are the triangle indices.
	Indices []uint32

	// MaterialIndex references ImportedModel.Materials.
	MaterialIndex int

	// BoundingMin is the minimum corner of the axis-aligned bounding box.
	BoundingMin [3]float32

	// BoundingMax is the maximum corner of the axis-aligned bounding box.
	BoundingMax [3]float32
}

// ImportedModel is the CPU-side result of parsing a scene file, before any GPU work.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Nodes is the scene graph.
	Nodes []Node

	// Skins are the joint bindings.
	Skins []Skin

	// Animations are all animation clips bundled with the model.
	Animations []Animation

	// Meshes contains every assembled primitive.
	Meshes []ImportedMesh

	// Materials are the extracted materials with decoded textures.
	Materials []common.ImportedMaterial
}
