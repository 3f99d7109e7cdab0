package model

import (
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/material"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithHash is an option builder that sets the content hash the Model is cached under.
//
// Parameters:
//   - hash: the cache key
//
// Returns:
//   - ModelBuilderOption: a function that applies the hash option to a model
func WithHash(hash uint64) ModelBuilderOption {
	return func(m *model) {
		m.hash = hash
	}
}

// WithLabel is an option builder that sets the label of the Model.
//
// Parameters:
//   - label: the label the model was imported with
//
// Returns:
//   - ModelBuilderOption: a function that applies the label option to a model
func WithLabel(label string) ModelBuilderOption {
	return func(m *model) {
		m.label = label
	}
}

// WithSource is an option builder that sets the opaque locator of the Model.
//
// Parameters:
//   - source: a file path, or "memory" for byte imports
//
// Returns:
//   - ModelBuilderOption: a function that applies the source option to a model
func WithSource(source string) ModelBuilderOption {
	return func(m *model) {
		m.source = source
	}
}

// WithNodes is an option builder that sets the scene graph of the Model.
//
// Parameters:
//   - nodes: the nodes to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the nodes option to a model
func WithNodes(nodes []Node) ModelBuilderOption {
	return func(m *model) {
		m.nodes = nodes
	}
}

// WithSkins is an option builder that sets the skins of the Model.
//
// Parameters:
//   - skins: the skins to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the skins option to a model
func WithSkins(skins []Skin) ModelBuilderOption {
	return func(m *model) {
		m.skins = skins
	}
}

// WithAnimations is an option builder that sets the animation clips of the Model.
//
// Parameters:
//   - animations: the animation clips to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(animations []Animation) ModelBuilderOption {
	return func(m *model) {
		m.animations = animations
	}
}

// WithMeshes is an option builder that sets the realized meshes of the Model.
//
// Parameters:
//   - meshes: the meshes to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the meshes option to a model
func WithMeshes(meshes []*Mesh) ModelBuilderOption {
	return func(m *model) {
		m.meshes = meshes
	}
}

// WithMaterials is an option builder that sets the realized materials of the Model.
//
// Parameters:
//   - materials: the materials to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the materials option to a model
func WithMaterials(materials []material.Material) ModelBuilderOption {
	return func(m *model) {
		m.materials = materials
	}
}
