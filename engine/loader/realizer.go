package loader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/engine/profiler"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// realizer turns an ImportedModel into a Model by creating every GPU resource on one Device.
// Realizations against the same realizer are serialized.
type realizer struct {
	mu        sync.Mutex
	device    renderer.Device
	fallbacks renderer.FallbackTextures
	processor *textureProcessor
	profiler  *profiler.ImportProfiler
}

// realizeRequest names the identity a realized model is published under.
type realizeRequest struct {
	hash   uint64
	label  string
	source string
}

// newRealizer creates a realizer for a device.
//
// Parameters:
//   - dev: the device every resource is created on
//   - fallbacks: the shared fallback texture provider
//   - processor: decodes textures that reach the realizer without staging data
//   - prof: the profiler receiving the realize stage timing
//
// Returns:
//   - *realizer: the realizer
func newRealizer(dev renderer.Device, fallbacks renderer.FallbackTextures, processor *textureProcessor, prof *profiler.ImportProfiler) *realizer {
	return &realizer{
		device:    dev,
		fallbacks: fallbacks,
		processor: processor,
		profiler:  prof,
	}
}

// fallbackFor returns the shared stand-in texture for an absent slot.
func (r *realizer) fallbackFor(slot common.TextureSlot) (renderer.Texture, error) {
	switch slot {
	case common.SlotDiffuse:
		return r.fallbacks.Grey(r.device)
	case common.SlotNormal:
		return r.fallbacks.FlatNormal(r.device)
	default:
		return r.fallbacks.White(r.device, slot.SRGB())
	}
}

// Realize creates the GPU resources of every material and mesh and assembles the Model.
// On failure everything created by this call is released and the error wraps ErrGpuResourceCreationFailed.
//
// Parameters:
//   - imported: the CPU-side import result
//   - req: the hash, label and source recorded on the model
//
// Returns:
//   - model.Model: the realized model
//   - error: error if any GPU resource could not be created
func (r *realizer) Realize(imported *model.ImportedModel, req realizeRequest) (model.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.profiler.Track(profiler.StageRealize)()

	materials := make([]material.Material, 0, len(imported.Materials))
	meshes := make([]*model.Mesh, 0, len(imported.Meshes))
	release := func() {
		for _, mat := range materials {
			mat.Release()
		}
		for _, mesh := range meshes {
			mesh.Provider.Release()
		}
	}

	for i := range imported.Materials {
		imp := imported.Materials[i]
		mat := material.NewMaterial(material.WithImported(&imp))
		label := fmt.Sprintf("%s_material_%d", imported.Name, i)
		if err := r.realizeMaterial(mat, label); err != nil {
			release()
			return nil, fmt.Errorf("%w: material %q: %v", ErrGpuResourceCreationFailed, imp.Name, err)
		}
		materials = append(materials, mat)
	}

	for i := range imported.Meshes {
		mesh, err := r.realizeMesh(&imported.Meshes[i])
		if err != nil {
			release()
			return nil, fmt.Errorf("%w: mesh %q: %v", ErrGpuResourceCreationFailed, imported.Meshes[i].Name, err)
		}
		meshes = append(meshes, mesh)
	}

	logger.Debug("realized model",
		zap.String("label", req.label),
		zap.Uint64("hash", req.hash),
		zap.String("device", r.device.Label()),
		zap.Int("meshes", len(meshes)),
		zap.Int("materials", len(materials)))

	return model.NewModel(
		model.WithHash(req.hash),
		model.WithLabel(req.label),
		model.WithSource(req.source),
		model.WithNodes(imported.Nodes),
		model.WithSkins(imported.Skins),
		model.WithAnimations(imported.Animations),
		model.WithMeshes(meshes),
		model.WithMaterials(materials),
	), nil
}

// RealizeMaterial creates the GPU resources of a single hand-built material.
//
// Parameters:
//   - mat: the material to realize
//   - label: the bind group provider label
//
// Returns:
//   - error: error wrapping ErrGpuResourceCreationFailed if a resource could not be created
func (r *realizer) RealizeMaterial(mat material.Material, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.realizeMaterial(mat, label); err != nil {
		return fmt.Errorf("%w: material %q: %v", ErrGpuResourceCreationFailed, mat.Name(), err)
	}
	return nil
}

// realizeMaterial binds a texture or a fallback to every slot, uploads the uniform block and creates the bind group.
// The provider is attached to mat only when every step succeeds.
func (r *realizer) realizeMaterial(mat material.Material, label string) error {
	provider := bind_group_provider.NewBindGroupProvider(label)

	for slot := range common.TextureSlotCount {
		s := common.TextureSlot(slot)
		binding := material.TextureBinding(s)

		imp := mat.ImportedTexture(s)
		if imp == nil {
			tex, err := r.fallbackFor(s)
			if err != nil {
				provider.Release()
				return fmt.Errorf("%s fallback: %w", s, err)
			}
			provider.SetTexture(binding, tex, true)
			continue
		}

		if imp.Staging == nil {
			if err := r.processor.Process(imp, s); err != nil {
				provider.Release()
				return fmt.Errorf("%s texture %q: %w", s, imp.Name, err)
			}
		}
		tex, err := r.device.CreateTexture(fmt.Sprintf("%s_%s", label, s), *imp.Staging, imp.Sampler)
		if err != nil {
			provider.Release()
			return fmt.Errorf("%s texture %q: %w", s, imp.Name, err)
		}
		provider.SetTexture(binding, tex, false)
	}

	uniform := mat.Uniform()
	buf, err := r.device.CreateBuffer(label+"_uniform", uniform.Marshal(), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		provider.Release()
		return fmt.Errorf("uniform buffer: %w", err)
	}
	provider.SetBuffer(material.UniformBinding, buf)

	bg, err := r.device.CreateBindGroup(label, provider.Entries())
	if err != nil {
		provider.Release()
		return fmt.Errorf("bind group: %w", err)
	}
	provider.SetBindGroup(bg)

	mat.SetBindGroupProvider(provider)
	return nil
}

// realizeMesh uploads one primitive's vertex and index data.
func (r *realizer) realizeMesh(imp *model.ImportedMesh) (*model.Mesh, error) {
	if len(imp.Vertices) == 0 || len(imp.Indices) == 0 {
		return nil, errors.New("empty vertex or index data")
	}

	vb, err := r.device.CreateBuffer(imp.Name+"_vertices", model.MarshalVertices(imp.Vertices),
		wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("vertex buffer: %w", err)
	}
	ib, err := r.device.CreateBuffer(imp.Name+"_indices", model.MarshalIndices(imp.Indices),
		wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("index buffer: %w", err)
	}

	return &model.Mesh{
		Name:          imp.Name,
		SourceMesh:    imp.SourceMesh,
		MaterialIndex: imp.MaterialIndex,
		ElementCount:  len(imp.Indices),
		Vertices:      imp.Vertices,
		Indices:       imp.Indices,
		BoundingMin:   imp.BoundingMin,
		BoundingMax:   imp.BoundingMax,
		Provider: bind_group_provider.NewBindGroupProvider(imp.Name+"_mesh",
			bind_group_provider.WithMeshBuffers(vb, ib, len(imp.Indices))),
	}, nil
}
