package bind_group_provider

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu sync.Mutex

	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the realizer, not by user-creation.

	// bindGroup is the GPU bind group created for this provider, or nil if not realized.
	bindGroup renderer.BindGroup
	// buffers holds the GPU buffers created for this provider, keyed by binding index.
	buffers map[int]renderer.Buffer
	// textures holds the textures bound by this provider, keyed by the texture binding index. The sampler binding follows it.
	textures map[int]renderer.Texture
	// shared marks texture bindings whose texture is owned elsewhere (fallbacks) and must not be released here.
	shared map[int]bool

	// The following fields are specific to mesh providers.

	// vertexBuffer is the GPU vertex buffer created for this provider, or nil if not realized.
	vertexBuffer renderer.Buffer
	// indexBuffer is the GPU index buffer created for this provider, or nil if not realized.
	indexBuffer renderer.Buffer
	// indexCount is the number of indices for draw calls.
	indexCount int

	released bool
}

// BindGroupProvider holds the GPU resources bound for one material or one mesh.
//
// Usage pattern:
//  1. The realizer creates a BindGroupProvider with a unique label
//  2. The realizer creates buffers and textures on a renderer.Device and stores them here
//  3. The realizer creates the bind group from Entries() and stores it via SetBindGroup()
//  4. Owners update uniforms with WriteBuffers
//  5. Release frees every owned resource; shared textures are left alone
type BindGroupProvider interface {
	// Release releases the GPU resources owned by this provider. Shared textures are skipped.
	// Calling Release more than once is a no-op.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once released
	Released() bool

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - renderer.BindGroup: the bind group or nil
	BindGroup() renderer.BindGroup

	// Buffer returns the buffer bound at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - renderer.Buffer: the buffer or nil
	Buffer(binding int) renderer.Buffer

	// Buffers returns a copy of all buffers associated with this provider, keyed by binding index.
	//
	// Returns:
	//   - map[int]renderer.Buffer: buffers keyed by binding index
	Buffers() map[int]renderer.Buffer

	// Texture returns the texture bound at a texture binding index, or nil if not set.
	//
	// Parameters:
	//   - binding: the texture binding index
	//
	// Returns:
	//   - renderer.Texture: the texture or nil
	Texture(binding int) renderer.Texture

	// Textures returns a copy of all textures associated with this provider, keyed by texture binding index.
	//
	// Returns:
	//   - map[int]renderer.Texture: textures keyed by binding index
	Textures() map[int]renderer.Texture

	// IsShared reports whether the texture at a binding is owned elsewhere.
	//
	// Parameters:
	//   - binding: the texture binding index
	//
	// Returns:
	//   - bool: true if Release will skip the texture
	IsShared(binding int) bool

	// Entries builds bind group entries for every buffer (uniform) and texture (texture + sampler at binding+1).
	//
	// Returns:
	//   - []renderer.BindingEntry: the entries sorted by binding
	Entries() []renderer.BindingEntry

	// VertexBuffer returns the GPU vertex buffer, or nil if not initialized.
	//
	// Returns:
	//   - renderer.Buffer: the vertex buffer or nil
	VertexBuffer() renderer.Buffer

	// IndexBuffer returns the GPU index buffer, or nil if not initialized.
	//
	// Returns:
	//   - renderer.Buffer: the index buffer or nil
	IndexBuffer() renderer.Buffer

	// IndexCount returns the number of indices for draw calls.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// SetBindGroup sets the bind group after GPU initialization.
	//
	// Parameters:
	//   - bg: the created bind group
	SetBindGroup(bg renderer.BindGroup)

	// SetBuffer stores a buffer for a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf renderer.Buffer)

	// SetTexture stores a texture for a texture binding index.
	//
	// Parameters:
	//   - binding: the texture binding index
	//   - tex: the texture
	//   - shared: true if the texture is owned elsewhere and must not be released by this provider
	SetTexture(binding int, tex renderer.Texture, shared bool)

	// SetVertexBuffer stores the GPU vertex buffer.
	//
	// Parameters:
	//   - buf: the created vertex buffer
	SetVertexBuffer(buf renderer.Buffer)

	// SetIndexBuffer stores the GPU index buffer.
	//
	// Parameters:
	//   - buf: the created index buffer
	SetIndexBuffer(buf renderer.Buffer)

	// SetIndexCount sets the number of indices for draw calls.
	//
	// Parameters:
	//   - count: the index count
	SetIndexCount(count int)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: debug label used for every resource created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		buffers:  make(map[int]renderer.Buffer),
		textures: make(map[int]renderer.Texture),
		shared:   make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func (p *bindGroupProvider) BindGroup() renderer.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) renderer.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]renderer.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]renderer.Buffer, len(p.buffers))
	for k, v := range p.buffers {
		out[k] = v
	}
	return out
}

func (p *bindGroupProvider) Texture(binding int) renderer.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textures[binding]
}

func (p *bindGroupProvider) Textures() map[int]renderer.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]renderer.Texture, len(p.textures))
	for k, v := range p.textures {
		out[k] = v
	}
	return out
}

func (p *bindGroupProvider) IsShared(binding int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shared[binding]
}

func (p *bindGroupProvider) Entries() []renderer.BindingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := make([]renderer.BindingEntry, 0, len(p.buffers)+2*len(p.textures))
	for binding, buf := range p.buffers {
		kind := renderer.BindingUniformBuffer
		if buf.Usage()&wgpuStorageUsage != 0 {
			kind = renderer.BindingStorageBuffer
		}
		entries = append(entries, renderer.BindingEntry{Binding: uint32(binding), Kind: kind, Buffer: buf})
	}
	for binding, tex := range p.textures {
		entries = append(entries,
			renderer.BindingEntry{Binding: uint32(binding), Kind: renderer.BindingTexture, Texture: tex},
			renderer.BindingEntry{Binding: uint32(binding + 1), Kind: renderer.BindingSampler, Texture: tex},
		)
	}
	sortEntries(entries)
	return entries
}

func (p *bindGroupProvider) VertexBuffer() renderer.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() renderer.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg renderer.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf renderer.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding int, tex renderer.Texture, shared bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textures[binding] = tex
	if shared {
		p.shared[binding] = true
	} else {
		delete(p.shared, binding)
	}
}

func (p *bindGroupProvider) SetVertexBuffer(buf renderer.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf renderer.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexCount = count
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}
	p.released = true

	// the bind group goes first, it references everything below
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for i, tex := range p.textures {
		if tex != nil && !p.shared[i] {
			tex.Release()
		}
		delete(p.textures, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
}
