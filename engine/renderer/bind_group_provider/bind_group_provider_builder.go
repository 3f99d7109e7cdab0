package bind_group_provider

import "github.com/Carmen-Shannon/oxy-assets/engine/renderer"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroup sets the bind group for this provider.
//
// Parameters:
//   - bg: the bind group to set for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group for this provider
func WithBindGroup(bg renderer.BindGroup) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroup = bg
	}
}

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf renderer.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithTexture sets an owned texture for a specific texture binding index.
//
// Parameters:
//   - binding: the texture binding index; the sampler binds at binding+1
//   - tex: the texture to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the texture for the specified binding
func WithTexture(binding int, tex renderer.Texture) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textures[binding] = tex
	}
}

// WithMeshBuffers sets the vertex and index buffers and the index count of a mesh provider.
//
// Parameters:
//   - vertex: the vertex buffer
//   - index: the index buffer
//   - count: the number of indices
//
// Returns:
//   - BindGroupProviderOption: a function that sets the mesh buffers for this provider
func WithMeshBuffers(vertex, index renderer.Buffer, count int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexBuffer = vertex
		p.indexBuffer = index
		p.indexCount = count
	}
}
