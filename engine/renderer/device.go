package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrReleased is returned when a released resource is passed back to a Device.
	ErrReleased = errors.New("resource already released")
	// ErrUnsupportedFormat is returned when staging pixels have no uploadable GPU format.
	ErrUnsupportedFormat = errors.New("unsupported texture format")
	// ErrInvalidStaging is returned when staging pixel data does not match its declared dimensions.
	ErrInvalidStaging = errors.New("invalid texture staging data")
	// ErrForeignResource is returned when a resource created by another Device is passed in.
	ErrForeignResource = errors.New("resource belongs to a different device")
)

// BindingKind identifies what a BindingEntry binds.
type BindingKind int

const (
	BindingUniformBuffer BindingKind = iota
	BindingStorageBuffer
	BindingTexture
	BindingSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniformBuffer:
		return "uniform"
	case BindingStorageBuffer:
		return "storage"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// BindingEntry is a single binding of a bind group.
// Buffer kinds use Buffer; BindingTexture binds the view of Texture and BindingSampler binds its sampler.
type BindingEntry struct {
	Binding uint32
	Kind    BindingKind
	Buffer  Buffer
	Texture Texture
}

// Buffer is a GPU buffer created by a Device.
type Buffer interface {
	// Label returns the debug label of the buffer.
	Label() string

	// Size returns the size of the buffer in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage

	// Release frees the GPU allocation. Calling Release more than once is a no-op.
	Release()
}

// Texture is a sampled 2D GPU texture together with its view and sampler.
type Texture interface {
	// Label returns the debug label of the texture.
	Label() string

	// Width returns the width of mip level 0 in pixels.
	Width() uint32

	// Height returns the height of mip level 0 in pixels.
	Height() uint32

	// MipLevelCount returns the number of mip levels uploaded.
	MipLevelCount() uint32

	// Format returns the GPU texture format.
	Format() wgpu.TextureFormat

	// Release frees the texture, its view and its sampler. Calling Release more than once is a no-op.
	Release()
}

// BindGroup is a GPU bind group together with the layout it was created against.
type BindGroup interface {
	// Label returns the debug label of the bind group.
	Label() string

	// Entries returns the entries the bind group was created from.
	Entries() []BindingEntry

	// Release frees the bind group and its layout. The bound resources are not released.
	Release()
}

// Device is the graphics device collaborator used to create GPU resources.
// Implementations are safe for concurrent use.
type Device interface {
	// Label returns the debug label of the device.
	Label() string

	// CreateBuffer creates a GPU buffer sized to data and uploads data into it.
	//
	// Parameters:
	//   - label: debug label
	//   - data: initial contents, must not be empty
	//   - usage: buffer usage flags
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: error if the device rejected the allocation
	CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (Buffer, error)

	// WriteBuffer writes data into an existing buffer at the given byte offset.
	//
	// Parameters:
	//   - buf: a buffer created by this device
	//   - offset: destination offset in bytes
	//   - data: bytes to write
	//
	// Returns:
	//   - error: error if the write is out of range or the buffer has been released
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateTexture creates a 2D texture with all staged mip levels uploaded and a sampler built from the sampler staging data.
	//
	// Parameters:
	//   - label: debug label
	//   - staging: normalized pixel data; the format must be R8, RG8 or RGBA8
	//   - sampler: sampler parameters
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: error if the format is unsupported, the staging data is inconsistent, or the device rejected the allocation
	CreateTexture(label string, staging common.TextureStagingData, sampler common.SamplerStagingData) (Texture, error)

	// CreateBindGroup creates a bind group, and a matching layout, from the given entries.
	//
	// Parameters:
	//   - label: debug label
	//   - entries: the bindings in any order
	//
	// Returns:
	//   - BindGroup: the created bind group
	//   - error: error if an entry is incomplete or the device rejected the bind group
	CreateBindGroup(label string, entries []BindingEntry) (BindGroup, error)

	// Release frees the underlying device handles.
	Release()
}

// TextureFormatFor maps staging data onto a GPU texture format and validates the pixel buffer size of every level.
//
// Parameters:
//   - staging: the staging data to check
//
// Returns:
//   - wgpu.TextureFormat: the format to create the texture with
//   - error: ErrUnsupportedFormat or ErrInvalidStaging
func TextureFormatFor(staging common.TextureStagingData) (wgpu.TextureFormat, error) {
	var format wgpu.TextureFormat
	switch staging.Format {
	case common.PixelFormatR8:
		format = wgpu.TextureFormatR8Unorm
	case common.PixelFormatRG8:
		format = wgpu.TextureFormatRG8Unorm
	case common.PixelFormatRGBA8:
		format = wgpu.TextureFormatRGBA8Unorm
		if staging.SRGB {
			format = wgpu.TextureFormatRGBA8UnormSrgb
		}
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("%w: %s", ErrUnsupportedFormat, staging.Format)
	}

	if staging.Width == 0 || staging.Height == 0 {
		return wgpu.TextureFormatUndefined, fmt.Errorf("%w: zero extent %dx%d", ErrInvalidStaging, staging.Width, staging.Height)
	}

	ch := uint32(staging.Format.Channels())
	w, h := staging.Width, staging.Height
	if want := int(w * h * ch); len(staging.Pixels) != want {
		return wgpu.TextureFormatUndefined, fmt.Errorf("%w: level 0 has %d bytes, want %d", ErrInvalidStaging, len(staging.Pixels), want)
	}
	for i, level := range staging.Mips {
		w, h = MipExtent(w), MipExtent(h)
		if want := int(w * h * ch); len(level) != want {
			return wgpu.TextureFormatUndefined, fmt.Errorf("%w: level %d has %d bytes, want %d", ErrInvalidStaging, i+1, len(level), want)
		}
	}

	return format, nil
}

// MipExtent returns the extent of the next mip level, never smaller than 1.
func MipExtent(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return v / 2
}
