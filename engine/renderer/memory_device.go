package renderer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// MemoryOp names a Device operation, used by MemoryDevice failure hooks.
type MemoryOp string

const (
	OpCreateBuffer    MemoryOp = "create_buffer"
	OpWriteBuffer     MemoryOp = "write_buffer"
	OpCreateTexture   MemoryOp = "create_texture"
	OpCreateBindGroup MemoryOp = "create_bind_group"
)

// MemoryDeviceStats counts the calls and live resources of a MemoryDevice.
type MemoryDeviceStats struct {
	BuffersCreated    int
	TexturesCreated   int
	BindGroupsCreated int
	BufferWrites      int

	LiveBuffers    int
	LiveTextures   int
	LiveBindGroups int
}

// MemoryDevice is a headless Device that keeps every resource in host memory.
// It validates inputs exactly like the GPU device and records call counts, which makes it the device used by tests and by the CLI when no GPU is available.
type MemoryDevice interface {
	Device

	// Stats returns the current call and live-resource counters.
	//
	// Returns:
	//   - MemoryDeviceStats: a copy of the counters
	Stats() MemoryDeviceStats

	// BufferContents returns a copy of the bytes held by a buffer created by this device.
	//
	// Parameters:
	//   - buf: the buffer to read
	//
	// Returns:
	//   - []byte: the buffer contents, or nil for a foreign or released buffer
	BufferContents(buf Buffer) []byte

	// TextureContents returns the staging data a texture was created from.
	//
	// Parameters:
	//   - tex: the texture to read
	//
	// Returns:
	//   - common.TextureStagingData: the uploaded pixels
	//   - bool: false for a foreign or released texture
	TextureContents(tex Texture) (common.TextureStagingData, bool)

	// SetFailHook installs a hook that is consulted before every operation; a non-nil return fails the operation.
	//
	// Parameters:
	//   - hook: the hook, or nil to remove it
	SetFailHook(hook func(op MemoryOp, label string) error)
}

type memoryDevice struct {
	mu    sync.Mutex
	label string
	stats MemoryDeviceStats
	fail  func(op MemoryOp, label string) error
}

type memoryBuffer struct {
	owner    *memoryDevice
	label    string
	usage    wgpu.BufferUsage
	data     []byte
	released bool
}

type memoryTexture struct {
	owner    *memoryDevice
	label    string
	format   wgpu.TextureFormat
	staging  common.TextureStagingData
	sampler  common.SamplerStagingData
	released bool
}

type memoryBindGroup struct {
	owner    *memoryDevice
	label    string
	entries  []BindingEntry
	released bool
}

var (
	_ MemoryDevice = &memoryDevice{}
	_ Buffer       = &memoryBuffer{}
	_ Texture      = &memoryTexture{}
	_ BindGroup    = &memoryBindGroup{}
)

// NewMemoryDevice creates a headless Device.
//
// Parameters:
//   - options: device builder options; only the label applies
//
// Returns:
//   - MemoryDevice: the created device
func NewMemoryDevice(options ...DeviceBuilderOption) MemoryDevice {
	opts := defaultDeviceOptions()
	for _, opt := range options {
		opt(&opts)
	}
	return &memoryDevice{label: opts.label}
}

func (d *memoryDevice) Label() string {
	return d.label
}

func (d *memoryDevice) checkFail(op MemoryOp, label string) error {
	if d.fail == nil {
		return nil
	}
	return d.fail(op, label)
}

func (d *memoryDevice) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkFail(OpCreateBuffer, label); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("buffer %q: empty data", label)
	}

	d.stats.BuffersCreated++
	d.stats.LiveBuffers++
	return &memoryBuffer{
		owner: d,
		label: label,
		usage: usage,
		data:  append([]byte(nil), data...),
	}, nil
}

func (d *memoryDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	mb, ok := buf.(*memoryBuffer)
	if !ok || mb.owner != d {
		return ErrForeignResource
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkFail(OpWriteBuffer, mb.label); err != nil {
		return err
	}
	if mb.released {
		return fmt.Errorf("buffer %q: %w", mb.label, ErrReleased)
	}
	if offset+uint64(len(data)) > uint64(len(mb.data)) {
		return fmt.Errorf("buffer %q: write of %d bytes at %d exceeds size %d", mb.label, len(data), offset, len(mb.data))
	}
	copy(mb.data[offset:], data)
	d.stats.BufferWrites++

	return nil
}

func (d *memoryDevice) CreateTexture(label string, staging common.TextureStagingData, sampler common.SamplerStagingData) (Texture, error) {
	format, err := TextureFormatFor(staging)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", label, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkFail(OpCreateTexture, label); err != nil {
		return nil, err
	}

	d.stats.TexturesCreated++
	d.stats.LiveTextures++
	return &memoryTexture{
		owner:   d,
		label:   label,
		format:  format,
		staging: staging,
		sampler: sampler,
	}, nil
}

func (d *memoryDevice) CreateBindGroup(label string, entries []BindingEntry) (BindGroup, error) {
	sorted := make([]BindingEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Binding < sorted[j].Binding })

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkFail(OpCreateBindGroup, label); err != nil {
		return nil, err
	}

	seen := make(map[uint32]bool, len(sorted))
	for _, e := range sorted {
		if seen[e.Binding] {
			return nil, fmt.Errorf("bind group %q: duplicate binding %d", label, e.Binding)
		}
		seen[e.Binding] = true

		switch e.Kind {
		case BindingUniformBuffer, BindingStorageBuffer:
			mb, ok := e.Buffer.(*memoryBuffer)
			if !ok || mb.owner != d {
				return nil, fmt.Errorf("bind group %q: binding %d: %w", label, e.Binding, ErrForeignResource)
			}
			if mb.released {
				return nil, fmt.Errorf("bind group %q: binding %d: %w", label, e.Binding, ErrReleased)
			}
		case BindingTexture, BindingSampler:
			mt, ok := e.Texture.(*memoryTexture)
			if !ok || mt.owner != d {
				return nil, fmt.Errorf("bind group %q: binding %d: %w", label, e.Binding, ErrForeignResource)
			}
			if mt.released {
				return nil, fmt.Errorf("bind group %q: binding %d: %w", label, e.Binding, ErrReleased)
			}
		default:
			return nil, fmt.Errorf("bind group %q: binding %d: unknown binding kind %d", label, e.Binding, e.Kind)
		}
	}

	d.stats.BindGroupsCreated++
	d.stats.LiveBindGroups++
	return &memoryBindGroup{owner: d, label: label, entries: sorted}, nil
}

func (d *memoryDevice) Release() {}

func (d *memoryDevice) Stats() MemoryDeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *memoryDevice) BufferContents(buf Buffer) []byte {
	mb, ok := buf.(*memoryBuffer)
	if !ok || mb.owner != d {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if mb.released {
		return nil
	}
	return append([]byte(nil), mb.data...)
}

func (d *memoryDevice) TextureContents(tex Texture) (common.TextureStagingData, bool) {
	mt, ok := tex.(*memoryTexture)
	if !ok || mt.owner != d {
		return common.TextureStagingData{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if mt.released {
		return common.TextureStagingData{}, false
	}
	return mt.staging, true
}

func (d *memoryDevice) SetFailHook(hook func(op MemoryOp, label string) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = hook
}

func (b *memoryBuffer) Label() string           { return b.label }
func (b *memoryBuffer) Size() uint64            { return uint64(len(b.data)) }
func (b *memoryBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *memoryBuffer) Release() {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.owner.stats.LiveBuffers--
}

func (t *memoryTexture) Label() string              { return t.label }
func (t *memoryTexture) Width() uint32              { return t.staging.Width }
func (t *memoryTexture) Height() uint32             { return t.staging.Height }
func (t *memoryTexture) MipLevelCount() uint32      { return t.staging.MipLevelCount() }
func (t *memoryTexture) Format() wgpu.TextureFormat { return t.format }

// Sampler returns the sampler parameters the texture was created with.
func (t *memoryTexture) Sampler() common.SamplerStagingData { return t.sampler }

func (t *memoryTexture) Release() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.owner.stats.LiveTextures--
}

func (g *memoryBindGroup) Label() string           { return g.label }
func (g *memoryBindGroup) Entries() []BindingEntry { return g.entries }

func (g *memoryBindGroup) Release() {
	g.owner.mu.Lock()
	defer g.owner.mu.Unlock()
	if g.released {
		return
	}
	g.released = true
	g.owner.stats.LiveBindGroups--
}
