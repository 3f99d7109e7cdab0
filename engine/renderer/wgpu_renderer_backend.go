package renderer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDevice is the WebGPU implementation of Device. It requests a headless adapter; no surface is created.
type wgpuDevice struct {
	mu     *sync.Mutex
	label  string
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
}

type wgpuBuffer struct {
	owner    *wgpuDevice
	label    string
	size     uint64
	usage    wgpu.BufferUsage
	buf      *wgpu.Buffer
	released bool
}

type wgpuTexture struct {
	owner    *wgpuDevice
	label    string
	width    uint32
	height   uint32
	mips     uint32
	format   wgpu.TextureFormat
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	sampler  *wgpu.Sampler
	released bool
}

type wgpuBindGroup struct {
	label    string
	entries  []BindingEntry
	layout   *wgpu.BindGroupLayout
	group    *wgpu.BindGroup
	released bool
}

var (
	_ Device    = &wgpuDevice{}
	_ Buffer    = &wgpuBuffer{}
	_ Texture   = &wgpuTexture{}
	_ BindGroup = &wgpuBindGroup{}
)

// NewWGPUDevice requests a WebGPU adapter and device without a presentation surface.
//
// Parameters:
//   - options: device builder options
//
// Returns:
//   - Device: the created device
//   - error: error if no adapter or device could be acquired
func NewWGPUDevice(options ...DeviceBuilderOption) (Device, error) {
	opts := defaultDeviceOptions()
	for _, opt := range options {
		opt(&opts)
	}

	w := &wgpuDevice{
		mu:       &sync.Mutex{},
		label:    opts.label,
		instance: wgpu.CreateInstance(nil),
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.forceFallbackAdapter,
		PowerPreference:      opts.powerPreference,
	})
	if err != nil {
		w.instance.Release()
		return nil, fmt.Errorf("requesting adapter: %w", err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: opts.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		w.instance.Release()
		return nil, fmt.Errorf("requesting device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w, nil
}

func (b *wgpuDevice) Label() string {
	return b.label
}

func (b *wgpuDevice) CreateBuffer(label string, data []byte, usage wgpu.BufferUsage) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(data) == 0 {
		return nil, fmt.Errorf("buffer %q: empty data", label)
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(buf, 0, data)

	return &wgpuBuffer{
		owner: b,
		label: label,
		size:  uint64(len(data)),
		usage: usage,
		buf:   buf,
	}, nil
}

func (b *wgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok || wb.owner != b {
		return ErrForeignResource
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if wb.released {
		return fmt.Errorf("buffer %q: %w", wb.label, ErrReleased)
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("buffer %q: write of %d bytes at %d exceeds size %d", wb.label, len(data), offset, wb.size)
	}
	b.queue.WriteBuffer(wb.buf, offset, data)

	return nil
}

func (b *wgpuDevice) CreateTexture(label string, staging common.TextureStagingData, sampler common.SamplerStagingData) (Texture, error) {
	format, err := TextureFormatFor(staging)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", label, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	mips := staging.MipLevelCount()
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: mips,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	ch := uint32(staging.Format.Channels())
	w, h := staging.Width, staging.Height
	for level := uint32(0); level < mips; level++ {
		pixels := staging.Pixels
		if level > 0 {
			pixels = staging.Mips[level-1]
			w, h = MipExtent(w), MipExtent(h)
		}
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: level,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  w * ch,
				RowsPerImage: h,
			},
			&wgpu.Extent3D{
				Width:              w,
				Height:             h,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	samp, err := b.device.CreateSampler(samplerDescriptor(label, sampler))
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}

	return &wgpuTexture{
		owner:   b,
		label:   label,
		width:   staging.Width,
		height:  staging.Height,
		mips:    mips,
		format:  format,
		tex:     tex,
		view:    view,
		sampler: samp,
	}, nil
}

func (b *wgpuDevice) CreateBindGroup(label string, entries []BindingEntry) (BindGroup, error) {
	sorted := make([]BindingEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Binding < sorted[j].Binding })

	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(sorted))
	groupEntries := make([]wgpu.BindGroupEntry, len(sorted))
	for i, e := range sorted {
		le, ge, err := b.resolveEntry(e)
		if err != nil {
			return nil, fmt.Errorf("bind group %q: %w", label, err)
		}
		layoutEntries[i] = le
		groupEntries[i] = ge
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label + " Layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return nil, err
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: groupEntries,
	})
	if err != nil {
		layout.Release()
		return nil, err
	}

	return &wgpuBindGroup{
		label:   label,
		entries: sorted,
		layout:  layout,
		group:   group,
	}, nil
}

func (b *wgpuDevice) resolveEntry(e BindingEntry) (wgpu.BindGroupLayoutEntry, wgpu.BindGroupEntry, error) {
	le := wgpu.BindGroupLayoutEntry{Binding: e.Binding}
	ge := wgpu.BindGroupEntry{Binding: e.Binding}

	switch e.Kind {
	case BindingUniformBuffer, BindingStorageBuffer:
		wb, ok := e.Buffer.(*wgpuBuffer)
		if !ok || wb.owner != b {
			return le, ge, fmt.Errorf("binding %d: %w", e.Binding, ErrForeignResource)
		}
		if wb.released {
			return le, ge, fmt.Errorf("binding %d: %w", e.Binding, ErrReleased)
		}
		le.Visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
		le.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		if e.Kind == BindingStorageBuffer {
			le.Visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageCompute
			le.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
		}
		ge.Buffer = wb.buf
		ge.Offset = 0
		ge.Size = wgpu.WholeSize
	case BindingTexture, BindingSampler:
		wt, ok := e.Texture.(*wgpuTexture)
		if !ok || wt.owner != b {
			return le, ge, fmt.Errorf("binding %d: %w", e.Binding, ErrForeignResource)
		}
		if wt.released {
			return le, ge, fmt.Errorf("binding %d: %w", e.Binding, ErrReleased)
		}
		le.Visibility = wgpu.ShaderStageFragment
		if e.Kind == BindingTexture {
			le.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
			ge.TextureView = wt.view
		} else {
			le.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
			ge.Sampler = wt.sampler
		}
	default:
		return le, ge, fmt.Errorf("binding %d: unknown binding kind %d", e.Binding, e.Kind)
	}

	return le, ge, nil
}

func (b *wgpuDevice) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// samplerDescriptor fills unset sampler fields with defaults. Anisotropic filtering is only valid when every filter is linear.
func samplerDescriptor(label string, s common.SamplerStagingData) *wgpu.SamplerDescriptor {
	d := &wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(s.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(s.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(s.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(s.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(s.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(s.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(s.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(s.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(s.MaxAnisotropy, 1),
		Compare:       s.Compare,
	}
	if d.MagFilter != wgpu.FilterModeLinear || d.MinFilter != wgpu.FilterModeLinear || d.MipmapFilter != wgpu.MipmapFilterModeLinear {
		d.MaxAnisotropy = 1
	}
	return d
}

func (b *wgpuBuffer) Label() string           { return b.label }
func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *wgpuBuffer) Release() {
	b.owner.mu.Lock()
	defer b.owner.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.buf.Release()
}

func (t *wgpuTexture) Label() string              { return t.label }
func (t *wgpuTexture) Width() uint32              { return t.width }
func (t *wgpuTexture) Height() uint32             { return t.height }
func (t *wgpuTexture) MipLevelCount() uint32      { return t.mips }
func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.format }

func (t *wgpuTexture) Release() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.sampler.Release()
	t.view.Release()
	t.tex.Release()
}

func (g *wgpuBindGroup) Label() string           { return g.label }
func (g *wgpuBindGroup) Entries() []BindingEntry { return g.entries }

func (g *wgpuBindGroup) Release() {
	if g.released {
		return
	}
	g.released = true
	g.group.Release()
	g.layout.Release()
}
