package bind_group_provider

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

const wgpuStorageUsage = wgpu.BufferUsageStorage

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// WriteBuffers applies a batch of buffer writes through a device. Writes whose binding has no buffer are skipped.
//
// Parameters:
//   - dev: the device that created the buffers
//   - writes: the writes to apply in order
//
// Returns:
//   - error: the first write error, wrapped with the provider label
func WriteBuffers(dev renderer.Device, writes []BufferWrite) error {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		if err := dev.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			return fmt.Errorf("%s binding %d: %w", w.Provider.Label(), w.Binding, err)
		}
	}
	return nil
}

func sortEntries(entries []renderer.BindingEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
}
