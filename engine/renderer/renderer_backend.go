package renderer

import "fmt"

// BackendType identifies the Device implementation to construct.
type BackendType int

const (
	// BackendTypeMemory selects the headless in-memory device. No GPU is required.
	BackendTypeMemory BackendType = iota

	// BackendTypeWGPU selects the WebGPU-based device.
	BackendTypeWGPU
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeMemory:
		return "memory"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return "unknown"
	}
}

// ParseBackendType converts a backend name ("memory" or "wgpu") into a BackendType.
//
// Parameters:
//   - name: the backend name
//
// Returns:
//   - BackendType: the matching backend
//   - error: error if the name is not recognized
func ParseBackendType(name string) (BackendType, error) {
	switch name {
	case "memory", "":
		return BackendTypeMemory, nil
	case "wgpu":
		return BackendTypeWGPU, nil
	default:
		return BackendTypeMemory, fmt.Errorf("unknown renderer backend %q", name)
	}
}

// NewDevice constructs a Device of the given backend type.
//
// Parameters:
//   - backend: which implementation to construct
//   - options: device builder options
//
// Returns:
//   - Device: the created device
//   - error: error if the backend could not be initialized
func NewDevice(backend BackendType, options ...DeviceBuilderOption) (Device, error) {
	switch backend {
	case BackendTypeMemory:
		return NewMemoryDevice(options...), nil
	case BackendTypeWGPU:
		return NewWGPUDevice(options...)
	default:
		return nil, fmt.Errorf("unknown renderer backend %d", backend)
	}
}
