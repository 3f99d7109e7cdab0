package renderer

import "github.com/cogentcore/webgpu/wgpu"

// deviceOptions collects the construction settings shared by every Device implementation.
type deviceOptions struct {
	label                string
	powerPreference      wgpu.PowerPreference
	forceFallbackAdapter bool
}

func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		label:           "Asset Device",
		powerPreference: wgpu.PowerPreferenceHighPerformance,
	}
}

// DeviceBuilderOption is a functional option applied to a Device during construction.
type DeviceBuilderOption func(*deviceOptions)

// WithLabel sets the debug label of the device.
//
// Parameters:
//   - label: the label to use
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label option to a device
func WithLabel(label string) DeviceBuilderOption {
	return func(o *deviceOptions) {
		o.label = label
	}
}

// WithPowerPreference sets the adapter power preference used when requesting a GPU adapter.
// It has no effect on the memory device.
//
// Parameters:
//   - pref: the wgpu power preference
//
// Returns:
//   - DeviceBuilderOption: a function that applies the power preference option to a device
func WithPowerPreference(pref wgpu.PowerPreference) DeviceBuilderOption {
	return func(o *deviceOptions) {
		o.powerPreference = pref
	}
}

// WithForceSoftwareAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the force software adapter option to a device
func WithForceSoftwareAdapter(force bool) DeviceBuilderOption {
	return func(o *deviceOptions) {
		o.forceFallbackAdapter = force
	}
}
