package loader

import (
	"github.com/Carmen-Shannon/oxy-assets/engine/profiler"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithDevice is an option builder that sets the Device every GPU resource is created on.
//
// Parameters:
//   - dev: the device instance
//
// Returns:
//   - LoaderBuilderOption: a function that applies the device option to a loader
func WithDevice(dev renderer.Device) LoaderBuilderOption {
	return func(l *loader) {
		l.device = dev
	}
}

// WithFallbackTextures is an option builder that shares a fallback provider between loaders.
//
// Parameters:
//   - fallbacks: the fallback texture provider
//
// Returns:
//   - LoaderBuilderOption: a function that applies the fallback option to a loader
func WithFallbackTextures(fallbacks renderer.FallbackTextures) LoaderBuilderOption {
	return func(l *loader) {
		l.fallbacks = fallbacks
	}
}

// WithWorkers is an option builder that bounds the parallel material and mesh stages.
// Zero or a negative count selects runtime.GOMAXPROCS(0).
//
// Parameters:
//   - workers: the maximum number of concurrent workers
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(workers int) LoaderBuilderOption {
	return func(l *loader) {
		l.options.workers = workers
	}
}

// WithMipmaps is an option builder that toggles mip chain generation for RGBA8 textures. Enabled by default.
//
// Parameters:
//   - enabled: whether to build mip chains
//
// Returns:
//   - LoaderBuilderOption: a function that applies the mipmap option to a loader
func WithMipmaps(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.options.mipmaps = enabled
	}
}

// WithMaxAnisotropy is an option builder that sets the anisotropy clamp of every imported sampler.
//
// Parameters:
//   - anisotropy: the clamp, at least 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the anisotropy option to a loader
func WithMaxAnisotropy(anisotropy uint16) LoaderBuilderOption {
	return func(l *loader) {
		l.options.maxAnisotropy = max(anisotropy, 1)
	}
}

// WithGenerateNormals is an option builder that computes smooth normals for primitives that lack them.
//
// Parameters:
//   - enabled: whether to generate normals
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithGenerateNormals(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.options.generateNormals = enabled
	}
}

// WithGenerateTangents is an option builder that computes tangents from UVs for primitives that lack them.
//
// Parameters:
//   - enabled: whether to generate tangents
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithGenerateTangents(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.options.generateTangents = enabled
	}
}

// WithImageDecoder is an option builder that replaces the default image decoder.
//
// Parameters:
//   - decoder: the decoder to use for embedded images
//
// Returns:
//   - LoaderBuilderOption: a function that applies the decoder option to a loader
func WithImageDecoder(decoder ImageDecoder) LoaderBuilderOption {
	return func(l *loader) {
		l.options.decoder = decoder
	}
}

// WithProfiler is an option builder that sets the profiler receiving stage timings and cache counters.
//
// Parameters:
//   - prof: the profiler
//
// Returns:
//   - LoaderBuilderOption: a function that applies the profiler option to a loader
func WithProfiler(prof *profiler.ImportProfiler) LoaderBuilderOption {
	return func(l *loader) {
		l.profiler = prof
	}
}
