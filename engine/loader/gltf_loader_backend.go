package loader

import (
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/engine/profiler"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	importer gltfImporter
}

// gltfLoaderBackend is a loaderBackend implementation for binary glTF containers.
// It delegates to the gltfImporter for parsing and extraction.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - options: the pipeline settings
//   - prof: the profiler receiving stage timings
//
// Returns:
//   - gltfLoaderBackend: the loader backend for GLB containers
func newGLTFLoaderBackend(options importOptions, prof *profiler.ImportProfiler) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{
		importer: newGLTFImporter(options, prof),
	}
}

func (b *gltfLoaderBackendImpl) Load(data []byte, name string) (*model.ImportedModel, error) {
	return b.importer.Import(data, name)
}
