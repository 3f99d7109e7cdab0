package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/engine/profiler"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	device    renderer.Device
	fallbacks renderer.FallbackTextures
	profiler  *profiler.ImportProfiler
	options   importOptions

	models map[model.AssetHandle]model.Model
	labels map[string]model.AssetHandle
	names  map[model.AssetHandle]string

	inflight singleflight.Group
	backend  loaderBackend
	realizer *realizer
	closed   bool
}

// Loader defines the public-facing interface for importing scene files and caching the realized models.
// Models are identified by an AssetHandle derived from the label, or from the content when no label is given.
// Importing the same identity twice returns the cached model without parsing again.
// All methods are safe for concurrent use.
type Loader interface {
	// Import parses, extracts and realizes a GLB container, or returns the cached model with the same identity.
	// Concurrent imports of the same identity share a single pipeline run.
	// A failed import publishes nothing, so a later import of the same identity retries.
	//
	// Parameters:
	//   - data: the GLB bytes
	//   - label: the caller's name for the asset; when empty the content hash is the identity
	//
	// Returns:
	//   - model.AssetHandle: the handle of the cached model
	//   - error: error if any stage fails
	Import(data []byte, label string) (model.AssetHandle, error)

	// ImportFile reads a GLB file and imports it.
	//
	// Parameters:
	//   - path: the file path
	//   - label: the caller's name for the asset; when empty the file name is used
	//
	// Returns:
	//   - model.AssetHandle: the handle of the cached model
	//   - error: error if the file cannot be read or the import fails
	ImportFile(path, label string) (model.AssetHandle, error)

	// Get retrieves a cached model.
	//
	// Parameters:
	//   - handle: the handle returned by Import
	//
	// Returns:
	//   - model.Model: the cached model
	//   - error: ErrUnknownAsset if nothing is cached under handle
	Get(handle model.AssetHandle) (model.Model, error)

	// GetByLabel retrieves a cached model by label.
	//
	// Parameters:
	//   - label: the label
	//
	// Returns:
	//   - model.Model: the cached model
	//   - error: ErrUnknownAsset if the label is not registered
	GetByLabel(label string) (model.Model, error)

	// HandleForLabel looks up the handle registered under a label.
	//
	// Parameters:
	//   - label: the label
	//
	// Returns:
	//   - model.AssetHandle: the handle
	//   - bool: false if the label is not registered
	HandleForLabel(label string) (model.AssetHandle, bool)

	// LabelFor returns the primary label of a cached model.
	//
	// Parameters:
	//   - handle: the handle
	//
	// Returns:
	//   - string: the label the model was imported under, or its hash for unlabeled imports
	//   - bool: false if nothing is cached under handle
	LabelFor(handle model.AssetHandle) (string, bool)

	// ContainsHash reports whether a model is cached under a raw hash.
	ContainsHash(hash uint64) bool

	// ContainsLabel reports whether a label is registered.
	ContainsLabel(label string) bool

	// LabelModel registers an additional label for a cached model.
	//
	// Parameters:
	//   - label: the new label
	//   - handle: the handle of a cached model
	//
	// Returns:
	//   - error: ErrUnknownAsset if nothing is cached under handle, or an error if label already names another model
	LabelModel(label string, handle model.AssetHandle) error

	// RemoveLabel unregisters a label without evicting the model it names.
	// When the label is the model's primary label, LabelFor reports no label afterwards.
	//
	// Parameters:
	//   - label: the label to remove
	//
	// Returns:
	//   - model.AssetHandle: the handle the label named
	//   - bool: false if the label was not registered
	RemoveLabel(label string) (model.AssetHandle, bool)

	// Handles returns the handles of every cached model in ascending order.
	Handles() []model.AssetHandle

	// Evict removes a model and every label pointing at it from the cache.
	// The caller owns the returned model and is responsible for releasing it.
	//
	// Parameters:
	//   - handle: the handle to evict
	//
	// Returns:
	//   - model.Model: the evicted model
	//   - bool: false if nothing was cached under handle
	Evict(handle model.AssetHandle) (model.Model, bool)

	// Close releases every cached model and the shared fallback textures. Imports after Close fail.
	Close()

	// Stats returns the import counters and stage timings.
	Stats() profiler.ImportStats

	// FallbackTextures returns the shared fallback provider used for absent material slots.
	FallbackTextures() renderer.FallbackTextures

	// InitMaterialGPU creates GPU resources (textures or fallbacks, uniform buffer, bind group) for a
	// hand-built material that bypassed Import.
	//
	// Parameters:
	//   - mat: the Material to initialize GPU resources on
	//
	// Returns:
	//   - error: error if GPU resource creation fails
	InitMaterialGPU(mat material.Material) error
}

var _ Loader = &loader{}

// errClosed is returned by imports after Close.
var errClosed = errors.New("loader closed")

// NewLoader creates a new Loader instance with the specified backend type and options applied.
// Without WithDevice the loader realizes onto a headless MemoryDevice.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		options: importOptions{mipmaps: true, maxAnisotropy: 1},
		models:  make(map[model.AssetHandle]model.Model),
		labels:  make(map[string]model.AssetHandle),
		names:   make(map[model.AssetHandle]string),
	}

	for _, option := range options {
		option(l)
	}

	if l.device == nil {
		l.device = renderer.NewMemoryDevice()
	}
	if l.fallbacks == nil {
		l.fallbacks = renderer.NewFallbackTextures()
	}
	if l.profiler == nil {
		l.profiler = profiler.NewImportProfiler(logger.Log)
	}
	if l.options.workers <= 0 {
		l.options.workers = runtime.GOMAXPROCS(0)
	}
	if l.options.decoder == nil {
		l.options.decoder = NewImageDecoder()
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.options, l.profiler)
	}

	l.realizer = newRealizer(l.device, l.fallbacks,
		newTextureProcessor(l.options.decoder, l.options.mipmaps), l.profiler)
	return l
}

// cacheKey derives the identity of an import.
func cacheKey(data []byte, label string) model.AssetHandle {
	if label != "" {
		return model.AssetHandle(xxhash.Sum64String(label))
	}
	return model.AssetHandle(xxhash.Sum64(data))
}

func (l *loader) Import(data []byte, label string) (model.AssetHandle, error) {
	return l.importAs(data, label, "")
}

func (l *loader) ImportFile(path, label string) (model.AssetHandle, error) {
	if label == "" {
		label = filepath.Base(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.NullHandle, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return l.importAs(data, label, path)
}

// importAs runs the cache lookup and, on a miss, the deduplicated pipeline.
func (l *loader) importAs(data []byte, label, source string) (model.AssetHandle, error) {
	key := cacheKey(data, label)

	if l.lookup(key) {
		l.profiler.AddHit()
		logger.Debug("cache hit", zap.String("label", label), zap.Uint64("hash", uint64(key)))
		return key, nil
	}

	v, err, shared := l.inflight.Do(strconv.FormatUint(uint64(key), 16), func() (any, error) {
		// a concurrent caller may have published between the lookup and Do
		if l.lookup(key) {
			l.profiler.AddHit()
			return key, nil
		}
		l.profiler.AddMiss()
		if err := l.load(key, data, label, source); err != nil {
			l.profiler.AddFailure()
			return model.NullHandle, err
		}
		return key, nil
	})
	if err != nil {
		logger.Warn("import failed", zap.String("label", label), zap.Uint64("hash", uint64(key)), zap.Error(err))
		return model.NullHandle, err
	}
	if shared {
		logger.Debug("joined in-flight import", zap.String("label", label), zap.Uint64("hash", uint64(key)))
	}
	return v.(model.AssetHandle), nil
}

// lookup reports whether key is cached.
func (l *loader) lookup(key model.AssetHandle) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.models[key]
	return ok
}

// load runs the CPU pipeline and the realizer, then publishes the model under key.
func (l *loader) load(key model.AssetHandle, data []byte, label, source string) error {
	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		return errClosed
	}

	name := label
	if name == "" {
		name = key.String()
	}

	imported, err := l.backend.Load(data, label)
	if err != nil {
		return fmt.Errorf("failed to import %q: %w", name, err)
	}

	m, err := l.realizer.Realize(imported, realizeRequest{hash: uint64(key), label: name, source: source})
	if err != nil {
		return fmt.Errorf("failed to realize %q: %w", name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		m.Release()
		return errClosed
	}
	l.models[key] = m
	l.names[key] = name
	if label != "" {
		l.labels[label] = key
	}

	logger.Info("imported model",
		zap.String("label", name),
		zap.Uint64("hash", uint64(key)),
		zap.Int("meshes", len(m.Meshes())),
		zap.Int("materials", len(m.Materials())))
	return nil
}

func (l *loader) Get(handle model.AssetHandle) (model.Model, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.models[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, handle)
	}
	return m, nil
}

func (l *loader) GetByLabel(label string) (model.Model, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	handle, ok := l.labels[label]
	if !ok {
		return nil, fmt.Errorf("%w: label %q", ErrUnknownAsset, label)
	}
	return l.models[handle], nil
}

func (l *loader) HandleForLabel(label string) (model.AssetHandle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	handle, ok := l.labels[label]
	return handle, ok
}

func (l *loader) LabelFor(handle model.AssetHandle) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	name, ok := l.names[handle]
	return name, ok
}

func (l *loader) ContainsHash(hash uint64) bool {
	return l.lookup(model.AssetHandle(hash))
}

func (l *loader) ContainsLabel(label string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.labels[label]
	return ok
}

func (l *loader) LabelModel(label string, handle model.AssetHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.models[handle]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, handle)
	}
	if existing, ok := l.labels[label]; ok && existing != handle {
		return fmt.Errorf("label %q already names %s", label, existing)
	}
	l.labels[label] = handle
	return nil
}

func (l *loader) RemoveLabel(label string) (model.AssetHandle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	handle, ok := l.labels[label]
	if !ok {
		return model.NullHandle, false
	}
	delete(l.labels, label)
	if l.names[handle] == label {
		delete(l.names, handle)
	}
	return handle, true
}

func (l *loader) Handles() []model.AssetHandle {
	l.mu.RLock()
	handles := make([]model.AssetHandle, 0, len(l.models))
	for h := range l.models {
		handles = append(handles, h)
	}
	l.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

func (l *loader) Evict(handle model.AssetHandle) (model.Model, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.models[handle]
	if !ok {
		return nil, false
	}
	delete(l.models, handle)
	delete(l.names, handle)
	for label, h := range l.labels {
		if h == handle {
			delete(l.labels, label)
		}
	}
	l.profiler.AddEviction()
	logger.Debug("evicted model", zap.Uint64("hash", uint64(handle)))
	return m, true
}

func (l *loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	models := l.models
	l.models = make(map[model.AssetHandle]model.Model)
	l.labels = make(map[string]model.AssetHandle)
	l.names = make(map[model.AssetHandle]string)
	l.mu.Unlock()

	for _, m := range models {
		m.Release()
	}
	l.fallbacks.Release(l.device)
	l.profiler.Log()
}

func (l *loader) Stats() profiler.ImportStats {
	return l.profiler.Snapshot()
}

func (l *loader) FallbackTextures() renderer.FallbackTextures {
	return l.fallbacks
}

func (l *loader) InitMaterialGPU(mat material.Material) error {
	if mat == nil {
		return errors.New("loader: cannot InitMaterialGPU on a nil material")
	}
	return l.realizer.RealizeMaterial(mat, mat.Name()+"_material")
}
