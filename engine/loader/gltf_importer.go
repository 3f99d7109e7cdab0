package loader

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-assets/common"
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
	"github.com/Carmen-Shannon/oxy-assets/engine/profiler"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// importOptions carries the CPU-side settings of the import pipeline.
type importOptions struct {
	workers          int
	mipmaps          bool
	maxAnisotropy    uint16
	generateNormals  bool
	generateTangents bool
	decoder          ImageDecoder
}

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	options  importOptions
	profiler *profiler.ImportProfiler
}

// gltfImporter defines the interface for orchestrating the CPU side of a glTF/GLB import.
// It combines the parser and all extractors to produce a complete ImportedModel; no GPU work happens here.
type gltfImporter interface {
	// Import parses the container and extracts nodes, skins, animations, materials (with decoded textures) and meshes.
	//
	// Parameters:
	//   - data: the GLB bytes
	//   - name: the model name recorded on the result
	//
	// Returns:
	//   - *model.ImportedModel: the fully populated imported model
	//   - error: the first error of any stage
	Import(data []byte, name string) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - options: the pipeline settings
//   - prof: the profiler that receives stage timings and parse counts
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(options importOptions, prof *profiler.ImportProfiler) gltfImporter {
	if options.decoder == nil {
		options.decoder = NewImageDecoder()
	}
	if prof == nil {
		prof = profiler.NewImportProfiler(nil)
	}
	return &gltfImporterImpl{options: options, profiler: prof}
}

func (imp *gltfImporterImpl) Import(data []byte, name string) (*model.ImportedModel, error) {
	parser := newGLTFParser(imp.profiler)

	done := imp.profiler.Track(profiler.StageRead)
	err := parser.Parse(data)
	done()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	doc := parser.Document()

	result := &model.ImportedModel{Name: modelName(doc, name)}

	var g errgroup.Group
	g.Go(func() error {
		defer imp.profiler.Track(profiler.StageScene)()
		nodes, err := newGLTFSceneExtractor(parser).ExtractNodes()
		if err != nil {
			return fmt.Errorf("scene: %w", err)
		}
		result.Nodes = nodes
		return nil
	})
	g.Go(func() error {
		defer imp.profiler.Track(profiler.StageSkins)()
		skins, err := newGLTFSkinExtractor(parser).ExtractAllSkins()
		if err != nil {
			return fmt.Errorf("skins: %w", err)
		}
		result.Skins = skins
		return nil
	})
	g.Go(func() error {
		defer imp.profiler.Track(profiler.StageAnimations)()
		animations, err := newGLTFAnimationExtractor(parser).ExtractAllAnimations()
		if err != nil {
			return fmt.Errorf("animations: %w", err)
		}
		result.Animations = animations
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	done = imp.profiler.Track(profiler.StageMaterials)
	materials, err := imp.importMaterials(parser)
	done()
	if err != nil {
		return nil, fmt.Errorf("materials: %w", err)
	}
	result.Materials = materials

	done = imp.profiler.Track(profiler.StageVertices)
	meshes, err := newGLTFMeshExtractor(parser, imp.options.generateNormals, imp.options.generateTangents).
		ExtractAllMeshes(imp.options.workers)
	done()
	if err != nil {
		return nil, fmt.Errorf("vertices: %w", err)
	}
	result.Meshes = meshes

	logger.Debug("imported model",
		zap.String("name", result.Name),
		zap.Int("nodes", len(result.Nodes)),
		zap.Int("meshes", len(result.Meshes)),
		zap.Int("materials", len(result.Materials)),
		zap.Int("animations", len(result.Animations)))
	return result, nil
}

// importMaterials extracts every material and decodes its textures, one material per worker.
// Results keep document order; the first failure stops the remaining workers.
func (imp *gltfImporterImpl) importMaterials(parser gltfParser) ([]common.ImportedMaterial, error) {
	extractor := newGLTFMaterialExtractor(parser, imp.options.maxAnisotropy)
	processor := newTextureProcessor(imp.options.decoder, imp.options.mipmaps)

	materials := make([]common.ImportedMaterial, extractor.MaterialCount())
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(imp.options.workers, 1))
	for i := range materials {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			mat, err := extractor.ExtractMaterial(i)
			if err != nil {
				return err
			}
			if err := processor.ProcessMaterial(mat); err != nil {
				return err
			}
			materials[i] = *mat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return materials, nil
}

// modelName derives a model name from the caller's label, falling back to the default scene name.
func modelName(doc *gltf.Document, name string) string {
	if name != "" {
		return name
	}
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		if sceneName := doc.Scenes[*doc.Scene].Name; sceneName != "" {
			return sceneName
		}
	}
	return "unnamed_model"
}
