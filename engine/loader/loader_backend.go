package loader

import (
	"github.com/Carmen-Shannon/oxy-assets/engine/model"
)

// loaderBackend defines the format-specific half of the loader: it turns container bytes into an ImportedModel.
// The cache and GPU realization are format independent and live in the Loader itself.
type loaderBackend interface {
	// Load performs a full CPU-side import of one container.
	//
	// Parameters:
	//   - data: the container bytes
	//   - name: the model name recorded on the result
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	Load(data []byte, name string) (*model.ImportedModel, error)
}
