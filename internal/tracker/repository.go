package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/ksi/internal/catalog"
	"github.com/temirov/ksi/internal/storage"
)

const (
	treeLoadErrorTemplateConstant    = "failed to load KSI data: %w"
	treeSaveErrorTemplateConstant    = "failed to save KSI data: %w"
	initialDataErrorTemplateConstant = "failed to build initial KSI data: %w"
	malformedTreeWarningConstant     = "stored KSI data is malformed; starting from the catalog"
	invalidTreeWarningConstant       = "stored KSI data violates tree invariants"
	storageKeyFieldConstant          = "key"
)

// InitialDataProvider supplies the tree used when nothing has been persisted yet.
type InitialDataProvider func() (catalog.Data, error)

// TreeRepository persists the compliance tree as JSON under a single key.
type TreeRepository struct {
	store       storage.Store
	key         string
	logger      *zap.Logger
	initialOnce sync.Once
	initialData catalog.Data
	initialErr  error
	provider    InitialDataProvider
}

// NewTreeRepository constructs a TreeRepository. A nil provider uses catalog.InitialData.
func NewTreeRepository(store storage.Store, key string, provider InitialDataProvider, logger *zap.Logger) *TreeRepository {
	if provider == nil {
		provider = catalog.InitialData
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeRepository{store: store, key: key, provider: provider, logger: logger}
}

// InitialData returns the enhanced catalog. The provider runs at most once per repository.
func (repository *TreeRepository) InitialData() (catalog.Data, error) {
	repository.initialOnce.Do(func() {
		repository.initialData, repository.initialErr = repository.provider()
	})
	if repository.initialErr != nil {
		return catalog.Data{}, fmt.Errorf(initialDataErrorTemplateConstant, repository.initialErr)
	}
	return repository.initialData, nil
}

// Load returns the persisted tree, or the initial data when the stored value is missing
// or malformed.
func (repository *TreeRepository) Load(executionContext context.Context) (catalog.Data, error) {
	var tree catalog.Data
	found, loadError := storage.LoadJSON(executionContext, repository.store, repository.key, &tree)
	switch {
	case errors.Is(loadError, storage.ErrMalformedValue):
		repository.logger.Warn(malformedTreeWarningConstant, zap.String(storageKeyFieldConstant, repository.key), zap.Error(loadError))
		return repository.InitialData()
	case loadError != nil:
		return catalog.Data{}, fmt.Errorf(treeLoadErrorTemplateConstant, loadError)
	case !found || len(tree.Categories) == 0:
		return repository.InitialData()
	}

	if validationError := catalog.Validate(tree); validationError != nil {
		repository.logger.Warn(invalidTreeWarningConstant, zap.String(storageKeyFieldConstant, repository.key), zap.Error(validationError))
	}
	return tree, nil
}

// Save replaces the persisted tree.
func (repository *TreeRepository) Save(executionContext context.Context, tree catalog.Data) error {
	if saveError := storage.SaveJSON(executionContext, repository.store, repository.key, tree); saveError != nil {
		return fmt.Errorf(treeSaveErrorTemplateConstant, saveError)
	}
	return nil
}
