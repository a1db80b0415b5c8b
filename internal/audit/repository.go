package audit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/ksi/internal/storage"
)

const (
	logLoadErrorTemplateConstant = "failed to load audit log: %w"
	logSaveErrorTemplateConstant = "failed to save audit log: %w"
	malformedLogWarningConstant  = "stored audit log is malformed; starting with an empty log"
	logKeyFieldConstant          = "key"
)

// LogRepository persists the audit log as a JSON array under a single key.
type LogRepository struct {
	store  storage.Store
	key    string
	logger *zap.Logger
}

// NewLogRepository constructs a LogRepository.
func NewLogRepository(store storage.Store, key string, logger *zap.Logger) *LogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRepository{store: store, key: key, logger: logger}
}

// Load returns the persisted log newest first. A missing or malformed value yields an empty log.
func (repository *LogRepository) Load(executionContext context.Context) ([]Entry, error) {
	var log []Entry
	found, loadError := storage.LoadJSON(executionContext, repository.store, repository.key, &log)
	switch {
	case errors.Is(loadError, storage.ErrMalformedValue):
		repository.logger.Warn(malformedLogWarningConstant, zap.String(logKeyFieldConstant, repository.key), zap.Error(loadError))
		return []Entry{}, nil
	case loadError != nil:
		return nil, fmt.Errorf(logLoadErrorTemplateConstant, loadError)
	case !found || log == nil:
		return []Entry{}, nil
	default:
		return log, nil
	}
}

// Save replaces the persisted log.
func (repository *LogRepository) Save(executionContext context.Context, log []Entry) error {
	if log == nil {
		log = []Entry{}
	}
	if saveError := storage.SaveJSON(executionContext, repository.store, repository.key, log); saveError != nil {
		return fmt.Errorf(logSaveErrorTemplateConstant, saveError)
	}
	return nil
}

// Append prepends entries to the persisted log and returns the updated log.
func (repository *LogRepository) Append(executionContext context.Context, entries ...Entry) ([]Entry, error) {
	log, loadError := repository.Load(executionContext)
	if loadError != nil {
		return nil, loadError
	}
	if len(entries) == 0 {
		return log, nil
	}
	updated := Prepend(log, entries...)
	if saveError := repository.Save(executionContext, updated); saveError != nil {
		return nil, saveError
	}
	return updated, nil
}
