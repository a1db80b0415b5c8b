package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/catalog"
)

const (
	itemNotFoundTemplateConstant     = "%w: %s"
	resetPromptConstant              = "Reset all KSI data to the initial catalog? This cannot be undone."
	itemUpdatedMessageConstant       = "KSI item updated"
	itemUpdateSkippedMessageConstant = "KSI item update skipped; category not found"
	resetDeclinedMessageConstant     = "KSI data reset declined"
	resetCompletedMessageConstant    = "KSI data reset to the initial catalog"
	itemFieldConstant                = "item"
	categoryFieldConstant            = "category"
	eventCountFieldConstant          = "events"
)

// UpdateResult reports the outcome of an item update.
type UpdateResult struct {
	Entries []audit.Entry
	Data    catalog.Data
	Item    catalog.Item
}

// ServiceDependencies describes the collaborators used by Service.
type ServiceDependencies struct {
	Trees    *TreeRepository
	AuditLog *audit.LogRepository
	Deriver  *audit.Deriver
	Prompter audit.ConfirmationPrompter
	Logger   *zap.Logger
}

// Service applies item edits and keeps the audit log in step with the tree.
type Service struct {
	trees    *TreeRepository
	auditLog *audit.LogRepository
	deriver  *audit.Deriver
	prompter audit.ConfirmationPrompter
	logger   *zap.Logger
}

// NewService constructs a Service using the provided dependencies.
func NewService(dependencies ServiceDependencies) *Service {
	service := &Service{
		trees:    dependencies.Trees,
		auditLog: dependencies.AuditLog,
		deriver:  dependencies.Deriver,
		prompter: dependencies.Prompter,
		logger:   dependencies.Logger,
	}
	if service.deriver == nil {
		service.deriver = audit.NewDeriver(audit.DeriverDependencies{})
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service
}

// Data returns the current compliance tree.
func (service *Service) Data(executionContext context.Context) (catalog.Data, error) {
	return service.trees.Load(executionContext)
}

// FindItem returns the item addressed by identifier or code together with its category.
func (service *Service) FindItem(executionContext context.Context, itemID string) (catalog.Category, catalog.Item, error) {
	tree, loadError := service.trees.Load(executionContext)
	if loadError != nil {
		return catalog.Category{}, catalog.Item{}, loadError
	}
	category, item, found := tree.FindItem(itemID)
	if !found {
		return catalog.Category{}, catalog.Item{}, fmt.Errorf(itemNotFoundTemplateConstant, ErrItemNotFound, itemID)
	}
	return category, item, nil
}

// ApplyItemUpdate records the audit entries describing next, replaces the item in the
// tree, and persists the log before the tree. An unknown category leaves both untouched.
func (service *Service) ApplyItemUpdate(executionContext context.Context, categoryID string, next catalog.Item) (UpdateResult, error) {
	tree, loadError := service.trees.Load(executionContext)
	if loadError != nil {
		return UpdateResult{}, loadError
	}
	return service.applyItemUpdate(executionContext, tree, categoryID, next)
}

func (service *Service) applyItemUpdate(executionContext context.Context, tree catalog.Data, categoryID string, next catalog.Item) (UpdateResult, error) {
	category, found := tree.FindCategory(categoryID)
	if !found {
		service.logger.Debug(itemUpdateSkippedMessageConstant, zap.String(categoryFieldConstant, categoryID), zap.String(itemFieldConstant, next.ID))
		return UpdateResult{Data: tree, Item: next}, nil
	}

	var previous *catalog.Item
	if itemIndex := indexOfItem(category.Items, next.ID); itemIndex >= 0 {
		previousItem := category.Items[itemIndex]
		previous = &previousItem
	}

	entries := service.deriver.Derive(previous, next, category.Code)
	updated := ReplaceItem(tree, categoryID, next)
	if saveError := service.trees.Save(executionContext, updated); saveError != nil {
		return UpdateResult{}, saveError
	}

	// The log only holds entries for edits whose tree was saved.
	if len(entries) > 0 {
		if _, appendError := service.auditLog.Append(executionContext, entries...); appendError != nil {
			return UpdateResult{}, appendError
		}
	}

	service.logger.Info(itemUpdatedMessageConstant,
		zap.String(itemFieldConstant, next.ID),
		zap.String(categoryFieldConstant, category.Code),
		zap.Int(eventCountFieldConstant, len(entries)),
	)
	return UpdateResult{Entries: entries, Data: updated, Item: next}, nil
}

// ToggleChecklist flips the zero-based checklist entry of the item.
func (service *Service) ToggleChecklist(executionContext context.Context, itemID string, index int) (UpdateResult, error) {
	return service.editItem(executionContext, itemID, func(item catalog.Item) (catalog.Item, error) {
		return ToggleChecklistEntry(item, index)
	})
}

// SetStatus overrides the item status.
func (service *Service) SetStatus(executionContext context.Context, itemID string, status catalog.CompletionStatus) (UpdateResult, error) {
	return service.editItem(executionContext, itemID, func(item catalog.Item) (catalog.Item, error) {
		return OverrideStatus(item, status), nil
	})
}

// SetEvidence replaces the item evidence text.
func (service *Service) SetEvidence(executionContext context.Context, itemID string, evidence string) (UpdateResult, error) {
	return service.editItem(executionContext, itemID, func(item catalog.Item) (catalog.Item, error) {
		return UpdateEvidence(item, evidence), nil
	})
}

// UploadDocuments appends the batch to the item as a single update.
func (service *Service) UploadDocuments(executionContext context.Context, itemID string, documents []catalog.Document) (UpdateResult, error) {
	return service.editItem(executionContext, itemID, func(item catalog.Item) (catalog.Item, error) {
		return AppendDocuments(item, documents), nil
	})
}

// RemoveDocument drops one document from the item.
func (service *Service) RemoveDocument(executionContext context.Context, itemID string, documentID string) (UpdateResult, error) {
	return service.editItem(executionContext, itemID, func(item catalog.Item) (catalog.Item, error) {
		return RemoveDocument(item, documentID)
	})
}

func (service *Service) editItem(executionContext context.Context, itemID string, edit func(catalog.Item) (catalog.Item, error)) (UpdateResult, error) {
	tree, loadError := service.trees.Load(executionContext)
	if loadError != nil {
		return UpdateResult{}, loadError
	}

	category, item, found := tree.FindItem(itemID)
	if !found {
		return UpdateResult{}, fmt.Errorf(itemNotFoundTemplateConstant, ErrItemNotFound, itemID)
	}

	next, editError := edit(item)
	if editError != nil {
		return UpdateResult{}, editError
	}
	return service.applyItemUpdate(executionContext, tree, category.ID, next)
}

// Reset replaces the tree with the initial catalog after confirmation. assumeYes skips
// the prompt. The audit log is left intact. The returned flag reports whether the reset ran.
func (service *Service) Reset(executionContext context.Context, assumeYes bool) (bool, error) {
	if !assumeYes {
		if service.prompter == nil {
			return false, nil
		}
		confirmed, promptError := service.prompter.Confirm(resetPromptConstant)
		if promptError != nil {
			return false, promptError
		}
		if !confirmed {
			service.logger.Info(resetDeclinedMessageConstant)
			return false, nil
		}
	}

	initialData, initialError := service.trees.InitialData()
	if initialError != nil {
		return false, initialError
	}
	if saveError := service.trees.Save(executionContext, initialData); saveError != nil {
		return false, saveError
	}
	service.logger.Info(resetCompletedMessageConstant)
	return true, nil
}
