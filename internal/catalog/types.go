package catalog

import (
	"fmt"
	"strings"
)

const (
	completionStatusNotStartedConstant     = "not_started"
	completionStatusInProgressConstant     = "in_progress"
	completionStatusCompleteConstant       = "complete"
	unsupportedStatusErrorTemplateConstant = "unsupported completion status %q (expected not_started, in_progress, or complete)"
	completeGlyphConstant                  = "✓"
	inProgressGlyphConstant                = "◐"
	notStartedGlyphConstant                = "○"
)

// CompletionStatus enumerates the progress states of a KSI item.
type CompletionStatus string

// Supported completion statuses.
const (
	CompletionStatusNotStarted CompletionStatus = CompletionStatus(completionStatusNotStartedConstant)
	CompletionStatusInProgress CompletionStatus = CompletionStatus(completionStatusInProgressConstant)
	CompletionStatusComplete   CompletionStatus = CompletionStatus(completionStatusCompleteConstant)
)

var supportedCompletionStatuses = map[CompletionStatus]struct{}{
	CompletionStatusNotStarted: {},
	CompletionStatusInProgress: {},
	CompletionStatusComplete:   {},
}

// ParseCompletionStatus converts user input into a supported CompletionStatus.
func ParseCompletionStatus(rawValue string) (CompletionStatus, error) {
	normalized := CompletionStatus(strings.ToLower(strings.TrimSpace(rawValue)))
	if _, supported := supportedCompletionStatuses[normalized]; !supported {
		return "", fmt.Errorf(unsupportedStatusErrorTemplateConstant, rawValue)
	}
	return normalized, nil
}

// Glyph returns the marker used when rendering the status.
func (status CompletionStatus) Glyph() string {
	switch status {
	case CompletionStatusComplete:
		return completeGlyphConstant
	case CompletionStatusInProgress:
		return inProgressGlyphConstant
	default:
		return notStartedGlyphConstant
	}
}

// Label renders the status with spaces, e.g. "in progress".
func (status CompletionStatus) Label() string {
	return strings.ReplaceAll(string(status), "_", " ")
}

// DeriveStatus computes the checklist-driven status: every entry complete yields
// complete, any entry complete yields in_progress, otherwise not_started.
func DeriveStatus(completedItems []bool) CompletionStatus {
	if len(completedItems) == 0 {
		return CompletionStatusNotStarted
	}

	completedCount := CountCompleted(completedItems)
	switch {
	case completedCount == len(completedItems):
		return CompletionStatusComplete
	case completedCount > 0:
		return CompletionStatusInProgress
	default:
		return CompletionStatusNotStarted
	}
}

// CountCompleted returns the number of true values in completedItems.
func CountCompleted(completedItems []bool) int {
	completedCount := 0
	for _, completed := range completedItems {
		if completed {
			completedCount++
		}
	}
	return completedCount
}

// Document is an uploaded evidence file owned by a single item.
type Document struct {
	ID         string `json:"id" yaml:"id" validate:"required"`
	Name       string `json:"name" yaml:"name" validate:"required"`
	Size       int64  `json:"size" yaml:"size" validate:"gte=0"`
	Type       string `json:"type" yaml:"type"`
	UploadedAt string `json:"uploadedAt" yaml:"uploaded_at"`
	Data       string `json:"data" yaml:"data"`
}

// EvidenceRequirement describes how evidence for an item is collected and where it lives.
type EvidenceRequirement struct {
	Type             string `json:"type" yaml:"type" validate:"required"`
	CollectionMethod string `json:"collectionMethod" yaml:"collection_method" validate:"required"`
	Repository       string `json:"repository" yaml:"repository" validate:"required"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Item is a single Key Security Indicator tracked by the form.
type Item struct {
	ID                   string                `json:"id" yaml:"id" validate:"required"`
	Code                 string                `json:"code" yaml:"code" validate:"required"`
	Title                string                `json:"title" yaml:"title" validate:"required"`
	Checklist            []string              `json:"checklist" yaml:"checklist"`
	Status               CompletionStatus      `json:"status" yaml:"status" validate:"oneof=not_started in_progress complete"`
	Evidence             string                `json:"evidence" yaml:"evidence"`
	CompletedItems       []bool                `json:"completedItems" yaml:"completed_items"`
	Documents            []Document            `json:"documents,omitempty" yaml:"documents,omitempty" validate:"dive"`
	EvidenceRequirements []EvidenceRequirement `json:"evidenceRequirements,omitempty" yaml:"evidence_requirements,omitempty" validate:"dive"`
	SuccessMetrics       []string              `json:"successMetrics,omitempty" yaml:"success_metrics,omitempty"`
	ContinuousMonitoring *bool                 `json:"continuousMonitoring,omitempty" yaml:"continuous_monitoring,omitempty"`
	ControlReferences    []string              `json:"nistControls,omitempty" yaml:"control_references,omitempty"`
}

// ContinuousMonitoringEnabled reports whether the item carries the continuous-monitoring flag.
func (item Item) ContinuousMonitoringEnabled() bool {
	return item.ContinuousMonitoring != nil && *item.ContinuousMonitoring
}

// Clone returns a copy of the item that shares no slices with the receiver.
func (item Item) Clone() Item {
	cloned := item
	cloned.Checklist = cloneStrings(item.Checklist)
	cloned.CompletedItems = cloneBooleans(item.CompletedItems)
	cloned.Documents = cloneDocuments(item.Documents)
	cloned.EvidenceRequirements = cloneRequirements(item.EvidenceRequirements)
	cloned.SuccessMetrics = cloneStrings(item.SuccessMetrics)
	cloned.ControlReferences = cloneStrings(item.ControlReferences)
	if item.ContinuousMonitoring != nil {
		monitoring := *item.ContinuousMonitoring
		cloned.ContinuousMonitoring = &monitoring
	}
	return cloned
}

// FindDocument returns the document with the provided identifier.
func (item Item) FindDocument(documentID string) (Document, bool) {
	for _, document := range item.Documents {
		if document.ID == documentID {
			return document, true
		}
	}
	return Document{}, false
}

// Category groups related items under a shared objective.
type Category struct {
	ID        string `json:"id" yaml:"id" validate:"required"`
	Code      string `json:"code" yaml:"code" validate:"required"`
	Name      string `json:"name" yaml:"name" validate:"required"`
	Objective string `json:"objective" yaml:"objective"`
	Items     []Item `json:"items" yaml:"items" validate:"dive"`
}

// CompletedItemCount returns how many items in the category are complete.
func (category Category) CompletedItemCount() int {
	completedCount := 0
	for _, item := range category.Items {
		if item.Status == CompletionStatusComplete {
			completedCount++
		}
	}
	return completedCount
}

// Data is the root of the persisted compliance tree.
type Data struct {
	Version       string     `json:"version" yaml:"version" validate:"required"`
	EffectiveDate string     `json:"effectiveDate" yaml:"effective_date"`
	ImpactLevel   string     `json:"impactLevel" yaml:"impact_level"`
	Categories    []Category `json:"categories" yaml:"categories" validate:"dive"`
}

// FindCategory returns the category with the provided identifier.
func (data Data) FindCategory(categoryID string) (Category, bool) {
	for _, category := range data.Categories {
		if category.ID == categoryID {
			return category, true
		}
	}
	return Category{}, false
}

// FindItem locates an item by identifier and returns it together with its owning category.
func (data Data) FindItem(itemID string) (Category, Item, bool) {
	normalizedItemID := strings.ToLower(strings.TrimSpace(itemID))
	for _, category := range data.Categories {
		for _, item := range category.Items {
			if item.ID == normalizedItemID || strings.EqualFold(item.Code, normalizedItemID) {
				return category, item, true
			}
		}
	}
	return Category{}, Item{}, false
}

// ItemCount returns the number of items across every category.
func (data Data) ItemCount() int {
	itemCount := 0
	for _, category := range data.Categories {
		itemCount += len(category.Items)
	}
	return itemCount
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string{}, values...)
}

func cloneBooleans(values []bool) []bool {
	if values == nil {
		return nil
	}
	return append([]bool{}, values...)
}

func cloneDocuments(documents []Document) []Document {
	if documents == nil {
		return nil
	}
	return append([]Document{}, documents...)
}

func cloneRequirements(requirements []EvidenceRequirement) []EvidenceRequirement {
	if requirements == nil {
		return nil
	}
	return append([]EvidenceRequirement{}, requirements...)
}
