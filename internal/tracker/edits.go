package tracker

import (
	"errors"
	"fmt"

	"github.com/temirov/ksi/internal/catalog"
)

const (
	checklistIndexErrorTemplateConstant = "%w: %d (item %s has %d entries)"
	documentNotFoundTemplateConstant    = "%w: %s (item %s)"
)

// ErrItemNotFound indicates no item matches the requested identifier or code.
var ErrItemNotFound = errors.New("KSI item not found")

// ErrChecklistIndexOutOfRange indicates a checklist position outside the item's checklist.
var ErrChecklistIndexOutOfRange = errors.New("checklist index out of range")

// ErrDocumentNotFound indicates the item holds no document with the requested identifier.
var ErrDocumentNotFound = errors.New("document not found")

// ToggleChecklistEntry flips the zero-based checklist entry and recomputes the status
// from the checklist.
func ToggleChecklistEntry(item catalog.Item, index int) (catalog.Item, error) {
	if index < 0 || index >= len(item.Checklist) {
		return catalog.Item{}, fmt.Errorf(checklistIndexErrorTemplateConstant, ErrChecklistIndexOutOfRange, index+1, item.Code, len(item.Checklist))
	}

	next := item.Clone()
	next.CompletedItems = alignCompletedItems(next.CompletedItems, len(next.Checklist))
	next.CompletedItems[index] = !next.CompletedItems[index]
	next.Status = catalog.DeriveStatus(next.CompletedItems)
	return next, nil
}

// OverrideStatus sets the status without touching the checklist.
func OverrideStatus(item catalog.Item, status catalog.CompletionStatus) catalog.Item {
	next := item.Clone()
	next.Status = status
	return next
}

// UpdateEvidence replaces the evidence text.
func UpdateEvidence(item catalog.Item, evidence string) catalog.Item {
	next := item.Clone()
	next.Evidence = evidence
	return next
}

// AppendDocuments adds documents after the existing ones.
func AppendDocuments(item catalog.Item, documents []catalog.Document) catalog.Item {
	next := item.Clone()
	next.Documents = append(next.Documents, documents...)
	return next
}

// RemoveDocument drops the document with the provided identifier.
func RemoveDocument(item catalog.Item, documentID string) (catalog.Item, error) {
	if _, exists := item.FindDocument(documentID); !exists {
		return catalog.Item{}, fmt.Errorf(documentNotFoundTemplateConstant, ErrDocumentNotFound, documentID, item.Code)
	}

	next := item.Clone()
	remaining := make([]catalog.Document, 0, len(item.Documents))
	for _, document := range item.Documents {
		if document.ID != documentID {
			remaining = append(remaining, document)
		}
	}
	next.Documents = remaining
	return next, nil
}

// alignCompletedItems pads or truncates completed to the checklist length.
func alignCompletedItems(completed []bool, checklistLength int) []bool {
	if len(completed) == checklistLength {
		return completed
	}
	aligned := make([]bool, checklistLength)
	copy(aligned, completed)
	return aligned
}
