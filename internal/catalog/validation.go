package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	checklistLengthMismatchTemplateConstant = "item %s: completedItems has %d entries but checklist has %d"
	duplicateItemIdentifierTemplateConstant = "item identifier %s appears more than once"
	duplicateCategoryTemplateConstant       = "category identifier %s appears more than once"
	fieldValidationTemplateConstant         = "%s failed %q validation"
	validationFailureTemplateConstant       = "invalid KSI data: %s"
	validationMessageSeparatorConstant      = "; "
)

// ErrInvalidData is the sentinel wrapped by every Validate failure.
var ErrInvalidData = errors.New("invalid KSI data")

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every invariant violation found in a tree.
type ValidationError struct {
	Problems []string
}

// Error renders all problems on a single line.
func (validationError *ValidationError) Error() string {
	return fmt.Sprintf(validationFailureTemplateConstant, strings.Join(validationError.Problems, validationMessageSeparatorConstant))
}

// Unwrap exposes ErrInvalidData for errors.Is checks.
func (validationError *ValidationError) Unwrap() error {
	return ErrInvalidData
}

// Validate checks struct-level constraints and the tree invariants: the completed
// list is as long as the checklist and identifiers are unique.
func Validate(data Data) error {
	var problems []string

	if structError := structValidator.Struct(data); structError != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(structError, &fieldErrors) {
			return structError
		}
		for _, fieldError := range fieldErrors {
			problems = append(problems, fmt.Sprintf(fieldValidationTemplateConstant, fieldError.Namespace(), fieldError.Tag()))
		}
	}

	seenCategories := make(map[string]struct{}, len(data.Categories))
	seenItems := make(map[string]struct{}, data.ItemCount())
	for _, category := range data.Categories {
		if _, duplicate := seenCategories[category.ID]; duplicate {
			problems = append(problems, fmt.Sprintf(duplicateCategoryTemplateConstant, category.ID))
		}
		seenCategories[category.ID] = struct{}{}

		for _, item := range category.Items {
			if _, duplicate := seenItems[item.ID]; duplicate {
				problems = append(problems, fmt.Sprintf(duplicateItemIdentifierTemplateConstant, item.ID))
			}
			seenItems[item.ID] = struct{}{}

			if len(item.CompletedItems) != len(item.Checklist) {
				problems = append(problems, fmt.Sprintf(checklistLengthMismatchTemplateConstant, item.ID, len(item.CompletedItems), len(item.Checklist)))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
