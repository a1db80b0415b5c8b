package tracker

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/catalog"
)

const (
	categoryFilterAllConstant         = "all"
	categoryHeadingTemplateConstant   = "%s  %s  (%d/%d complete)\n"
	itemRowTemplateConstant           = "  %s %s\t%s\t%d/%d\t%s\n"
	itemHeadingTemplateConstant       = "%s  %s\n"
	itemCategoryTemplateConstant      = "Category: %s %s\n"
	itemStatusTemplateConstant        = "Status: %s %s\n"
	checklistHeadingTemplateConstant  = "Checklist (%d/%d):\n"
	checklistEntryTemplateConstant    = "  %d. [%s] %s\n"
	checkedMarkerConstant             = "x"
	uncheckedMarkerConstant           = " "
	evidenceHeadingConstant           = "Evidence:"
	emptyEvidenceConstant             = "  (none)"
	indentedLineTemplateConstant      = "  %s\n"
	documentsHeadingTemplateConstant  = "Documents (%d):\n"
	documentRowTemplateConstant       = "  %s\t%s\t%d bytes\t%s\t%s\n"
	requirementsHeadingConstant       = "Evidence Requirements:"
	requirementTemplateConstant       = "  - %s (%s) → %s\n"
	requirementDescriptionTemplate    = "    %s\n"
	metricsHeadingConstant            = "Success Metrics:"
	bulletTemplateConstant            = "  - %s\n"
	controlsTemplateConstant          = "NIST Controls: %s\n"
	controlsSeparatorConstant         = ", "
	continuousMonitoringLineConstant  = "⚡ Continuous Monitoring Enabled"
	updateEntryTemplateConstant       = "Recorded %s: %s\n"
	updateFieldChangeTemplateConstant = "%s → %s"
	noChangesMessageConstant          = "No changes recorded."
	categoryNotFoundTemplateConstant  = "%w: %s"
	documentDateLayoutLengthConstant  = len("2006-01-02")
)

// ErrCategoryNotFound indicates no category matches the requested code or identifier.
var ErrCategoryNotFound = errors.New("KSI category not found")

// MatchesCategory reports whether filter selects category by code or identifier.
// An empty filter or "all" selects every category.
func MatchesCategory(category catalog.Category, filter string) bool {
	trimmed := strings.TrimSpace(filter)
	if len(trimmed) == 0 || strings.EqualFold(trimmed, categoryFilterAllConstant) {
		return true
	}
	return strings.EqualFold(category.Code, trimmed) || strings.EqualFold(category.ID, trimmed)
}

// WriteItemList renders the items of every category selected by filter.
func WriteItemList(writer io.Writer, tree catalog.Data, filter string) error {
	tableWriter := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	matched := 0
	for _, category := range tree.Categories {
		if !MatchesCategory(category, filter) {
			continue
		}
		if matched > 0 {
			fmt.Fprintln(tableWriter)
		}
		matched++

		fmt.Fprintf(tableWriter, categoryHeadingTemplateConstant, category.Code, category.Name, category.CompletedItemCount(), len(category.Items))
		for _, item := range category.Items {
			fmt.Fprintf(tableWriter, itemRowTemplateConstant,
				item.Status.Glyph(),
				item.Code,
				item.Status.Label(),
				catalog.CountCompleted(item.CompletedItems),
				len(item.Checklist),
				item.Title,
			)
		}
	}
	if matched == 0 {
		return fmt.Errorf(categoryNotFoundTemplateConstant, ErrCategoryNotFound, filter)
	}
	return tableWriter.Flush()
}

// WriteItemDetails renders one item with its checklist, evidence, documents, and reference data.
func WriteItemDetails(writer io.Writer, category catalog.Category, item catalog.Item) error {
	var builder strings.Builder

	fmt.Fprintf(&builder, itemHeadingTemplateConstant, item.Code, item.Title)
	fmt.Fprintf(&builder, itemCategoryTemplateConstant, category.Code, category.Name)
	fmt.Fprintf(&builder, itemStatusTemplateConstant, item.Status.Glyph(), item.Status.Label())

	fmt.Fprintf(&builder, checklistHeadingTemplateConstant, catalog.CountCompleted(item.CompletedItems), len(item.Checklist))
	for index, entry := range item.Checklist {
		marker := uncheckedMarkerConstant
		if index < len(item.CompletedItems) && item.CompletedItems[index] {
			marker = checkedMarkerConstant
		}
		fmt.Fprintf(&builder, checklistEntryTemplateConstant, index+1, marker, entry)
	}

	builder.WriteString(evidenceHeadingConstant + "\n")
	if len(strings.TrimSpace(item.Evidence)) == 0 {
		builder.WriteString(emptyEvidenceConstant + "\n")
	} else {
		for _, line := range strings.Split(item.Evidence, "\n") {
			fmt.Fprintf(&builder, indentedLineTemplateConstant, line)
		}
	}

	if len(item.Documents) > 0 {
		fmt.Fprintf(&builder, documentsHeadingTemplateConstant, len(item.Documents))
		tableWriter := tabwriter.NewWriter(&builder, 0, 4, 2, ' ', 0)
		for _, document := range item.Documents {
			fmt.Fprintf(tableWriter, documentRowTemplateConstant, document.ID, document.Name, document.Size, document.Type, documentDate(document))
		}
		tableWriter.Flush()
	}

	if len(item.EvidenceRequirements) > 0 {
		builder.WriteString(requirementsHeadingConstant + "\n")
		for _, requirement := range item.EvidenceRequirements {
			fmt.Fprintf(&builder, requirementTemplateConstant, requirement.Type, requirement.CollectionMethod, requirement.Repository)
			if len(requirement.Description) > 0 {
				fmt.Fprintf(&builder, requirementDescriptionTemplate, requirement.Description)
			}
		}
	}

	if len(item.SuccessMetrics) > 0 {
		builder.WriteString(metricsHeadingConstant + "\n")
		for _, metric := range item.SuccessMetrics {
			fmt.Fprintf(&builder, bulletTemplateConstant, metric)
		}
	}

	if len(item.ControlReferences) > 0 {
		fmt.Fprintf(&builder, controlsTemplateConstant, strings.Join(item.ControlReferences, controlsSeparatorConstant))
	}
	if item.ContinuousMonitoringEnabled() {
		builder.WriteString(continuousMonitoringLineConstant + "\n")
	}

	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

// WriteUpdateResult summarizes the audit entries recorded by an update.
func WriteUpdateResult(writer io.Writer, result UpdateResult) error {
	if len(result.Entries) == 0 {
		_, writeError := fmt.Fprintln(writer, noChangesMessageConstant)
		return writeError
	}
	for _, entry := range result.Entries {
		if _, writeError := fmt.Fprintf(writer, updateEntryTemplateConstant, entry.EventType.Label(), describeEntry(entry)); writeError != nil {
			return writeError
		}
	}
	return nil
}

func describeEntry(entry audit.Entry) string {
	if len(entry.Details) > 0 {
		return entry.Details
	}
	return fmt.Sprintf(updateFieldChangeTemplateConstant, entry.OldValue, entry.NewValue)
}

func documentDate(document catalog.Document) string {
	if len(document.UploadedAt) < documentDateLayoutLengthConstant {
		return document.UploadedAt
	}
	return document.UploadedAt[:documentDateLayoutLengthConstant]
}
