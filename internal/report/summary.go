package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/temirov/ksi/internal/catalog"
)

const (
	dashboardTitleConstant            = "FedRAMP 20x KSI Compliance Dashboard"
	dashboardMetadataTemplateConstant = "Version: %s  Effective: %s  Impact Level: %s\n\n"
	dashboardOverallTemplateConstant  = "Overall Completion: %.1f%% (%d/%d KSIs)\n"
	dashboardCountsTemplateConstant   = "Complete: %d  In Progress: %d  Not Started: %d\n\n"
	dashboardCategoryHeadingConstant  = "Category Progress"
	dashboardCategoryRowTemplate      = "  %s\t%s\t%d/%d\t%.1f%%\n"
	dashboardCriticalHeadingConstant  = "Critical Path Items Requiring Attention"
	dashboardCriticalRowTemplate      = "  %s %s\t%s\t%s\n"
	dashboardNoCriticalItemsConstant  = "All critical path items are complete."
)

// CategoryProgress summarizes completion within one category.
type CategoryProgress struct {
	Code                 string
	Name                 string
	Completed            int
	Total                int
	CompletionPercentage float64
}

// CriticalItem is a critical-path KSI that is not yet complete.
type CriticalItem struct {
	Code         string
	Title        string
	Status       catalog.CompletionStatus
	CategoryName string
}

// Summary holds the dashboard figures for a tree.
type Summary struct {
	Total                int
	Completed            int
	InProgress           int
	NotStarted           int
	CompletionPercentage float64
	Categories           []CategoryProgress
	CriticalItems        []CriticalItem
}

// Summarize counts items per status and lists incomplete items whose code is in criticalCodes.
func Summarize(tree catalog.Data, criticalCodes []string) Summary {
	critical := make(map[string]struct{}, len(criticalCodes))
	for _, code := range criticalCodes {
		critical[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}

	var summary Summary
	for _, category := range tree.Categories {
		categoryCompleted := 0
		for _, item := range category.Items {
			summary.Total++
			switch item.Status {
			case catalog.CompletionStatusComplete:
				summary.Completed++
				categoryCompleted++
			case catalog.CompletionStatusInProgress:
				summary.InProgress++
			default:
				summary.NotStarted++
			}

			if _, isCritical := critical[strings.ToUpper(item.Code)]; isCritical && item.Status != catalog.CompletionStatusComplete {
				summary.CriticalItems = append(summary.CriticalItems, CriticalItem{
					Code:         item.Code,
					Title:        item.Title,
					Status:       item.Status,
					CategoryName: category.Name,
				})
			}
		}
		summary.Categories = append(summary.Categories, CategoryProgress{
			Code:                 category.Code,
			Name:                 category.Name,
			Completed:            categoryCompleted,
			Total:                len(category.Items),
			CompletionPercentage: Percentage(categoryCompleted, len(category.Items)),
		})
	}
	summary.CompletionPercentage = Percentage(summary.Completed, summary.Total)
	return summary
}

// WriteSummary renders the dashboard for a terminal.
func WriteSummary(writer io.Writer, tree catalog.Data, summary Summary) error {
	tableWriter := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tableWriter, dashboardTitleConstant)
	fmt.Fprintf(tableWriter, dashboardMetadataTemplateConstant, tree.Version, tree.EffectiveDate, tree.ImpactLevel)
	fmt.Fprintf(tableWriter, dashboardOverallTemplateConstant, summary.CompletionPercentage, summary.Completed, summary.Total)
	fmt.Fprintf(tableWriter, dashboardCountsTemplateConstant, summary.Completed, summary.InProgress, summary.NotStarted)

	fmt.Fprintln(tableWriter, dashboardCategoryHeadingConstant)
	for _, category := range summary.Categories {
		fmt.Fprintf(tableWriter, dashboardCategoryRowTemplate, category.Code, category.Name, category.Completed, category.Total, category.CompletionPercentage)
	}
	fmt.Fprintln(tableWriter)

	if len(summary.CriticalItems) == 0 {
		fmt.Fprintln(tableWriter, dashboardNoCriticalItemsConstant)
		return tableWriter.Flush()
	}
	fmt.Fprintln(tableWriter, dashboardCriticalHeadingConstant)
	for _, item := range summary.CriticalItems {
		fmt.Fprintf(tableWriter, dashboardCriticalRowTemplate, item.Status.Glyph(), item.Code, item.Title, item.CategoryName)
	}
	return tableWriter.Flush()
}
