package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/temirov/ksi/internal/catalog"
)

const (
	reportTitleConstant               = "# FedRAMP 20x KSI Compliance Progress Report"
	generatedTemplateConstant         = "\nGenerated: %s"
	versionTemplateConstant           = "Version: %s"
	effectiveDateTemplateConstant     = "Effective Date: %s"
	impactLevelTemplateConstant       = "Impact Level: %s\n"
	executiveSummaryHeadingConstant   = "## Executive Summary\n"
	overallCompletionTemplateConstant = "Overall Completion: %.1f%% (%d/%d KSIs)\n"
	categorySummaryHeadingConstant    = "## Category Summary\n"
	categoryHeadingTemplateConstant   = "### %s: %s"
	objectiveTemplateConstant         = "- Objective: %s"
	progressTemplateConstant          = "- Progress: %.1f%% (%d/%d items)\n"
	itemLineTemplateConstant          = "  %s %s: %s"
	evidenceLineTemplateConstant      = "     Evidence: %s"
	documentsLineTemplateConstant     = "     Documents: %d file(s) attached"
	documentLineTemplateConstant      = "       - %s (%s)"
	requirementsLineConstant          = "     Evidence Requirements:"
	requirementLineTemplateConstant   = "       - %s (%s) → %s"
	metricsLineConstant               = "     Success Metrics:"
	metricLineTemplateConstant        = "       - %s"
	controlsLineTemplateConstant      = "     NIST Controls: %s"
	monitoringLineConstant            = "     ⚡ Continuous Monitoring Enabled"
	controlsSeparatorConstant         = ", "
	displayDateLayoutConstant         = "1/2/2006"
	percentScaleConstant              = 100
)

// WriteMarkdown renders the progress report. generatedAt and document upload dates are
// shown as dates in location.
func WriteMarkdown(writer io.Writer, tree catalog.Data, generatedAt time.Time, location *time.Location) error {
	if location == nil {
		location = time.Local
	}

	lines := []string{
		reportTitleConstant,
		fmt.Sprintf(generatedTemplateConstant, generatedAt.In(location).Format(displayDateLayoutConstant)),
		fmt.Sprintf(versionTemplateConstant, tree.Version),
		fmt.Sprintf(effectiveDateTemplateConstant, tree.EffectiveDate),
		fmt.Sprintf(impactLevelTemplateConstant, tree.ImpactLevel),
		executiveSummaryHeadingConstant,
	}

	totals := Summarize(tree, nil)
	lines = append(lines,
		fmt.Sprintf(overallCompletionTemplateConstant, totals.CompletionPercentage, totals.Completed, totals.Total),
		categorySummaryHeadingConstant,
	)

	for _, category := range tree.Categories {
		completed := category.CompletedItemCount()
		lines = append(lines,
			fmt.Sprintf(categoryHeadingTemplateConstant, category.Code, category.Name),
			fmt.Sprintf(objectiveTemplateConstant, category.Objective),
			fmt.Sprintf(progressTemplateConstant, Percentage(completed, len(category.Items)), completed, len(category.Items)),
		)
		for _, item := range category.Items {
			lines = append(lines, itemLines(item, location)...)
		}
		lines = append(lines, "")
	}

	_, writeError := io.WriteString(writer, strings.Join(lines, "\n"))
	return writeError
}

func itemLines(item catalog.Item, location *time.Location) []string {
	lines := []string{fmt.Sprintf(itemLineTemplateConstant, item.Status.Glyph(), item.Code, item.Title)}

	if len(item.Evidence) > 0 {
		lines = append(lines, fmt.Sprintf(evidenceLineTemplateConstant, item.Evidence))
	}
	if len(item.Documents) > 0 {
		lines = append(lines, fmt.Sprintf(documentsLineTemplateConstant, len(item.Documents)))
		for _, document := range item.Documents {
			lines = append(lines, fmt.Sprintf(documentLineTemplateConstant, document.Name, uploadDate(document, location)))
		}
	}
	if len(item.EvidenceRequirements) > 0 {
		lines = append(lines, requirementsLineConstant)
		for _, requirement := range item.EvidenceRequirements {
			lines = append(lines, fmt.Sprintf(requirementLineTemplateConstant, requirement.Type, requirement.CollectionMethod, requirement.Repository))
		}
	}
	if len(item.SuccessMetrics) > 0 {
		lines = append(lines, metricsLineConstant)
		for _, metric := range item.SuccessMetrics {
			lines = append(lines, fmt.Sprintf(metricLineTemplateConstant, metric))
		}
	}
	if len(item.ControlReferences) > 0 {
		lines = append(lines, fmt.Sprintf(controlsLineTemplateConstant, strings.Join(item.ControlReferences, controlsSeparatorConstant)))
	}
	if item.ContinuousMonitoringEnabled() {
		lines = append(lines, monitoringLineConstant)
	}
	return lines
}

func uploadDate(document catalog.Document, location *time.Location) string {
	uploadedAt, parseError := time.Parse(time.RFC3339Nano, document.UploadedAt)
	if parseError != nil {
		return document.UploadedAt
	}
	return uploadedAt.In(location).Format(displayDateLayoutConstant)
}

// Percentage returns part of total as a percentage. An empty total yields zero.
func Percentage(part int, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * percentScaleConstant
}
