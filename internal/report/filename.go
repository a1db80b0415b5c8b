package report

import (
	"fmt"
	"time"
)

const (
	markdownFileNameTemplateConstant = "FedRAMP-20x-KSI-Report-%s.md"
	jsonFileNameTemplateConstant     = "FedRAMP-20x-KSI-Data-%s.json"
	fileNameDateLayoutConstant       = "2006-01-02"
)

// MarkdownFileName returns the download name of a Markdown report produced at now.
func MarkdownFileName(now time.Time) string {
	return fmt.Sprintf(markdownFileNameTemplateConstant, now.UTC().Format(fileNameDateLayoutConstant))
}

// JSONFileName returns the download name of a JSON export produced at now.
func JSONFileName(now time.Time) string {
	return fmt.Sprintf(jsonFileNameTemplateConstant, now.UTC().Format(fileNameDateLayoutConstant))
}
