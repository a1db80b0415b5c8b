// Package report renders the compliance tree as a Markdown progress report, a JSON
// export, and a terminal dashboard summary.
package report
