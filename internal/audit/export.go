package audit

import (
	"bufio"
	"io"
	"strings"
	"time"
)

const (
	csvDelimiterConstant           = ","
	csvQuoteConstant               = `"`
	csvEscapedQuoteConstant        = `""`
	csvLineTerminatorConstant      = "\n"
	displayTimestampLayoutConstant = "1/2/2006, 3:04:05 PM"
)

var csvHeader = []string{
	"Timestamp",
	"Event Type",
	"Category",
	"Item Code",
	"Item Title",
	"Field",
	"Old Value",
	"New Value",
	"Details",
	"User",
}

// FormatDisplayTimestamp renders an entry timestamp in location. Unparseable
// timestamps are returned verbatim.
func FormatDisplayTimestamp(entry Entry, location *time.Location) string {
	parsed := entry.Time()
	if parsed.IsZero() {
		return entry.Timestamp
	}
	if location == nil {
		location = time.Local
	}
	return parsed.In(location).Format(displayTimestampLayoutConstant)
}

// CSVRecord returns the entry formatted for the audit export.
func (entry Entry) CSVRecord(location *time.Location) []string {
	return []string{
		FormatDisplayTimestamp(entry, location),
		entry.EventType.Label(),
		entry.CategoryCode,
		entry.ItemCode,
		entry.ItemTitle,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Details,
		entry.User,
	}
}

// WriteCSV writes the header and one row per entry. Every cell is quoted and
// embedded quotes are doubled.
func WriteCSV(writer io.Writer, log []Entry, location *time.Location) error {
	bufferedWriter := bufio.NewWriter(writer)
	if writeError := writeQuotedRecord(bufferedWriter, csvHeader); writeError != nil {
		return writeError
	}
	for _, entry := range log {
		if writeError := writeQuotedRecord(bufferedWriter, entry.CSVRecord(location)); writeError != nil {
			return writeError
		}
	}
	return bufferedWriter.Flush()
}

func writeQuotedRecord(writer *bufio.Writer, record []string) error {
	quotedCells := make([]string, len(record))
	for index, cell := range record {
		quotedCells[index] = csvQuoteConstant + strings.ReplaceAll(cell, csvQuoteConstant, csvEscapedQuoteConstant) + csvQuoteConstant
	}
	_, writeError := writer.WriteString(strings.Join(quotedCells, csvDelimiterConstant) + csvLineTerminatorConstant)
	return writeError
}
