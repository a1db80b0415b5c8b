package audit

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	justNowLabelConstant          = "Just now"
	minutesAgoTemplateConstant    = "%d minute%s ago"
	hoursAgoTemplateConstant      = "%d hour%s ago"
	displayDateLayoutConstant     = "1/2/2006"
	displayTimeLayoutConstant     = "3:04:05 PM"
	emptyLogMessageConstant       = "No audit log entries found"
	logSummaryTemplateConstant    = "Audit Log (%d entries)\n"
	lastChangeTemplateConstant    = "Last change: %s\n"
	entryHeadlineTemplateConstant = "%s\t%s / %s\t%s\t%s\n"
	entryFieldTemplateConstant    = "\t%s: %s\n"
	entryDetailsTemplateConstant  = "\t%s\n"
	fieldChangeTemplateConstant   = "%s → %s"
	minutesPerHourConstant        = 60
	minutesPerDayConstant         = 1440
)

// DisplayLabel renders the event type as a title, e.g. "Status Changed".
func (eventType EventType) DisplayLabel() string {
	return cases.Title(language.English).String(eventType.Label())
}

// RelativeTime renders timestamp relative to now: "Just now", minutes or hours ago
// within a day, otherwise the date in location.
func RelativeTime(timestamp time.Time, now time.Time, location *time.Location) string {
	elapsedMinutes := int(now.Sub(timestamp) / time.Minute)
	switch {
	case elapsedMinutes < 1:
		return justNowLabelConstant
	case elapsedMinutes < minutesPerHourConstant:
		return fmt.Sprintf(minutesAgoTemplateConstant, elapsedMinutes, pluralSuffix(elapsedMinutes))
	case elapsedMinutes < minutesPerDayConstant:
		hours := elapsedMinutes / minutesPerHourConstant
		return fmt.Sprintf(hoursAgoTemplateConstant, hours, pluralSuffix(hours))
	default:
		if location == nil {
			location = time.Local
		}
		return timestamp.In(location).Format(displayDateLayoutConstant)
	}
}

func pluralSuffix(count int) string {
	if count > 1 {
		return "s"
	}
	return ""
}

// WriteEntries renders entries for a terminal. totalEntries is the unfiltered log size.
func WriteEntries(writer io.Writer, entries []Entry, totalEntries int, now time.Time, location *time.Location) error {
	if location == nil {
		location = time.Local
	}

	if _, writeError := fmt.Fprintf(writer, logSummaryTemplateConstant, totalEntries); writeError != nil {
		return writeError
	}
	if len(entries) == 0 {
		_, writeError := fmt.Fprintln(writer, emptyLogMessageConstant)
		return writeError
	}
	if _, writeError := fmt.Fprintf(writer, lastChangeTemplateConstant, RelativeTime(entries[0].Time(), now, location)); writeError != nil {
		return writeError
	}

	tableWriter := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		entryTime := entry.Time()
		fmt.Fprintf(tableWriter, entryHeadlineTemplateConstant,
			entry.EventType.DisplayLabel(),
			entry.CategoryCode,
			entry.ItemCode,
			RelativeTime(entryTime, now, location),
			entryTime.In(location).Format(displayTimeLayoutConstant),
		)
		fmt.Fprintf(tableWriter, entryDetailsTemplateConstant, entry.ItemTitle)
		if len(entry.Field) > 0 {
			fmt.Fprintf(tableWriter, entryFieldTemplateConstant, entry.Field, describeFieldChange(entry))
		}
		if len(entry.Details) > 0 {
			fmt.Fprintf(tableWriter, entryDetailsTemplateConstant, entry.Details)
		}
	}
	return tableWriter.Flush()
}

func describeFieldChange(entry Entry) string {
	switch {
	case len(entry.OldValue) > 0 && len(entry.NewValue) > 0:
		return fmt.Sprintf(fieldChangeTemplateConstant, entry.OldValue, entry.NewValue)
	default:
		return strings.TrimSpace(entry.OldValue + entry.NewValue)
	}
}
