package audit

import (
	"sort"
	"strings"
)

// FilterAllConstant matches every value of a filter predicate.
const FilterAllConstant = "all"

// Filter selects log entries for display. Empty or "all" predicates match every entry.
type Filter struct {
	EventType    string
	CategoryCode string
}

// Prepend returns a new log with entries placed before every existing entry.
// entries keep their relative order.
func Prepend(log []Entry, entries ...Entry) []Entry {
	if len(entries) == 0 {
		return log
	}
	combined := make([]Entry, 0, len(entries)+len(log))
	combined = append(combined, entries...)
	return append(combined, log...)
}

// Apply returns the entries of log matching the filter in log order.
// log is not modified.
func (filter Filter) Apply(log []Entry) []Entry {
	matched := make([]Entry, 0, len(log))
	for _, entry := range log {
		if filter.Matches(entry) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// Matches reports whether entry satisfies both predicates.
func (filter Filter) Matches(entry Entry) bool {
	return predicateMatches(filter.EventType, string(entry.EventType)) &&
		predicateMatches(filter.CategoryCode, entry.CategoryCode)
}

func isAllPredicate(value string) bool {
	trimmed := strings.TrimSpace(value)
	return len(trimmed) == 0 || strings.EqualFold(trimmed, FilterAllConstant)
}

func predicateMatches(predicate string, value string) bool {
	if isAllPredicate(predicate) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(predicate), value)
}

// CategoryCodes returns the distinct category codes present in log, sorted.
func CategoryCodes(log []Entry) []string {
	seen := make(map[string]struct{}, len(log))
	codes := make([]string, 0)
	for _, entry := range log {
		if _, duplicate := seen[entry.CategoryCode]; duplicate {
			continue
		}
		seen[entry.CategoryCode] = struct{}{}
		codes = append(codes, entry.CategoryCode)
	}
	sort.Strings(codes)
	return codes
}
