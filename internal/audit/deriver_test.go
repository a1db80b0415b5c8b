package audit_test

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/temirov/ksi/internal/audit"
	"github.com/temirov/ksi/internal/catalog"
)

const (
	testCategoryCodeConstant    = "KSI-CNA"
	testItemCodeConstant        = "CNA-01"
	testItemTitleConstant       = "Configure ALL information resources to limit inbound/outbound traffic"
	testActorConstant           = "Compliance Officer"
	testTimestampConstant       = "2025-06-01T12:00:00.000Z"
	testIdentifierConstant      = "fixed-id"
	testChecklistLengthConstant = 5
)

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

func testNow() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newTestDeriver(policy audit.DocumentDiffPolicy) *audit.Deriver {
	return audit.NewDeriver(audit.DeriverDependencies{
		Clock:               fixedClock{now: testNow()},
		ActorProvider:       audit.StaticActor(testActorConstant),
		IdentifierGenerator: func(time.Time) string { return testIdentifierConstant },
		DocumentDiffPolicy:  policy,
	})
}

func baseItem() catalog.Item {
	return catalog.Item{
		ID:             "cna-01",
		Code:           testItemCodeConstant,
		Title:          testItemTitleConstant,
		Checklist:      []string{"a", "b", "c", "d", "e"},
		CompletedItems: make([]bool, testChecklistLengthConstant),
		Status:         catalog.CompletionStatusNotStarted,
	}
}

func document(identifier string, name string) catalog.Document {
	return catalog.Document{ID: identifier, Name: name, Size: 10, Type: "application/pdf", UploadedAt: testTimestampConstant}
}

type entrySummary struct {
	eventType audit.EventType
	field     string
	oldValue  string
	newValue  string
	details   string
}

func summarize(entries []audit.Entry) []entrySummary {
	summaries := make([]entrySummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, entrySummary{
			eventType: entry.EventType,
			field:     entry.Field,
			oldValue:  entry.OldValue,
			newValue:  entry.NewValue,
			details:   entry.Details,
		})
	}
	return summaries
}

func TestDeriverDerive(testInstance *testing.T) {
	testCases := []struct {
		name            string
		policy          audit.DocumentDiffPolicy
		mutate          func(previous catalog.Item) catalog.Item
		prepare         func(previous catalog.Item) catalog.Item
		expectedEntries []entrySummary
	}{
		{
			name:   "no_change",
			mutate: func(previous catalog.Item) catalog.Item { return previous.Clone() },
		},
		{
			name: "status_only",
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Status = catalog.CompletionStatusComplete
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeStatusChanged, field: "Status", oldValue: "not_started", newValue: "complete"},
			},
		},
		{
			name: "evidence_whitespace_is_significant",
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Evidence = " "
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeEvidenceUpdated, field: "Evidence", details: "Evidence text updated"},
			},
		},
		{
			name: "multiple_checklist_toggles_emit_one_event",
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.CompletedItems[0] = true
				next.CompletedItems[3] = true
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeChecklistUpdated, details: "2/5 items completed"},
			},
		},
		{
			name: "appended_documents_in_order",
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = append(next.Documents, document("1-0", "A.pdf"), document("1-1", "B.png"))
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeDocumentAdded, details: "Added: A.pdf"},
				{eventType: audit.EventTypeDocumentAdded, details: "Added: B.png"},
			},
		},
		{
			name:   "appended_documents_in_order_length_policy",
			policy: audit.DocumentDiffLength,
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = append(next.Documents, document("1-0", "A.pdf"), document("1-1", "B.png"))
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeDocumentAdded, details: "Added: A.pdf"},
				{eventType: audit.EventTypeDocumentAdded, details: "Added: B.png"},
			},
		},
		{
			name:   "length_policy_collapses_removals",
			policy: audit.DocumentDiffLength,
			prepare: func(previous catalog.Item) catalog.Item {
				previous.Documents = []catalog.Document{document("1-0", "A.pdf"), document("1-1", "B.png"), document("1-2", "C.txt")}
				return previous
			},
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = next.Documents[:1]
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeDocumentRemoved, details: "Document removed"},
			},
		},
		{
			name: "identity_policy_names_each_removal",
			prepare: func(previous catalog.Item) catalog.Item {
				previous.Documents = []catalog.Document{document("1-0", "A.pdf"), document("1-1", "B.png"), document("1-2", "C.txt")}
				return previous
			},
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = next.Documents[:1]
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeDocumentRemoved, details: "Removed: B.png"},
				{eventType: audit.EventTypeDocumentRemoved, details: "Removed: C.txt"},
			},
		},
		{
			name: "identity_policy_single_removal",
			prepare: func(previous catalog.Item) catalog.Item {
				previous.Documents = []catalog.Document{document("1-0", "A.pdf"), document("1-1", "B.png"), document("1-2", "C.txt")}
				return previous
			},
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = []catalog.Document{next.Documents[0], next.Documents[2]}
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeDocumentRemoved, details: "Removed: B.png"},
			},
		},
		{
			name: "identity_policy_detects_replacement",
			prepare: func(previous catalog.Item) catalog.Item {
				previous.Documents = []catalog.Document{document("1-0", "A.pdf")}
				return previous
			},
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = []catalog.Document{document("2-0", "A-v2.pdf")}
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeDocumentAdded, details: "Added: A-v2.pdf"},
				{eventType: audit.EventTypeDocumentRemoved, details: "Removed: A.pdf"},
			},
		},
		{
			name:   "length_policy_misses_replacement",
			policy: audit.DocumentDiffLength,
			prepare: func(previous catalog.Item) catalog.Item {
				previous.Documents = []catalog.Document{document("1-0", "A.pdf")}
				return previous
			},
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = []catalog.Document{document("2-0", "A-v2.pdf")}
				return next
			},
		},
		{
			name: "combined_changes_follow_precedence",
			prepare: func(previous catalog.Item) catalog.Item {
				previous.Documents = []catalog.Document{document("1-0", "old.pdf")}
				return previous
			},
			mutate: func(previous catalog.Item) catalog.Item {
				next := previous.Clone()
				next.Documents = []catalog.Document{document("2-0", "new.pdf")}
				next.CompletedItems[4] = true
				next.Evidence = "Firewall rules exported"
				next.Status = catalog.CompletionStatusInProgress
				return next
			},
			expectedEntries: []entrySummary{
				{eventType: audit.EventTypeStatusChanged, field: "Status", oldValue: "not_started", newValue: "in_progress"},
				{eventType: audit.EventTypeEvidenceUpdated, field: "Evidence", details: "Evidence text updated"},
				{eventType: audit.EventTypeChecklistUpdated, details: "1/5 items completed"},
				{eventType: audit.EventTypeDocumentAdded, details: "Added: new.pdf"},
				{eventType: audit.EventTypeDocumentRemoved, details: "Removed: old.pdf"},
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			previous := baseItem()
			if testCase.prepare != nil {
				previous = testCase.prepare(previous)
			}
			next := testCase.mutate(previous)

			entries := newTestDeriver(testCase.policy).Derive(&previous, next, testCategoryCodeConstant)
			require.Equal(testInstance, len(testCase.expectedEntries), len(entries))
			if len(testCase.expectedEntries) > 0 {
				require.Equal(testInstance, testCase.expectedEntries, summarize(entries))
			}

			for _, entry := range entries {
				require.Equal(testInstance, testIdentifierConstant, entry.ID)
				require.Equal(testInstance, testTimestampConstant, entry.Timestamp)
				require.Equal(testInstance, testItemCodeConstant, entry.ItemCode)
				require.Equal(testInstance, testItemTitleConstant, entry.ItemTitle)
				require.Equal(testInstance, testCategoryCodeConstant, entry.CategoryCode)
				require.Equal(testInstance, testActorConstant, entry.User)
			}
		})
	}
}

func TestDeriverRequiresPreviousSnapshot(testInstance *testing.T) {
	next := baseItem()
	next.Status = catalog.CompletionStatusComplete
	require.Empty(testInstance, newTestDeriver(audit.DocumentDiffIdentity).Derive(nil, next, testCategoryCodeConstant))
}

func TestDeriverUsesNextItemIdentity(testInstance *testing.T) {
	previous := baseItem()
	next := previous.Clone()
	next.Title = "Renamed title"
	next.Status = catalog.CompletionStatusInProgress

	entries := newTestDeriver(audit.DocumentDiffIdentity).Derive(&previous, next, testCategoryCodeConstant)
	require.Len(testInstance, entries, 1)
	require.Equal(testInstance, "Renamed title", entries[0].ItemTitle)
}

func TestDeriverDefaults(testInstance *testing.T) {
	previous := baseItem()
	next := previous.Clone()
	next.Status = catalog.CompletionStatusInProgress
	next.Evidence = "notes"

	entries := audit.NewDeriver(audit.DeriverDependencies{}).Derive(&previous, next, testCategoryCodeConstant)
	require.Len(testInstance, entries, 2)

	identifierPattern := regexp.MustCompile(`^\d{13}-[0-9a-f]{9}$`)
	for _, entry := range entries {
		require.Equal(testInstance, audit.DefaultActor, entry.User)
		require.Regexp(testInstance, identifierPattern, entry.ID)
		require.False(testInstance, entry.Time().IsZero())
	}
	require.NotEqual(testInstance, entries[0].ID, entries[1].ID)
}

func TestParseDocumentDiffPolicy(testInstance *testing.T) {
	testCases := []struct {
		input          string
		expectedPolicy audit.DocumentDiffPolicy
		expectError    bool
	}{
		{input: "", expectedPolicy: audit.DocumentDiffIdentity},
		{input: "identity", expectedPolicy: audit.DocumentDiffIdentity},
		{input: " LENGTH ", expectedPolicy: audit.DocumentDiffLength},
		{input: "count", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testCase := testCase
		testInstance.Run(fmt.Sprintf("%d_%q", testCaseIndex, testCase.input), func(testInstance *testing.T) {
			policy, parseError := audit.ParseDocumentDiffPolicy(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedPolicy, policy)
		})
	}
}

func TestDeriverProperties(testInstance *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	deriver := newTestDeriver(audit.DocumentDiffIdentity)

	statuses := gen.OneConstOf(
		catalog.CompletionStatusNotStarted,
		catalog.CompletionStatusInProgress,
		catalog.CompletionStatusComplete,
	)

	properties.Property("a status-only difference emits exactly one status_changed entry", prop.ForAll(
		func(previousStatus catalog.CompletionStatus, nextStatus catalog.CompletionStatus) bool {
			previous := baseItem()
			previous.Status = previousStatus
			next := previous.Clone()
			next.Status = nextStatus

			entries := deriver.Derive(&previous, next, testCategoryCodeConstant)
			if previousStatus == nextStatus {
				return len(entries) == 0
			}
			return len(entries) == 1 &&
				entries[0].EventType == audit.EventTypeStatusChanged &&
				entries[0].OldValue == string(previousStatus) &&
				entries[0].NewValue == string(nextStatus)
		},
		statuses,
		statuses,
	))

	properties.Property("a single checklist flip emits one checklist_updated entry counting next", prop.ForAll(
		func(completed []bool, index int) bool {
			previous := baseItem()
			previous.CompletedItems = completed
			next := previous.Clone()
			next.CompletedItems[index] = !next.CompletedItems[index]

			entries := deriver.Derive(&previous, next, testCategoryCodeConstant)
			expectedDetails := fmt.Sprintf("%d/%d items completed", catalog.CountCompleted(next.CompletedItems), testChecklistLengthConstant)
			return len(entries) == 1 &&
				entries[0].EventType == audit.EventTypeChecklistUpdated &&
				entries[0].Details == expectedDetails
		},
		gen.SliceOfN(testChecklistLengthConstant, gen.Bool()),
		gen.IntRange(0, testChecklistLengthConstant-1),
	))

	properties.Property("appending n documents emits n document_added entries under both policies", prop.ForAll(
		func(names []string) bool {
			previous := baseItem()
			next := previous.Clone()
			for index, name := range names {
				next.Documents = append(next.Documents, document(fmt.Sprintf("9-%d", index), name))
			}

			for _, policy := range []audit.DocumentDiffPolicy{audit.DocumentDiffIdentity, audit.DocumentDiffLength} {
				entries := newTestDeriver(policy).Derive(&previous, next, testCategoryCodeConstant)
				if len(entries) != len(names) {
					return false
				}
				for index, entry := range entries {
					if entry.EventType != audit.EventTypeDocumentAdded || entry.Details != "Added: "+names[index] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(testInstance)
}
