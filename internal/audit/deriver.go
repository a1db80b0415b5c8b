package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/temirov/ksi/internal/catalog"
)

const (
	statusFieldLabelConstant         = "Status"
	evidenceFieldLabelConstant       = "Evidence"
	evidenceUpdatedDetailsConstant   = "Evidence text updated"
	checklistDetailsTemplateConstant = "%d/%d items completed"
	documentAddedTemplateConstant    = "Added: %s"
	documentRemovedTemplateConstant  = "Removed: %s"
	documentRemovedDetailsConstant   = "Document removed"
	entryIdentifierTemplateConstant  = "%d-%s"
	entryIdentifierSuffixLength      = 9
	entryTimestampLayoutConstant     = "2006-01-02T15:04:05.000Z07:00"
	unsupportedDiffTemplateConstant  = "unsupported document diff policy %q (expected identity or length)"
)

// DocumentDiffPolicy selects how document list changes are turned into events.
// DocumentDiffIdentity compares document identifiers and names every added or removed
// document. DocumentDiffLength compares list lengths and collapses any shrink into a
// single removal event.
type DocumentDiffPolicy string

// Supported document diff policies.
const (
	DocumentDiffIdentity DocumentDiffPolicy = "identity"
	DocumentDiffLength   DocumentDiffPolicy = "length"
)

// ParseDocumentDiffPolicy converts configuration input into a DocumentDiffPolicy.
func ParseDocumentDiffPolicy(rawValue string) (DocumentDiffPolicy, error) {
	switch policy := DocumentDiffPolicy(strings.ToLower(strings.TrimSpace(rawValue))); policy {
	case DocumentDiffIdentity, DocumentDiffLength:
		return policy, nil
	case "":
		return DocumentDiffIdentity, nil
	default:
		return "", fmt.Errorf(unsupportedDiffTemplateConstant, rawValue)
	}
}

// IdentifierGenerator produces a unique entry identifier for the provided time.
type IdentifierGenerator func(timestamp time.Time) string

// DeriverDependencies describes the collaborators used by Deriver. Zero values fall back to defaults.
type DeriverDependencies struct {
	Clock               Clock
	ActorProvider       ActorProvider
	IdentifierGenerator IdentifierGenerator
	DocumentDiffPolicy  DocumentDiffPolicy
}

// Deriver compares item snapshots and emits audit entries.
type Deriver struct {
	clock               Clock
	actorProvider       ActorProvider
	identifierGenerator IdentifierGenerator
	documentDiffPolicy  DocumentDiffPolicy
}

// NewDeriver constructs a Deriver from the provided dependencies.
func NewDeriver(dependencies DeriverDependencies) *Deriver {
	deriver := &Deriver{
		clock:               dependencies.Clock,
		actorProvider:       dependencies.ActorProvider,
		identifierGenerator: dependencies.IdentifierGenerator,
		documentDiffPolicy:  dependencies.DocumentDiffPolicy,
	}
	if deriver.clock == nil {
		deriver.clock = SystemClock{}
	}
	if deriver.actorProvider == nil {
		deriver.actorProvider = StaticActor(DefaultActor)
	}
	if deriver.identifierGenerator == nil {
		deriver.identifierGenerator = NewEntryIdentifier
	}
	if deriver.documentDiffPolicy != DocumentDiffLength {
		deriver.documentDiffPolicy = DocumentDiffIdentity
	}
	return deriver
}

// NewEntryIdentifier returns "<unix-millis>-<random suffix>".
func NewEntryIdentifier(timestamp time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:entryIdentifierSuffixLength]
	return fmt.Sprintf(entryIdentifierTemplateConstant, timestamp.UnixMilli(), suffix)
}

// Derive returns the entries describing the change from previous to next, in the order
// status, evidence, checklist, added documents, removed documents. A nil previous
// snapshot yields no entries.
func (deriver *Deriver) Derive(previous *catalog.Item, next catalog.Item, categoryCode string) []Entry {
	if previous == nil {
		return nil
	}

	builder := entryBuilder{
		now:          deriver.clock.Now(),
		actor:        deriver.actorProvider.Actor(),
		next:         next,
		categoryCode: categoryCode,
		identifiers:  deriver.identifierGenerator,
	}

	if previous.Status != next.Status {
		builder.add(Entry{
			EventType: EventTypeStatusChanged,
			Field:     statusFieldLabelConstant,
			OldValue:  string(previous.Status),
			NewValue:  string(next.Status),
		})
	}

	if previous.Evidence != next.Evidence {
		builder.add(Entry{
			EventType: EventTypeEvidenceUpdated,
			Field:     evidenceFieldLabelConstant,
			Details:   evidenceUpdatedDetailsConstant,
		})
	}

	if checklistChanged(previous.CompletedItems, next.CompletedItems) {
		builder.add(Entry{
			EventType: EventTypeChecklistUpdated,
			Details:   fmt.Sprintf(checklistDetailsTemplateConstant, catalog.CountCompleted(next.CompletedItems), len(next.CompletedItems)),
		})
	}

	switch deriver.documentDiffPolicy {
	case DocumentDiffLength:
		deriveDocumentsByLength(&builder, previous.Documents, next.Documents)
	default:
		deriveDocumentsByIdentity(&builder, previous.Documents, next.Documents)
	}

	return builder.entries
}

func checklistChanged(previous []bool, next []bool) bool {
	if len(previous) != len(next) {
		return true
	}
	for index := range previous {
		if previous[index] != next[index] {
			return true
		}
	}
	return false
}

// deriveDocumentsByLength assumes documents are only appended.
func deriveDocumentsByLength(builder *entryBuilder, previous []catalog.Document, next []catalog.Document) {
	previousCount := len(previous)
	nextCount := len(next)

	if nextCount > previousCount {
		for _, document := range next[previousCount:] {
			builder.add(Entry{
				EventType: EventTypeDocumentAdded,
				Details:   fmt.Sprintf(documentAddedTemplateConstant, document.Name),
			})
		}
	}

	if nextCount < previousCount {
		builder.add(Entry{
			EventType: EventTypeDocumentRemoved,
			Details:   documentRemovedDetailsConstant,
		})
	}
}

func deriveDocumentsByIdentity(builder *entryBuilder, previous []catalog.Document, next []catalog.Document) {
	previousIdentifiers := documentIdentifiers(previous)
	nextIdentifiers := documentIdentifiers(next)

	for _, document := range next {
		if _, existed := previousIdentifiers[document.ID]; existed {
			continue
		}
		builder.add(Entry{
			EventType: EventTypeDocumentAdded,
			Details:   fmt.Sprintf(documentAddedTemplateConstant, document.Name),
		})
	}

	for _, document := range previous {
		if _, retained := nextIdentifiers[document.ID]; retained {
			continue
		}
		builder.add(Entry{
			EventType: EventTypeDocumentRemoved,
			Details:   fmt.Sprintf(documentRemovedTemplateConstant, document.Name),
		})
	}
}

func documentIdentifiers(documents []catalog.Document) map[string]struct{} {
	identifiers := make(map[string]struct{}, len(documents))
	for _, document := range documents {
		identifiers[document.ID] = struct{}{}
	}
	return identifiers
}

type entryBuilder struct {
	now          time.Time
	actor        string
	next         catalog.Item
	categoryCode string
	identifiers  IdentifierGenerator
	entries      []Entry
}

func (builder *entryBuilder) add(entry Entry) {
	entry.ID = builder.identifiers(builder.now)
	entry.Timestamp = builder.now.UTC().Format(entryTimestampLayoutConstant)
	entry.ItemCode = builder.next.Code
	entry.ItemTitle = builder.next.Title
	entry.CategoryCode = builder.categoryCode
	entry.User = builder.actor
	builder.entries = append(builder.entries, entry)
}
