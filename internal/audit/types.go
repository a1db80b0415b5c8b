package audit

import (
	"fmt"
	"strings"
	"time"
)

const (
	eventTypeStatusChangedConstant       = "status_changed"
	eventTypeChecklistUpdatedConstant    = "checklist_updated"
	eventTypeEvidenceUpdatedConstant     = "evidence_updated"
	eventTypeDocumentAddedConstant       = "document_added"
	eventTypeDocumentRemovedConstant     = "document_removed"
	unsupportedEventTypeTemplateConstant = "unsupported event type %q"
)

// DefaultActor is recorded when no actor is configured.
const DefaultActor = "Current User"

// EventType tags the kind of change an Entry records.
type EventType string

// Supported event types.
const (
	EventTypeStatusChanged    EventType = EventType(eventTypeStatusChangedConstant)
	EventTypeChecklistUpdated EventType = EventType(eventTypeChecklistUpdatedConstant)
	EventTypeEvidenceUpdated  EventType = EventType(eventTypeEvidenceUpdatedConstant)
	EventTypeDocumentAdded    EventType = EventType(eventTypeDocumentAddedConstant)
	EventTypeDocumentRemoved  EventType = EventType(eventTypeDocumentRemovedConstant)
)

// EventTypes lists every event type in derivation order.
var EventTypes = []EventType{
	EventTypeStatusChanged,
	EventTypeEvidenceUpdated,
	EventTypeChecklistUpdated,
	EventTypeDocumentAdded,
	EventTypeDocumentRemoved,
}

// ParseEventType converts user input into a supported EventType.
func ParseEventType(rawValue string) (EventType, error) {
	normalized := EventType(strings.ToLower(strings.TrimSpace(rawValue)))
	for _, eventType := range EventTypes {
		if eventType == normalized {
			return eventType, nil
		}
	}
	return "", fmt.Errorf(unsupportedEventTypeTemplateConstant, rawValue)
}

// Label renders the event type for display, e.g. "status changed".
func (eventType EventType) Label() string {
	return strings.ReplaceAll(string(eventType), "_", " ")
}

// Entry is one immutable audit record. Field names match the persisted JSON form.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    string    `json:"timestamp"`
	EventType    EventType `json:"eventType"`
	ItemCode     string    `json:"itemCode"`
	ItemTitle    string    `json:"itemTitle"`
	CategoryCode string    `json:"categoryCode"`
	Field        string    `json:"field,omitempty"`
	OldValue     string    `json:"oldValue,omitempty"`
	NewValue     string    `json:"newValue,omitempty"`
	Details      string    `json:"details,omitempty"`
	User         string    `json:"user,omitempty"`
}

// Time parses the entry timestamp. Unparseable timestamps yield the zero time.
func (entry Entry) Time() time.Time {
	parsed, parseError := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if parseError != nil {
		return time.Time{}
	}
	return parsed
}

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ActorProvider names the actor recorded on each derived entry.
type ActorProvider interface {
	Actor() string
}

// StaticActor is an ActorProvider returning a fixed name.
type StaticActor string

// Actor returns the configured name or DefaultActor when blank.
func (actor StaticActor) Actor() string {
	trimmed := strings.TrimSpace(string(actor))
	if len(trimmed) == 0 {
		return DefaultActor
	}
	return trimmed
}

// ConfirmationPrompter prompts users for confirmation before destructive operations.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}
