// Package model defines the data model shared by every component in this
// module (spec.md §3): events, conditions, actions, operations,
// escalations, and tasks.
package model

// EventSource identifies which subsystem produced an event.
type EventSource int

const (
	EventSourceTriggers EventSource = iota
	EventSourceDiscovery
	EventSourceAutoRegistration
	EventSourceInternal
)

// EventObject identifies the kind of object that produced an event.
type EventObject int

const (
	ObjectTrigger EventObject = iota
	ObjectItem
	ObjectLLDRule
	ObjectDHost
	ObjectDService
	ObjectAutoregHost
)

// Event flag bits (spec.md §3).
const (
	FlagCreate   uint32 = 1 << 0
	FlagNoAction uint32 = 1 << 1
)

// Value codes relevant to recovery detection (§4.5) and EVENT_TYPE
// internal conditions (§4.1).
const (
	TriggerValueOK int = 0

	TriggerStateNormal    int = 0
	TriggerStateUnknown   int = 1
	ItemStateNormal       int = 0
	ItemStateNotSupported int = 1
)

// EventType is the EVENT_TYPE internal-source condition's value-level
// classifier (spec.md §4.1 "EVENT_TYPE is a value-level classifier"):
// it names a (object, value) combination rather than a raw value, so the
// condition's Value string holds one of these rather than a raw event
// value.
type EventType int

const (
	EventTypeItemNotSupported EventType = iota
	EventTypeItemNormal
	EventTypeLLDRuleNotSupported
	EventTypeLLDRuleNormal
	EventTypeTriggerInUnknown
	EventTypeTriggerNormal
)

// Tag is one (name, value) pair attached to an event. Order is not
// semantically significant for matching; duplicates are allowed.
type Tag struct {
	Tag   string
	Value string
}

// Trigger carries the subset of trigger data TRIGGER-source condition
// checks need, nested onto the owning Event.
type Trigger struct {
	TriggerID   uint64
	Description string // may contain macros, see TRIGGER_NAME (§4.1)
	Priority    int    // severity 0..5
}

// Event is the immutable input unit this module consumes.
type Event struct {
	EventID  uint64
	Source   EventSource
	Object   EventObject
	ObjectID uint64
	Value    int
	Clock    int64
	Flags    uint32
	Tags     []Tag

	// Trigger is non-nil only for trigger-sourced events (Source ==
	// EventSourceTriggers) or internal events whose Object == ObjectTrigger.
	Trigger *Trigger
}

// HasFlag reports whether flag is set on the event.
func (e *Event) HasFlag(flag uint32) bool { return e.Flags&flag != 0 }

// IsRecoveryEvent implements spec.md §4.5's is_recovery_event: true iff
// the event represents a transition back to OK/normal state. Recovery
// events never create escalations, though they may close existing ones
// through the closed_events input (spec.md §4.4 step 3).
func (e *Event) IsRecoveryEvent() bool {
	switch {
	case e.Source == EventSourceTriggers && e.Object == ObjectTrigger && e.Value == TriggerValueOK:
		return true
	case e.Source == EventSourceInternal && e.Object == ObjectTrigger && e.Value == TriggerStateNormal:
		return true
	case e.Source == EventSourceInternal && e.Object == ObjectItem && e.Value == ItemStateNormal:
		return true
	case e.Source == EventSourceInternal && e.Object == ObjectLLDRule && e.Value == ItemStateNormal:
		return true
	default:
		return false
	}
}

// ClosedEventPair is one (problem, recovery) eventid pair from the
// closed_events input (spec.md §3); the slice of these must stay sorted
// by ProblemEventID ascending, since the escalation bookkeeper binary
// searches it.
type ClosedEventPair struct {
	ProblemEventID  uint64
	RecoveryEventID uint64
}
