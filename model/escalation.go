package model

// EscalationStatus is the lifecycle state of an escalations row.
type EscalationStatus int

const (
	EscalationActive EscalationStatus = iota
)

// Escalation mirrors one row of the escalations table (spec.md §3).
// Invariant: at any time, for a given (ActionID, EventID) there is at most
// one ACTIVE row; a problem's recovery stamps RecoveryEventID on every row
// sharing its EventID, across all actions, in one update.
type Escalation struct {
	EscalationID    uint64
	ActionID        uint64
	Status          EscalationStatus
	TriggerID       uint64 // zero unless the originating event's object was ObjectTrigger
	ItemID          uint64 // zero unless the originating event's object was ObjectItem/ObjectLLDRule
	EventID         uint64 // the originating problem event
	RecoveryEventID uint64 // zero until the problem recovers
}
