package api

import "time"

// EventType identifies a claim history event.
type EventType string

const (
	EventClaimStarted   EventType = "claim.started"
	EventClaimPaused    EventType = "claim.paused"
	EventClaimResumed   EventType = "claim.resumed"
	EventClaimCompleted EventType = "claim.completed"
	EventClaimFailed    EventType = "claim.failed"

	EventPatchApplied EventType = "patch.applied"

	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
)

// ClaimEvent is a minimal append-only history record for audit and
// debugging. Keep Detail low-volume: no state dumps.
type ClaimEvent struct {
	ThreadID string
	At       time.Time
	Type     EventType

	// Optional context.
	Node   Node
	Detail string
}
