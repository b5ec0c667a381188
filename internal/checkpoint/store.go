package checkpoint

import (
	"context"
	"errors"

	"github.com/tvahtera/claimflow/pkg/api"
)

// ErrCheckpointNotFound is returned when no checkpoint exists for a
// thread ID.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Store persists the latest checkpoint per claim session.
//
// The resumability contract: a Load immediately following a Save for
// the same thread ID returns a field-for-field identical checkpoint.
// Writes are all-or-nothing; a failed Save must not leave a partial
// checkpoint behind.
type Store interface {
	// Save persists cp keyed by cp.ThreadID, replacing any prior
	// checkpoint for the same thread.
	Save(ctx context.Context, cp api.Checkpoint) error

	// Load returns the checkpoint for threadID, or ErrCheckpointNotFound.
	Load(ctx context.Context, threadID string) (api.Checkpoint, error)

	// Clear removes the checkpoint for threadID. It is idempotent.
	Clear(ctx context.Context, threadID string) error

	// List returns all checkpoints, ordered by thread ID.
	List(ctx context.Context) ([]api.Checkpoint, error)
}

// EventLog is an optional append-only history kept alongside the
// checkpoints. Stores that do not support it simply don't implement
// the interface.
type EventLog interface {
	AppendEvent(ctx context.Context, ev api.ClaimEvent) error
	ListEvents(ctx context.Context, threadID string) ([]api.ClaimEvent, error)
}
