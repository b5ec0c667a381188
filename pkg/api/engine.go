package api

import "context"

// StartClaimRequest opens a new claim session.
type StartClaimRequest struct {
	// ClaimID is required and identifies the order the claim is against.
	ClaimID string

	// EvidenceRefs must contain at least one artifact locator.
	EvidenceRefs []string

	// ThreadID optionally names the session. When empty the engine
	// generates a unique one.
	ThreadID string
}

// ClaimListOptions controls how sessions are listed. Zero values mean
// "no filter" for that field.
type ClaimListOptions struct {
	// Paused, if non-nil, limits results to paused (true) or
	// non-paused (false) sessions.
	Paused *bool

	// Done, if non-nil, limits results to completed (true) or
	// in-flight (false) sessions.
	Done *bool
}

// Engine drives claim sessions through the workflow graph.
//
// One Run/Resume invocation executes its node sequence synchronously to
// completion or to the human review pause boundary. At most one call
// may be in flight per thread ID; concurrent calls on the same thread
// are rejected with ErrConcurrentAccess.
type Engine interface {
	// StartClaim validates the request, creates a session, and runs the
	// workflow until it completes or pauses before human review.
	StartClaim(ctx context.Context, req StartClaimRequest) (ClaimStatus, error)

	// GetStatus returns the current snapshot of a session. It never
	// mutates state; repeated calls return identical snapshots.
	GetStatus(ctx context.Context, threadID string) (ClaimStatus, error)

	// ListClaims returns session snapshots matching the given options.
	ListClaims(ctx context.Context, opts ClaimListOptions) ([]ClaimStatus, error)

	// ApplyPatch merges an externally supplied partial state update into
	// a paused session's checkpoint. Only valid while the session is
	// paused at human review.
	ApplyPatch(ctx context.Context, threadID string, patch StatePatch) (ClaimStatus, error)

	// Resume continues an unfinished session. For a session paused at
	// human review the gate is stepped over, the review node runs, then
	// settlement. After a node failure it retries from the last
	// persisted checkpoint. Finished sessions are rejected with
	// ErrInvalidResumeState.
	Resume(ctx context.Context, threadID string) (ClaimStatus, error)

	// Approve marks the claim "Manager Approved" and resumes it.
	Approve(ctx context.Context, threadID string) (ClaimStatus, error)

	// Reject marks the claim "Rejected" and resumes it. The remaining
	// nodes still run; settlement is a no-op for rejected claims.
	Reject(ctx context.Context, threadID string) (ClaimStatus, error)
}

// HistoryReader is implemented by engines whose checkpoint store also
// records an append-only event history.
type HistoryReader interface {
	// ListEvents returns all events for a session in chronological order.
	ListEvents(ctx context.Context, threadID string) ([]ClaimEvent, error)
}
