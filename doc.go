// Package claimflow provides a durable, resumable workflow engine for
// logistics damage claims.
//
// A claim moves through a fixed graph of nodes operating over a shared
// state record: evidence inspection, order directory lookup, policy
// evaluation, an optional human review gate, and settlement. The engine
// persists a checkpoint at every step boundary and can stop
// deterministically one step before the human review node, hand control
// back to the caller, accept an externally supplied state patch, and
// resume exactly where it stopped — without re-running completed nodes.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Engine
//  2. ClaimState and StatePatch
//  3. Checkpoint
//  4. Capabilities (DamageInspector, OrderDirectory, Settler)
//
// # Engine
//
// The Engine owns the workflow topology and the session lifecycle. It
// provides APIs to:
//   - start a claim and run it to completion or to the pause boundary
//   - read a session snapshot
//   - apply a manager decision (approve/reject) and resume
//   - read a session's event history
//
// Engines can be backed by different checkpoint stores:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//   - MongoDB
//
// One StartClaim or Resume call executes synchronously; sessions with
// distinct thread IDs are independent, and concurrent calls on the same
// thread ID are rejected rather than interleaved.
//
// # ClaimState and StatePatch
//
// ClaimState is the single record threaded through the graph. Nodes
// never mutate it; they return a StatePatch that the engine merges into
// a fresh copy. Every field replaces on merge except the conversation
// log, which is append-only. Refund status transitions are monotonic:
// a decision never moves backwards.
//
// # Checkpoint
//
// A Checkpoint is the persisted unit per session: the latest state
// snapshot plus the set of pending node names. A load immediately after
// a save returns a field-for-field identical checkpoint; this is the
// contract the pause/resume flow depends on.
//
// # Capabilities
//
// The vision model that judges damage, the datastore that resolves
// orders, and the payment capability that commits refunds are external
// collaborators, passed to the engine as constructor dependencies. The
// package ships a deterministic simulated inspector and SQLite or
// in-memory order directories for development and tests.
//
// Example:
//
//	eng := claimflow.NewInMemoryEngine(
//	    claimflow.NewSimulatedInspector(),
//	    claimflow.NewDemoDirectory(),
//	)
//
//	st, err := claimflow.StartClaim(ctx, eng, "ORD-123", []string{"broken_screen.jpg"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if st.Paused {
//	    st, err = claimflow.Approve(ctx, eng, st.ThreadID)
//	}
//
// For runnable programs, see the /examples directory.
package claimflow
