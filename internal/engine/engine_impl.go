package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tvahtera/claimflow/internal/checkpoint"
	"github.com/tvahtera/claimflow/internal/inspector"
	"github.com/tvahtera/claimflow/pkg/api"
)

// DefaultCallTimeout bounds each delegated external call (evidence
// inspection, directory lookup, settlement).
const DefaultCallTimeout = 30 * time.Second

// engineImpl is a synchronous, in-process engine implementation. One
// StartClaim/Resume call executes its node sequence to completion or to
// the human review pause boundary; the checkpoint store is the only
// state that outlives the call.
type engineImpl struct {
	store  checkpoint.Store
	events checkpoint.EventLog // optional

	inspector api.DamageInspector
	directory api.OrderDirectory
	settler   api.Settler
	observer  api.Observer

	reviewThreshold float64
	callTimeout     time.Duration

	// inflight serializes calls per thread ID: at most one
	// StartClaim/Resume/ApplyPatch may touch a thread at a time.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// Config describes how to construct an engine. Store, Inspector and
// Directory are required; everything else has working defaults.
type Config struct {
	Store  checkpoint.Store
	Events checkpoint.EventLog

	Inspector api.DamageInspector
	Directory api.OrderDirectory
	Settler   api.Settler
	Observer  api.Observer

	// ManualReviewThreshold overrides api.DefaultManualReviewThreshold
	// when > 0.
	ManualReviewThreshold float64

	// CallTimeout overrides DefaultCallTimeout when > 0.
	CallTimeout time.Duration
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}

	insp := cfg.Inspector
	if insp == nil {
		insp = inspector.Simulated{}
	}

	settler := cfg.Settler
	if settler == nil {
		settler = api.SettlerFunc(func(ctx context.Context, state api.ClaimState) error {
			return nil
		})
	}

	threshold := cfg.ManualReviewThreshold
	if threshold <= 0 {
		threshold = api.DefaultManualReviewThreshold
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &engineImpl{
		store:           cfg.Store,
		events:          cfg.Events,
		inspector:       insp,
		directory:       cfg.Directory,
		settler:         settler,
		observer:        obs,
		reviewThreshold: threshold,
		callTimeout:     timeout,
		inflight:        make(map[string]struct{}),
	}
}

// NewInMemoryEngine returns an Engine backed entirely by an in-memory
// checkpoint store.
func NewInMemoryEngine(insp api.DamageInspector, dir api.OrderDirectory) api.Engine {
	return NewInMemoryEngineWithObserver(insp, dir, nil)
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the
// given Observer.
func NewInMemoryEngineWithObserver(insp api.DamageInspector, dir api.OrderDirectory, obs api.Observer) api.Engine {
	mem := checkpoint.NewInMemoryStore()
	return NewEngineWithConfig(Config{
		Store:     mem,
		Events:    mem,
		Inspector: insp,
		Directory: dir,
		Observer:  obs,
	})
}

// NewSQLiteEngine returns an Engine that persists checkpoints and event
// history in a SQLite database.
func NewSQLiteEngine(db *sql.DB, insp api.DamageInspector, dir api.OrderDirectory) (api.Engine, error) {
	return NewSQLiteEngineWithObserver(db, insp, dir, nil)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the
// given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, insp api.DamageInspector, dir api.OrderDirectory, obs api.Observer) (api.Engine, error) {
	store, err := checkpoint.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	events, err := checkpoint.NewSQLiteEventLog(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{
		Store:     store,
		Events:    events,
		Inspector: insp,
		Directory: dir,
		Observer:  obs,
	}), nil
}

// NewPostgresEngine returns an Engine that persists checkpoints in
// PostgreSQL.
func NewPostgresEngine(db *sql.DB, insp api.DamageInspector, dir api.OrderDirectory) (api.Engine, error) {
	store, err := checkpoint.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngineWithConfig(Config{
		Store:     store,
		Inspector: insp,
		Directory: dir,
	}), nil
}

// NewRedisEngine returns an Engine that persists checkpoints in Redis.
func NewRedisEngine(client *redis.Client, insp api.DamageInspector, dir api.OrderDirectory) api.Engine {
	return NewEngineWithConfig(Config{
		Store:     checkpoint.NewRedisStore(client, "claimflow:"),
		Inspector: insp,
		Directory: dir,
	})
}

// NewMongoEngine returns an Engine that persists checkpoints in MongoDB.
func NewMongoEngine(client *mongo.Client, insp api.DamageInspector, dir api.OrderDirectory) api.Engine {
	return NewEngineWithConfig(Config{
		Store:     checkpoint.NewMongoStore(client, "", ""),
		Inspector: insp,
		Directory: dir,
	})
}

var _ api.Engine = (*engineImpl)(nil)

var _ api.HistoryReader = (*engineImpl)(nil)

func (e *engineImpl) acquire(threadID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.inflight[threadID]; busy {
		return fmt.Errorf("%w: %s", api.ErrConcurrentAccess, threadID)
	}
	e.inflight[threadID] = struct{}{}
	return nil
}

func (e *engineImpl) release(threadID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, threadID)
}

func (e *engineImpl) StartClaim(ctx context.Context, req api.StartClaimRequest) (api.ClaimStatus, error) {
	if req.ClaimID == "" {
		return api.ClaimStatus{}, &api.ValidationError{Field: "claim_id", Reason: "is required"}
	}
	if len(req.EvidenceRefs) == 0 {
		return api.ClaimStatus{}, &api.ValidationError{Field: "evidence_refs", Reason: "must not be empty"}
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	if err := e.acquire(threadID); err != nil {
		return api.ClaimStatus{}, err
	}
	defer e.release(threadID)

	// A thread ID names exactly one claim lifecycle.
	if _, err := e.store.Load(ctx, threadID); err == nil {
		return api.ClaimStatus{}, &api.ValidationError{Field: "thread_id", Reason: "is already in use"}
	} else if !errors.Is(err, checkpoint.ErrCheckpointNotFound) {
		return api.ClaimStatus{}, api.NewInfrastructureError("load checkpoint", err)
	}

	state := api.ClaimState{
		ClaimID:      req.ClaimID,
		EvidenceRefs: append([]string(nil), req.EvidenceRefs...),
		RefundStatus: api.RefundPending,
		Conversation: []api.Message{
			api.Note("system", "claim opened for "+req.ClaimID),
		},
	}

	cp := api.Checkpoint{
		ThreadID:     threadID,
		State:        state,
		PendingNodes: []api.Node{api.NodeInspectEvidence},
		UpdatedAt:    time.Now().UTC(),
	}

	if err := e.store.Save(ctx, cp); err != nil {
		return api.ClaimStatus{}, api.NewInfrastructureError("save checkpoint", err)
	}

	e.observer.OnClaimStart(ctx, threadID, state)
	e.recordEvent(ctx, api.ClaimEvent{
		ThreadID: threadID,
		Type:     api.EventClaimStarted,
		Detail:   req.ClaimID,
	})

	return e.runLoop(ctx, cp, false)
}

func (e *engineImpl) GetStatus(ctx context.Context, threadID string) (api.ClaimStatus, error) {
	cp, err := e.store.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrCheckpointNotFound) {
			return api.ClaimStatus{}, fmt.Errorf("%w: %s", api.ErrSessionNotFound, threadID)
		}
		return api.ClaimStatus{}, api.NewInfrastructureError("load checkpoint", err)
	}
	return statusFromCheckpoint(cp), nil
}

func (e *engineImpl) ListClaims(ctx context.Context, opts api.ClaimListOptions) ([]api.ClaimStatus, error) {
	cps, err := e.store.List(ctx)
	if err != nil {
		return nil, api.NewInfrastructureError("list checkpoints", err)
	}

	var out []api.ClaimStatus
	for _, cp := range cps {
		st := statusFromCheckpoint(cp)
		if opts.Paused != nil && st.Paused != *opts.Paused {
			continue
		}
		if opts.Done != nil && st.Done != *opts.Done {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (e *engineImpl) ApplyPatch(ctx context.Context, threadID string, patch api.StatePatch) (api.ClaimStatus, error) {
	if err := e.acquire(threadID); err != nil {
		return api.ClaimStatus{}, err
	}
	defer e.release(threadID)

	cp, err := e.loadForUpdate(ctx, threadID)
	if err != nil {
		return api.ClaimStatus{}, err
	}

	cp, err = e.applyPatchLocked(ctx, cp, patch)
	if err != nil {
		return api.ClaimStatus{}, err
	}
	return statusFromCheckpoint(cp), nil
}

func (e *engineImpl) Resume(ctx context.Context, threadID string) (api.ClaimStatus, error) {
	if err := e.acquire(threadID); err != nil {
		return api.ClaimStatus{}, err
	}
	defer e.release(threadID)

	cp, err := e.loadForUpdate(ctx, threadID)
	if err != nil {
		return api.ClaimStatus{}, err
	}
	return e.resumeLocked(ctx, cp)
}

func (e *engineImpl) Approve(ctx context.Context, threadID string) (api.ClaimStatus, error) {
	return e.decide(ctx, threadID, api.RefundManagerApproved)
}

func (e *engineImpl) Reject(ctx context.Context, threadID string) (api.ClaimStatus, error) {
	return e.decide(ctx, threadID, api.RefundRejected)
}

// decide applies the manager's decision and resumes in one serialized
// call, so no other caller can slip in between patch and resume.
func (e *engineImpl) decide(ctx context.Context, threadID string, decision api.RefundStatus) (api.ClaimStatus, error) {
	if err := e.acquire(threadID); err != nil {
		return api.ClaimStatus{}, err
	}
	defer e.release(threadID)

	cp, err := e.loadForUpdate(ctx, threadID)
	if err != nil {
		return api.ClaimStatus{}, err
	}

	cp, err = e.applyPatchLocked(ctx, cp, api.StatePatch{
		RefundStatus: api.Status(decision),
		Conversation: []api.Message{
			api.Note("manager", "decision: "+string(decision)),
		},
	})
	if err != nil {
		return api.ClaimStatus{}, err
	}

	return e.resumeLocked(ctx, cp)
}

// ListEvents implements api.HistoryReader. Engines without an event log
// return an empty history.
func (e *engineImpl) ListEvents(ctx context.Context, threadID string) ([]api.ClaimEvent, error) {
	if e.events == nil {
		return nil, nil
	}
	return e.events.ListEvents(ctx, threadID)
}

// loadForUpdate loads a checkpoint for a mutating call, mapping a
// missing checkpoint to the public not-found error.
func (e *engineImpl) loadForUpdate(ctx context.Context, threadID string) (api.Checkpoint, error) {
	cp, err := e.store.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrCheckpointNotFound) {
			return api.Checkpoint{}, fmt.Errorf("%w: %s", api.ErrSessionNotFound, threadID)
		}
		return api.Checkpoint{}, api.NewInfrastructureError("load checkpoint", err)
	}
	return cp, nil
}

// applyPatchLocked validates and persists an external state patch. The
// caller must hold the thread's inflight slot.
func (e *engineImpl) applyPatchLocked(ctx context.Context, cp api.Checkpoint, patch api.StatePatch) (api.Checkpoint, error) {
	if !cp.Paused() {
		return api.Checkpoint{}, fmt.Errorf("%w: %s", api.ErrInvalidResumeState, cp.ThreadID)
	}

	state, err := mergeChecked(cp.State, patch)
	if err != nil {
		return api.Checkpoint{}, err
	}

	cp.State = state
	cp.UpdatedAt = time.Now().UTC()

	if err := e.store.Save(ctx, cp); err != nil {
		return api.Checkpoint{}, api.NewInfrastructureError("save checkpoint", err)
	}

	e.recordEvent(ctx, api.ClaimEvent{
		ThreadID: cp.ThreadID,
		Type:     api.EventPatchApplied,
		Detail:   string(state.RefundStatus),
	})

	return cp, nil
}

// resumeLocked continues an unfinished session: past the human review
// gate when paused there, or from the last persisted checkpoint after a
// node failure. The caller must hold the thread's inflight slot.
func (e *engineImpl) resumeLocked(ctx context.Context, cp api.Checkpoint) (api.ClaimStatus, error) {
	if cp.Done || len(cp.PendingNodes) == 0 {
		return api.ClaimStatus{}, fmt.Errorf("%w: %s", api.ErrInvalidResumeState, cp.ThreadID)
	}

	e.recordEvent(ctx, api.ClaimEvent{
		ThreadID: cp.ThreadID,
		Type:     api.EventClaimResumed,
	})

	return e.runLoop(ctx, cp, true)
}

// runLoop executes pending nodes until the session completes or reaches
// an interrupt boundary. skipInterrupt lets a resume step over the gate
// it is parked in front of; the exemption applies to the first node
// only.
func (e *engineImpl) runLoop(ctx context.Context, cp api.Checkpoint, skipInterrupt bool) (api.ClaimStatus, error) {
	for len(cp.PendingNodes) > 0 {
		node := cp.PendingNodes[0]

		if interruptBefore[node] && !skipInterrupt {
			// The defining mechanic: stop deterministically one step
			// before the gate, every time it is reached. State and
			// pending nodes are already persisted; refresh the stamp so
			// the pause itself is a checkpoint boundary.
			cp.UpdatedAt = time.Now().UTC()
			if err := e.store.Save(ctx, cp); err != nil {
				return statusFromCheckpoint(cp), api.NewInfrastructureError("save checkpoint", err)
			}
			e.observer.OnClaimPaused(ctx, cp.ThreadID, cp.State)
			e.recordEvent(ctx, api.ClaimEvent{
				ThreadID: cp.ThreadID,
				Type:     api.EventClaimPaused,
				Node:     node,
			})
			return statusFromCheckpoint(cp), nil
		}
		skipInterrupt = false

		fn, err := e.nodeFn(node)
		if err != nil {
			return statusFromCheckpoint(cp), api.NewInfrastructureError("dispatch node", err)
		}

		if err := ctx.Err(); err != nil {
			e.observer.OnClaimFailed(ctx, cp.ThreadID, err)
			return statusFromCheckpoint(cp), api.NewInfrastructureError("run "+node.String(), err)
		}

		start := time.Now()
		e.observer.OnNodeStart(ctx, cp.ThreadID, node)
		e.recordEvent(ctx, api.ClaimEvent{
			ThreadID: cp.ThreadID,
			Type:     api.EventNodeStarted,
			Node:     node,
		})

		patch, err := fn(ctx, cp.State)
		e.observer.OnNodeCompleted(ctx, cp.ThreadID, node, err, time.Since(start))

		if err != nil {
			// The session stays at its last persisted checkpoint; the
			// caller may retry the whole Run/Resume.
			e.observer.OnClaimFailed(ctx, cp.ThreadID, err)
			e.recordEvent(ctx, api.ClaimEvent{
				ThreadID: cp.ThreadID,
				Type:     api.EventClaimFailed,
				Node:     node,
				Detail:   err.Error(),
			})
			return statusFromCheckpoint(cp), err
		}

		e.recordEvent(ctx, api.ClaimEvent{
			ThreadID: cp.ThreadID,
			Type:     api.EventNodeCompleted,
			Node:     node,
		})

		state, err := mergeChecked(cp.State, patch)
		if err != nil {
			// A node moved the status backwards. This is a bug in the
			// node, not a caller mistake.
			err = api.NewInfrastructureError("merge "+node.String(), err)
			e.observer.OnClaimFailed(ctx, cp.ThreadID, err)
			return statusFromCheckpoint(cp), err
		}

		cp.State = state
		cp.PendingNodes = successors(node, state)
		cp.Done = len(cp.PendingNodes) == 0
		cp.UpdatedAt = time.Now().UTC()

		if err := e.store.Save(ctx, cp); err != nil {
			return statusFromCheckpoint(cp), api.NewInfrastructureError("save checkpoint", err)
		}
	}

	e.observer.OnClaimCompleted(ctx, cp.ThreadID, cp.State)
	e.recordEvent(ctx, api.ClaimEvent{
		ThreadID: cp.ThreadID,
		Type:     api.EventClaimCompleted,
		Detail:   string(cp.State.RefundStatus),
	})

	return statusFromCheckpoint(cp), nil
}

// recordEvent appends to the history log when one is configured. The
// history is best-effort and never fails a run.
func (e *engineImpl) recordEvent(ctx context.Context, ev api.ClaimEvent) {
	if e.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	_ = e.events.AppendEvent(ctx, ev)
}

// mergeChecked merges a patch, rejecting backward refund status
// transitions.
func mergeChecked(current api.ClaimState, patch api.StatePatch) (api.ClaimState, error) {
	if patch.RefundStatus != nil && !current.RefundStatus.CanTransition(*patch.RefundStatus) {
		return api.ClaimState{}, fmt.Errorf("%w: %s -> %s",
			api.ErrInvalidTransition, current.RefundStatus, *patch.RefundStatus)
	}
	return api.Merge(current, patch), nil
}

func statusFromCheckpoint(cp api.Checkpoint) api.ClaimStatus {
	return api.ClaimStatus{
		ThreadID:     cp.ThreadID,
		State:        cp.State.Clone(),
		Paused:       cp.Paused(),
		PendingNodes: append([]api.Node(nil), cp.PendingNodes...),
		Done:         cp.Done,
	}
}
