package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the workflow engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay claim execution.
type Observer interface {
	// OnClaimStart is called once when a claim session is first started,
	// before the first node is executed.
	OnClaimStart(ctx context.Context, threadID string, state ClaimState)

	// OnClaimPaused is called when a session parks before human review.
	OnClaimPaused(ctx context.Context, threadID string, state ClaimState)

	// OnClaimCompleted is called when a session finishes, either by
	// early termination or after settlement.
	OnClaimCompleted(ctx context.Context, threadID string, state ClaimState)

	// OnClaimFailed is called when a Run/Resume call fails with an
	// infrastructure error.
	OnClaimFailed(ctx context.Context, threadID string, err error)

	// OnNodeStart is called before invoking a node function.
	OnNodeStart(ctx context.Context, threadID string, node Node)

	// OnNodeCompleted is called after a node function returns, for both
	// successes and failures (err != nil).
	OnNodeCompleted(ctx context.Context, threadID string, node Node, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnClaimStart(ctx context.Context, threadID string, state ClaimState)     {}
func (NoopObserver) OnClaimPaused(ctx context.Context, threadID string, state ClaimState)    {}
func (NoopObserver) OnClaimCompleted(ctx context.Context, threadID string, state ClaimState) {}
func (NoopObserver) OnClaimFailed(ctx context.Context, threadID string, err error)           {}
func (NoopObserver) OnNodeStart(ctx context.Context, threadID string, node Node)             {}
func (NoopObserver) OnNodeCompleted(ctx context.Context, threadID string, node Node, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnClaimStart(ctx context.Context, threadID string, state ClaimState) {
	for _, o := range c.observers {
		o.OnClaimStart(ctx, threadID, state)
	}
}

func (c *CompositeObserver) OnClaimPaused(ctx context.Context, threadID string, state ClaimState) {
	for _, o := range c.observers {
		o.OnClaimPaused(ctx, threadID, state)
	}
}

func (c *CompositeObserver) OnClaimCompleted(ctx context.Context, threadID string, state ClaimState) {
	for _, o := range c.observers {
		o.OnClaimCompleted(ctx, threadID, state)
	}
}

func (c *CompositeObserver) OnClaimFailed(ctx context.Context, threadID string, err error) {
	for _, o := range c.observers {
		o.OnClaimFailed(ctx, threadID, err)
	}
}

func (c *CompositeObserver) OnNodeStart(ctx context.Context, threadID string, node Node) {
	for _, o := range c.observers {
		o.OnNodeStart(ctx, threadID, node)
	}
}

func (c *CompositeObserver) OnNodeCompleted(ctx context.Context, threadID string, node Node, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnNodeCompleted(ctx, threadID, node, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs claim and node
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnClaimStart(ctx context.Context, threadID string, state ClaimState) {
	o.Logger.InfoContext(ctx, "claim_start",
		slog.String("thread_id", threadID),
		slog.String("claim_id", state.ClaimID),
	)
}

func (o *LoggingObserver) OnClaimPaused(ctx context.Context, threadID string, state ClaimState) {
	o.Logger.InfoContext(ctx, "claim_paused",
		slog.String("thread_id", threadID),
		slog.String("claim_id", state.ClaimID),
		slog.String("refund_status", string(state.RefundStatus)),
	)
}

func (o *LoggingObserver) OnClaimCompleted(ctx context.Context, threadID string, state ClaimState) {
	o.Logger.InfoContext(ctx, "claim_completed",
		slog.String("thread_id", threadID),
		slog.String("claim_id", state.ClaimID),
		slog.String("refund_status", string(state.RefundStatus)),
	)
}

func (o *LoggingObserver) OnClaimFailed(ctx context.Context, threadID string, err error) {
	o.Logger.ErrorContext(ctx, "claim_failed",
		slog.String("thread_id", threadID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnNodeStart(ctx context.Context, threadID string, node Node) {
	o.Logger.DebugContext(ctx, "node_start",
		slog.String("thread_id", threadID),
		slog.String("node", string(node)),
	)
}

func (o *LoggingObserver) OnNodeCompleted(ctx context.Context, threadID string, node Node, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "node_completed",
		slog.String("thread_id", threadID),
		slog.String("node", string(node)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate node durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	claimsStarted     atomic.Int64
	claimsPaused      atomic.Int64
	claimsCompleted   atomic.Int64
	claimsFailed      atomic.Int64
	nodesCompleted    atomic.Int64
	totalNodeDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	ClaimsStarted   int64
	ClaimsPaused    int64
	ClaimsCompleted int64
	ClaimsFailed    int64
	PendingClaims   int64

	NodesCompleted  int64
	AvgNodeDuration time.Duration
}

func (m *BasicMetrics) OnClaimStart(ctx context.Context, threadID string, state ClaimState) {
	m.claimsStarted.Add(1)
}

func (m *BasicMetrics) OnClaimPaused(ctx context.Context, threadID string, state ClaimState) {
	m.claimsPaused.Add(1)
}

func (m *BasicMetrics) OnClaimCompleted(ctx context.Context, threadID string, state ClaimState) {
	m.claimsCompleted.Add(1)
}

func (m *BasicMetrics) OnClaimFailed(ctx context.Context, threadID string, err error) {
	m.claimsFailed.Add(1)
}

func (m *BasicMetrics) OnNodeCompleted(ctx context.Context, threadID string, node Node, err error, d time.Duration) {
	// Only count successful nodes for average duration.
	if err == nil {
		m.nodesCompleted.Add(1)
		m.totalNodeDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.claimsStarted.Load()
	completed := m.claimsCompleted.Load()
	failed := m.claimsFailed.Load()
	nodes := m.nodesCompleted.Load()
	totalNs := m.totalNodeDuration.Load()

	var avg time.Duration
	if nodes > 0 {
		avg = time.Duration(totalNs / nodes)
	}

	return BasicMetricsSnapshot{
		ClaimsStarted:   started,
		ClaimsPaused:    m.claimsPaused.Load(),
		ClaimsCompleted: completed,
		ClaimsFailed:    failed,
		PendingClaims:   started - completed - failed,
		NodesCompleted:  nodes,
		AvgNodeDuration: avg,
	}
}
