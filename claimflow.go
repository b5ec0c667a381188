package claimflow

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tvahtera/claimflow/internal/directory"
	"github.com/tvahtera/claimflow/internal/engine"
	"github.com/tvahtera/claimflow/internal/inspector"
	"github.com/tvahtera/claimflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	HistoryReader        = api.HistoryReader
	ClaimState           = api.ClaimState
	StatePatch           = api.StatePatch
	Message              = api.Message
	RefundStatus         = api.RefundStatus
	Node                 = api.Node
	Route                = api.Route
	Checkpoint           = api.Checkpoint
	ClaimStatus          = api.ClaimStatus
	ClaimEvent           = api.ClaimEvent
	StartClaimRequest    = api.StartClaimRequest
	ClaimListOptions     = api.ClaimListOptions
	DamageInspector      = api.DamageInspector
	InspectorFunc        = api.InspectorFunc
	OrderDirectory       = api.OrderDirectory
	DirectoryFunc        = api.DirectoryFunc
	Settler              = api.Settler
	SettlerFunc          = api.SettlerFunc
	Verdict              = api.Verdict
	Order                = api.Order
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
	ValidationError      = api.ValidationError
	InfrastructureError  = api.InfrastructureError
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export refund status values for convenience.

const (
	StatusPending         = api.RefundPending
	StatusApproved        = api.RefundApproved
	StatusManagerApproved = api.RefundManagerApproved
	StatusManualReview    = api.RefundManualReview
	StatusRejected        = api.RefundRejected
)

// Re-export node names and the review threshold.

const (
	NodeInspectEvidence = api.NodeInspectEvidence
	NodeLookupOrder     = api.NodeLookupOrder
	NodeEvaluatePolicy  = api.NodeEvaluatePolicy
	NodeHumanReview     = api.NodeHumanReview
	NodeFinalizeRefund  = api.NodeFinalizeRefund

	DefaultManualReviewThreshold = api.DefaultManualReviewThreshold
)

// Re-export error values and helpers.

var (
	ErrOrderNotFound      = api.ErrOrderNotFound
	ErrSessionNotFound    = api.ErrSessionNotFound
	ErrInvalidResumeState = api.ErrInvalidResumeState
	ErrConcurrentAccess   = api.ErrConcurrentAccess
	ErrInvalidTransition  = api.ErrInvalidTransition
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed by an in-memory checkpoint
// store, using the given capabilities.
func NewInMemoryEngine(insp DamageInspector, dir OrderDirectory) Engine {
	return engine.NewInMemoryEngine(insp, dir)
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(insp DamageInspector, dir OrderDirectory, obs Observer) Engine {
	return engine.NewInMemoryEngineWithObserver(insp, dir, obs)
}

// NewSQLiteEngine returns an Engine that persists claim checkpoints and
// event history in a SQLite database.
func NewSQLiteEngine(db *sql.DB, insp DamageInspector, dir OrderDirectory) (Engine, error) {
	return engine.NewSQLiteEngine(db, insp, dir)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, insp DamageInspector, dir OrderDirectory, obs Observer) (Engine, error) {
	return engine.NewSQLiteEngineWithObserver(db, insp, dir, obs)
}

// NewPostgresEngine returns an Engine that persists checkpoints in PostgreSQL.
func NewPostgresEngine(db *sql.DB, insp DamageInspector, dir OrderDirectory) (Engine, error) {
	return engine.NewPostgresEngine(db, insp, dir)
}

// NewRedisEngine returns an Engine that persists checkpoints in Redis.
func NewRedisEngine(client *redis.Client, insp DamageInspector, dir OrderDirectory) Engine {
	return engine.NewRedisEngine(client, insp, dir)
}

// NewMongoEngine returns an Engine that persists checkpoints in MongoDB.
func NewMongoEngine(client *mongo.Client, insp DamageInspector, dir OrderDirectory) Engine {
	return engine.NewMongoEngine(client, insp, dir)
}

// Capability constructors.

// NewSimulatedInspector returns the deterministic inspector used for
// local development; it judges damage from the artifact locators.
func NewSimulatedInspector() DamageInspector {
	return inspector.Simulated{}
}

// WithInspectorFallback wraps an inspector so unreadable evidence
// degrades to the simulated verdict instead of an error.
func WithInspectorFallback(primary DamageInspector) DamageInspector {
	return inspector.WithFallback(primary)
}

// NewSQLiteDirectory returns an OrderDirectory backed by a SQLite
// orders table in the given database.
func NewSQLiteDirectory(db *sql.DB) (*directory.SQLiteDirectory, error) {
	return directory.NewSQLiteDirectory(db)
}

// NewStaticDirectory returns an in-memory OrderDirectory with the given
// orders.
func NewStaticDirectory(orders map[string]Order) *directory.Static {
	return directory.NewStatic(orders)
}

// NewDemoDirectory returns an in-memory OrderDirectory seeded with the
// demo orders (a high-value VIP order and a low-value regular one).
func NewDemoDirectory() *directory.Static {
	return directory.NewDemo()
}

// Convenience helpers that just forward to the underlying Engine.

// StartClaim opens a new claim session and runs it until it completes
// or pauses for human review.
func StartClaim(ctx context.Context, eng Engine, claimID string, evidenceRefs []string) (ClaimStatus, error) {
	return eng.StartClaim(ctx, StartClaimRequest{
		ClaimID:      claimID,
		EvidenceRefs: evidenceRefs,
	})
}

// GetStatus fetches a session snapshot by thread ID.
func GetStatus(ctx context.Context, eng Engine, threadID string) (ClaimStatus, error) {
	return eng.GetStatus(ctx, threadID)
}

// Approve applies a manager approval and resumes the paused session.
func Approve(ctx context.Context, eng Engine, threadID string) (ClaimStatus, error) {
	return eng.Approve(ctx, threadID)
}

// Reject applies a manager rejection and resumes the paused session.
func Reject(ctx context.Context, eng Engine, threadID string) (ClaimStatus, error) {
	return eng.Reject(ctx, threadID)
}

// Resume continues a paused session without changing its state first.
func Resume(ctx context.Context, eng Engine, threadID string) (ClaimStatus, error) {
	return eng.Resume(ctx, threadID)
}

// ApplyPatch merges an external partial state update into a paused
// session's checkpoint.
func ApplyPatch(ctx context.Context, eng Engine, threadID string, patch StatePatch) (ClaimStatus, error) {
	return eng.ApplyPatch(ctx, threadID, patch)
}
