package api

import "time"

// Node names the fixed units of work in the claim workflow graph.
// The topology is fixed at compile time; there is no runtime graph
// registration.
type Node string

const (
	NodeInspectEvidence Node = "inspect_evidence"
	NodeLookupOrder     Node = "lookup_order"
	NodeEvaluatePolicy  Node = "evaluate_policy"
	NodeHumanReview     Node = "human_review"
	NodeFinalizeRefund  Node = "finalize_refund"
)

func (n Node) String() string {
	return string(n)
}

// Route is the outcome of the single conditional edge evaluated after
// policy evaluation.
type Route string

const (
	RouteTerminate   Route = "terminate"
	RouteHumanReview Route = "human_review"
	RouteRefund      Route = "refund"
)

// DefaultManualReviewThreshold is the order value above which a valid
// damage claim is flagged for human review instead of auto-approval.
const DefaultManualReviewThreshold float64 = 1000

// Checkpoint is the persistence unit for one claim session: the latest
// state snapshot plus the nodes the engine has decided to run next.
type Checkpoint struct {
	ThreadID     string     `json:"thread_id"`
	State        ClaimState `json:"claim_state"`
	PendingNodes []Node     `json:"pending_nodes"`
	Done         bool       `json:"done"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Paused reports whether the session is parked before the human review
// node waiting for an external decision.
func (c Checkpoint) Paused() bool {
	if c.Done {
		return false
	}
	for _, n := range c.PendingNodes {
		if n == NodeHumanReview {
			return true
		}
	}
	return false
}

// ClaimStatus is the externally visible snapshot of a session, as
// returned by Engine.GetStatus.
type ClaimStatus struct {
	ThreadID     string     `json:"thread_id"`
	State        ClaimState `json:"state"`
	Paused       bool       `json:"paused"`
	PendingNodes []Node     `json:"pending_nodes,omitempty"`
	Done         bool       `json:"done"`
}
