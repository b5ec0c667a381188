package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tvahtera/claimflow/pkg/api"
)

// nodeFunc is one unit of work: given the current state, produce a
// partial update. Nodes never mutate state directly and never fail for
// business outcomes; errors are infrastructure failures.
type nodeFunc func(ctx context.Context, state api.ClaimState) (api.StatePatch, error)

// The workflow topology is fixed at compile time. Static edges cover
// everything except the single conditional edge evaluated after policy
// evaluation (see route).
var staticEdges = map[api.Node]api.Node{
	api.NodeInspectEvidence: api.NodeLookupOrder,
	api.NodeLookupOrder:     api.NodeEvaluatePolicy,
	api.NodeHumanReview:     api.NodeFinalizeRefund,
}

// interruptBefore marks nodes the engine must stop in front of, every
// time they are reached, before executing them.
var interruptBefore = map[api.Node]bool{
	api.NodeHumanReview: true,
}

// route is the single conditional edge: it inspects the refund status
// produced by policy evaluation and picks the next hop.
func route(state api.ClaimState) api.Route {
	switch state.RefundStatus {
	case api.RefundRejected:
		return api.RouteTerminate
	case api.RefundManualReview:
		return api.RouteHumanReview
	default:
		return api.RouteRefund
	}
}

// successors returns the nodes to run after node, given the merged
// state. An empty result terminates the session.
func successors(node api.Node, state api.ClaimState) []api.Node {
	if node == api.NodeEvaluatePolicy {
		switch route(state) {
		case api.RouteTerminate:
			return nil
		case api.RouteHumanReview:
			return []api.Node{api.NodeHumanReview}
		default:
			return []api.Node{api.NodeFinalizeRefund}
		}
	}

	if next, ok := staticEdges[node]; ok {
		return []api.Node{next}
	}
	return nil
}

func (e *engineImpl) nodeFn(node api.Node) (nodeFunc, error) {
	switch node {
	case api.NodeInspectEvidence:
		return e.inspectEvidence, nil
	case api.NodeLookupOrder:
		return e.lookupOrder, nil
	case api.NodeEvaluatePolicy:
		return e.evaluatePolicy, nil
	case api.NodeHumanReview:
		return e.humanReview, nil
	case api.NodeFinalizeRefund:
		return e.finalizeRefund, nil
	default:
		return nil, fmt.Errorf("unknown node: %s", node)
	}
}

// inspectEvidence delegates to the DamageInspector under the bounded
// call timeout.
func (e *engineImpl) inspectEvidence(ctx context.Context, state api.ClaimState) (api.StatePatch, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	verdict, err := e.inspector.Inspect(callCtx, state.EvidenceRefs)
	if err != nil {
		return api.StatePatch{}, api.NewInfrastructureError("inspect evidence", err)
	}

	return api.StatePatch{
		IsValidDamage:     api.Bool(verdict.IsDamaged),
		DamageDescription: api.Str(verdict.Description),
		Conversation: []api.Message{
			api.Note("inspector", verdict.Description),
		},
	}, nil
}

// lookupOrder delegates to the OrderDirectory. An unknown claim ID is
// not an error: the claim continues with a zero-value, unknown-tier
// order.
func (e *engineImpl) lookupOrder(ctx context.Context, state api.ClaimState) (api.StatePatch, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	order, err := e.directory.Lookup(callCtx, state.ClaimID)
	if err != nil {
		if errors.Is(err, api.ErrOrderNotFound) {
			return api.StatePatch{
				OrderValue:   api.Float(0),
				CustomerTier: api.Str("Unknown"),
				Conversation: []api.Message{
					api.Note("directory", "order "+state.ClaimID+" not found"),
				},
			}, nil
		}
		return api.StatePatch{}, api.NewInfrastructureError("lookup order", err)
	}

	return api.StatePatch{
		OrderValue:   api.Float(order.Amount),
		CustomerTier: api.Str(order.Tier),
		Conversation: []api.Message{
			api.Note("directory", fmt.Sprintf("order %s: value=%.2f tier=%s", state.ClaimID, order.Amount, order.Tier)),
		},
	}, nil
}

// evaluatePolicy is the pure decision node. Invalid damage rejects the
// claim outright; valid damage above the review threshold is flagged
// for a manager; everything else auto-approves.
func (e *engineImpl) evaluatePolicy(ctx context.Context, state api.ClaimState) (api.StatePatch, error) {
	status := api.RefundApproved

	switch {
	case state.IsValidDamage == nil || !*state.IsValidDamage:
		status = api.RefundRejected
	case state.OrderValueOrZero() > e.reviewThreshold:
		status = api.RefundManualReview
	}

	return api.StatePatch{
		RefundStatus: api.Status(status),
		Conversation: []api.Message{
			api.Note("policy", "refund status: "+string(status)),
		},
	}, nil
}

// humanReview is a marker node: it produces no state change. The actual
// manager decision reaches the state through ApplyPatch while the
// session is paused in front of this node.
func (e *engineImpl) humanReview(ctx context.Context, state api.ClaimState) (api.StatePatch, error) {
	return api.StatePatch{}, nil
}

// finalizeRefund commits the refund for approvable statuses and is a
// safe no-op otherwise. The Settled flag makes re-finalization
// idempotent: a claim is never charged twice.
func (e *engineImpl) finalizeRefund(ctx context.Context, state api.ClaimState) (api.StatePatch, error) {
	if state.Settled {
		return api.StatePatch{}, nil
	}

	note := "finalized without charge: " + string(state.RefundStatus)
	if state.RefundStatus.Approvable() {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()

		if err := e.settler.Settle(callCtx, state); err != nil {
			return api.StatePatch{}, api.NewInfrastructureError("settle refund", err)
		}
		note = "refund committed: " + string(state.RefundStatus)
	}

	return api.StatePatch{
		Settled: api.Bool(true),
		Conversation: []api.Message{
			api.Note("settlement", note),
		},
	}, nil
}
