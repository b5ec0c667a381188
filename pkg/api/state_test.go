package api

import (
	"reflect"
	"testing"
)

func TestMerge_ReplacePolicy(t *testing.T) {
	current := ClaimState{
		ClaimID:      "ORD-1",
		EvidenceRefs: []string{"a.jpg"},
		RefundStatus: RefundPending,
	}

	next := Merge(current, StatePatch{
		IsValidDamage:     Bool(true),
		DamageDescription: Str("crushed corner"),
		OrderValue:        Float(120),
		CustomerTier:      Str("VIP"),
		RefundStatus:      Status(RefundApproved),
	})

	if next.IsValidDamage == nil || !*next.IsValidDamage {
		t.Fatalf("expected is_valid_damage=true, got %v", next.IsValidDamage)
	}
	if next.DamageDescription != "crushed corner" {
		t.Fatalf("unexpected description: %q", next.DamageDescription)
	}
	if next.OrderValueOrZero() != 120 {
		t.Fatalf("expected order value 120, got %v", next.OrderValueOrZero())
	}
	if next.CustomerTier != "VIP" {
		t.Fatalf("unexpected tier: %q", next.CustomerTier)
	}
	if next.RefundStatus != RefundApproved {
		t.Fatalf("unexpected status: %s", next.RefundStatus)
	}

	// Untouched fields survive.
	if next.ClaimID != "ORD-1" || len(next.EvidenceRefs) != 1 {
		t.Fatalf("identity fields were modified: %+v", next)
	}
}

func TestMerge_AppendPolicyForConversation(t *testing.T) {
	current := ClaimState{
		ClaimID:      "ORD-1",
		Conversation: []Message{{Role: "system", Content: "opened"}},
	}

	next := Merge(current, StatePatch{
		Conversation: []Message{
			{Role: "inspector", Content: "damage confirmed"},
			{Role: "policy", Content: "approved"},
		},
	})

	if len(next.Conversation) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(next.Conversation))
	}
	if next.Conversation[0].Content != "opened" {
		t.Fatalf("prior entries must be preserved in order: %+v", next.Conversation)
	}
	if next.Conversation[2].Content != "approved" {
		t.Fatalf("new entries must be appended in order: %+v", next.Conversation)
	}
}

func TestMerge_IsPure(t *testing.T) {
	current := ClaimState{
		ClaimID:      "ORD-1",
		RefundStatus: RefundPending,
		Conversation: []Message{{Role: "system", Content: "opened"}},
	}
	snapshot := current.Clone()

	next := Merge(current, StatePatch{
		RefundStatus: Status(RefundApproved),
		Conversation: []Message{{Role: "policy", Content: "approved"}},
	})

	if !reflect.DeepEqual(current, snapshot) {
		t.Fatalf("merge mutated its input:\nbefore=%+v\nafter=%+v", snapshot, current)
	}
	if next.RefundStatus != RefundApproved {
		t.Fatalf("unexpected merged status: %s", next.RefundStatus)
	}

	// Mutating the merged state must not reach the original either.
	next.Conversation[0].Content = "tampered"
	if current.Conversation[0].Content != "opened" {
		t.Fatalf("merged state shares backing array with input")
	}
}

func TestMerge_ZeroPatchIsIdentity(t *testing.T) {
	current := ClaimState{
		ClaimID:       "ORD-1",
		EvidenceRefs:  []string{"a.jpg"},
		IsValidDamage: Bool(true),
		OrderValue:    Float(50),
		RefundStatus:  RefundApproved,
	}

	patch := StatePatch{}
	if !patch.IsZero() {
		t.Fatalf("empty patch should be zero")
	}

	next := Merge(current, patch)
	if !reflect.DeepEqual(next, current) {
		t.Fatalf("zero patch changed state:\nbefore=%+v\nafter=%+v", current, next)
	}
}

func TestRefundStatus_Transitions(t *testing.T) {
	cases := []struct {
		from    RefundStatus
		to      RefundStatus
		allowed bool
	}{
		{RefundPending, RefundApproved, true},
		{RefundPending, RefundManualReview, true},
		{RefundPending, RefundRejected, true},
		{RefundManualReview, RefundManagerApproved, true},
		{RefundManualReview, RefundRejected, true},
		{RefundManualReview, RefundManualReview, true},

		{RefundApproved, RefundPending, false},
		{RefundRejected, RefundApproved, false},
		{RefundManagerApproved, RefundManualReview, false},
		{RefundManualReview, RefundPending, false},
		{RefundApproved, RefundManagerApproved, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestRefundStatus_TerminalAndApprovable(t *testing.T) {
	if !RefundRejected.IsTerminal() || !RefundApproved.IsTerminal() || !RefundManagerApproved.IsTerminal() {
		t.Fatalf("expected rejected/approved/manager-approved to be terminal")
	}
	if RefundPending.IsTerminal() || RefundManualReview.IsTerminal() {
		t.Fatalf("pending and manual review must not be terminal")
	}

	if !RefundApproved.Approvable() || !RefundManagerApproved.Approvable() {
		t.Fatalf("approved statuses must be approvable")
	}
	if RefundRejected.Approvable() || RefundManualReview.Approvable() || RefundPending.Approvable() {
		t.Fatalf("non-approved statuses must not be approvable")
	}
}

func TestCheckpoint_Paused(t *testing.T) {
	cp := Checkpoint{
		ThreadID:     "t-1",
		PendingNodes: []Node{NodeHumanReview},
	}
	if !cp.Paused() {
		t.Fatalf("pending human review should read as paused")
	}

	cp.Done = true
	if cp.Paused() {
		t.Fatalf("a done session is never paused")
	}

	cp = Checkpoint{ThreadID: "t-2", PendingNodes: []Node{NodeLookupOrder}}
	if cp.Paused() {
		t.Fatalf("pending automatic nodes are not a pause")
	}
}
