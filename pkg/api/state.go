package api

import "time"

// RefundStatus is the lifecycle state of a claim's refund decision.
type RefundStatus string

const (
	RefundPending         RefundStatus = "Pending"
	RefundApproved        RefundStatus = "Approved"
	RefundManagerApproved RefundStatus = "Manager Approved"
	RefundManualReview    RefundStatus = "Manual Review"
	RefundRejected        RefundStatus = "Rejected"
)

// allowedTransitions encodes the monotonic status lifecycle. A status may
// only move forward; there is no path back to Pending or Manual Review.
var allowedTransitions = map[RefundStatus][]RefundStatus{
	RefundPending:      {RefundRejected, RefundManualReview, RefundApproved},
	RefundManualReview: {RefundManagerApproved, RefundRejected},
}

var terminalStatuses = map[RefundStatus]bool{
	RefundApproved:        true,
	RefundManagerApproved: true,
	RefundRejected:        true,
}

// CanTransition reports whether moving from s to next is a valid forward
// transition. A no-op transition (s == next) is always allowed.
func (s RefundStatus) CanTransition(next RefundStatus) bool {
	if s == next {
		return true
	}
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status transitions are expected.
func (s RefundStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// Approvable reports whether a settlement may actually commit funds for
// this status. Rejected and in-flight statuses must never be charged.
func (s RefundStatus) Approvable() bool {
	return s == RefundApproved || s == RefundManagerApproved
}

func (s RefundStatus) String() string {
	return string(s)
}

// Message is one entry in a claim's conversation log.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ClaimState is the single mutable record threaded through the workflow
// graph. Nodes never modify it directly; they return a StatePatch which
// the engine merges into a fresh copy.
type ClaimState struct {
	// ClaimID identifies the claim in business terms (an order ID).
	// Immutable after creation.
	ClaimID string `json:"claim_id"`

	// EvidenceRefs are artifact locators (file paths, URLs) supplied
	// once when the claim is opened.
	EvidenceRefs []string `json:"evidence_refs"`

	// IsValidDamage is set by the evidence inspection node; nil until
	// the inspection has run.
	IsValidDamage *bool `json:"is_valid_damage,omitempty"`

	DamageDescription string `json:"damage_description,omitempty"`

	// OrderValue and CustomerTier are set by the directory lookup node;
	// OrderValue is nil until the lookup has run.
	OrderValue   *float64 `json:"order_value,omitempty"`
	CustomerTier string   `json:"customer_tier,omitempty"`

	RefundStatus RefundStatus `json:"refund_status"`

	// Settled records that the settlement node has already committed
	// (or declined) the refund, making re-finalization a no-op.
	Settled bool `json:"settled"`

	// Conversation is append-only: merges concatenate, never replace.
	Conversation []Message `json:"conversation,omitempty"`
}

// OrderValueOrZero returns the looked-up order value, or 0 when the
// directory lookup has not run yet.
func (s ClaimState) OrderValueOrZero() float64 {
	if s.OrderValue == nil {
		return 0
	}
	return *s.OrderValue
}

// Clone returns a deep copy of the state. Checkpoint snapshots must stay
// immutable once persisted, so every merge works on a clone.
func (s ClaimState) Clone() ClaimState {
	out := s
	if s.EvidenceRefs != nil {
		out.EvidenceRefs = append([]string(nil), s.EvidenceRefs...)
	}
	if s.IsValidDamage != nil {
		v := *s.IsValidDamage
		out.IsValidDamage = &v
	}
	if s.OrderValue != nil {
		v := *s.OrderValue
		out.OrderValue = &v
	}
	if s.Conversation != nil {
		out.Conversation = append([]Message(nil), s.Conversation...)
	}
	return out
}

// StatePatch is a partial update to a ClaimState. Nil fields are left
// untouched. Every field uses the "replace" merge policy except
// Conversation, which is append-only.
type StatePatch struct {
	IsValidDamage     *bool         `json:"is_valid_damage,omitempty"`
	DamageDescription *string       `json:"damage_description,omitempty"`
	OrderValue        *float64      `json:"order_value,omitempty"`
	CustomerTier      *string       `json:"customer_tier,omitempty"`
	RefundStatus      *RefundStatus `json:"refund_status,omitempty"`
	Settled           *bool         `json:"settled,omitempty"`
	Conversation      []Message     `json:"conversation,omitempty"`
}

// IsZero reports whether the patch carries no updates at all.
func (p StatePatch) IsZero() bool {
	return p.IsValidDamage == nil &&
		p.DamageDescription == nil &&
		p.OrderValue == nil &&
		p.CustomerTier == nil &&
		p.RefundStatus == nil &&
		p.Settled == nil &&
		len(p.Conversation) == 0
}

// Merge applies patch to current and returns the merged state. It is
// pure: current is never mutated, so previously persisted snapshots
// remain valid.
func Merge(current ClaimState, patch StatePatch) ClaimState {
	next := current.Clone()

	if patch.IsValidDamage != nil {
		v := *patch.IsValidDamage
		next.IsValidDamage = &v
	}
	if patch.DamageDescription != nil {
		next.DamageDescription = *patch.DamageDescription
	}
	if patch.OrderValue != nil {
		v := *patch.OrderValue
		next.OrderValue = &v
	}
	if patch.CustomerTier != nil {
		next.CustomerTier = *patch.CustomerTier
	}
	if patch.RefundStatus != nil {
		next.RefundStatus = *patch.RefundStatus
	}
	if patch.Settled != nil {
		next.Settled = *patch.Settled
	}
	if len(patch.Conversation) > 0 {
		next.Conversation = append(next.Conversation, patch.Conversation...)
	}

	return next
}

// Small pointer helpers for building patches.

func Bool(v bool) *bool { return &v }

func Float(v float64) *float64 { return &v }

func Str(v string) *string { return &v }

func Status(v RefundStatus) *RefundStatus { return &v }

// Note builds a conversation entry stamped with the current time.
func Note(role, content string) Message {
	return Message{Role: role, Content: content, At: time.Now().UTC()}
}
