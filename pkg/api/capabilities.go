package api

import "context"

// Verdict is the result of inspecting a claim's evidence artifacts.
type Verdict struct {
	IsDamaged   bool   `json:"is_damaged"`
	Description string `json:"description"`
}

// DamageInspector examines evidence artifacts and decides whether they
// show valid damage. Implementations must tolerate missing or unreadable
// artifacts by returning a simulated verdict rather than an error;
// errors are reserved for infrastructure failures (the backing model or
// service being unreachable).
type DamageInspector interface {
	Inspect(ctx context.Context, evidenceRefs []string) (Verdict, error)
}

// InspectorFunc adapts a plain function into a DamageInspector.
type InspectorFunc func(ctx context.Context, evidenceRefs []string) (Verdict, error)

func (f InspectorFunc) Inspect(ctx context.Context, evidenceRefs []string) (Verdict, error) {
	return f(ctx, evidenceRefs)
}

// Order is a directory record for one claim's underlying order.
type Order struct {
	Amount float64 `json:"amount"`
	Tier   string  `json:"tier"`
}

// OrderDirectory looks up order details by claim ID. An unknown claim
// ID is reported via ErrOrderNotFound; the workflow degrades to a
// zero-value, unknown-tier order rather than failing.
type OrderDirectory interface {
	Lookup(ctx context.Context, claimID string) (Order, error)
}

// DirectoryFunc adapts a plain function into an OrderDirectory.
type DirectoryFunc func(ctx context.Context, claimID string) (Order, error)

func (f DirectoryFunc) Lookup(ctx context.Context, claimID string) (Order, error) {
	return f(ctx, claimID)
}

// Settler commits an approved refund with the external payment
// capability. It is only invoked for approvable statuses and at most
// once per claim; implementations should still be idempotent.
type Settler interface {
	Settle(ctx context.Context, state ClaimState) error
}

// SettlerFunc adapts a plain function into a Settler.
type SettlerFunc func(ctx context.Context, state ClaimState) error

func (f SettlerFunc) Settle(ctx context.Context, state ClaimState) error {
	return f(ctx, state)
}
