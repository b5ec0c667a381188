package checkpoint

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tvahtera/claimflow/pkg/api"
)

func sampleCheckpoint(threadID string) api.Checkpoint {
	return api.Checkpoint{
		ThreadID: threadID,
		State: api.ClaimState{
			ClaimID:       "ORD-123",
			EvidenceRefs:  []string{"broken_screen.jpg"},
			IsValidDamage: api.Bool(true),
			OrderValue:    api.Float(1500),
			CustomerTier:  "VIP",
			RefundStatus:  api.RefundManualReview,
			Conversation: []api.Message{
				{Role: "system", Content: "opened", At: time.Unix(1700000000, 0).UTC()},
			},
		},
		PendingNodes: []api.Node{api.NodeHumanReview},
		UpdatedAt:    time.Unix(1700000100, 0).UTC(),
	}
}

func TestInMemoryStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	cp := sampleCheckpoint("t-1")
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "t-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, cp) {
		t.Fatalf("round-trip mismatch:\nsaved=%+v\nloaded=%+v", cp, got)
	}
}

func TestInMemoryStore_LoadNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestInMemoryStore_SnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	cp := sampleCheckpoint("t-1")
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's copy after save must not reach the store.
	cp.State.Conversation[0].Content = "tampered"
	cp.PendingNodes[0] = api.NodeFinalizeRefund

	got, err := store.Load(ctx, "t-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.State.Conversation[0].Content != "opened" {
		t.Fatalf("persisted snapshot was mutated through the caller's copy")
	}
	if got.PendingNodes[0] != api.NodeHumanReview {
		t.Fatalf("persisted pending nodes were mutated through the caller's copy")
	}

	// And mutating a loaded copy must not reach the store either.
	got.State.CustomerTier = "tampered"
	again, _ := store.Load(ctx, "t-1")
	if again.State.CustomerTier != "VIP" {
		t.Fatalf("persisted snapshot was mutated through a loaded copy")
	}
}

func TestInMemoryStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if err := store.Save(ctx, sampleCheckpoint("t-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(ctx, "t-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := store.Clear(ctx, "t-1"); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}

	if _, err := store.Load(ctx, "t-1"); !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound after clear, got %v", err)
	}
}

func TestInMemoryStore_ListOrdersByThreadID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for _, id := range []string{"t-b", "t-a", "t-c"} {
		if err := store.Save(ctx, sampleCheckpoint(id)); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}

	cps, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cps) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(cps))
	}
	if cps[0].ThreadID != "t-a" || cps[2].ThreadID != "t-c" {
		t.Fatalf("unexpected order: %s, %s, %s", cps[0].ThreadID, cps[1].ThreadID, cps[2].ThreadID)
	}
}

func TestInMemoryStore_EventLog(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	events := []api.ClaimEvent{
		{ThreadID: "t-1", Type: api.EventClaimStarted, At: time.Unix(1, 0)},
		{ThreadID: "t-1", Type: api.EventNodeCompleted, Node: api.NodeInspectEvidence, At: time.Unix(2, 0)},
		{ThreadID: "t-2", Type: api.EventClaimStarted, At: time.Unix(3, 0)},
	}
	for _, ev := range events {
		if err := store.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	got, err := store.ListEvents(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for t-1, got %d", len(got))
	}
	if got[0].Type != api.EventClaimStarted || got[1].Node != api.NodeInspectEvidence {
		t.Fatalf("events out of order: %+v", got)
	}
}
