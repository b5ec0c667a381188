package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tvahtera/claimflow/pkg/api"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

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

func TestSQLiteStore_SaveOverwritesExisting(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	cp := sampleCheckpoint("t-1")
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	cp.State.RefundStatus = api.RefundManagerApproved
	cp.PendingNodes = nil
	cp.Done = true
	cp.UpdatedAt = time.Unix(1700000200, 0).UTC()
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.Load(ctx, "t-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !got.Done || got.State.RefundStatus != api.RefundManagerApproved {
		t.Fatalf("overwrite not visible: %+v", got)
	}

	cps, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cps) != 1 {
		t.Fatalf("expected a single row after overwrite, got %d", len(cps))
	}
}

func TestSQLiteStore_LoadNotFound(t *testing.T) {
	store, err := NewSQLiteStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	_, err = store.Load(context.Background(), "missing")
	if !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestSQLiteStore_ClearAndList(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	for _, id := range []string{"t-b", "t-a"} {
		if err := store.Save(ctx, sampleCheckpoint(id)); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}

	if err := store.Clear(ctx, "t-b"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	cps, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cps) != 1 || cps[0].ThreadID != "t-a" {
		t.Fatalf("unexpected list after clear: %+v", cps)
	}
}

func TestSQLiteEventLog_AppendAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	log, err := NewSQLiteEventLog(db)
	if err != nil {
		t.Fatalf("NewSQLiteEventLog failed: %v", err)
	}

	events := []api.ClaimEvent{
		{ThreadID: "t-1", Type: api.EventClaimStarted, At: time.Unix(1, 0).UTC()},
		{ThreadID: "t-1", Type: api.EventNodeStarted, Node: api.NodeInspectEvidence, At: time.Unix(2, 0).UTC()},
		{ThreadID: "t-1", Type: api.EventNodeCompleted, Node: api.NodeInspectEvidence, At: time.Unix(3, 0).UTC()},
		{ThreadID: "t-other", Type: api.EventClaimStarted, At: time.Unix(4, 0).UTC()},
	}
	for _, ev := range events {
		if err := log.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	got, err := log.ListEvents(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Type != api.EventClaimStarted ||
		got[1].Type != api.EventNodeStarted ||
		got[2].Type != api.EventNodeCompleted {
		t.Fatalf("events out of insertion order: %+v", got)
	}
	if got[2].Node != api.NodeInspectEvidence {
		t.Fatalf("node column lost: %+v", got[2])
	}
}
