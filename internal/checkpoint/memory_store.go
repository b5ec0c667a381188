package checkpoint

import (
	"context"
	"sort"
	"sync"

	"github.com/tvahtera/claimflow/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe Store backed by a map.
// It is sufficient for a single-process deployment and for tests; it
// does not survive process restarts.
type InMemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]api.Checkpoint
	events      map[string][]api.ClaimEvent
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		checkpoints: make(map[string]api.Checkpoint),
		events:      make(map[string][]api.ClaimEvent),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ Store = (*InMemoryStore)(nil)

var _ EventLog = (*InMemoryStore)(nil)

func (s *InMemoryStore) Save(ctx context.Context, cp api.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clone the state so later engine-side mutations cannot reach the
	// persisted snapshot.
	cp.State = cp.State.Clone()
	cp.PendingNodes = append([]api.Node(nil), cp.PendingNodes...)
	s.checkpoints[cp.ThreadID] = cp
	return nil
}

func (s *InMemoryStore) Load(ctx context.Context, threadID string) (api.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[threadID]
	if !ok {
		return api.Checkpoint{}, ErrCheckpointNotFound
	}

	cp.State = cp.State.Clone()
	cp.PendingNodes = append([]api.Node(nil), cp.PendingNodes...)
	return cp, nil
}

func (s *InMemoryStore) Clear(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.checkpoints, threadID)
	delete(s.events, threadID)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]api.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		cp.State = cp.State.Clone()
		cp.PendingNodes = append([]api.Node(nil), cp.PendingNodes...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThreadID < out[j].ThreadID })
	return out, nil
}

func (s *InMemoryStore) AppendEvent(ctx context.Context, ev api.ClaimEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.ThreadID] = append(s.events[ev.ThreadID], ev)
	return nil
}

func (s *InMemoryStore) ListEvents(ctx context.Context, threadID string) ([]api.ClaimEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]api.ClaimEvent(nil), s.events[threadID]...), nil
}
