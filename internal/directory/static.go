package directory

import (
	"context"
	"sync"

	"github.com/tvahtera/claimflow/pkg/api"
)

// Static is an in-memory OrderDirectory backed by a map. It is mainly
// useful for tests and the local demo.
type Static struct {
	mu     sync.RWMutex
	orders map[string]api.Order
}

var _ api.OrderDirectory = (*Static)(nil)

// NewStatic creates a Static directory with the given orders. The map
// is copied; nil is allowed.
func NewStatic(orders map[string]api.Order) *Static {
	copied := make(map[string]api.Order, len(orders))
	for id, o := range orders {
		copied[id] = o
	}
	return &Static{orders: copied}
}

// NewDemo creates a Static directory with the demo fixture set.
func NewDemo() *Static {
	return NewStatic(map[string]api.Order{
		"ORD-123": {Amount: 1500.00, Tier: "VIP"},
		"ORD-456": {Amount: 50.00, Tier: "REGULAR"},
	})
}

func (d *Static) Lookup(ctx context.Context, claimID string) (api.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	order, ok := d.orders[claimID]
	if !ok {
		return api.Order{}, api.ErrOrderNotFound
	}
	return order, nil
}

// Put inserts or replaces an order record.
func (d *Static) Put(claimID string, order api.Order) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.orders[claimID] = order
}
