// Package directory provides OrderDirectory implementations backed by
// SQLite or a static in-memory table.
package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tvahtera/claimflow/pkg/api"
)

// SQLiteDirectory looks up orders in a SQLite table:
//
//	orders(order_id TEXT PRIMARY KEY, amount REAL, customer_tier TEXT)
//
// The caller is responsible for importing a SQLite driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteDirectory struct {
	db *sql.DB
}

var _ api.OrderDirectory = (*SQLiteDirectory)(nil)

// NewSQLiteDirectory initializes the orders schema in the given
// database and returns a new SQLiteDirectory.
func NewSQLiteDirectory(db *sql.DB) (*SQLiteDirectory, error) {
	d := &SQLiteDirectory{db: db}
	if err := d.initSchema(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *SQLiteDirectory) initSchema() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			amount REAL NOT NULL,
			customer_tier TEXT NOT NULL
		);`,
	)
	return err
}

func (d *SQLiteDirectory) Lookup(ctx context.Context, claimID string) (api.Order, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT amount, customer_tier FROM orders WHERE order_id = ?`,
		claimID,
	)

	var order api.Order
	if err := row.Scan(&order.Amount, &order.Tier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Order{}, api.ErrOrderNotFound
		}
		return api.Order{}, err
	}

	return order, nil
}

// Put inserts or replaces an order record.
func (d *SQLiteDirectory) Put(ctx context.Context, claimID string, order api.Order) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, amount, customer_tier)
		VALUES (?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			amount = excluded.amount,
			customer_tier = excluded.customer_tier`,
		claimID,
		order.Amount,
		order.Tier,
	)
	return err
}

// Seed loads the demo fixture set: a high-value VIP order that triggers
// human review and a low-value one that auto-approves.
func (d *SQLiteDirectory) Seed(ctx context.Context) error {
	fixtures := map[string]api.Order{
		"ORD-123": {Amount: 1500.00, Tier: "VIP"},
		"ORD-456": {Amount: 50.00, Tier: "REGULAR"},
	}
	for id, order := range fixtures {
		if err := d.Put(ctx, id, order); err != nil {
			return err
		}
	}
	return nil
}
