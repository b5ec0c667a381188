package checkpoint

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tvahtera/claimflow/pkg/api"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given
// database and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id TEXT PRIMARY KEY,
			payload BYTEA NOT NULL,
			done BOOLEAN NOT NULL,
			updated_at BIGINT NOT NULL
		);
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, cp api.Checkpoint) error {
	payload, err := EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, payload, done, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (thread_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			done = EXCLUDED.done,
			updated_at = EXCLUDED.updated_at`,
		cp.ThreadID,
		payload,
		cp.Done,
		cp.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, threadID string) (api.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT payload FROM checkpoints WHERE thread_id = $1`,
		threadID,
	)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Checkpoint{}, ErrCheckpointNotFound
		}
		return api.Checkpoint{}, err
	}

	return DecodeCheckpoint(payload)
}

func (s *PostgresStore) Clear(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = $1`, threadID)
	return err
}

func (s *PostgresStore) List(ctx context.Context) ([]api.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM checkpoints ORDER BY thread_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.Checkpoint
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		cp, err := DecodeCheckpoint(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}

	return out, rows.Err()
}
