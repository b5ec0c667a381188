package checkpoint

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tvahtera/claimflow/pkg/api"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			done INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, cp api.Checkpoint) error {
	payload, err := EncodeCheckpoint(cp)
	if err != nil {
		return err
	}

	done := 0
	if cp.Done {
		done = 1
	}

	// Single upsert statement keeps the write all-or-nothing.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, payload, done, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			payload = excluded.payload,
			done = excluded.done,
			updated_at = excluded.updated_at`,
		cp.ThreadID,
		payload,
		done,
		cp.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, threadID string) (api.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT payload FROM checkpoints WHERE thread_id = ?`,
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

func (s *SQLiteStore) Clear(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]api.Checkpoint, error) {
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

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
