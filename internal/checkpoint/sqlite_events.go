package checkpoint

import (
	"context"
	"database/sql"
	"time"

	"github.com/tvahtera/claimflow/pkg/api"
)

// SQLiteEventLog stores claim events in SQLite, alongside a SQLiteStore
// sharing the same database.
type SQLiteEventLog struct {
	db *sql.DB
}

// Ensure SQLiteEventLog implements EventLog.
var _ EventLog = (*SQLiteEventLog)(nil)

func NewSQLiteEventLog(db *sql.DB) (*SQLiteEventLog, error) {
	s := &SQLiteEventLog{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventLog) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS claim_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			node TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_claim_events_thread_id ON claim_events(thread_id, id);
	`)
	return err
}

func (s *SQLiteEventLog) AppendEvent(ctx context.Context, ev api.ClaimEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_events (thread_id, at, type, node, detail)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ThreadID,
		at.UnixNano(),
		string(ev.Type),
		string(ev.Node),
		ev.Detail,
	)
	return err
}

func (s *SQLiteEventLog) ListEvents(ctx context.Context, threadID string) ([]api.ClaimEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, at, type, node, detail
		FROM claim_events
		WHERE thread_id = ?
		ORDER BY id ASC`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.ClaimEvent
	for rows.Next() {
		var (
			id     string
			atN    int64
			typ    string
			node   string
			detail string
		)
		if err := rows.Scan(&id, &atN, &typ, &node, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.ClaimEvent{
			ThreadID: id,
			At:       time.Unix(0, atN),
			Type:     api.EventType(typ),
			Node:     api.Node(node),
			Detail:   detail,
		})
	}
	return out, rows.Err()
}
