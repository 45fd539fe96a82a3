// Package audit keeps an append-only journal of dispatched commands. It
// records what already went to the sink; it never stores pending state.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/hashi/internal/command"
	"github.com/google/uuid"
)

// Entry is one journaled dispatch.
type Entry struct {
	ID         string
	CallerID   string
	Intent     string
	Sheet      string
	Body       map[string]string
	SinkStatus int
	CreatedAt  time.Time
}

// Recorder journals dispatched commands.
type Recorder interface {
	Record(ctx context.Context, callerID string, cmd command.Command, sinkStatus int) error
}

// SQLiteJournal implements Recorder using a SQLite database.
type SQLiteJournal struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteJournal creates a journal over db. now supplies timestamps;
// nil means time.Now.
func NewSQLiteJournal(db *sql.DB, now func() time.Time) *SQLiteJournal {
	if now == nil {
		now = time.Now
	}
	return &SQLiteJournal{db: db, now: now}
}

func (j *SQLiteJournal) Record(ctx context.Context, callerID string, cmd command.Command, sinkStatus int) error {
	bodyJSON, err := json.Marshal(cmd.Body)
	if err != nil {
		return fmt.Errorf("marshaling command body: %w", err)
	}

	query := `INSERT INTO dispatch_log (id, caller_id, intent, sheet, body_json, sink_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = j.db.ExecContext(ctx, query,
		uuid.NewString(),
		callerID,
		cmd.Intent,
		cmd.Sheet,
		string(bodyJSON),
		sinkStatus,
		j.now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch log entry: %w", err)
	}
	return nil
}

// ListByCaller returns journaled dispatches for one caller, oldest first.
func (j *SQLiteJournal) ListByCaller(ctx context.Context, callerID string) ([]*Entry, error) {
	query := `SELECT id, caller_id, intent, sheet, body_json, sink_status, created_at
		FROM dispatch_log WHERE caller_id = ? ORDER BY created_at`
	rows, err := j.db.QueryContext(ctx, query, callerID)
	if err != nil {
		return nil, fmt.Errorf("listing dispatch log by caller: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var bodyJSON, createdAt string
		if err := rows.Scan(&e.ID, &e.CallerID, &e.Intent, &e.Sheet, &bodyJSON, &e.SinkStatus, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning dispatch log entry: %w", err)
		}
		if err := json.Unmarshal([]byte(bodyJSON), &e.Body); err != nil {
			return nil, fmt.Errorf("decoding command body: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// NoopRecorder discards all entries. Used when no journal path is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, string, command.Command, int) error { return nil }
