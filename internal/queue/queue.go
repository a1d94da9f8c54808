// Package queue is the durable FIFO of deferred network mutations. Entries
// are appended by whichever code path attempted and failed a mutating call,
// and removed only after that exact entry replays successfully, so nothing
// the user recorded is ever dropped by a network failure.
package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Entry is one deferred request. Seq orders entries; ID identifies the
// entry across restarts; Kind lets callers recognize their own entries when
// a replay completes.
type Entry struct {
	Seq      int64
	ID       string
	Kind     string
	Method   string
	Endpoint string
	Payload  json.RawMessage
}

// Queue reads and writes the sync_queue table of the state database.
type Queue struct {
	db *sql.DB
}

// New creates a Queue over the given state database handle.
func New(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Append durably appends a request to the tail of the queue.
func (q *Queue) Append(kind, method, endpoint string, payload json.RawMessage) (Entry, error) {
	e := Entry{
		ID:       uuid.NewString(),
		Kind:     kind,
		Method:   method,
		Endpoint: endpoint,
		Payload:  payload,
	}
	res, err := q.db.Exec(
		`INSERT INTO sync_queue (id, kind, method, endpoint, payload) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Method, e.Endpoint, string(e.Payload),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("appending queue entry: %w", err)
	}
	e.Seq, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("reading queue seq: %w", err)
	}
	return e, nil
}

// Head returns the oldest entry, or nil when the queue is empty.
func (q *Queue) Head() (*Entry, error) {
	var e Entry
	var payload string
	err := q.db.QueryRow(
		`SELECT seq, id, kind, method, endpoint, payload FROM sync_queue ORDER BY seq LIMIT 1`,
	).Scan(&e.Seq, &e.ID, &e.Kind, &e.Method, &e.Endpoint, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading queue head: %w", err)
	}
	e.Payload = json.RawMessage(payload)
	return &e, nil
}

// Remove deletes a replayed entry by its seq.
func (q *Queue) Remove(seq int64) error {
	if _, err := q.db.Exec(`DELETE FROM sync_queue WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("removing queue entry %d: %w", seq, err)
	}
	return nil
}

// Len returns the number of pending entries.
func (q *Queue) Len() (int, error) {
	var n int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting queue entries: %w", err)
	}
	return n, nil
}
