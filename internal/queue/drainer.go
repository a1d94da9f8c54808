package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Replayer re-issues a deferred request over the network.
type Replayer interface {
	Replay(ctx context.Context, e Entry) error
}

// Drainer replays queued entries strictly in FIFO order when connectivity
// returns. On the first failure it stops without touching later entries:
// replaying mutations out of order could corrupt backend state, so partial
// progress is preferred over reordered progress.
type Drainer struct {
	q          *Queue
	client     Replayer
	log        *slog.Logger
	draining   atomic.Bool
	onReplayed func(Entry)
}

// NewDrainer creates a Drainer. onReplayed, if non-nil, runs after each
// confirmed successful replay (used by the engine to finish a deferred
// commit's local cleanup).
func NewDrainer(q *Queue, client Replayer, onReplayed func(Entry), log *slog.Logger) *Drainer {
	return &Drainer{q: q, client: client, onReplayed: onReplayed, log: log}
}

// Drain processes the queue head-first until it is empty or an entry fails.
// Returns the number of entries replayed. A drain already in progress makes
// this call a no-op: two workers racing on the same queue head could replay
// an entry twice.
func (d *Drainer) Drain(ctx context.Context) (int, error) {
	if !d.draining.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer d.draining.Store(false)

	replayed := 0
	for {
		e, err := d.q.Head()
		if err != nil {
			return replayed, err
		}
		if e == nil {
			if replayed > 0 {
				d.log.Info("sync queue drained", "replayed", replayed)
			}
			return replayed, nil
		}

		if err := d.client.Replay(ctx, *e); err != nil {
			d.log.Warn("queue replay halted, will retry on next connectivity signal",
				"entry", e.ID, "endpoint", e.Endpoint, "replayed", replayed, "error", err)
			return replayed, fmt.Errorf("replaying entry %s: %w", e.ID, err)
		}
		if err := d.q.Remove(e.Seq); err != nil {
			return replayed, err
		}
		replayed++
		if d.onReplayed != nil {
			d.onReplayed(*e)
		}
	}
}
