// Package engine is the workout session engine: the one active session, its
// rest timer, the commit path, and the offline sync queue hand-off. Every
// mutation persists synchronously before returning, so an uncontrolled
// process exit at any point reconstructs exactly the state the user saw.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/persist"
	"github.com/meltforce/liftlog/internal/queue"
)

// BackendClient is the slice of the backend API the engine needs. *api.Client
// satisfies it; tests substitute a fake with controllable connectivity.
type BackendClient interface {
	queue.Replayer
	PostWorkoutLog(ctx context.Context, req models.WorkoutLogRequest) (*models.WorkoutLogResponse, error)
}

// Engine owns the single active session and rest timer. The "only one
// active session" rule is enforced by construction: Start replaces whatever
// was there. Operations serialize behind a mutex because the host surface
// may issue concurrent calls; each operation is run-to-completion.
type Engine struct {
	store   *persist.Store
	client  BackendClient
	q       *queue.Queue
	drainer *queue.Drainer
	log     *slog.Logger

	// now is swapped in tests to drive wall-clock accounting.
	now func() time.Time

	online atomic.Bool

	mu      sync.Mutex
	session *models.Session
	timer   models.RestTimer
}

// New wires an Engine over an opened state store and backend client.
func New(store *persist.Store, client BackendClient, log *slog.Logger) *Engine {
	e := &Engine{
		store:  store,
		client: client,
		q:      queue.New(store.DB()),
		log:    log,
		now:    time.Now,
	}
	e.online.Store(true)
	e.drainer = queue.NewDrainer(e.q, client, e.entryReplayed, log)
	return e
}

// Rehydrate restores persisted state. It is called exactly once at boot,
// before anything else touches the engine, and returns whether a session
// was restored. Corrupt state has already been discarded by the
// persistence layer; a rest timer whose deadline passed while the process
// was down is treated as never having existed.
//
// Entries left in the sync queue by a previous process get one drain
// attempt here: the connectivity monitor only reacts to transitions, so
// without this a queue surviving a restart would wait for connectivity to
// dip and recover before syncing. A failed attempt is not a boot failure;
// the next offline-to-online transition retries.
func (e *Engine) Rehydrate(ctx context.Context) (restored bool, err error) {
	e.mu.Lock()
	sess, err := e.store.LoadSession()
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	timer, err := e.store.LoadTimer()
	if err != nil {
		e.mu.Unlock()
		return false, err
	}

	if timer.EndsAtMs != 0 && timer.EndsAtMs <= e.now().UnixMilli() {
		e.log.Info("clearing rest timer that expired while offline")
		if err := e.store.ClearTimer(); err != nil {
			e.mu.Unlock()
			return false, err
		}
		timer = models.RestTimer{}
	}

	e.session = sess
	e.timer = timer
	restored = sess != nil
	if restored {
		e.log.Info("restored in-flight session",
			"routine", sess.RoutineName, "exercises", len(sess.Exercises), "paused", sess.Paused)
	}
	e.mu.Unlock()

	pending, err := e.q.Len()
	if err != nil {
		return restored, err
	}
	if pending > 0 {
		e.log.Info("sync queue has entries from a previous run, attempting drain", "pending", pending)
		if _, err := e.drainer.Drain(ctx); err != nil {
			e.log.Warn("boot drain stopped, will retry on next connectivity signal", "error", err)
		}
	}
	return restored, nil
}

// SetOnline delivers a connectivity transition from the host environment.
// An offline-to-online transition drains the sync queue; repeated or
// overlapping signals are harmless (the drainer ignores them while a drain
// is running).
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	was := e.online.Swap(online)
	if online && !was {
		e.log.Info("connectivity restored, draining sync queue")
		if _, err := e.drainer.Drain(ctx); err != nil {
			e.log.Warn("sync queue drain stopped", "error", err)
		}
	}
}

// entryReplayed finishes the local side of a deferred commit: when the
// queued workout-commit entry replays successfully, the session it
// preserved is finally cleared. The pending-commit marker guards against
// clearing a newer session the user started in the meantime.
func (e *Engine) entryReplayed(entry queue.Entry) {
	if entry.Kind != kindWorkoutCommit {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.store.PendingCommit()
	if err != nil {
		e.log.Warn("reading pending commit marker", "error", err)
		return
	}
	if pending != entry.ID {
		e.log.Debug("replayed commit no longer matches local session, leaving state alone", "entry", entry.ID)
		return
	}
	if err := e.clearLocked(); err != nil {
		e.log.Warn("clearing session after replayed commit", "error", err)
		return
	}
	e.log.Info("deferred workout commit synced, local session cleared")
}

// Status is a read-only snapshot for display surfaces.
type Status struct {
	Active          bool                   `json:"active"`
	RoutineID       string                 `json:"routineId,omitempty"`
	RoutineName     string                 `json:"routineName,omitempty"`
	Paused          bool                   `json:"paused,omitempty"`
	ElapsedMs       int64                  `json:"elapsedMs"`
	Exercises       []models.ExerciseEntry `json:"exercises,omitempty"`
	RestTimer       models.RestTimer       `json:"restTimer"`
	RestRemainingMs int64                  `json:"restRemainingMs"`
	PendingSync     int                    `json:"pendingSync"`
}

// Status returns the current engine state. Exercises are deep-copied; the
// caller cannot reach the live session.
func (e *Engine) Status() (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.q.Len()
	if err != nil {
		return Status{}, err
	}

	nowMs := e.now().UnixMilli()
	st := Status{
		RestTimer:       e.timer,
		RestRemainingMs: e.timer.RemainingMs(nowMs),
		PendingSync:     pending,
	}
	if e.session != nil {
		snap := e.session.Clone()
		st.Active = true
		st.RoutineID = snap.RoutineID
		st.RoutineName = snap.RoutineName
		st.Paused = snap.Paused
		st.ElapsedMs = snap.ElapsedMs(nowMs)
		st.Exercises = snap.Exercises
	}
	return st, nil
}

// ElapsedMs returns the session's active time so far, 0 when no session.
func (e *Engine) ElapsedMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	return e.session.ElapsedMs(e.now().UnixMilli())
}

// Session returns a deep copy of the active session, nil when none.
func (e *Engine) Session() *models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// QueueLen returns the number of pending sync entries.
func (e *Engine) QueueLen() (int, error) {
	return e.q.Len()
}

// clearLocked wipes session and timer, both in memory and durably.
// Callers hold e.mu.
func (e *Engine) clearLocked() error {
	if err := e.store.ClearSession(); err != nil {
		return err
	}
	if err := e.store.ClearTimer(); err != nil {
		return err
	}
	e.session = nil
	e.timer = models.RestTimer{}
	return nil
}
