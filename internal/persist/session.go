package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/meltforce/liftlog/internal/models"
)

// errCorrupt tags validation failures in persisted state. Only corrupt data
// is discarded; a storage error (the read itself failed) propagates to the
// caller untouched, it says nothing about what is on disk.
var errCorrupt = errors.New("corrupt persisted state")

// Durable storage layout: one independently-parseable entry per logical
// field. Absence of keySession is the canonical "no active session" signal.
const (
	keySession       = "session"
	keyStartedAt     = "session_started_at"
	keyPaused        = "session_paused"
	keyAccumulated   = "session_accumulated_ms"
	keyTimerActive   = "rest_timer_active"
	keyTimerEndsAt   = "rest_timer_ends_at"
	keyTimerInitial  = "rest_timer_initial_sec"
	keyPendingCommit = "pending_commit_id"
)

var sessionKeys = []string{keySession, keyStartedAt, keyPaused, keyAccumulated}
var timerKeys = []string{keyTimerActive, keyTimerEndsAt, keyTimerInitial}

// sessionDoc is the durable shape of the session descriptor key. The clock
// fields live in their own keys.
type sessionDoc struct {
	RoutineID   string                 `json:"routineId,omitempty"`
	RoutineName string                 `json:"routineName"`
	Exercises   []models.ExerciseEntry `json:"exercises"`
}

// SaveSession writes the full session state. All keys go through one
// transaction so a crash mid-save cannot leave the clock keys disagreeing
// with the descriptor.
func (s *Store) SaveSession(sess *models.Session) error {
	doc, err := json.Marshal(sessionDoc{
		RoutineID:   sess.RoutineID,
		RoutineName: sess.RoutineName,
		Exercises:   sess.Exercises,
	})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return s.putAll(map[string]string{
		keySession:     string(doc),
		keyStartedAt:   strconv.FormatInt(sess.StartedAtMs, 10),
		keyPaused:      strconv.FormatBool(sess.Paused),
		keyAccumulated: strconv.FormatInt(sess.AccumulatedMs, 10),
	})
}

// LoadSession reads and strictly validates persisted session state. It
// returns nil when no session is stored. A wrong type or a broken invariant
// in any session key invalidates the whole structure: the corrupt keys are
// deleted so stale partial data cannot be misread later, and nil is
// returned. Partial structures are never trusted.
func (s *Store) LoadSession() (*models.Session, error) {
	raw, ok, err := s.get(keySession)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	sess, err := s.decodeSession(raw)
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return nil, err
		}
		s.log.Warn("discarding corrupt persisted session", "error", err)
		if delErr := s.deleteKeys(sessionKeys...); delErr != nil {
			return nil, delErr
		}
		return nil, nil
	}
	return sess, nil
}

func (s *Store) decodeSession(raw string) (*models.Session, error) {
	var doc sessionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: session descriptor: %v", errCorrupt, err)
	}
	if doc.RoutineName == "" {
		return nil, fmt.Errorf("%w: session descriptor: missing routine name", errCorrupt)
	}
	for i, ex := range doc.Exercises {
		if ex.TempID == "" {
			return nil, fmt.Errorf("%w: session descriptor: exercise %d missing temp id", errCorrupt, i)
		}
	}

	startedAt, err := s.getInt64(keyStartedAt)
	if err != nil {
		return nil, err
	}
	paused, err := s.getBool(keyPaused)
	if err != nil {
		return nil, err
	}
	accumulated, err := s.getInt64(keyAccumulated)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		RoutineID:     doc.RoutineID,
		RoutineName:   doc.RoutineName,
		Exercises:     doc.Exercises,
		StartedAtMs:   startedAt,
		Paused:        paused,
		AccumulatedMs: accumulated,
	}
	if !sess.ClockValid() {
		return nil, fmt.Errorf("%w: clock invariant violated: paused=%v startedAt=%d", errCorrupt, paused, startedAt)
	}
	return sess, nil
}

// ClearSession removes all session keys, including a pending-commit marker.
func (s *Store) ClearSession() error {
	return s.deleteKeys(append(append([]string(nil), sessionKeys...), keyPendingCommit)...)
}

// SaveTimer writes the rest-timer state.
func (s *Store) SaveTimer(t models.RestTimer) error {
	return s.putAll(map[string]string{
		keyTimerActive:  strconv.FormatBool(t.Active),
		keyTimerEndsAt:  strconv.FormatInt(t.EndsAtMs, 10),
		keyTimerInitial: strconv.Itoa(t.InitialSec),
	})
}

// LoadTimer reads and validates the rest-timer state, returning the zero
// value when nothing (or something corrupt) is stored. Timer corruption is
// independent of session corruption: each group is validated and discarded
// on its own.
func (s *Store) LoadTimer() (models.RestTimer, error) {
	_, ok, err := s.get(keyTimerActive)
	if err != nil {
		return models.RestTimer{}, err
	}
	if !ok {
		return models.RestTimer{}, nil
	}

	t, err := s.decodeTimer()
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return models.RestTimer{}, err
		}
		s.log.Warn("discarding corrupt persisted rest timer", "error", err)
		if delErr := s.deleteKeys(timerKeys...); delErr != nil {
			return models.RestTimer{}, delErr
		}
		return models.RestTimer{}, nil
	}
	return t, nil
}

func (s *Store) decodeTimer() (models.RestTimer, error) {
	active, err := s.getBool(keyTimerActive)
	if err != nil {
		return models.RestTimer{}, err
	}
	endsAt, err := s.getInt64(keyTimerEndsAt)
	if err != nil {
		return models.RestTimer{}, err
	}
	initial, err := s.getInt64(keyTimerInitial)
	if err != nil {
		return models.RestTimer{}, err
	}
	if !active && endsAt != 0 {
		return models.RestTimer{}, fmt.Errorf("%w: inactive timer with deadline %d", errCorrupt, endsAt)
	}
	return models.RestTimer{Active: active, EndsAtMs: endsAt, InitialSec: int(initial)}, nil
}

// ClearTimer removes all rest-timer keys.
func (s *Store) ClearTimer() error {
	return s.deleteKeys(timerKeys...)
}

// SavePendingCommit marks the queue entry whose successful replay should
// clear the preserved local session.
func (s *Store) SavePendingCommit(entryID string) error {
	return s.putAll(map[string]string{keyPendingCommit: entryID})
}

// PendingCommit returns the marked entry id, or "" when none is set.
func (s *Store) PendingCommit() (string, error) {
	id, _, err := s.get(keyPendingCommit)
	return id, err
}

// ClearPendingCommit removes the marker. The queued entry itself stays in
// the sync queue: the deferred write still belongs on the server, it just no
// longer owns the local session.
func (s *Store) ClearPendingCommit() error {
	return s.deleteKeys(keyPendingCommit)
}

// getInt64 reads a key that must parse as an integer. A missing key or a
// value of the wrong type is corruption; a failed read is a storage error
// and passes through unwrapped.
func (s *Store) getInt64(key string) (int64, error) {
	raw, ok, err := s.get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: key %s missing", errCorrupt, key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %s: %v", errCorrupt, key, err)
	}
	return v, nil
}

func (s *Store) getBool(key string) (bool, error) {
	raw, ok, err := s.get(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: key %s missing", errCorrupt, key)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: key %s: %v", errCorrupt, key, err)
	}
	return v, nil
}
