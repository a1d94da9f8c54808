package models

// ExerciseSpec describes one exercise slot as supplied by a routine template
// or the exercise catalog: the planned values a session snapshots at start.
type ExerciseSpec struct {
	CatalogID       string `json:"catalogId,omitempty"`
	Name            string `json:"name"`
	MuscleGroup     string `json:"muscleGroup"`
	TargetSets      int    `json:"targetSets"`
	TargetReps      string `json:"targetReps"`
	SupersetGroupID string `json:"supersetGroupId,omitempty"`
	Order           int    `json:"order"`
}

// RoutineSource is the input to starting a session: a routine template or an
// ad-hoc exercise list. RoutineID is empty for ad-hoc sessions. An empty
// exercise list is legal (cardio / freeform sessions).
type RoutineSource struct {
	RoutineID string         `json:"routineId,omitempty"`
	Name      string         `json:"name"`
	Exercises []ExerciseSpec `json:"exercises"`
}

// SetRecord is one recorded (or not-yet-recorded) set. Reps and WeightKg
// distinguish "untouched" from an explicit zero. SetType is empty for a
// normal set, or a tag ("dropset", "restpause", ...) marking an advanced set
// chained onto the preceding normal set with the same SetNumber.
type SetRecord struct {
	SetNumber int    `json:"setNumber"`
	Reps      Number `json:"reps"`
	WeightKg  Number `json:"weightKg"`
	SetType   string `json:"setType,omitempty"`
}

// ExerciseEntry is one exercise slot within a session. TempID is a
// session-scoped identity, regenerated every time a session starts so that
// repeating a routine never reuses keys.
type ExerciseEntry struct {
	TempID          string      `json:"tempId"`
	CatalogID       string      `json:"catalogId,omitempty"`
	Name            string      `json:"name"`
	MuscleGroup     string      `json:"muscleGroup"`
	TargetSets      int         `json:"targetSets"`
	TargetReps      string      `json:"targetReps"`
	SupersetGroupID string      `json:"supersetGroupId,omitempty"`
	Order           int         `json:"order"`
	CompletedSets   []SetRecord `json:"completedSets"`
}

// Session is the single in-flight workout: a snapshot of the source routine
// plus the pause/resume clock.
//
// Clock invariant: exactly one of {Paused and StartedAtMs == 0} or
// {!Paused and StartedAtMs != 0} holds. While paused, AccumulatedMs is the
// authoritative elapsed time; while running, elapsed time is
// AccumulatedMs + (now - StartedAtMs).
type Session struct {
	RoutineID     string          `json:"routineId,omitempty"`
	RoutineName   string          `json:"routineName"`
	Exercises     []ExerciseEntry `json:"exercises"`
	StartedAtMs   int64           `json:"-"`
	Paused        bool            `json:"-"`
	AccumulatedMs int64           `json:"-"`
}

// ElapsedMs returns the total active time at the given wall-clock instant
// (unix milliseconds).
func (s *Session) ElapsedMs(nowMs int64) int64 {
	if s.Paused {
		return s.AccumulatedMs
	}
	return s.AccumulatedMs + (nowMs - s.StartedAtMs)
}

// ClockValid reports whether the pause/start invariant holds. Persisted
// state failing this check is treated as corrupt.
func (s *Session) ClockValid() bool {
	if s.Paused {
		return s.StartedAtMs == 0
	}
	return s.StartedAtMs != 0
}

// Clone returns a deep copy. Readers outside the engine only ever see
// clones; the live session is mutated exclusively through engine operations.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Exercises = make([]ExerciseEntry, len(s.Exercises))
	for i, ex := range s.Exercises {
		out.Exercises[i] = ex
		out.Exercises[i].CompletedSets = append([]SetRecord(nil), ex.CompletedSets...)
	}
	return &out
}

// RestTimer is the rest-period countdown sub-state. Active marks the rest
// selector as open; a countdown is running only while EndsAtMs is nonzero.
// InitialSec is the originally chosen duration, kept for display even as
// EndsAtMs is adjusted.
type RestTimer struct {
	Active     bool  `json:"active"`
	EndsAtMs   int64 `json:"endsAtMs"`
	InitialSec int   `json:"initialSec"`
}

// RemainingMs returns milliseconds until the deadline. Negative values mean
// the rest period has overrun (the UI shows a count-up). Zero when no
// countdown is armed.
func (t RestTimer) RemainingMs(nowMs int64) int64 {
	if !t.Active || t.EndsAtMs == 0 {
		return 0
	}
	return t.EndsAtMs - nowMs
}
