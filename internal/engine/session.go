package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/meltforce/liftlog/internal/models"
)

// SetField names the mutable fields of a set record.
type SetField string

const (
	FieldReps     SetField = "reps"
	FieldWeightKg SetField = "weight_kg"
	FieldSetType  SetField = "set_type"
)

// Start begins a fresh session from a routine (or ad-hoc) source, replacing
// any prior session. Each exercise gets a new TempID and TargetSets blank
// set records numbered 1..N. The session starts paused with zero elapsed
// time, and any stale rest timer from a previous session is cleared.
func (e *Engine) Start(src models.RoutineSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	exercises := make([]models.ExerciseEntry, len(src.Exercises))
	for i, spec := range src.Exercises {
		exercises[i] = newExerciseEntry(spec)
	}

	sess := &models.Session{
		RoutineID:   src.RoutineID,
		RoutineName: src.Name,
		Exercises:   exercises,
		Paused:      true,
	}
	if err := e.store.SaveSession(sess); err != nil {
		return err
	}
	if err := e.store.ClearTimer(); err != nil {
		return err
	}
	// A deferred commit may still be queued; the new session must not be
	// cleared when that entry finally replays.
	if err := e.store.ClearPendingCommit(); err != nil {
		return err
	}

	e.session = sess
	e.timer = models.RestTimer{}
	e.log.Info("session started", "routine", src.Name, "exercises", len(exercises))
	return nil
}

func newExerciseEntry(spec models.ExerciseSpec) models.ExerciseEntry {
	sets := make([]models.SetRecord, spec.TargetSets)
	for n := range sets {
		sets[n] = models.SetRecord{SetNumber: n + 1}
	}
	return models.ExerciseEntry{
		TempID:          uuid.NewString(),
		CatalogID:       spec.CatalogID,
		Name:            spec.Name,
		MuscleGroup:     spec.MuscleGroup,
		TargetSets:      spec.TargetSets,
		TargetReps:      spec.TargetReps,
		SupersetGroupID: spec.SupersetGroupID,
		Order:           spec.Order,
		CompletedSets:   sets,
	}
}

// TogglePause flips the running clock. Pausing folds the running interval
// into AccumulatedMs; resuming restamps StartedAtMs. The full state is
// persisted before returning, so a crash straight after this call still
// reloads with correct elapsed time.
func (e *Engine) TogglePause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return ErrNoSession
	}

	nowMs := e.now().UnixMilli()
	if s.Paused {
		s.Paused = false
		s.StartedAtMs = nowMs
	} else {
		s.AccumulatedMs += nowMs - s.StartedAtMs
		s.StartedAtMs = 0
		s.Paused = true
	}
	return e.store.SaveSession(s)
}

// UpdateSet writes one field of one set. For the numeric fields an empty
// value string stays empty — "untouched" and "recorded as zero" are
// different things. Out-of-range indices fail with ErrInvalidReference.
func (e *Engine) UpdateSet(exIdx, setIdx int, field SetField, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.setAt(exIdx, setIdx)
	if err != nil {
		return err
	}

	switch field {
	case FieldReps, FieldWeightKg:
		num, err := parseNumber(value)
		if err != nil {
			return fmt.Errorf("parsing %s value %q: %w", field, value, err)
		}
		if field == FieldReps {
			rec.Reps = num
		} else {
			rec.WeightKg = num
		}
	case FieldSetType:
		rec.SetType = value
	default:
		return fmt.Errorf("%w: unknown set field %q", ErrInvalidReference, field)
	}
	return e.store.SaveSession(e.session)
}

func parseNumber(value string) (models.Number, error) {
	if value == "" {
		return models.Number{}, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return models.Number{}, err
	}
	// ParseFloat accepts "NaN" and "Inf", neither of which can be encoded
	// as JSON; letting one in would wedge every subsequent save.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Number{}, fmt.Errorf("value must be finite")
	}
	return models.Num(v), nil
}

// AddAdvancedSet inserts a new blank record immediately after the set at
// setIdx, inheriting its SetNumber and carrying the given type tag. Drop
// sets, rest-pause sets and the like are sub-sets of a numbered set, not
// new numbered sets.
func (e *Engine) AddAdvancedSet(exIdx, setIdx int, setType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if setType == "" {
		return fmt.Errorf("%w: advanced set requires a type tag", ErrInvalidReference)
	}
	anchor, err := e.setAt(exIdx, setIdx)
	if err != nil {
		return err
	}

	inserted := models.SetRecord{SetNumber: anchor.SetNumber, SetType: setType}
	sets := e.session.Exercises[exIdx].CompletedSets
	sets = append(sets[:setIdx+1], append([]models.SetRecord{inserted}, sets[setIdx+1:]...)...)
	e.session.Exercises[exIdx].CompletedSets = sets

	return e.store.SaveSession(e.session)
}

// RemoveAdvancedSetOrClearType undoes an advanced-set marking. A record
// that was dynamically inserted (same SetNumber as its predecessor) is
// deleted outright; the original set for its number only has the tag
// cleared, because removing the anchor would corrupt the numbering of
// everything chained after it. Calling this on a plain untyped set is a
// caller error.
func (e *Engine) RemoveAdvancedSetOrClearType(exIdx, setIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.setAt(exIdx, setIdx)
	if err != nil {
		return err
	}
	if rec.SetType == "" {
		return fmt.Errorf("%w: set %d of exercise %d is a plain set", ErrInvalidReference, setIdx, exIdx)
	}

	sets := e.session.Exercises[exIdx].CompletedSets
	if setIdx > 0 && sets[setIdx-1].SetNumber == rec.SetNumber {
		e.session.Exercises[exIdx].CompletedSets = append(sets[:setIdx], sets[setIdx+1:]...)
	} else {
		rec.SetType = ""
	}
	return e.store.SaveSession(e.session)
}

// ReplaceExercise swaps the descriptive and planned values of a slot while
// preserving its grouping metadata, and regenerates the set records sized
// to the new target count. A replacement is a correction, not a merge:
// prior progress for the slot is discarded.
func (e *Engine) ReplaceExercise(exIdx int, spec models.ExerciseSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoSession
	}
	if exIdx < 0 || exIdx >= len(e.session.Exercises) {
		return fmt.Errorf("%w: exercise %d", ErrInvalidReference, exIdx)
	}

	old := e.session.Exercises[exIdx]
	replacement := newExerciseEntry(spec)
	replacement.SupersetGroupID = old.SupersetGroupID
	replacement.Order = old.Order
	e.session.Exercises[exIdx] = replacement

	return e.store.SaveSession(e.session)
}

// Clear discards the session and rest timer, in memory and durably. Called
// after a successful commit, on explicit user discard, and never partially:
// either everything is gone or the error left state untouched.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clearLocked()
}

// setAt bounds-checks and returns a pointer into the live session.
// Callers hold e.mu.
func (e *Engine) setAt(exIdx, setIdx int) (*models.SetRecord, error) {
	if e.session == nil {
		return nil, ErrNoSession
	}
	if exIdx < 0 || exIdx >= len(e.session.Exercises) {
		return nil, fmt.Errorf("%w: exercise %d", ErrInvalidReference, exIdx)
	}
	sets := e.session.Exercises[exIdx].CompletedSets
	if setIdx < 0 || setIdx >= len(sets) {
		return nil, fmt.Errorf("%w: exercise %d set %d", ErrInvalidReference, exIdx, setIdx)
	}
	return &sets[setIdx], nil
}
