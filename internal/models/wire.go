package models

// Wire types for the workout-log backend endpoint. Sets with both fields
// empty never reach the wire; the remaining empties are coerced to explicit
// zeros because the backend schema has no notion of "unset".

// SetDone is one transmitted set.
type SetDone struct {
	SetNumber int     `json:"set_number"`
	Reps      float64 `json:"reps"`
	WeightKg  float64 `json:"weight_kg"`
	SetType   string  `json:"set_type,omitempty"`
}

// ExerciseDetail is one transmitted exercise with its recorded sets.
type ExerciseDetail struct {
	ExerciseRef string    `json:"exerciseRef,omitempty"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup"`
	SetsDone    []SetDone `json:"setsDone"`
}

// WorkoutLogRequest is the commit payload POSTed to the backend.
type WorkoutLogRequest struct {
	RoutineID   string           `json:"routineId,omitempty"`
	RoutineName string           `json:"routineName"`
	Details     []ExerciseDetail `json:"details"`
}

// PersonalRecord is a newly-achieved PR reported by the backend.
type PersonalRecord struct {
	Exercise string  `json:"exercise"`
	Weight   float64 `json:"weight"`
}

// WorkoutLogResponse is the backend's answer to a successful commit.
type WorkoutLogResponse struct {
	PersonalRecords []PersonalRecord `json:"personal_records,omitempty"`
}
