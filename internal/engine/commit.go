package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/meltforce/liftlog/internal/api"
	"github.com/meltforce/liftlog/internal/models"
)

const kindWorkoutCommit = "workout_commit"

// Compile-time check: the real backend client satisfies BackendClient.
var _ BackendClient = (*api.Client)(nil)

// CommitOutcome reports how a commit ended. Queued means connectivity was
// down: the request sits in the sync queue, the local session stays
// preserved until the replay succeeds, and the user sees "saved locally,
// will sync" rather than an error.
type CommitOutcome struct {
	Queued          bool
	PersonalRecords []models.PersonalRecord
}

// Commit validates, transforms and submits the active session. Sets with
// both fields empty are dropped, surviving empties coerce to explicit
// zeros, and exercises left with no sets are dropped. A session that
// filters down to nothing fails with ErrNothingToCommit before any network
// activity.
//
// On success the local session and rest timer are cleared and any PRs from
// the backend are returned. A rejection (non-connectivity failure) is
// returned as-is with local state preserved. The network round-trip runs
// without the engine lock held; if the user discarded the session while
// the request was in flight, the late success is accepted server-side and
// silently ignored locally.
func (e *Engine) Commit(ctx context.Context) (*CommitOutcome, error) {
	e.mu.Lock()
	sess := e.session
	if sess == nil {
		e.mu.Unlock()
		return nil, ErrNothingToCommit
	}
	req, ok := buildCommitRequest(sess)
	if !ok {
		e.mu.Unlock()
		return nil, ErrNothingToCommit
	}
	e.mu.Unlock()

	resp, err := e.client.PostWorkoutLog(ctx, req)
	if err != nil {
		if errors.Is(err, api.ErrConnectivity) {
			return e.queueCommit(sess, req, err)
		}
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != sess {
		// The user discarded (or replaced) the session mid-flight. The
		// backend kept the write; locally there is nothing left to clear.
		e.log.Debug("commit succeeded after local discard, ignoring")
		return &CommitOutcome{}, nil
	}
	if err := e.clearLocked(); err != nil {
		return nil, err
	}
	e.log.Info("workout committed", "exercises", len(req.Details), "prs", len(resp.PersonalRecords))
	return &CommitOutcome{PersonalRecords: resp.PersonalRecords}, nil
}

// queueCommit converts a connectivity failure into a durable queue entry.
// The session is not cleared: the user must not lose their workout because
// the network dropped at the moment of saving.
func (e *Engine) queueCommit(sess *models.Session, req models.WorkoutLogRequest, cause error) (*CommitOutcome, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding deferred commit: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != sess {
		e.log.Debug("session discarded while commit was in flight, not queueing")
		return &CommitOutcome{}, nil
	}

	entry, err := e.q.Append(kindWorkoutCommit, http.MethodPost, api.WorkoutLogEndpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("queueing deferred commit: %w", err)
	}
	if err := e.store.SavePendingCommit(entry.ID); err != nil {
		return nil, err
	}

	e.log.Info("workout saved locally, will sync when connectivity returns",
		"entry", entry.ID, "cause", cause)
	return &CommitOutcome{Queued: true}, nil
}

func buildCommitRequest(s *models.Session) (models.WorkoutLogRequest, bool) {
	req := models.WorkoutLogRequest{
		RoutineID:   s.RoutineID,
		RoutineName: s.RoutineName,
	}
	for _, ex := range s.Exercises {
		var done []models.SetDone
		for _, rec := range ex.CompletedSets {
			if rec.Reps.IsEmpty() && rec.WeightKg.IsEmpty() {
				continue
			}
			done = append(done, models.SetDone{
				SetNumber: rec.SetNumber,
				Reps:      rec.Reps.OrZero(),
				WeightKg:  rec.WeightKg.OrZero(),
				SetType:   rec.SetType,
			})
		}
		if len(done) == 0 {
			continue
		}
		req.Details = append(req.Details, models.ExerciseDetail{
			ExerciseRef: ex.CatalogID,
			Name:        ex.Name,
			MuscleGroup: ex.MuscleGroup,
			SetsDone:    done,
		})
	}
	return req, len(req.Details) > 0
}
