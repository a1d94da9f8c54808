package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/meltforce/liftlog/internal/api"
	"github.com/meltforce/liftlog/internal/models"
)

// TestCommitNothingToCommit verifies that a missing session and a session
// with no recorded sets both fail before any network activity.
func TestCommitNothingToCommit(t *testing.T) {
	eng, backend, _ := newTestEngine(t, t.TempDir())
	ctx := context.Background()

	if _, err := eng.Commit(ctx); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("no session: err = %v, want ErrNothingToCommit", err)
	}

	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Commit(ctx); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("all-blank session: err = %v, want ErrNothingToCommit", err)
	}

	if backend.postCount() != 0 {
		t.Errorf("backend called %d times for empty commits", backend.postCount())
	}
	if eng.Session() == nil {
		t.Error("failed commit discarded the session")
	}
}

// TestCommitFiltersAndCoerces verifies the outbound transformation: blank
// sets dropped, half-filled sets coerced to explicit zeros, empty exercises
// dropped, and the session cleared on success with PRs surfaced.
func TestCommitFiltersAndCoerces(t *testing.T) {
	eng, backend, _ := newTestEngine(t, t.TempDir())
	backend.prs = []models.PersonalRecord{{Exercise: "Bench Press", Weight: 100}}

	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	// Exercise 0: one full set, one weight-only set, one untouched.
	if err := eng.UpdateSet(0, 0, FieldReps, "8"); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 0, FieldWeightKg, "100"); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 2, FieldWeightKg, "60"); err != nil {
		t.Fatal(err)
	}
	// Exercise 1 stays untouched and must not appear in the payload.

	out, err := eng.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if out.Queued {
		t.Error("outcome queued on a live backend")
	}
	if len(out.PersonalRecords) != 1 || out.PersonalRecords[0].Exercise != "Bench Press" {
		t.Errorf("personal records = %+v", out.PersonalRecords)
	}

	if backend.postCount() != 1 {
		t.Fatalf("backend called %d times, want 1", backend.postCount())
	}
	req := backend.posts[0]
	if req.RoutineName != "Push Day" || req.RoutineID != "routine-1" {
		t.Errorf("routine = %q/%q", req.RoutineID, req.RoutineName)
	}
	if len(req.Details) != 1 {
		t.Fatalf("details = %d, want 1 (untouched exercise dropped)", len(req.Details))
	}
	d := req.Details[0]
	if d.Name != "Bench Press" || d.ExerciseRef != "cat-bench" {
		t.Errorf("detail = %+v", d)
	}
	if len(d.SetsDone) != 2 {
		t.Fatalf("setsDone = %d, want 2 (blank set dropped)", len(d.SetsDone))
	}
	if d.SetsDone[0].SetNumber != 1 || d.SetsDone[0].Reps != 8 || d.SetsDone[0].WeightKg != 100 {
		t.Errorf("set 1 = %+v", d.SetsDone[0])
	}
	if d.SetsDone[1].SetNumber != 3 || d.SetsDone[1].Reps != 0 || d.SetsDone[1].WeightKg != 60 {
		t.Errorf("half-filled set not coerced to zero: %+v", d.SetsDone[1])
	}

	if eng.Session() != nil {
		t.Error("session survived a successful commit")
	}
}

// TestCommitRejectedPreservesSession verifies that a backend rejection is
// surfaced and the session kept for the user to fix or retry.
func TestCommitRejectedPreservesSession(t *testing.T) {
	eng, backend, _ := newTestEngine(t, t.TempDir())
	backend.reject = &api.RejectedError{StatusCode: 422, Body: "routineName is required"}

	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 0, FieldReps, "8"); err != nil {
		t.Fatal(err)
	}

	_, err := eng.Commit(context.Background())
	var rej *api.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want RejectedError", err)
	}
	if rej.StatusCode != 422 {
		t.Errorf("status = %d, want 422", rej.StatusCode)
	}
	if eng.Session() == nil {
		t.Error("rejection discarded the session")
	}
	if n, _ := eng.QueueLen(); n != 0 {
		t.Errorf("rejection queued an entry: len = %d", n)
	}
}

// TestCommitOfflineQueuesThenDrains walks the full deferred-commit cycle:
// a connectivity failure queues the request and preserves the session, and
// the offline-to-online transition replays it and finally clears the
// session.
func TestCommitOfflineQueuesThenDrains(t *testing.T) {
	eng, backend, _ := newTestEngine(t, t.TempDir())
	ctx := context.Background()
	backend.setOffline(true)
	eng.SetOnline(ctx, false)

	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 0, FieldReps, "8"); err != nil {
		t.Fatal(err)
	}

	out, err := eng.Commit(ctx)
	if err != nil {
		t.Fatalf("offline commit: %v", err)
	}
	if !out.Queued {
		t.Fatal("outcome not queued on connectivity failure")
	}
	if eng.Session() == nil {
		t.Fatal("queued commit discarded the session")
	}
	if n, _ := eng.QueueLen(); n != 1 {
		t.Fatalf("queue len = %d, want 1", n)
	}

	backend.setOffline(false)
	eng.SetOnline(ctx, true)

	if len(backend.replays) != 1 {
		t.Fatalf("replayed %d entries, want 1", len(backend.replays))
	}
	var req models.WorkoutLogRequest
	if err := json.Unmarshal(backend.replays[0].Payload, &req); err != nil {
		t.Fatalf("decoding replayed payload: %v", err)
	}
	if req.RoutineName != "Push Day" || len(req.Details) != 1 {
		t.Errorf("replayed request = %+v", req)
	}

	if eng.Session() != nil {
		t.Error("session not cleared after deferred commit synced")
	}
	if n, _ := eng.QueueLen(); n != 0 {
		t.Errorf("queue len after drain = %d, want 0", n)
	}
}

// TestRestartDrainsPendingQueue verifies that a commit queued offline syncs
// on the next boot with connectivity up: the boot drain must not wait for an
// offline-to-online transition that may never come.
func TestRestartDrainsPendingQueue(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	eng, backend, _ := newTestEngine(t, dir)
	backend.setOffline(true)
	eng.SetOnline(ctx, false)
	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 0, FieldReps, "8"); err != nil {
		t.Fatal(err)
	}
	if out, err := eng.Commit(ctx); err != nil || !out.Queued {
		t.Fatalf("offline commit: out=%+v err=%v", out, err)
	}

	// Process restart, network back before boot.
	eng2, backend2, _ := newTestEngine(t, dir)
	restored, err := eng2.Rehydrate(ctx)
	if err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if !restored {
		t.Error("restored = false, want true (session was preserved on disk)")
	}

	if len(backend2.replays) != 1 {
		t.Fatalf("boot drain replayed %d entries, want 1", len(backend2.replays))
	}
	if n, _ := eng2.QueueLen(); n != 0 {
		t.Errorf("queue len after boot = %d, want 0", n)
	}
	if eng2.Session() != nil {
		t.Error("session not cleared after the deferred commit synced at boot")
	}
}

// TestRestartWithQueueStillOffline verifies a failed boot drain leaves the
// entry and session in place for the next connectivity signal.
func TestRestartWithQueueStillOffline(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	eng, backend, _ := newTestEngine(t, dir)
	backend.setOffline(true)
	eng.SetOnline(ctx, false)
	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 0, FieldReps, "8"); err != nil {
		t.Fatal(err)
	}
	if out, err := eng.Commit(ctx); err != nil || !out.Queued {
		t.Fatalf("offline commit: out=%+v err=%v", out, err)
	}

	eng2, backend2, _ := newTestEngine(t, dir)
	backend2.setOffline(true)
	eng2.SetOnline(ctx, false)
	if _, err := eng2.Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate with network down: %v", err)
	}
	if eng2.Session() == nil {
		t.Fatal("preserved session lost on a failed boot drain")
	}
	if n, _ := eng2.QueueLen(); n != 1 {
		t.Fatalf("queue len = %d, want 1", n)
	}

	backend2.setOffline(false)
	eng2.SetOnline(ctx, true)
	if eng2.Session() != nil {
		t.Error("session not cleared once connectivity returned")
	}
}

// TestDrainDoesNotClearNewerSession verifies that a session started after a
// deferred commit survives that commit's eventual replay.
func TestDrainDoesNotClearNewerSession(t *testing.T) {
	eng, backend, _ := newTestEngine(t, t.TempDir())
	ctx := context.Background()
	backend.setOffline(true)
	eng.SetOnline(ctx, false)

	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 0, FieldReps, "8"); err != nil {
		t.Fatal(err)
	}
	if out, err := eng.Commit(ctx); err != nil || !out.Queued {
		t.Fatalf("offline commit: out=%+v err=%v", out, err)
	}

	// User moves on to the next workout before connectivity returns.
	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}

	backend.setOffline(false)
	eng.SetOnline(ctx, true)

	if len(backend.replays) != 1 {
		t.Fatalf("replayed %d entries, want 1", len(backend.replays))
	}
	if eng.Session() == nil {
		t.Fatal("replay of an old deferred commit cleared the new session")
	}
	if eng.Session().Exercises[0].CompletedSets[0].Reps.Valid {
		t.Error("new session carries old progress")
	}
}

// TestCommitSuccessAfterDiscard verifies that a success landing after the
// user discarded the session mid-flight is accepted quietly: no error, no
// resurrection, nothing extra cleared.
func TestCommitSuccessAfterDiscard(t *testing.T) {
	eng, backend, _ := newTestEngine(t, t.TempDir())
	backend.blockPost = make(chan struct{})
	backend.postStarted = make(chan struct{}, 1)

	if err := eng.Start(twoExerciseSource()); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateSet(0, 0, FieldReps, "8"); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var out *CommitOutcome
	var commitErr error
	go func() {
		defer close(done)
		out, commitErr = eng.Commit(context.Background())
	}()

	// Discard while the request is parked in the backend.
	<-backend.postStarted
	if err := eng.Clear(); err != nil {
		t.Fatal(err)
	}
	close(backend.blockPost)
	<-done

	if commitErr != nil {
		t.Fatalf("late-success commit errored: %v", commitErr)
	}
	if out.Queued || len(out.PersonalRecords) != 0 {
		t.Errorf("late-success outcome = %+v, want empty", out)
	}
	if eng.Session() != nil {
		t.Error("discarded session resurrected")
	}
}
