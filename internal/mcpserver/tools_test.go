package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/liftlog/internal/api"
	"github.com/meltforce/liftlog/internal/engine"
	"github.com/meltforce/liftlog/internal/persist"
)

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := persist.Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	// The backend is never reachable in these tests; tool handlers that
	// commit are exercised elsewhere.
	client := api.NewClient("http://127.0.0.1:1", "test-key")
	return &handlers{eng: engine.New(store, client, log), log: log}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestStartWorkoutTool verifies the start handler parses its exercise list
// and returns a status snapshot.
func TestStartWorkoutTool(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.startWorkout(context.Background(), callReq(map[string]any{
		"routine_name": "Leg Day",
		"exercises":    `[{"name":"Squat","muscleGroup":"Legs","targetSets":3,"targetReps":"5"}]`,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	var st engine.Status
	if err := json.Unmarshal([]byte(resultText(t, res)), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if !st.Active || st.RoutineName != "Leg Day" || len(st.Exercises) != 1 {
		t.Errorf("status = %+v", st)
	}
	if len(st.Exercises[0].CompletedSets) != 3 {
		t.Errorf("sets = %d, want 3", len(st.Exercises[0].CompletedSets))
	}
}

// TestStartWorkoutToolBadInput verifies missing and malformed parameters
// come back as tool errors, not transport errors.
func TestStartWorkoutToolBadInput(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.startWorkout(context.Background(), callReq(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("missing routine_name accepted")
	}

	res, err = h.startWorkout(context.Background(), callReq(map[string]any{
		"routine_name": "Leg Day",
		"exercises":    "{not json",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "invalid exercises JSON") {
		t.Errorf("result = %+v", res)
	}
}

// TestUpdateSetTool verifies the record-a-set flow through the tool surface,
// including the invalid-reference path.
func TestUpdateSetTool(t *testing.T) {
	h := newTestHandlers(t)
	if _, err := h.startWorkout(context.Background(), callReq(map[string]any{
		"routine_name": "Leg Day",
		"exercises":    `[{"name":"Squat","muscleGroup":"Legs","targetSets":3,"targetReps":"5"}]`,
	})); err != nil {
		t.Fatal(err)
	}

	res, err := h.updateSet(context.Background(), callReq(map[string]any{
		"exercise": float64(0), "set": float64(1), "field": "weight_kg", "value": "140",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	s := h.eng.Session()
	if got := s.Exercises[0].CompletedSets[1].WeightKg; !got.Valid || got.Value != 140 {
		t.Errorf("weight = %+v, want 140", got)
	}

	res, err = h.updateSet(context.Background(), callReq(map[string]any{
		"exercise": float64(4), "set": float64(0), "field": "reps", "value": "5",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("out-of-range exercise accepted")
	}
}

// TestCommitWorkoutToolQueuesOffline verifies a commit with no reachable
// backend reports the saved-locally outcome.
func TestCommitWorkoutToolQueuesOffline(t *testing.T) {
	h := newTestHandlers(t)
	if _, err := h.startWorkout(context.Background(), callReq(map[string]any{
		"routine_name": "Leg Day",
		"exercises":    `[{"name":"Squat","muscleGroup":"Legs","targetSets":1,"targetReps":"5"}]`,
	})); err != nil {
		t.Fatal(err)
	}
	if _, err := h.updateSet(context.Background(), callReq(map[string]any{
		"exercise": float64(0), "set": float64(0), "field": "reps", "value": "5",
	})); err != nil {
		t.Fatal(err)
	}

	res, err := h.commitWorkout(context.Background(), callReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "sync") {
		t.Errorf("result = %q, want saved-locally message", resultText(t, res))
	}
	if n, _ := h.eng.QueueLen(); n != 1 {
		t.Errorf("queue len = %d, want 1", n)
	}
}

// TestCommitWorkoutToolNothingToSave verifies the empty-session message.
func TestCommitWorkoutToolNothingToSave(t *testing.T) {
	h := newTestHandlers(t)
	res, err := h.commitWorkout(context.Background(), callReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "nothing to save") {
		t.Errorf("result = %+v", res)
	}
}

// TestSessionResource verifies the resource handler serves the status JSON.
func TestSessionResource(t *testing.T) {
	h := newTestHandlers(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "liftlog://session"

	contents, err := h.sessionResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type %T", contents[0])
	}
	if tc.URI != "liftlog://session" || tc.MIMEType != "application/json" {
		t.Errorf("resource = %+v", tc)
	}
	var st engine.Status
	if err := json.Unmarshal([]byte(tc.Text), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.Active {
		t.Error("active with no session")
	}
}
