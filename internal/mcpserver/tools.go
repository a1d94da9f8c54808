package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/liftlog/internal/api"
	"github.com/meltforce/liftlog/internal/engine"
	"github.com/meltforce/liftlog/internal/models"
)

// --- Tool definitions ---

var toolStartWorkout = mcp.NewTool("start_workout",
	mcp.WithDescription("Start a fresh workout session from a routine, replacing any session already in progress. The session begins paused; use toggle_pause to start the clock."),
	mcp.WithString("routine_name", mcp.Required(), mcp.Description("Display name of the routine (or a label for an ad-hoc session)")),
	mcp.WithString("routine_id", mcp.Description("Routine template id; omit for ad-hoc sessions")),
	mcp.WithString("exercises", mcp.Description(`JSON array of exercise specs: [{"name","muscleGroup","targetSets","targetReps","catalogId","supersetGroupId","order"}]. Omit or pass [] for an exercise-free (cardio) session.`)),
)

var toolTogglePause = mcp.NewTool("toggle_pause",
	mcp.WithDescription("Pause or resume the session clock. Elapsed time accounting survives restarts."),
)

var toolSessionStatus = mcp.NewTool("session_status",
	mcp.WithDescription("Current session state: exercises and recorded sets, elapsed time, pause state, rest timer, and pending sync queue length."),
)

var toolUpdateSet = mcp.NewTool("update_set",
	mcp.WithDescription("Record one field of one set. Pass an empty value to mark a numeric field as not-entered (distinct from 0)."),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("Exercise index (0-based)")),
	mcp.WithNumber("set", mcp.Required(), mcp.Description("Set index within the exercise (0-based)")),
	mcp.WithString("field", mcp.Required(), mcp.Description("Field to update"), mcp.Enum("reps", "weight_kg", "set_type")),
	mcp.WithString("value", mcp.Description("New value; empty string clears a numeric field or the set type")),
)

var toolAddAdvancedSet = mcp.NewTool("add_advanced_set",
	mcp.WithDescription("Chain an advanced set (dropset, rest-pause, ...) onto an existing set. It shares the anchor set's number."),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("Exercise index (0-based)")),
	mcp.WithNumber("set", mcp.Required(), mcp.Description("Anchor set index (0-based)")),
	mcp.WithString("set_type", mcp.Required(), mcp.Description("Advanced set tag, e.g. 'dropset'")),
)

var toolRemoveAdvancedSet = mcp.NewTool("remove_advanced_set",
	mcp.WithDescription("Remove a chained advanced set, or clear the type tag from an anchor set (anchors are never deleted)."),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("Exercise index (0-based)")),
	mcp.WithNumber("set", mcp.Required(), mcp.Description("Set index (0-based)")),
)

var toolReplaceExercise = mcp.NewTool("replace_exercise",
	mcp.WithDescription("Swap an exercise slot for a different exercise. Grouping metadata is preserved; recorded sets for the slot are discarded."),
	mcp.WithNumber("exercise", mcp.Required(), mcp.Description("Exercise index (0-based)")),
	mcp.WithString("spec", mcp.Required(), mcp.Description(`JSON exercise spec: {"name","muscleGroup","targetSets","targetReps","catalogId"}`)),
)

var toolCommitWorkout = mcp.NewTool("commit_workout",
	mcp.WithDescription("Finish the session: filter blank sets, submit to the backend, and clear local state. If the network is down the commit is saved locally and synced later."),
)

var toolDiscardWorkout = mcp.NewTool("discard_workout",
	mcp.WithDescription("Discard the in-progress session and rest timer without saving anything."),
)

var toolRestTimerOpen = mcp.NewTool("rest_timer_open",
	mcp.WithDescription("Open the rest selector without starting a countdown."),
)

var toolRestTimerArm = mcp.NewTool("rest_timer_arm",
	mcp.WithDescription("Start a rest countdown."),
	mcp.WithNumber("seconds", mcp.Required(), mcp.Description("Rest duration in seconds")),
)

var toolRestTimerAdjust = mcp.NewTool("rest_timer_adjust",
	mcp.WithDescription("Extend or shorten the running rest countdown. Shortening clamps at immediate expiry."),
	mcp.WithNumber("delta_seconds", mcp.Required(), mcp.Description("Seconds to add (negative to subtract)")),
)

var toolRestTimerReset = mcp.NewTool("rest_timer_reset",
	mcp.WithDescription("Clear the countdown but keep the rest selector open."),
)

var toolRestTimerStop = mcp.NewTool("rest_timer_stop",
	mcp.WithDescription("Fully stop and clear the rest timer."),
)

// --- Tool handlers ---

func (h *handlers) startWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("routine_name")
	if err != nil {
		return mcp.NewToolResultError("routine_name parameter is required"), nil
	}

	src := models.RoutineSource{
		RoutineID: req.GetString("routine_id", ""),
		Name:      name,
	}
	if raw := req.GetString("exercises", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &src.Exercises); err != nil {
			return mcp.NewToolResultError("invalid exercises JSON: " + err.Error()), nil
		}
	}

	if err := h.eng.Start(src); err != nil {
		h.log.Error("mcp start_workout", "error", err)
		return mcp.NewToolResultError("start failed: " + err.Error()), nil
	}
	return h.statusResult()
}

func (h *handlers) togglePause(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.eng.TogglePause(); err != nil {
		return toolError(err), nil
	}
	return h.statusResult()
}

func (h *handlers) sessionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.statusResult()
}

func (h *handlers) updateSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exIdx, setIdx, errResult := requireIndices(req)
	if errResult != nil {
		return errResult, nil
	}
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError("field parameter is required"), nil
	}

	if err := h.eng.UpdateSet(exIdx, setIdx, engine.SetField(field), req.GetString("value", "")); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("set updated"), nil
}

func (h *handlers) addAdvancedSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exIdx, setIdx, errResult := requireIndices(req)
	if errResult != nil {
		return errResult, nil
	}
	setType, err := req.RequireString("set_type")
	if err != nil {
		return mcp.NewToolResultError("set_type parameter is required"), nil
	}

	if err := h.eng.AddAdvancedSet(exIdx, setIdx, setType); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("advanced set added"), nil
}

func (h *handlers) removeAdvancedSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exIdx, setIdx, errResult := requireIndices(req)
	if errResult != nil {
		return errResult, nil
	}

	if err := h.eng.RemoveAdvancedSetOrClearType(exIdx, setIdx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("advanced set removed"), nil
}

func (h *handlers) replaceExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exIdx, err := req.RequireInt("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	raw, err := req.RequireString("spec")
	if err != nil {
		return mcp.NewToolResultError("spec parameter is required"), nil
	}

	var spec models.ExerciseSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return mcp.NewToolResultError("invalid spec JSON: " + err.Error()), nil
	}

	if err := h.eng.ReplaceExercise(exIdx, spec); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("exercise replaced"), nil
}

func (h *handlers) commitWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outcome, err := h.eng.Commit(ctx)
	if err != nil {
		if errors.Is(err, engine.ErrNothingToCommit) {
			return mcp.NewToolResultError("nothing to save: no sets have been recorded"), nil
		}
		var rejected *api.RejectedError
		if errors.As(err, &rejected) {
			return mcp.NewToolResultError("backend rejected the workout: " + rejected.Body), nil
		}
		h.log.Error("mcp commit_workout", "error", err)
		return mcp.NewToolResultError("commit failed: " + err.Error()), nil
	}

	if outcome.Queued {
		return mcp.NewToolResultText("workout saved locally; it will sync when connectivity returns"), nil
	}
	result, err := mcp.NewToolResultJSON(map[string]any{
		"saved":            true,
		"personal_records": outcome.PersonalRecords,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) discardWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.eng.Clear(); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("workout discarded"), nil
}

func (h *handlers) restTimerOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.eng.OpenRestTimer(); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("rest selector open"), nil
}

func (h *handlers) restTimerArm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seconds, err := req.RequireInt("seconds")
	if err != nil {
		return mcp.NewToolResultError("seconds parameter is required"), nil
	}
	if err := h.eng.ArmRestTimer(seconds); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("rest timer armed for %ds", seconds)), nil
}

func (h *handlers) restTimerAdjust(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	delta, err := req.RequireInt("delta_seconds")
	if err != nil {
		return mcp.NewToolResultError("delta_seconds parameter is required"), nil
	}
	if err := h.eng.AdjustRestTimer(delta); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("rest timer adjusted, %dms remaining", h.eng.RestRemainingMs())), nil
}

func (h *handlers) restTimerReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.eng.ResetRestTimer(); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("rest timer reset"), nil
}

func (h *handlers) restTimerStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.eng.StopRestTimer(); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("rest timer stopped"), nil
}

// --- helpers ---

func (h *handlers) statusResult() (*mcp.CallToolResult, error) {
	st, err := h.eng.Status()
	if err != nil {
		h.log.Error("mcp session status", "error", err)
		return mcp.NewToolResultError("status failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(st)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func requireIndices(req mcp.CallToolRequest) (exIdx, setIdx int, errResult *mcp.CallToolResult) {
	exIdx, err := req.RequireInt("exercise")
	if err != nil {
		return 0, 0, mcp.NewToolResultError("exercise parameter is required")
	}
	setIdx, err = req.RequireInt("set")
	if err != nil {
		return 0, 0, mcp.NewToolResultError("set parameter is required")
	}
	return exIdx, setIdx, nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func jsonResourceContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
