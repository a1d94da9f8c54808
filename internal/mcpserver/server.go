// Package mcpserver hosts the engine's operations as MCP tools. The UI
// layer proper is out of scope for this module; this surface is what
// drives the engine in development and lets an assistant run a workout end
// to end.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/liftlog/internal/engine"
)

// New creates an MCP server with all tools and resources registered.
func New(eng *engine.Engine, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog workout session engine. Start a workout from a routine, record sets while the session survives restarts and network loss, and commit it to the backend when done."),
	)

	h := &handlers{eng: eng, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolStartWorkout, Handler: h.startWorkout},
		server.ServerTool{Tool: toolTogglePause, Handler: h.togglePause},
		server.ServerTool{Tool: toolSessionStatus, Handler: h.sessionStatus},
		server.ServerTool{Tool: toolUpdateSet, Handler: h.updateSet},
		server.ServerTool{Tool: toolAddAdvancedSet, Handler: h.addAdvancedSet},
		server.ServerTool{Tool: toolRemoveAdvancedSet, Handler: h.removeAdvancedSet},
		server.ServerTool{Tool: toolReplaceExercise, Handler: h.replaceExercise},
		server.ServerTool{Tool: toolCommitWorkout, Handler: h.commitWorkout},
		server.ServerTool{Tool: toolDiscardWorkout, Handler: h.discardWorkout},
		server.ServerTool{Tool: toolRestTimerOpen, Handler: h.restTimerOpen},
		server.ServerTool{Tool: toolRestTimerArm, Handler: h.restTimerArm},
		server.ServerTool{Tool: toolRestTimerAdjust, Handler: h.restTimerAdjust},
		server.ServerTool{Tool: toolRestTimerReset, Handler: h.restTimerReset},
		server.ServerTool{Tool: toolRestTimerStop, Handler: h.restTimerStop},
	)

	s.AddResources(
		server.ServerResource{Resource: resSession, Handler: h.sessionResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	eng *engine.Engine
	log *slog.Logger
}

var resSession = mcp.NewResource(
	"liftlog://session",
	"Active Session",
	mcp.WithResourceDescription("The in-flight workout session: exercises, recorded sets, elapsed time, rest timer, and pending sync count"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) sessionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := h.eng.Status()
	if err != nil {
		return nil, err
	}
	return jsonResourceContents(req.Params.URI, st)
}
