// Package devserver is a stand-in for the real LiftLog backend: just enough
// of the workout-log endpoint to develop and test the session engine
// against. The production backend is a separate service; nothing here is
// meant to persist beyond the process.
package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/liftlog/internal/models"
)

// Server implements the backend interface the engine commits against.
type Server struct {
	log    *slog.Logger
	apiKey string
	router chi.Router

	mu        sync.Mutex
	bestLifts map[string]float64
	committed int
}

// New creates a dev backend with all routes configured.
func New(apiKey string, log *slog.Logger) *Server {
	s := &Server{
		log:       log,
		apiKey:    apiKey,
		router:    chi.NewRouter(),
		bestLifts: make(map[string]float64),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestLogging(s.log))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyAuth(s.apiKey))
		r.Post("/workout-logs", s.handleWorkoutLog)
	})
}

func (s *Server) handleWorkoutLog(w http.ResponseWriter, r *http.Request) {
	var req models.WorkoutLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.RoutineName == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "routineName is required"})
		return
	}
	if len(req.Details) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "details must not be empty"})
		return
	}
	for _, d := range req.Details {
		if d.Name == "" || len(d.SetsDone) == 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "each exercise needs a name and at least one set"})
			return
		}
	}

	resp := models.WorkoutLogResponse{PersonalRecords: s.recordBests(req)}
	writeJSON(w, http.StatusOK, resp)
}

// recordBests updates the in-memory best-lift table and returns the PRs
// this workout set.
func (s *Server) recordBests(req models.WorkoutLogRequest) []models.PersonalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.committed++
	var prs []models.PersonalRecord
	for _, d := range req.Details {
		top := 0.0
		for _, set := range d.SetsDone {
			if set.WeightKg > top {
				top = set.WeightKg
			}
		}
		if top > s.bestLifts[d.Name] {
			s.bestLifts[d.Name] = top
			prs = append(prs, models.PersonalRecord{Exercise: d.Name, Weight: top})
		}
	}
	return prs
}

// CommittedCount reports how many workout logs were accepted. Test hook.
func (s *Server) CommittedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
