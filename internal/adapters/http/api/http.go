// Package api exposes the event supervisor over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/upskill/internal/app"
	"github.com/okian/upskill/internal/domain/model"
	"github.com/okian/upskill/internal/domain/types"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	HandleEvent(ctx context.Context, raw []byte) service.Result
	Profile(ctx context.Context, userID string) (*model.UserSkillProfile, error)
	Focus(ctx context.Context, userID string) (*model.FocusSet, error)
	Audit(ctx context.Context, userID string) ([]model.AuditEntry, error)
	StatsProvider
}

// ReplayedHeader is set to "true" on responses served from an idempotency record.
const ReplayedHeader = "Idempotent-Replayed"

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	profilesHandler *ProfilesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		eventsHandler:   NewEventsHandler(deps),
		profilesHandler: NewProfilesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/profiles/{user_id}", MetricsMiddleware(s.profilesHandler.HandleGetProfile, "profiles"))
	mux.HandleFunc("/focus/{user_id}", MetricsMiddleware(s.profilesHandler.HandleGetFocus, "focus"))
	mux.HandleFunc("/audit/{user_id}", MetricsMiddleware(s.profilesHandler.HandleGetAudit, "audit"))
}

type errorResponse struct {
	Error *types.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e *types.Error) {
	writeJSON(w, StatusFor(e.Code), errorResponse{Error: e})
}

// StatusFor maps a result error code to an HTTP status.
func StatusFor(code types.Code) int {
	switch {
	case code == "":
		return http.StatusOK
	case code == types.CodeNotFound:
		return http.StatusNotFound
	case code == types.CodeConflict:
		return http.StatusConflict
	case code.IsClientError():
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
