package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/upskill/internal/app"
	"github.com/okian/upskill/internal/domain/model"
	"github.com/okian/upskill/internal/domain/types"
)

// ReadDependencies is the read side of the supervisor.
type ReadDependencies interface {
	Profile(ctx context.Context, userID string) (*model.UserSkillProfile, error)
	Focus(ctx context.Context, userID string) (*model.FocusSet, error)
	Audit(ctx context.Context, userID string) ([]model.AuditEntry, error)
}

// ProfilesHandler serves profiles, focus sets and audit logs.
type ProfilesHandler struct {
	deps ReadDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ReadDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

// HandleGetProfile handles GET /profiles/{user_id}.
func (h *ProfilesHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	p, err := h.deps.Profile(r.Context(), userID)
	if !readOK(w, err) {
		return
	}
	if p == nil {
		writeError(w, notFound(userID, "profile"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetFocus handles GET /focus/{user_id}.
func (h *ProfilesHandler) HandleGetFocus(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	f, err := h.deps.Focus(r.Context(), userID)
	if !readOK(w, err) {
		return
	}
	if f == nil {
		writeError(w, notFound(userID, "focus set"))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// HandleGetAudit handles GET /audit/{user_id}. An unknown user has an empty log.
func (h *ProfilesHandler) HandleGetAudit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	entries, err := h.deps.Audit(r.Context(), userID)
	if !readOK(w, err) {
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return "", false
	}
	userID := r.PathValue("user_id")
	if userID == "" {
		writeError(w, types.NewError(types.CodeMissingField, "user_id is required", map[string]any{"missing": []string{"user_id"}}))
		return "", false
	}
	return userID, true
}

func readOK(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrNotStarted):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: types.NewError(types.CodeInternal, ErrUnavailable.Error(), nil)})
	default:
		writeError(w, types.NewError(types.CodeInternal, "read failed", nil))
	}
	return false
}

func notFound(userID, what string) *types.Error {
	return types.NewError(types.CodeNotFound, what+" not found", map[string]any{"user_id": userID})
}
