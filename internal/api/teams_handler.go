package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/convergehq/converge/internal/auth"
	"github.com/convergehq/converge/internal/metrics"
	"github.com/convergehq/converge/internal/team"
)

// teamsHandler groups the team membership HTTP handlers.
type teamsHandler struct {
	teams   *team.Service
	metrics *metrics.Metrics
}

func newTeamsHandler(teams *team.Service, m *metrics.Metrics) *teamsHandler {
	return &teamsHandler{teams: teams, metrics: m}
}

// writeTeamError maps team service sentinels onto HTTP statuses. Ownership
// failures come back as 401 rather than 403 so a non-owner cannot tell a
// project they found apart from one they may manage.
func writeTeamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, team.ErrNotAuthenticated), errors.Is(err, team.ErrNotOwner):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, team.ErrProjectNotFound), errors.Is(err, team.ErrInviteNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, team.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found", err.Error())
	case errors.Is(err, team.ErrAlreadyMember), errors.Is(err, team.ErrInviteExists), errors.Is(err, team.ErrInviteClosed):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, team.ErrMemberEmailRequired):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, team.ErrNotInviteTarget):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "team operation failed")
	}
}

// AddTeammate handles POST /api/projects/{projectID}/teammates.
func (h *teamsHandler) AddTeammate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	requester := auth.EmailFromContext(r.Context())
	m, err := h.teams.AddTeammate(r.Context(), requester, projectID, req.Email)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	h.metrics.TeammatesAddedTotal.Inc()
	auditLog(r, "add_teammate", "project", projectID, "member", req.Email)
	writeJSON(w, http.StatusCreated, m)
}

// ListTeammates handles GET /api/projects/{projectID}/teammates.
func (h *teamsHandler) ListTeammates(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	teammates, err := h.teams.ListTeammates(r.Context(), projectID)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	if teammates == nil {
		teammates = []*team.Teammate{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teammates": teammates})
}

// CreateInvite handles POST /api/projects/{projectID}/invites.
func (h *teamsHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	requester := auth.EmailFromContext(r.Context())
	inv, err := h.teams.CreateInvite(r.Context(), requester, projectID, req.Email)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	h.metrics.IncInvite("created")
	auditLog(r, "create_invite", "invite", inv.ID, "project_id", projectID, "target", req.Email)
	writeJSON(w, http.StatusCreated, inv)
}

// ListInvites handles GET /api/invites: invites addressed to the caller.
func (h *teamsHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFromContext(r.Context())
	invites, err := h.teams.ListInvites(r.Context(), email)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	if invites == nil {
		invites = []*team.Invite{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invites": invites})
}

// AcceptInvite handles POST /api/invites/{inviteID}/accept.
func (h *teamsHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	inviteID := chi.URLParam(r, "inviteID")

	email := auth.EmailFromContext(r.Context())
	inv, err := h.teams.AcceptInvite(r.Context(), email, inviteID)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	h.metrics.IncInvite("accepted")
	auditLog(r, "accept_invite", "invite", inviteID, "project_id", inv.ProjectID)
	writeJSON(w, http.StatusOK, inv)
}

// RejectInvite handles POST /api/invites/{inviteID}/reject.
func (h *teamsHandler) RejectInvite(w http.ResponseWriter, r *http.Request) {
	inviteID := chi.URLParam(r, "inviteID")

	email := auth.EmailFromContext(r.Context())
	inv, err := h.teams.RejectInvite(r.Context(), email, inviteID)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	h.metrics.IncInvite("rejected")
	auditLog(r, "reject_invite", "invite", inviteID, "project_id", inv.ProjectID)
	writeJSON(w, http.StatusOK, inv)
}
