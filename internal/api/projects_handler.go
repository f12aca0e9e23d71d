package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/convergehq/converge/internal/auth"
	"github.com/convergehq/converge/internal/metrics"
	"github.com/convergehq/converge/internal/project"
	"github.com/convergehq/converge/internal/team"
)

// projectsHandler groups the project listing HTTP handlers.
type projectsHandler struct {
	projects *project.Service
	teams    *team.Service
	metrics  *metrics.Metrics
}

func newProjectsHandler(projects *project.Service, teams *team.Service, m *metrics.Metrics) *projectsHandler {
	return &projectsHandler{projects: projects, teams: teams, metrics: m}
}

// createProjectRequest accepts the field spellings existing clients use for
// the list-valued attributes. The first non-empty alias wins.
type createProjectRequest struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Visibility  string `json:"visibility"`
	GithubRepo  string `json:"githubRepo"`
	Description string `json:"description"`

	RequiredSkills      project.StringList `json:"requiredSkills"`
	RequiredSkillsSnake project.StringList `json:"required_skills"`

	PreferredTechnologies      project.StringList `json:"preferredTechnologies"`
	PreferredTechnologiesSnake project.StringList `json:"preferred_technologies"`
	PreferredSkills            project.StringList `json:"preferredSkills"`
	PreferredSkillsSnake       project.StringList `json:"preferred_skills"`

	Domain         project.StringList `json:"domain"`
	Domains        project.StringList `json:"domains"`
	ProjectDomains project.StringList `json:"projectDomains"`
	DomainList     project.StringList `json:"domain_list"`
}

func firstList(lists ...project.StringList) project.StringList {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// CreateProject handles POST /api/projects.
func (h *projectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	in := project.CreateProjectInput{
		Title:                 req.Title,
		Type:                  req.Type,
		Visibility:            req.Visibility,
		RequiredSkills:        firstList(req.RequiredSkills, req.RequiredSkillsSnake),
		PreferredTechnologies: firstList(req.PreferredTechnologies, req.PreferredTechnologiesSnake, req.PreferredSkills, req.PreferredSkillsSnake),
		Domain:                firstList(req.Domain, req.Domains, req.ProjectDomains, req.DomainList),
		GithubRepo:            req.GithubRepo,
		Description:           req.Description,
		OwnerEmail:            auth.EmailFromContext(r.Context()),
	}

	p, err := h.projects.Create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, project.ErrTitleRequired),
			errors.Is(err, project.ErrTypeRequired),
			errors.Is(err, project.ErrVisibilityRequired),
			errors.Is(err, project.ErrSkillsRequired):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, project.ErrOwnerRequired):
			writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to create project")
		}
		return
	}

	h.metrics.ProjectsCreatedTotal.Inc()
	auditLog(r, "create", "project", p.ID, "title", p.Title)
	writeJSON(w, http.StatusCreated, p)
}

// ListMine handles GET /api/projects: the caller's own listings.
func (h *projectsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFromContext(r.Context())
	list, err := h.projects.ListByOwner(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list projects")
		return
	}
	if list == nil {
		list = []*project.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": list})
}

// exploreEntry is a project joined with its poster's public identity.
type exploreEntry struct {
	*project.Project
	PostedBy postedBy `json:"postedBy"`
}

type postedBy struct {
	Email string `json:"email"`
}

// Explore handles GET /api/projects/explore: every listing, annotated with
// who posted it.
func (h *projectsHandler) Explore(w http.ResponseWriter, r *http.Request) {
	list, err := h.projects.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list projects")
		return
	}

	entries := make([]exploreEntry, 0, len(list))
	for _, p := range list {
		entries = append(entries, exploreEntry{
			Project:  p,
			PostedBy: postedBy{Email: p.OwnerEmail},
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": entries})
}

// GetProject handles GET /api/projects/{projectID}: one listing with its
// current team.
func (h *projectsHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")

	p, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load project")
		return
	}

	teammates, err := h.teams.ListTeammates(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load teammates")
		return
	}
	if teammates == nil {
		teammates = []*team.Teammate{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project":   p,
		"postedBy":  postedBy{Email: p.OwnerEmail},
		"teammates": teammates,
	})
}
