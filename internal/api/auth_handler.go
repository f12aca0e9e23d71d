package api

import (
	"errors"
	"net/http"

	"github.com/convergehq/converge/internal/metrics"
	"github.com/convergehq/converge/internal/registration"
)

// authHandler groups the registration and login HTTP handlers.
type authHandler struct {
	svc     *registration.Service
	metrics *metrics.Metrics
}

func newAuthHandler(svc *registration.Service, m *metrics.Metrics) *authHandler {
	return &authHandler{svc: svc, metrics: m}
}

// registerRequest accepts both camelCase and snake_case field spellings for
// the resume text, matching what existing clients send.
type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ResumeText      string `json:"resumeText"`
	ResumeTextSnake string `json:"resume_text"`
	Name            string `json:"name"`
	Year            string `json:"year"`
	Department      string `json:"department"`
	Institution     string `json:"institution"`
	Availability    string `json:"availability"`
}

func (r registerRequest) resumeText() string {
	if r.ResumeText != "" {
		return r.ResumeText
	}
	return r.ResumeTextSnake
}

// Register handles POST /auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	result, err := h.svc.Register(r.Context(), registration.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		ResumeText:   req.resumeText(),
		Name:         req.Name,
		Year:         req.Year,
		Department:   req.Department,
		Institution:  req.Institution,
		Availability: req.Availability,
	})
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrEmailRequired),
			errors.Is(err, registration.ErrPasswordRequired),
			errors.Is(err, registration.ErrResumeRequired):
			h.metrics.IncRegistration("validation_error")
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, registration.ErrAccountExists):
			h.metrics.IncRegistration("conflict")
			writeError(w, http.StatusConflict, "conflict", err.Error())
		case errors.Is(err, registration.ErrExtractionFailed):
			h.metrics.IncRegistration("extraction_failed")
			writeError(w, http.StatusInternalServerError, "extraction_failed", err.Error())
		default:
			h.metrics.IncRegistration("error")
			writeError(w, http.StatusInternalServerError, "internal_error", "registration failed")
		}
		return
	}

	h.metrics.IncRegistration("success")
	h.metrics.IncAuthSuccess("register")
	auditLog(r, "register", "account", req.Email)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "registration successful",
		"token":   result.Token,
		"profile": result.Profile,
	})
}

// Login handles POST /auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrEmailRequired),
			errors.Is(err, registration.ErrPasswordRequired):
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		case errors.Is(err, registration.ErrInvalidCredentials):
			h.metrics.IncAuthFailure("login")
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "login failed")
		}
		return
	}

	h.metrics.IncAuthSuccess("login")
	auditLog(r, "login", "account", req.Email)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   result.Token,
		"profile": result.Profile,
	})
}
