package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/converge.json.
const wellKnownManifest = `{
  "name": "Converge",
  "description": "Backend for resume-driven project team matching",
  "version": "0.1.0",
  "api_base": "/api",
  "auth": {
    "type": "bearer",
    "header": "Authorization"
  },
  "endpoints": {
    "register": "/auth/register",
    "login": "/auth/login",
    "projects": "/api/projects",
    "explore": "/api/projects/explore",
    "teammates": "/api/projects/{projectID}/teammates",
    "invites": "/api/invites"
  },
  "health": "/health"
}`

// WellKnownHandler returns the static Converge well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
