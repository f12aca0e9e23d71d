package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const emailContextKey contextKey = iota

// TokenVerifier validates a bearer token and returns the subject email.
type TokenVerifier interface {
	Validate(token string) (string, error)
}

// RejectFunc writes the response for a request that fails bearer
// authentication. The transport layer supplies it so all error responses
// share one wire shape.
type RejectFunc func(w http.ResponseWriter, message string)

// ContextWithEmail returns a new context carrying the authenticated email.
func ContextWithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailContextKey, email)
}

// EmailFromContext extracts the authenticated email from the context, or ""
// if not present.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailContextKey).(string)
	return email
}

// Middleware returns middleware that authenticates requests using a bearer
// token in the Authorization header. On success the subject email is
// injected into the request context; on failure reject writes the response.
func Middleware(tokens TokenVerifier, reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				reject(w, "missing or malformed authorization header")
				return
			}

			email, err := tokens.Validate(token)
			if err != nil || email == "" {
				reject(w, "invalid or expired token")
				return
			}

			ctx := ContextWithEmail(r.Context(), email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CanManageProject reports whether actorEmail may manage the team of the
// project owned by ownerEmail.
func CanManageProject(actorEmail, ownerEmail string) bool {
	return actorEmail != "" && actorEmail == ownerEmail
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
