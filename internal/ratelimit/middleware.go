package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Middleware returns an HTTP middleware that enforces rate limits using the
// provided Limiter, keyed by client IP. It guards the credential endpoints
// against brute-force attempts.
//
// Rate-limit headers are always set on the response:
//
//	X-RateLimit-Limit     — maximum requests allowed in the window
//	X-RateLimit-Remaining — tokens remaining in the current window
//	X-RateLimit-Reset     — Unix timestamp when the bucket is fully replenished
//
// When the limit is exceeded the middleware responds with HTTP 429 and a JSON
// error body.
func Middleware(limiter *Limiter, onReject ...func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			// Always set headers so callers can inspect their quota.
			limit, remaining, resetAt := limiter.Status(key)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))

			if !limiter.Allow(key) {
				for _, fn := range onReject {
					fn()
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{
						"code":    "rate_limited",
						"message": "Rate limit exceeded. Try again later.",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the originating client address, preferring the first
// entry of X-Forwarded-For when a proxy set it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
