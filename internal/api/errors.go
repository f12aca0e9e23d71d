package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the wire shape of every error this API returns. The
// request id is echoed so a client report can be matched to server logs.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// writeError writes a JSON error response with the given status code. The
// request id is read back from the response header, where
// requestIDMiddleware put it before the handler ran.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	env := errorEnvelope{
		Error: errorDetail{
			Code:      code,
			Message:   message,
			RequestID: w.Header().Get("X-Request-ID"),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(env)
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response body", "error", err)
	}
}

// readJSON decodes the request body into v. The body is capped at
// maxBodySize and must contain exactly one JSON value.
func readJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}
