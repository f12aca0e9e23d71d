package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Extracted is the structured payload the external parsing service derives
// from raw resume text. Raw holds the service's full JSON response.
type Extracted struct {
	Name         string `json:"name"`
	Year         string `json:"year"`
	Department   string `json:"department"`
	Institution  string `json:"institution"`
	Availability string `json:"availability"`
	Raw          []byte `json:"-"`
}

// Extractor converts raw resume text into a structured profile payload. The
// conversion itself happens in an external service; implementations only
// carry the call.
type Extractor interface {
	Extract(ctx context.Context, resumeText string) (*Extracted, error)
}

// maxExtractResponseSize bounds the extractor response body (1 MB).
const maxExtractResponseSize = 1 << 20

// HTTPExtractor calls the parsing service over HTTP. Requests are bounded by
// the client timeout so a hanging extractor cannot block registration
// indefinitely.
type HTTPExtractor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPExtractor creates an extractor client for the given base URL.
func NewHTTPExtractor(baseURL, apiKey string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Extract POSTs the resume text to the parsing service and decodes the
// structured fields from the response.
func (e *HTTPExtractor) Extract(ctx context.Context, resumeText string) (*Extracted, error) {
	body, err := json.Marshal(map[string]string{"text": resumeText})
	if err != nil {
		return nil, fmt.Errorf("encoding extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extractor: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxExtractResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading extractor response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	out := &Extracted{}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decoding extractor response: %w", err)
	}
	out.Raw = raw
	return out, nil
}
