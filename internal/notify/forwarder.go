package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProfileEvent is the payload forwarded downstream after a profile is saved.
type ProfileEvent struct {
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Year         string    `json:"year,omitempty"`
	Department   string    `json:"department,omitempty"`
	Institution  string    `json:"institution,omitempty"`
	Availability string    `json:"availability,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Sender delivers a batch of profile events. It exists to allow testing
// without a real webhook endpoint.
type Sender interface {
	Send(ctx context.Context, events []ProfileEvent) error
}

// WebhookSender POSTs event batches as JSON to a configured URL.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a sender for the given webhook URL.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the batch. A non-2xx response counts as failure.
func (w *WebhookSender) Send(ctx context.Context, events []ProfileEvent) error {
	body, err := json.Marshal(map[string]interface{}{"profiles": events})
	if err != nil {
		return fmt.Errorf("encoding profile batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting profile batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Stats receives forwarder observability callbacks. All methods must be safe
// for concurrent use.
type Stats interface {
	SetBufferSize(n int)
	IncFlush(status string)
	AddEvents(n int)
}

// Forwarder buffers profile events in memory and flushes them downstream in
// batches. Delivery is strictly best-effort: flush errors are logged and
// dropped, and Publish never blocks or fails the calling request. It is safe
// for concurrent use.
type Forwarder struct {
	sender        Sender
	buffer        []ProfileEvent
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	done          chan struct{}
	stats         Stats
}

// NewForwarder creates a Forwarder that flushes when the buffer reaches
// batchSize or every flushInterval, whichever comes first.
func NewForwarder(sender Sender, batchSize int, flushInterval time.Duration) *Forwarder {
	return &Forwarder{
		sender:        sender,
		buffer:        make([]ProfileEvent, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
}

// WithStats attaches an observability sink. Must be called before Start.
func (f *Forwarder) WithStats(stats Stats) *Forwarder {
	f.stats = stats
	return f
}

// Start begins a background goroutine that flushes buffered events on a
// timer. It blocks until Stop is called or the context is cancelled.
func (f *Forwarder) Start(ctx context.Context) {
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.flush()
		case <-ctx.Done():
			f.flush()
			return
		case <-f.done:
			f.flush()
			return
		}
	}
}

// Publish adds an event to the buffer. If the buffer reaches batchSize, a
// flush is triggered immediately.
func (f *Forwarder) Publish(ev ProfileEvent) {
	f.mu.Lock()
	f.buffer = append(f.buffer, ev)
	buffered := len(f.buffer)
	f.mu.Unlock()

	if f.stats != nil {
		f.stats.AddEvents(1)
		f.stats.SetBufferSize(buffered)
	}

	if buffered >= f.batchSize {
		f.flush()
	}
}

// flush drains all buffered events and sends them downstream. Errors are
// logged rather than returned so callers are never blocked on delivery.
func (f *Forwarder) flush() {
	f.mu.Lock()
	if len(f.buffer) == 0 {
		f.mu.Unlock()
		return
	}
	batch := f.buffer
	f.buffer = make([]ProfileEvent, 0, f.batchSize)
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := f.sender.Send(ctx, batch)
	if err != nil {
		slog.Error("failed to forward profile events", "count", len(batch), "error", err)
	}

	if f.stats != nil {
		f.stats.SetBufferSize(0)
		if err != nil {
			f.stats.IncFlush("error")
		} else {
			f.stats.IncFlush("ok")
		}
	}
}

// Stop signals the background goroutine to exit and performs a final flush.
func (f *Forwarder) Stop() {
	close(f.done)
}
