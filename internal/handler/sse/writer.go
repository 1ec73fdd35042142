package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// EventWriter writes SSE frames to one client connection. Writes are
// serialized internally, so the keep-alive goroutine and the handler's
// event loop can share one writer without interleaving frames.
type EventWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	stream  string
}

// NewEventWriter prepares w for event streaming and returns the writer.
// Returns false if the ResponseWriter cannot flush, in which case no
// headers have been written.
func NewEventWriter(w http.ResponseWriter, stream string) (*EventWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &EventWriter{w: w, flusher: flusher, stream: stream}, true
}

// WriteEvent marshals data and writes one named SSE event.
func (e *EventWriter) WriteEvent(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	e.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment (: keepalive\n\n) and flushes
// Returns error if connection is closed or write fails
func (e *EventWriter) WriteKeepAlive() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// SSE spec: Lines starting with : are comments (ignored by client)
	if _, err := fmt.Fprintf(e.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}

	e.flusher.Flush()

	// Health check: Attempt zero-byte write to detect closed connections
	if _, err := e.w.Write([]byte{}); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}

	return nil
}
