package sse

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestNewEventWriterSetsStreamHeaders(t *testing.T) {
	rec := httptest.NewRecorder()

	_, ok := NewEventWriter(rec, "documents")
	if !ok {
		t.Fatal("NewEventWriter() ok = false for a flushable writer")
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestConcurrentWritesDoNotInterleaveFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	writer, ok := NewEventWriter(rec, "documents")
	if !ok {
		t.Fatal("NewEventWriter() ok = false")
	}

	// An event loop and a keep-alive ticker share one writer in the
	// stream handlers; frames from the two must come out whole.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := writer.WriteEvent("documents", map[string]int{"seq": i}); err != nil {
				t.Errorf("WriteEvent(%d) error = %v", i, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := writer.WriteKeepAlive(); err != nil {
				t.Errorf("WriteKeepAlive(%d) error = %v", i, err)
				return
			}
		}
	}()
	wg.Wait()

	for _, line := range strings.Split(rec.Body.String(), "\n") {
		switch {
		case line == "":
		case line == ": keepalive":
		case strings.HasPrefix(line, "event: documents"):
		case strings.HasPrefix(line, `data: {"seq":`):
		default:
			t.Fatalf("malformed stream line %q", line)
		}
	}
}
