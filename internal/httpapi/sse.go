package httpapi

import (
	"fmt"
	"net/http"
)

// beginSSE writes the standard event-stream headers and returns the
// response's Flusher, or false if the underlying ResponseWriter doesn't
// support streaming.
func beginSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// writeSSEData writes one "data: ..." SSE frame and flushes it.
func writeSSEData(w http.ResponseWriter, flusher http.Flusher, data []byte) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// writeSSEEvent writes a named SSE event with no payload and flushes it.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string) {
	fmt.Fprintf(w, "event: %s\ndata:\n\n", event)
	flusher.Flush()
}
