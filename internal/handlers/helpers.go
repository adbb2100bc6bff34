// File: internal/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// sseWriter streams server-sent events over one response. Every event
// is a single "data:" line followed by a blank line, flushed
// immediately.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) sendJSON(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.sendRaw(string(data))
}

func (s *sseWriter) sendRaw(data string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) sendContent(fragment string) error {
	return s.sendJSON(map[string]string{"content": fragment})
}

func (s *sseWriter) sendDone(messageID uint) {
	_ = s.sendJSON(map[string]interface{}{"flag": "DONE", "id": messageID})
}

func (s *sseWriter) sendError(message string) {
	_ = s.sendJSON(map[string]string{"error": message})
}
