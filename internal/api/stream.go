package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
)

// ndjsonStream writes one JSON value per line to a chat response and
// flushes after every line so deltas reach the browser as they arrive.
// handleChat sends chatEvent values through it: any number of "delta"
// events followed by exactly one "done" or "error" event. The mutex keeps
// lines whole if a send races the final event.
type ndjsonStream struct {
	mu sync.Mutex
	w  io.Writer
	f  http.Flusher
}

// newNDJSONStream wraps a ResponseWriter; headers and status must already
// be written. A writer without http.Flusher support still works, it just
// buffers until the handler returns.
func newNDJSONStream(w http.ResponseWriter) *ndjsonStream {
	var f http.Flusher
	if w != nil {
		if fl, ok := w.(http.Flusher); ok {
			f = fl
		}
	}
	return &ndjsonStream{w: w, f: f}
}

func (s *ndjsonStream) send(v any) error {
	if s == nil || s.w == nil {
		return errors.New("stream not ready")
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte{'\n'}); err != nil {
		return err
	}
	if s.f != nil {
		s.f.Flush()
	}
	return nil
}
