package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/seantiz/pomoflow/internal/engine"
	"github.com/seantiz/pomoflow/internal/model"
)

// handleStreamEvents streams engine events as SSE. The current state is sent
// first so a new subscriber can render without waiting for a tick.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	// Subscribing after engine Close yields a closed channel, so the loop
	// below sends "done" and returns.
	ch, unsub := s.engine.Broker().Subscribe()
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	if err := writeSSEState(w, s.engine.Snapshot()); err != nil {
		return
	}
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				_ = writeSSEEvent(w, "done", "stream complete")
				if canFlush {
					flusher.Flush()
				}
				return
			}
			if err := writeEngineEvent(w, ev); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

func writeEngineEvent(w http.ResponseWriter, ev engine.Event) error {
	switch ev.Type {
	case engine.EventState:
		return writeSSEState(w, *ev.State)
	case engine.EventCue:
		return writeSSEEvent(w, engine.EventCue, ev.Cue)
	default:
		return nil
	}
}

func writeSSEState(w http.ResponseWriter, st model.TimerState) error {
	data, err := json.Marshal(newTimerResponse(st))
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return writeSSEEvent(w, engine.EventState, string(data))
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
// data must not contain newlines; JSON from encoding/json never does.
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
