package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seantiz/pomoflow/internal/model"
)

const maxBodySize = 1 << 10 // 1 KB

// Intents a presentation layer can send to the engine.
const (
	IntentSessionIncrement = "session_increment"
	IntentSessionDecrement = "session_decrement"
	IntentBreakIncrement   = "break_increment"
	IntentBreakDecrement   = "break_decrement"
	IntentToggle           = "toggle"
	IntentReset            = "reset"
)

var errUnknownIntent = errors.New("unknown intent")

// timerResponse is the rendered timer: the raw state plus the MM:SS display.
type timerResponse struct {
	model.TimerState
	Remaining string `json:"remaining"`
	Changed   *bool  `json:"changed,omitempty"`
}

// intentRequest is the JSON body for POST /v1/timer/intents and for
// messages received over the WebSocket.
type intentRequest struct {
	Intent string `json:"intent"`
}

func newTimerResponse(st model.TimerState) timerResponse {
	return timerResponse{TimerState: st, Remaining: st.Remaining()}
}

// applyIntent forwards an intent to the engine. Rejected intents are not
// errors; they report changed=false.
func (s *Server) applyIntent(intent string) (bool, error) {
	switch intent {
	case IntentSessionIncrement:
		return s.engine.AdjustSessionLength(+1), nil
	case IntentSessionDecrement:
		return s.engine.AdjustSessionLength(-1), nil
	case IntentBreakIncrement:
		return s.engine.AdjustBreakLength(+1), nil
	case IntentBreakDecrement:
		return s.engine.AdjustBreakLength(-1), nil
	case IntentToggle:
		return s.engine.ToggleRunning(), nil
	case IntentReset:
		return s.engine.Reset(), nil
	default:
		return false, errUnknownIntent
	}
}

func (s *Server) handleGetTimer(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, newTimerResponse(s.engine.Snapshot()))
}

// handleIntent returns a handler that applies a fixed intent.
func (s *Server) handleIntent(intent string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.respondIntent(w, intent)
	}
}

func (s *Server) handlePostIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Intent == "" {
		s.writeError(w, http.StatusBadRequest, "intent is required")
		return
	}
	s.respondIntent(w, req.Intent)
}

func (s *Server) respondIntent(w http.ResponseWriter, intent string) {
	changed, err := s.applyIntent(intent)
	if errors.Is(err, errUnknownIntent) {
		s.writeError(w, http.StatusBadRequest, "unknown intent")
		return
	}

	resp := newTimerResponse(s.engine.Snapshot())
	resp.Changed = &changed
	s.writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
