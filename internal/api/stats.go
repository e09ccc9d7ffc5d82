package api

import (
	"net/http"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Total        int            `json:"total"`
	ByPhase      map[string]int `json:"by_phase"`
	FocusMinutes int            `json:"focus_minutes"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetPhaseStats(r.Context())
	if err != nil {
		s.logger.Error("get phase stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Total:        stats.Total,
		ByPhase:      stats.CountByPhase,
		FocusMinutes: stats.FocusMinutes,
	})
}
