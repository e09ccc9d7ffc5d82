package api

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Phase   string `json:"phase"`
	Running bool   `json:"running"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	st := s.engine.Snapshot()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Phase:   st.Phase,
		Running: st.Running,
	})
}
