package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/pomoflow/internal/model"
	"github.com/seantiz/pomoflow/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// listPhasesResponse wraps the paginated ledger response.
type listPhasesResponse struct {
	Phases []*model.PhaseCompletion `json:"phases"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

func (s *Server) handleListPhases(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	phases, total, err := s.store.ListPhaseCompletions(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list phase completions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list phases")
		return
	}

	if phases == nil {
		phases = []*model.PhaseCompletion{}
	}

	s.writeJSON(w, http.StatusOK, listPhasesResponse{
		Phases: phases,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleGetPhase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	pc, err := s.store.GetPhaseCompletion(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "phase completion not found")
		return
	}
	if err != nil {
		s.logger.Error("get phase completion", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get phase completion")
		return
	}

	s.writeJSON(w, http.StatusOK, pc)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
