package store

import (
	"context"

	"github.com/seantiz/pomoflow/internal/model"
)

// PhaseStats holds aggregate statistics over the completion ledger.
type PhaseStats struct {
	Total        int            `json:"total"`
	CountByPhase map[string]int `json:"count_by_phase"`
	FocusMinutes int            `json:"focus_minutes"`
}

// Store defines the persistence operations for the phase-completion ledger.
type Store interface {
	InsertPhaseCompletion(ctx context.Context, pc *model.PhaseCompletion) error
	GetPhaseCompletion(ctx context.Context, id string) (*model.PhaseCompletion, error)
	ListPhaseCompletions(ctx context.Context, limit, offset int) ([]*model.PhaseCompletion, int, error)
	GetPhaseStats(ctx context.Context) (*PhaseStats, error)
	Close() error
}
