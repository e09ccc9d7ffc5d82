package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seantiz/pomoflow/internal/model"

	_ "modernc.org/sqlite"
)

const createPhaseCompletionsTable = `
CREATE TABLE IF NOT EXISTS phase_completions (
    id             TEXT PRIMARY KEY,
    phase          TEXT NOT NULL,
    length_minutes INTEGER NOT NULL,
    completed_at   DATETIME NOT NULL
)`

const createCompletedAtIndex = `
CREATE INDEX IF NOT EXISTS idx_phase_completions_completed_at
    ON phase_completions (completed_at)`

// ErrNotFound is returned when a phase completion is not found.
var ErrNotFound = errors.New("phase completion not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: an in-memory database is private to its connection,
	// and SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createPhaseCompletionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create phase_completions table: %w", err)
	}

	if _, err := db.Exec(createCompletedAtIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("create completed_at index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertPhaseCompletion appends a completion to the ledger.
func (s *SQLiteStore) InsertPhaseCompletion(ctx context.Context, pc *model.PhaseCompletion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO phase_completions (id, phase, length_minutes, completed_at)
		VALUES (?, ?, ?, ?)`,
		pc.ID, pc.Phase, pc.LengthMinutes, pc.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert phase completion: %w", err)
	}
	return nil
}

// GetPhaseCompletion retrieves a completion by ID.
func (s *SQLiteStore) GetPhaseCompletion(ctx context.Context, id string) (*model.PhaseCompletion, error) {
	pc := &model.PhaseCompletion{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, phase, length_minutes, completed_at
		FROM phase_completions WHERE id = ?`, id,
	).Scan(&pc.ID, &pc.Phase, &pc.LengthMinutes, &pc.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get phase completion: %w", err)
	}
	return pc, nil
}

// ListPhaseCompletions returns a page of completions, newest first, along
// with the total number of completions.
func (s *SQLiteStore) ListPhaseCompletions(ctx context.Context, limit, offset int) ([]*model.PhaseCompletion, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM phase_completions").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count phase completions: %w", err)
	}

	// ULIDs sort by creation time, so id breaks ties within the same instant.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, phase, length_minutes, completed_at
		FROM phase_completions ORDER BY completed_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list phase completions: %w", err)
	}
	defer rows.Close()

	var completions []*model.PhaseCompletion
	for rows.Next() {
		pc := &model.PhaseCompletion{}
		if err := rows.Scan(&pc.ID, &pc.Phase, &pc.LengthMinutes, &pc.CompletedAt); err != nil {
			return nil, 0, fmt.Errorf("scan phase completion: %w", err)
		}
		completions = append(completions, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate phase completions: %w", err)
	}

	return completions, total, nil
}

// GetPhaseStats aggregates the ledger. FocusMinutes sums completed sessions.
func (s *SQLiteStore) GetPhaseStats(ctx context.Context) (*PhaseStats, error) {
	stats := &PhaseStats{
		CountByPhase: map[string]int{
			model.PhaseSession: 0,
			model.PhaseBreak:   0,
		},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT phase, COUNT(*), COALESCE(SUM(length_minutes), 0)
		FROM phase_completions GROUP BY phase`,
	)
	if err != nil {
		return nil, fmt.Errorf("query phase stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			phase   string
			count   int
			minutes int
		)
		if err := rows.Scan(&phase, &count, &minutes); err != nil {
			return nil, fmt.Errorf("scan phase stats: %w", err)
		}
		stats.CountByPhase[phase] = count
		stats.Total += count
		if phase == model.PhaseSession {
			stats.FocusMinutes = minutes
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phase stats: %w", err)
	}

	return stats, nil
}
