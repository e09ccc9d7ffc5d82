package model

import (
	"fmt"
	"math"
	"time"
)

// Phase constants.
const (
	PhaseSession = "Session"
	PhaseBreak   = "Break"
)

// Length bounds and defaults, in minutes.
const (
	MinLengthMinutes      = 1
	MaxLengthMinutes      = 60
	DefaultSessionMinutes = 25
	DefaultBreakMinutes   = 5
)

const msPerMinute = 60 * 1000

// NextPhase returns the phase that follows p.
func NextPhase(p string) string {
	if p == PhaseSession {
		return PhaseBreak
	}
	return PhaseSession
}

// ValidLength reports whether minutes lies within the configurable bounds.
func ValidLength(minutes int) bool {
	return minutes >= MinLengthMinutes && minutes <= MaxLengthMinutes
}

// MinutesToMS converts a length setting to milliseconds.
func MinutesToMS(minutes int) int64 {
	return int64(minutes) * msPerMinute
}

// TimerState is the observable state of the countdown.
type TimerState struct {
	Phase                string `json:"phase"`
	SessionLengthMinutes int    `json:"session_length_minutes"`
	BreakLengthMinutes   int    `json:"break_length_minutes"`
	TargetDurationMS     int64  `json:"target_duration_ms"`
	ElapsedMS            int64  `json:"elapsed_ms"`
	Running              bool   `json:"running"`
}

// DefaultTimerState returns the state a fresh or reset timer starts in.
func DefaultTimerState() TimerState {
	return TimerState{
		Phase:                PhaseSession,
		SessionLengthMinutes: DefaultSessionMinutes,
		BreakLengthMinutes:   DefaultBreakMinutes,
		TargetDurationMS:     MinutesToMS(DefaultSessionMinutes),
	}
}

// PhaseLengthMinutes returns the configured length of the given phase.
func (s TimerState) PhaseLengthMinutes(phase string) int {
	if phase == PhaseBreak {
		return s.BreakLengthMinutes
	}
	return s.SessionLengthMinutes
}

// Remaining formats the time left in the current phase as MM:SS.
func (s TimerState) Remaining() string {
	return FormatRemaining(s.TargetDurationMS - s.ElapsedMS)
}

// FormatRemaining formats a millisecond count as zero-padded MM:SS. Minutes are
// not wrapped, so 60 minutes renders as "60:00". A negative count is not
// clamped: -30000 renders as "-1:-30".
func FormatRemaining(ms int64) string {
	f := float64(ms)
	minutes := int64(math.Floor(f / msPerMinute))
	seconds := int64(math.Floor(math.Mod(f/1000, 60)))
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// PhaseCompletion is a ledger entry for a phase that ran to zero.
type PhaseCompletion struct {
	ID            string    `json:"id"`
	Phase         string    `json:"phase"`
	LengthMinutes int       `json:"length_minutes"`
	CompletedAt   time.Time `json:"completed_at"`
}
