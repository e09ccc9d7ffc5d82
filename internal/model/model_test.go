package model

import (
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestPhaseConstants(t *testing.T) {
	if PhaseSession != "Session" {
		t.Errorf("PhaseSession = %q, want %q", PhaseSession, "Session")
	}
	if PhaseBreak != "Break" {
		t.Errorf("PhaseBreak = %q, want %q", PhaseBreak, "Break")
	}
}

func TestNextPhase(t *testing.T) {
	if got := NextPhase(PhaseSession); got != PhaseBreak {
		t.Errorf("NextPhase(Session) = %q, want Break", got)
	}
	if got := NextPhase(PhaseBreak); got != PhaseSession {
		t.Errorf("NextPhase(Break) = %q, want Session", got)
	}
}

func TestValidLength(t *testing.T) {
	tests := []struct {
		minutes int
		want    bool
	}{
		{0, false},
		{1, true},
		{25, true},
		{60, true},
		{61, false},
		{-1, false},
	}
	for _, tt := range tests {
		if got := ValidLength(tt.minutes); got != tt.want {
			t.Errorf("ValidLength(%d) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{300000, "05:00"},
		{1000, "00:01"},
		{0, "00:00"},
		{1500000, "25:00"},
		{3600000, "60:00"},
		{59999, "00:59"},
		{61500, "01:01"},
		{-30000, "-1:-30"},
		{-90000, "-2:-30"},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.ms); got != tt.want {
			t.Errorf("FormatRemaining(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestDefaultTimerState(t *testing.T) {
	s := DefaultTimerState()
	if s.Phase != PhaseSession || s.Running || s.ElapsedMS != 0 {
		t.Errorf("unexpected default state: %+v", s)
	}
	if s.SessionLengthMinutes != 25 || s.BreakLengthMinutes != 5 {
		t.Errorf("lengths = %d/%d, want 25/5", s.SessionLengthMinutes, s.BreakLengthMinutes)
	}
	if s.TargetDurationMS != 1500000 {
		t.Errorf("TargetDurationMS = %d, want 1500000", s.TargetDurationMS)
	}
	if got := s.Remaining(); got != "25:00" {
		t.Errorf("Remaining() = %q, want 25:00", got)
	}
}

func TestPhaseLengthMinutes(t *testing.T) {
	s := TimerState{SessionLengthMinutes: 30, BreakLengthMinutes: 10}
	if got := s.PhaseLengthMinutes(PhaseSession); got != 30 {
		t.Errorf("session length = %d, want 30", got)
	}
	if got := s.PhaseLengthMinutes(PhaseBreak); got != 10 {
		t.Errorf("break length = %d, want 10", got)
	}
}
