package engine_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/seantiz/pomoflow/internal/clock"
	"github.com/seantiz/pomoflow/internal/engine"
	"github.com/seantiz/pomoflow/internal/model"
	"github.com/seantiz/pomoflow/internal/store"
)

// recordingCue counts Play and Stop calls.
type recordingCue struct {
	mu    sync.Mutex
	plays int
	stops int
}

func (c *recordingCue) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays++
}

func (c *recordingCue) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
}

func (c *recordingCue) counts() (plays, stops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays, c.stops
}

type harness struct {
	eng   *engine.Engine
	clock *clock.Manual
	cue   *recordingCue
	store store.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	clk := clock.NewManual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	cue := &recordingCue{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	eng := engine.NewEngine(s, clk, cue, logger)
	t.Cleanup(eng.Close)

	return &harness{eng: eng, clock: clk, cue: cue, store: s}
}

// advanceTicks moves simulated time forward by n tick intervals.
func (h *harness) advanceTicks(n int) {
	for i := 0; i < n; i++ {
		h.clock.Advance(engine.TickInterval)
	}
}

func assertDefaults(t *testing.T, st model.TimerState) {
	t.Helper()
	if st != model.DefaultTimerState() {
		t.Errorf("state = %+v, want defaults %+v", st, model.DefaultTimerState())
	}
}

func TestInitialState(t *testing.T) {
	h := newHarness(t)
	assertDefaults(t, h.eng.Snapshot())
	if got := h.eng.RemainingDisplay(); got != "25:00" {
		t.Errorf("RemainingDisplay() = %q, want 25:00", got)
	}
}

func TestLengthBounds(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 100; i++ {
		h.eng.AdjustSessionLength(+1)
		h.eng.AdjustBreakLength(+1)
	}
	st := h.eng.Snapshot()
	if st.SessionLengthMinutes != model.MaxLengthMinutes || st.BreakLengthMinutes != model.MaxLengthMinutes {
		t.Fatalf("lengths = %d/%d, want 60/60", st.SessionLengthMinutes, st.BreakLengthMinutes)
	}
	if h.eng.AdjustSessionLength(+1) {
		t.Error("increment at 60 reported a change")
	}

	for i := 0; i < 100; i++ {
		h.eng.AdjustSessionLength(-1)
		h.eng.AdjustBreakLength(-1)
	}
	st = h.eng.Snapshot()
	if st.SessionLengthMinutes != model.MinLengthMinutes || st.BreakLengthMinutes != model.MinLengthMinutes {
		t.Fatalf("lengths = %d/%d, want 1/1", st.SessionLengthMinutes, st.BreakLengthMinutes)
	}
	if h.eng.AdjustBreakLength(-1) {
		t.Error("decrement at 1 reported a change")
	}
}

func TestAdjustRejectsOtherDeltas(t *testing.T) {
	h := newHarness(t)

	if h.eng.AdjustSessionLength(5) {
		t.Error("delta 5 accepted")
	}
	if h.eng.AdjustBreakLength(0) {
		t.Error("delta 0 accepted")
	}
	assertDefaults(t, h.eng.Snapshot())
}

func TestAdjustSessionRecomputesTarget(t *testing.T) {
	h := newHarness(t)

	if !h.eng.AdjustSessionLength(-1) {
		t.Fatal("decrement rejected")
	}
	st := h.eng.Snapshot()
	if st.SessionLengthMinutes != 24 {
		t.Errorf("session = %d, want 24", st.SessionLengthMinutes)
	}
	if st.TargetDurationMS != 24*60000 {
		t.Errorf("target = %d, want %d", st.TargetDurationMS, 24*60000)
	}
	if got := h.eng.RemainingDisplay(); got != "24:00" {
		t.Errorf("RemainingDisplay() = %q, want 24:00", got)
	}
}

func TestAdjustBreakDuringSessionKeepsTarget(t *testing.T) {
	h := newHarness(t)

	h.eng.AdjustBreakLength(+1)
	st := h.eng.Snapshot()
	if st.BreakLengthMinutes != 6 {
		t.Errorf("break = %d, want 6", st.BreakLengthMinutes)
	}
	if st.TargetDurationMS != 25*60000 {
		t.Errorf("target = %d, want session target", st.TargetDurationMS)
	}
}

func TestAdjustDuringBreak(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 24; i++ {
		h.eng.AdjustSessionLength(-1)
	}

	h.eng.ToggleRunning()
	h.advanceTicks(60 + 30)
	h.eng.ToggleRunning()

	st := h.eng.Snapshot()
	if st.Phase != model.PhaseBreak || st.ElapsedMS != 30000 {
		t.Fatalf("state = %+v, want idle Break with 30s elapsed", st)
	}

	if !h.eng.AdjustBreakLength(-1) {
		t.Fatal("break adjust rejected while idle")
	}
	st = h.eng.Snapshot()
	if st.TargetDurationMS != 4*60000 {
		t.Errorf("target after break adjust = %d, want %d", st.TargetDurationMS, 4*60000)
	}
	if st.ElapsedMS != 30000 {
		t.Errorf("elapsed after break adjust = %d, want 30000", st.ElapsedMS)
	}

	if !h.eng.AdjustSessionLength(+1) {
		t.Fatal("session adjust rejected while idle")
	}
	st = h.eng.Snapshot()
	if st.TargetDurationMS != 4*60000 {
		t.Errorf("target after session adjust = %d, want break target %d", st.TargetDurationMS, 4*60000)
	}
	if st.ElapsedMS != 0 {
		t.Errorf("elapsed after session adjust = %d, want 0", st.ElapsedMS)
	}

	h.eng.ToggleRunning()
	h.advanceTicks(4 * 60)
	st = h.eng.Snapshot()
	if st.Phase != model.PhaseSession {
		t.Fatalf("phase = %q, want Session", st.Phase)
	}
	if st.TargetDurationMS != 2*60000 {
		t.Errorf("next session target = %d, want %d", st.TargetDurationMS, 2*60000)
	}
}

// Shortening the break below the elapsed time leaves a negative remainder
// until the next tick completes the phase.
func TestShortenBreakBelowElapsed(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 24; i++ {
		h.eng.AdjustSessionLength(-1)
	}

	h.eng.ToggleRunning()
	h.advanceTicks(60 + 150)
	h.eng.ToggleRunning()

	for i := 0; i < 4; i++ {
		h.eng.AdjustBreakLength(-1)
	}
	if got := h.eng.RemainingDisplay(); got != "-2:-30" {
		t.Errorf("RemainingDisplay() = %q, want -2:-30", got)
	}

	h.eng.ToggleRunning()
	h.advanceTicks(1)
	st := h.eng.Snapshot()
	if st.Phase != model.PhaseSession || st.ElapsedMS != 0 {
		t.Errorf("state = %+v, want Session with elapsed 0", st)
	}
}

func TestAdjustmentsRejectedWhileRunning(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	if h.eng.AdjustSessionLength(+1) {
		t.Error("session adjust accepted while running")
	}
	if h.eng.AdjustBreakLength(-1) {
		t.Error("break adjust accepted while running")
	}

	st := h.eng.Snapshot()
	if st.SessionLengthMinutes != 25 || st.BreakLengthMinutes != 5 {
		t.Errorf("lengths = %d/%d, want 25/5", st.SessionLengthMinutes, st.BreakLengthMinutes)
	}
}

func TestSessionAdjustResetsElapsed(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	h.advanceTicks(10)
	h.eng.ToggleRunning()
	if got := h.eng.Snapshot().ElapsedMS; got != 10000 {
		t.Fatalf("elapsed = %d, want 10000", got)
	}

	h.eng.AdjustSessionLength(+1)
	if got := h.eng.Snapshot().ElapsedMS; got != 0 {
		t.Errorf("elapsed after session adjust = %d, want 0", got)
	}
}

func TestBreakAdjustKeepsElapsed(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	h.advanceTicks(10)
	h.eng.ToggleRunning()

	h.eng.AdjustBreakLength(+1)
	if got := h.eng.Snapshot().ElapsedMS; got != 10000 {
		t.Errorf("elapsed after break adjust = %d, want 10000", got)
	}
}

func TestFullSessionTransitionsToBreak(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	h.advanceTicks(1499)
	if got := h.eng.RemainingDisplay(); got != "00:01" {
		t.Fatalf("RemainingDisplay() before boundary = %q, want 00:01", got)
	}
	if plays, _ := h.cue.counts(); plays != 0 {
		t.Fatalf("plays = %d before boundary, want 0", plays)
	}

	h.advanceTicks(1)
	st := h.eng.Snapshot()
	if st.Phase != model.PhaseBreak {
		t.Errorf("phase = %q, want Break", st.Phase)
	}
	if st.ElapsedMS != 0 {
		t.Errorf("elapsed = %d, want 0", st.ElapsedMS)
	}
	if st.TargetDurationMS != 5*60000 {
		t.Errorf("target = %d, want %d", st.TargetDurationMS, 5*60000)
	}
	if !st.Running {
		t.Error("timer stopped at phase boundary")
	}
	if plays, _ := h.cue.counts(); plays != 1 {
		t.Errorf("plays = %d, want 1", plays)
	}
}

func TestBreakTransitionsBackToSession(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 24; i++ {
		h.eng.AdjustSessionLength(-1)
	}

	h.eng.ToggleRunning()
	h.advanceTicks(60) // 1 minute session
	if got := h.eng.Snapshot().Phase; got != model.PhaseBreak {
		t.Fatalf("phase = %q, want Break", got)
	}

	h.advanceTicks(300) // 5 minute break
	st := h.eng.Snapshot()
	if st.Phase != model.PhaseSession {
		t.Errorf("phase = %q, want Session", st.Phase)
	}
	if st.TargetDurationMS != 60000 {
		t.Errorf("target = %d, want 60000", st.TargetDurationMS)
	}
	if plays, _ := h.cue.counts(); plays != 2 {
		t.Errorf("plays = %d, want 2", plays)
	}
}

func TestRemainingDisplayAtBoundary(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 20; i++ {
		h.eng.AdjustSessionLength(-1)
	}

	if got := h.eng.RemainingDisplay(); got != "05:00" {
		t.Fatalf("RemainingDisplay() = %q, want 05:00", got)
	}

	h.eng.ToggleRunning()
	h.advanceTicks(299)
	if got := h.eng.RemainingDisplay(); got != "00:01" {
		t.Errorf("RemainingDisplay() at 299s = %q, want 00:01", got)
	}

	h.advanceTicks(1)
	if got := h.eng.RemainingDisplay(); got != "05:00" {
		t.Errorf("RemainingDisplay() at 300s = %q, want next phase 05:00", got)
	}
	if got := h.eng.Snapshot().Phase; got != model.PhaseBreak {
		t.Errorf("phase = %q, want Break", got)
	}
}

func TestToggleTwiceBeforeTickKeepsElapsed(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	h.advanceTicks(3)
	before := h.eng.Snapshot().ElapsedMS

	h.eng.ToggleRunning() // stop
	h.eng.ToggleRunning() // start
	h.eng.ToggleRunning() // stop
	h.clock.Advance(10 * time.Second)

	if got := h.eng.Snapshot().ElapsedMS; got != before {
		t.Errorf("elapsed = %d, want %d", got, before)
	}
}

func TestStartStopReleasesRegistration(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	if n := h.clock.Active(); n != 1 {
		t.Fatalf("Active() after start = %d, want 1", n)
	}
	h.eng.ToggleRunning()
	if n := h.clock.Active(); n != 0 {
		t.Fatalf("Active() after stop = %d, want 0", n)
	}

	for i := 0; i < 10; i++ {
		h.eng.ToggleRunning()
		if n := h.clock.Active(); n > 1 {
			t.Fatalf("Active() = %d after toggle %d, want at most 1", n, i)
		}
	}
}

func TestResetYieldsDefaults(t *testing.T) {
	h := newHarness(t)

	h.eng.AdjustSessionLength(-1)
	h.eng.AdjustBreakLength(+1)
	h.eng.ToggleRunning()
	h.advanceTicks(24 * 60)
	h.advanceTicks(10)

	h.eng.Reset()
	assertDefaults(t, h.eng.Snapshot())
	if n := h.clock.Active(); n != 0 {
		t.Errorf("Active() after reset = %d, want 0", n)
	}
	if _, stops := h.cue.counts(); stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}

	// No tick effect after reset.
	h.advanceTicks(5)
	assertDefaults(t, h.eng.Snapshot())
}

func TestResetIsIdempotent(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	h.advanceTicks(42)

	h.eng.Reset()
	once := h.eng.Snapshot()
	h.eng.Reset()
	twice := h.eng.Snapshot()

	if once != twice {
		t.Errorf("state after second reset = %+v, want %+v", twice, once)
	}
	if _, stops := h.cue.counts(); stops != 2 {
		t.Errorf("stops = %d, want one per reset", stops)
	}
}

func TestPhaseCompletionIsRecorded(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 24; i++ {
		h.eng.AdjustSessionLength(-1)
	}

	h.eng.ToggleRunning()
	h.advanceTicks(60 + 300)

	// Close flushes pending ledger writes.
	h.eng.Close()

	completions, total, err := h.store.ListPhaseCompletions(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListPhaseCompletions: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	// Newest first: the break, then the session.
	if completions[0].Phase != model.PhaseBreak || completions[0].LengthMinutes != 5 {
		t.Errorf("completions[0] = %+v, want 5 minute Break", completions[0])
	}
	if completions[1].Phase != model.PhaseSession || completions[1].LengthMinutes != 1 {
		t.Errorf("completions[1] = %+v, want 1 minute Session", completions[1])
	}
	want := time.Date(2026, 1, 1, 9, 1, 0, 0, time.UTC)
	if !completions[1].CompletedAt.Equal(want) {
		t.Errorf("session completed_at = %v, want %v", completions[1].CompletedAt, want)
	}
}

func TestCloseIgnoresLaterIntents(t *testing.T) {
	h := newHarness(t)

	h.eng.ToggleRunning()
	h.eng.Close()
	h.eng.Close() // idempotent

	if h.clock.Active() != 0 {
		t.Errorf("Active() after Close = %d, want 0", h.clock.Active())
	}
	if h.eng.ToggleRunning() || h.eng.Reset() || h.eng.AdjustSessionLength(+1) {
		t.Error("intent accepted after Close")
	}
	if h.eng.Snapshot().Running {
		t.Error("engine still running after Close")
	}
}

func TestSubscribersReceiveStateAndCue(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 24; i++ {
		h.eng.AdjustSessionLength(-1)
	}

	ch, unsub := h.eng.Broker().Subscribe()
	defer unsub()

	h.eng.ToggleRunning()
	ev := <-ch
	if ev.Type != engine.EventState || ev.State == nil || !ev.State.Running {
		t.Fatalf("first event = %+v, want running state", ev)
	}

	h.advanceTicks(60)

	var sawPlay bool
	var last model.TimerState
	for len(ch) > 0 {
		ev := <-ch
		switch ev.Type {
		case engine.EventCue:
			if ev.Cue == engine.CuePlay {
				sawPlay = true
			}
		case engine.EventState:
			last = *ev.State
		}
	}
	if !sawPlay {
		t.Error("no cue play event at phase boundary")
	}
	if last.Phase != model.PhaseBreak {
		t.Errorf("last published phase = %q, want Break", last.Phase)
	}

	h.eng.Reset()
	ev = <-ch
	if ev.Type != engine.EventCue || ev.Cue != engine.CueStop {
		t.Errorf("event after reset = %+v, want cue stop", ev)
	}
}

func TestSystemClockDrivesTick(t *testing.T) {
	if testing.Short() {
		t.Skip("uses wall-clock time")
	}
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	eng := engine.NewEngine(s, clock.System, engine.NopCue{}, logger)
	defer eng.Close()

	eng.ToggleRunning()
	deadline := time.Now().Add(3 * time.Second)
	for eng.Snapshot().ElapsedMS == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if got := eng.Snapshot().ElapsedMS; got != 1000 && got != 2000 {
		t.Errorf("elapsed = %d, want one or two ticks", got)
	}
}
