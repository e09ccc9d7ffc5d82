package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/pomoflow/internal/clock"
	"github.com/seantiz/pomoflow/internal/model"
	"github.com/seantiz/pomoflow/internal/store"
)

// TickInterval is the cadence at which a running timer advances.
const TickInterval = time.Second

// recordTimeout bounds a single ledger write.
const recordTimeout = 5 * time.Second

// tickRegistration is the engine's handle on its periodic callback. Identity
// matters: a callback whose registration is no longer current is stale.
type tickRegistration struct {
	ticker clock.Ticker
}

// Engine owns the timer state. Every operation takes the engine lock, so
// intents and ticks are applied one at a time against the live state.
type Engine struct {
	mu     sync.Mutex
	state  model.TimerState
	tick   *tickRegistration
	closed bool

	store  store.Store
	clock  clock.Clock
	cue    Cue
	broker *Broker
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewEngine creates an idle engine in the default Session phase.
func NewEngine(s store.Store, clk clock.Clock, cue Cue, logger *slog.Logger) *Engine {
	setRunningGauge(false)
	return &Engine{
		state:  model.DefaultTimerState(),
		store:  s,
		clock:  clk,
		cue:    cue,
		broker: NewBroker(),
		logger: logger,
	}
}

// Broker returns the engine's event broker for state subscriptions.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() model.TimerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// RemainingDisplay returns the time left in the current phase as MM:SS.
func (e *Engine) RemainingDisplay() string {
	return e.Snapshot().Remaining()
}

// AdjustSessionLength moves the session length by delta (+1 or -1). It is
// ignored while running or when the result would leave the allowed range.
// A successful change restarts the countdown from zero.
func (e *Engine) AdjustSessionLength(delta int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, ok := e.adjustable(e.state.SessionLengthMinutes, delta)
	if !ok {
		return false
	}

	e.state.SessionLengthMinutes = next
	e.state.ElapsedMS = 0
	if e.state.Phase == model.PhaseSession {
		e.state.TargetDurationMS = model.MinutesToMS(next)
	}
	e.logger.Debug("session length changed", "session_length_minutes", next)
	e.publishState()
	return true
}

// AdjustBreakLength moves the break length by delta (+1 or -1) under the same
// rules as AdjustSessionLength, except elapsed time is left untouched.
func (e *Engine) AdjustBreakLength(delta int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, ok := e.adjustable(e.state.BreakLengthMinutes, delta)
	if !ok {
		return false
	}

	e.state.BreakLengthMinutes = next
	if e.state.Phase == model.PhaseBreak {
		e.state.TargetDurationMS = model.MinutesToMS(next)
	}
	e.logger.Debug("break length changed", "break_length_minutes", next)
	e.publishState()
	return true
}

// adjustable returns current+delta if a length change is currently allowed.
// Caller must hold e.mu.
func (e *Engine) adjustable(current, delta int) (int, bool) {
	if e.closed || e.state.Running {
		return 0, false
	}
	if delta != 1 && delta != -1 {
		return 0, false
	}
	next := current + delta
	if !model.ValidLength(next) {
		return 0, false
	}
	return next, true
}

// ToggleRunning starts an idle timer or stops a running one. The tick
// registration is acquired and released here, in step with the flag.
func (e *Engine) ToggleRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}

	e.state.Running = !e.state.Running
	if e.state.Running {
		e.startTicking()
	} else {
		e.stopTicking()
	}
	setRunningGauge(e.state.Running)

	e.logger.Info("timer toggled",
		"running", e.state.Running,
		"phase", e.state.Phase,
		"elapsed_ms", e.state.ElapsedMS,
	)
	e.publishState()
	return true
}

// Reset returns the timer to its defaults, cancels any tick, and stops and
// rewinds the audio cue. Calling it repeatedly has the same effect as once.
func (e *Engine) Reset() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}

	e.stopTicking()
	e.state = model.DefaultTimerState()
	setRunningGauge(false)
	resetsTotal.Inc()

	e.cue.Stop()
	e.broker.Publish(Event{Type: EventCue, Cue: CueStop})

	e.logger.Info("timer reset")
	e.publishState()
	return true
}

// Close tears the engine down: the tick is cancelled, subscribers are
// released, and pending ledger writes are flushed. Intents after Close are
// ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTicking()
	e.state.Running = false
	setRunningGauge(false)
	e.mu.Unlock()

	e.broker.Close()
	e.wg.Wait()
}

// startTicking registers the periodic tick unless one is already held.
// Caller must hold e.mu.
func (e *Engine) startTicking() {
	if e.tick != nil {
		return
	}
	reg := &tickRegistration{}
	// The callback takes e.mu before reading reg.ticker, so the assignment
	// below is visible to it.
	reg.ticker = e.clock.Every(TickInterval, func() { e.onTick(reg) })
	e.tick = reg
}

// stopTicking releases the held registration, if any. Caller must hold e.mu.
func (e *Engine) stopTicking() {
	if e.tick == nil {
		return
	}
	e.tick.ticker.Stop()
	e.tick = nil
}

// onTick advances elapsed time by one interval. A callback that fires after
// a stop, or for a registration that was replaced, cancels itself instead.
func (e *Engine) onTick(reg *tickRegistration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tick != reg || !e.state.Running {
		reg.ticker.Stop()
		if e.tick == reg {
			e.tick = nil
		}
		return
	}

	e.state.ElapsedMS += TickInterval.Milliseconds()
	ticksTotal.Inc()
	e.checkPhaseCompletion()
	e.publishState()
}

// checkPhaseCompletion switches phase once elapsed time reaches the target.
// It uses >= so an overshooting tick still completes the phase.
// Caller must hold e.mu.
func (e *Engine) checkPhaseCompletion() {
	if e.state.ElapsedMS < e.state.TargetDurationMS {
		return
	}

	completed := e.state.Phase
	lengthMinutes := e.state.PhaseLengthMinutes(completed)

	e.state.Phase = model.NextPhase(completed)
	e.state.TargetDurationMS = model.MinutesToMS(e.state.PhaseLengthMinutes(e.state.Phase))
	e.cue.Play()
	e.state.ElapsedMS = 0

	phaseCompletionsTotal.WithLabelValues(completed).Inc()
	e.broker.Publish(Event{Type: EventCue, Cue: CuePlay})
	e.logger.Info("phase completed",
		"completed_phase", completed,
		"next_phase", e.state.Phase,
		"length_minutes", lengthMinutes,
	)

	e.record(&model.PhaseCompletion{
		ID:            model.NewID(),
		Phase:         completed,
		LengthMinutes: lengthMinutes,
		CompletedAt:   e.clock.Now().UTC(),
	})
}

// record appends a completion to the ledger off the engine lock.
func (e *Engine) record(pc *model.PhaseCompletion) {
	e.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := e.store.InsertPhaseCompletion(ctx, pc); err != nil {
			e.logger.Error("failed to record phase completion", "id", pc.ID, "phase", pc.Phase, "error", err)
		}
	})
}

// publishState sends the current state to subscribers. Caller must hold e.mu.
func (e *Engine) publishState() {
	st := e.state
	e.broker.Publish(Event{Type: EventState, State: &st})
}
