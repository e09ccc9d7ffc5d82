// Package clock provides the periodic callback primitive that drives the
// timer, with a wall-clock implementation and a manually advanced one for
// simulated time.
package clock

import (
	"sync"
	"time"
)

// Ticker is a periodic callback registration.
type Ticker interface {
	// Stop cancels the registration. It is safe to call more than once.
	Stop()
}

// Clock registers periodic callbacks and reports the current time.
type Clock interface {
	// Every calls f once per period d until the returned Ticker is stopped.
	Every(d time.Duration, f func()) Ticker
	Now() time.Time
}

// System is the Clock backed by the runtime timer.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) Every(d time.Duration, f func()) Ticker {
	st := &systemTicker{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go st.loop(f)
	return st
}

func (systemClock) Now() time.Time {
	return time.Now()
}

type systemTicker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *systemTicker) loop(f func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			f()
		}
	}
}

func (t *systemTicker) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
