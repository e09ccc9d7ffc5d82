package engine

import "io"

// Cue is the audio capability the engine invokes at phase boundaries.
// Play begins playback from the current position; Stop pauses and rewinds to
// the start. Both are fire-and-forget.
type Cue interface {
	Play()
	Stop()
}

// NopCue ignores both calls. It suits presentation layers that consume cue
// events from the broker instead.
type NopCue struct{}

func (NopCue) Play() {}
func (NopCue) Stop() {}

// BellCue rings the terminal bell on Play.
type BellCue struct {
	W io.Writer
}

func (c BellCue) Play() {
	_, _ = io.WriteString(c.W, "\a")
}

// Stop is a no-op: a bell has no position to rewind.
func (c BellCue) Stop() {}
