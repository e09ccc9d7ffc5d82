// Package engine provides the countdown state machine. It owns the timer
// state, applies user intents, drives the one-second tick through a clock
// registration, fires the audio cue on phase boundaries, and fans state out
// to subscribers through a broker.
package engine
