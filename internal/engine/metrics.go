package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/pomoflow/internal/model"
)

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pomoflow_timer_ticks_total",
			Help: "Total number of ticks that advanced elapsed time.",
		},
	)

	phaseCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomoflow_phase_completions_total",
			Help: "Total number of phases that counted down to zero, by completed phase.",
		},
		[]string{"phase"},
	)

	resetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pomoflow_timer_resets_total",
			Help: "Total number of timer resets.",
		},
	)

	timerRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pomoflow_timer_running",
			Help: "1 while the countdown is advancing, 0 while idle.",
		},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(phaseCompletionsTotal)
	prometheus.MustRegister(resetsTotal)
	prometheus.MustRegister(timerRunning)

	// Pre-initialize label combinations so they appear in /metrics from startup.
	phaseCompletionsTotal.WithLabelValues(model.PhaseSession)
	phaseCompletionsTotal.WithLabelValues(model.PhaseBreak)
}

func setRunningGauge(running bool) {
	if running {
		timerRunning.Set(1)
		return
	}
	timerRunning.Set(0)
}
