// Package metrics exposes quiz activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts session lifecycle events. It satisfies app.Recorder.
type Recorder struct {
	registry  *prometheus.Registry
	started   prometheus.Counter
	answers   *prometheus.CounterVec
	completed *prometheus.CounterVec
	active    prometheus.Gauge
}

// NewRecorder registers the quiz collectors, plus Go runtime collectors, on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Quiz sessions started.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_submitted_total",
			Help: "Answers locked in, by correctness.",
		}, []string{"correct"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Quiz sessions that reached the result screen, by tier.",
		}, []string{"tier"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Sessions currently held in memory.",
		}),
	}
	r.registry.MustRegister(
		r.started, r.answers, r.completed, r.active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) SessionStarted() {
	r.started.Inc()
	r.active.Inc()
}

func (r *Recorder) AnswerSubmitted(correct bool) {
	r.answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (r *Recorder) SessionCompleted(tier string) {
	r.completed.WithLabelValues(tier).Inc()
}

func (r *Recorder) SessionEnded() {
	r.active.Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
