package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/park285/mystic-pawn/internal/trainer"
)

// Metrics implements trainer.Recorder with prometheus collectors.
type Metrics struct {
	SessionsStarted *prometheus.CounterVec
	SessionsEnded   *prometheus.CounterVec
	Answers         *prometheus.CounterVec
	FinalScore      prometheus.Histogram
	ActiveSessions  prometheus.Gauge
}

var _ trainer.Recorder = (*Metrics)(nil)

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to expose them on /metrics.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions started, by game mode",
		}, []string{"mode"}),
		SessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions ended, by reason",
		}, []string{"reason"}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Submitted answers, by game mode and result",
		}, []string{"mode", "result"}),
		FinalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Score at session end",
			Buckets:   prometheus.LinearBuckets(-10, 5, 12),
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently counting down or in play",
		}),
	}
	reg.MustRegister(m.SessionsStarted, m.SessionsEnded, m.Answers, m.FinalScore, m.ActiveSessions)
	return m
}

func (m *Metrics) SessionStarted(duration int, mode trainer.GameMode) {
	m.SessionsStarted.WithLabelValues(string(mode)).Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) Answer(correct bool, mode trainer.GameMode) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.Answers.WithLabelValues(string(mode), result).Inc()
}

func (m *Metrics) SessionEnded(score int, aborted bool) {
	reason := "timeout"
	if aborted {
		reason = "aborted"
	}
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.FinalScore.Observe(float64(score))
	m.ActiveSessions.Dec()
}
