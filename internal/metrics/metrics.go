// Package metrics holds the prometheus collectors for analyses and transcripts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
)

// Prometheus groups the collectors on a dedicated registry.
type Prometheus struct {
	Registry         *prometheus.Registry
	AnalysisRequests *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	Messages         *prometheus.CounterVec
}

func NewPrometheusMetrics() *Prometheus {
	p := &Prometheus{
		Registry: prometheus.NewRegistry(),
		AnalysisRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dataagent",
				Name:      "analysis_requests_total",
				Help:      "Analysis requests by provider and outcome.",
			}, []string{"provider", "outcome"}),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dataagent",
				Name:      "analysis_duration_seconds",
				Help:      "Latency of analysis requests.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 90},
			}, []string{"provider"}),
		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dataagent",
				Name:      "transcript_messages_total",
				Help:      "Messages appended to transcripts by role.",
			}, []string{"role"}),
	}
	p.Registry.MustRegister(p.AnalysisRequests, p.AnalysisDuration, p.Messages)
	return p
}

// ObserveAnalysis records one analysis. Safe on a nil receiver.
func (p *Prometheus) ObserveAnalysis(provider, outcome string, took time.Duration) {
	if p == nil {
		return
	}
	p.AnalysisRequests.WithLabelValues(provider, outcome).Inc()
	p.AnalysisDuration.WithLabelValues(provider).Observe(took.Seconds())
}

// MessageAppended counts a transcript append. Safe on a nil receiver.
func (p *Prometheus) MessageAppended(role string) {
	if p == nil {
		return
	}
	p.Messages.WithLabelValues(role).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}
