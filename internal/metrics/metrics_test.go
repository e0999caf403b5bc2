package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAnalysis(t *testing.T) {
	p := NewPrometheusMetrics()
	p.ObserveAnalysis("gemini", OutcomeOK, 200*time.Millisecond)
	p.ObserveAnalysis("gemini", OutcomeFallback, time.Second)
	p.ObserveAnalysis("gemini", OutcomeOK, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.AnalysisRequests.WithLabelValues("gemini", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.AnalysisRequests.WithLabelValues("gemini", OutcomeFallback)))
	assert.Equal(t, 1, testutil.CollectAndCount(p.AnalysisDuration))
}

func TestNilReceiverIsNoop(t *testing.T) {
	var p *Prometheus
	assert.NotPanics(t, func() {
		p.ObserveAnalysis("x", OutcomeOK, time.Second)
		p.MessageAppended("user")
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	p := NewPrometheusMetrics()
	p.MessageAppended("assistant")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dataagent_transcript_messages_total{role="assistant"} 1`)
}
