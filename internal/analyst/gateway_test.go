package analyst

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dataagent-cli/internal/ai"
	"github.com/KaramelBytes/dataagent-cli/internal/chart"
	"github.com/KaramelBytes/dataagent-cli/internal/metrics"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

type fakeRuntime struct {
	reply string
	err   error
	block bool
	got   ai.GenerateRequest
}

func (f *fakeRuntime) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.got = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.reply}}}}, nil
}

var (
	cols = []string{"month", "sales"}
	rows = []table.Row{{"month": "Jan", "sales": 10.0}, {"month": "Feb", "sales": 12.0}}
)

func TestAnalyzeSuccessWithChart(t *testing.T) {
	rt := &fakeRuntime{reply: `{"answer":"Sales grew.","visualization":{"type":"line","xAxisKey":"month","series":[{"dataKey":"sales"}],"title":"Sales"}}`}
	m := metrics.NewPrometheusMetrics()
	g := New(rt, Options{Model: "gemini-2.5-flash", MaxTokens: 100}, zap.NewNop(), m)

	res := g.Analyze(context.Background(), "plot sales", cols, rows)
	assert.Equal(t, "Sales grew.", res.Answer)
	require.NotNil(t, res.Visualization)
	assert.Equal(t, chart.KindLine, res.Visualization.Type)
	assert.Equal(t, "month", res.Visualization.XAxisKey)
	assert.False(t, res.Fallback())

	require.NotNil(t, rt.got.Schema)
	assert.Equal(t, "analysis_response", rt.got.Schema.Name)
	assert.Equal(t, "gemini-2.5-flash", rt.got.Model)
	require.Len(t, rt.got.Messages, 1)
	assert.Contains(t, rt.got.Messages[0].Content, `"plot sales"`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRequests.WithLabelValues("gemini", metrics.OutcomeOK)))
}

func TestAnalyzeNullVisualization(t *testing.T) {
	g := New(&fakeRuntime{reply: `{"answer":"12 rows.","visualization":null}`}, Options{}, nil, nil)
	res := g.Analyze(context.Background(), "how many rows", cols, rows)
	assert.Equal(t, "12 rows.", res.Answer)
	assert.Nil(t, res.Visualization)
}

func TestAnalyzeFencedReply(t *testing.T) {
	g := New(&fakeRuntime{reply: "  ```json\n{\"answer\":\"ok\"}\n```  "}, Options{}, nil, nil)
	assert.Equal(t, "ok", g.Analyze(context.Background(), "q", cols, rows).Answer)
}

func TestAnalyzeFallbacks(t *testing.T) {
	cases := map[string]*fakeRuntime{
		"transport error": {err: errors.New("dial tcp: refused")},
		"malformed json":  {reply: `{"answer": "unterminated`},
		"empty payload":   {reply: "   "},
		"empty answer":    {reply: `{"answer":"","visualization":null}`},
		"not an object":   {reply: `["answer"]`},
	}
	for name, rt := range cases {
		t.Run(name, func(t *testing.T) {
			m := metrics.NewPrometheusMetrics()
			res := New(rt, Options{}, nil, m).Analyze(context.Background(), "q", cols, rows)
			assert.Equal(t, FallbackAnswer, res.Answer)
			assert.Nil(t, res.Visualization)
			assert.True(t, res.Fallback())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRequests.WithLabelValues("gemini", metrics.OutcomeFallback)))
		})
	}
}

func TestAnalyzeNoChoices(t *testing.T) {
	g := New(runtimeFunc(func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return &ai.GenerateResponse{}, nil
	}), Options{}, nil, nil)
	assert.True(t, g.Analyze(context.Background(), "q", cols, rows).Fallback())
}

func TestAnalyzeNilResponse(t *testing.T) {
	g := New(runtimeFunc(func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return nil, nil
	}), Options{}, nil, nil)
	res := g.Analyze(context.Background(), "q", cols, rows)
	assert.True(t, res.Fallback())
	assert.Nil(t, res.Visualization)
}

func TestAnalyzeNilRuntime(t *testing.T) {
	assert.True(t, New(nil, Options{}, nil, nil).Analyze(context.Background(), "q", cols, rows).Fallback())
}

func TestAnalyzeTimeout(t *testing.T) {
	g := New(&fakeRuntime{block: true}, Options{Timeout: 20 * time.Millisecond}, nil, nil)
	start := time.Now()
	res := g.Analyze(context.Background(), "q", cols, rows)
	assert.True(t, res.Fallback())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAnalyzeServerErrorOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
	}))
	defer srv.Close()

	rt := ai.NewGeminiClient("key", srv.URL, time.Second, 2, time.Millisecond, 5*time.Millisecond)
	res := New(rt, Options{Model: "gemini-2.5-flash"}, nil, nil).Analyze(context.Background(), "q", cols, rows)
	assert.True(t, res.Fallback())
}

func TestAnalyzeOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"answer\":\"Two months.\",\"visualization\":null}"}]}}]}`))
	}))
	defer srv.Close()

	rt := ai.NewGeminiClient("key", srv.URL, time.Second, 1, 0, 0)
	res := New(rt, Options{Model: "gemini-2.5-flash"}, nil, nil).Analyze(context.Background(), "q", cols, rows)
	assert.Equal(t, "Two months.", res.Answer)
}

func TestParse(t *testing.T) {
	res, err := Parse("```\n{\"answer\":\"a\",\"visualization\":{\"type\":\"pie\",\"xAxisKey\":\"month\",\"series\":[{\"dataKey\":\"sales\"}]}}\n```")
	require.NoError(t, err)
	assert.Equal(t, chart.KindPie, res.Visualization.Type)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrEmptyPayload)
	_, err = Parse(`{"answer":"  "}`)
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

type runtimeFunc func(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error)

func (f runtimeFunc) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return f(ctx, req)
}
