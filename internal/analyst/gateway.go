// Package analyst turns a question about a dataset into an answer and an
// optional chart by calling a model runtime with a structured-output contract.
package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dataagent-cli/internal/ai"
	"github.com/KaramelBytes/dataagent-cli/internal/chart"
	"github.com/KaramelBytes/dataagent-cli/internal/metrics"
	"github.com/KaramelBytes/dataagent-cli/internal/prompt"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
	"github.com/KaramelBytes/dataagent-cli/internal/utils"
)

// FallbackAnswer replaces any reply that could not be obtained or understood.
const FallbackAnswer = "I encountered an error analyzing the data. Please ensure your API key is valid and the data is clean."

// DefaultTimeout bounds one Analyze call including retries.
const DefaultTimeout = 90 * time.Second

var (
	ErrEmptyPayload = errors.New("empty model reply")
	ErrEmptyAnswer  = errors.New("reply has no answer")
)

// Result is what the gateway hands back for a query.
type Result struct {
	Answer        string            `json:"answer"`
	Visualization *chart.Descriptor `json:"visualization,omitempty"`
}

// Fallback reports whether r is the fixed fallback result.
func (r Result) Fallback() bool {
	return r.Answer == FallbackAnswer && r.Visualization == nil
}

// Options configures a Gateway.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// SampleRows limits the sample embedded in the prompt; 0 keeps prompt.MaxSampleRows.
	SampleRows int
}

// Gateway is safe for concurrent use; it keeps no per-call state.
type Gateway struct {
	runtime ai.Runtime
	opts    Options
	log     *zap.Logger
	metrics *metrics.Prometheus
}

// New builds a gateway. log and m may be nil.
func New(rt ai.Runtime, opts Options, log *zap.Logger, m *metrics.Prometheus) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Provider == "" {
		opts.Provider = ai.ProviderGemini
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{runtime: rt, opts: opts, log: log, metrics: m}
}

// Analyze never fails: every error path resolves to the fallback result.
func (g *Gateway) Analyze(ctx context.Context, query string, columns []string, sample []table.Row) Result {
	start := time.Now()
	res, usage, err := g.analyze(ctx, query, columns, sample)
	took := time.Since(start)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeFallback
		res = Result{Answer: FallbackAnswer}
		level := zap.WarnLevel
		if errors.Is(err, context.Canceled) {
			level = zap.DebugLevel
		}
		g.log.Check(level, "analysis failed").Write(
			zap.String("provider", g.opts.Provider),
			zap.String("model", g.opts.Model),
			zap.Duration("took", took),
			zap.Error(err),
		)
	} else {
		fields := []zap.Field{
			zap.String("provider", g.opts.Provider),
			zap.String("model", g.opts.Model),
			zap.Duration("took", took),
			zap.Bool("chart", res.Visualization != nil),
			zap.Int("prompt_tokens", usage.PromptTokens),
			zap.Int("completion_tokens", usage.CompletionTokens),
		}
		if cost, ok := ai.EstimateCostUSD(g.opts.Model, usage.PromptTokens, usage.CompletionTokens); ok {
			fields = append(fields, zap.Float64("est_cost_usd", cost))
		}
		g.log.Info("analysis complete", fields...)
	}
	g.metrics.ObserveAnalysis(g.opts.Provider, outcome, took)
	return res
}

func (g *Gateway) analyze(ctx context.Context, query string, columns []string, sample []table.Row) (Result, ai.Usage, error) {
	if g.runtime == nil {
		return Result{}, ai.Usage{}, errors.New("no model runtime configured")
	}
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	text := g.Prompt(query, columns, sample)
	resp, err := g.runtime.Generate(ctx, ai.GenerateRequest{
		Model:       g.opts.Model,
		Messages:    []ai.Message{{Role: "user", Content: text}},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
		Schema:      &ai.ResponseSchema{Name: prompt.SchemaName, Schema: prompt.ResponseSchema()},
	})
	if err != nil {
		return Result{}, ai.Usage{}, fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return Result{}, ai.Usage{}, ErrEmptyPayload
	}
	usage := resp.Usage
	if usage.PromptTokens == 0 {
		usage.PromptTokens = utils.CountTokens(text)
	}
	res, err := Parse(resp.Content())
	if err != nil {
		return Result{}, usage, err
	}
	return res, usage, nil
}

// Prompt returns the instruction text Analyze would send.
func (g *Gateway) Prompt(query string, columns []string, sample []table.Row) string {
	if n := g.opts.SampleRows; n > 0 && len(sample) > n {
		sample = sample[:n]
	}
	return prompt.Build(query, columns, sample)
}

// Parse decodes a model reply. Surrounding whitespace and a Markdown code
// fence are tolerated; a null visualization means none.
func Parse(content string) (Result, error) {
	body := stripFence(strings.TrimSpace(content))
	if body == "" {
		return Result{}, ErrEmptyPayload
	}
	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return Result{}, fmt.Errorf("decode reply: %w", err)
	}
	if strings.TrimSpace(res.Answer) == "" {
		return Result{}, ErrEmptyAnswer
	}
	return res, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an info string such as "json".
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
