// Package conversation owns the transcript of one loaded dataset and turns
// user questions into assistant replies.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dataagent-cli/internal/analyst"
	"github.com/KaramelBytes/dataagent-cli/internal/chart"
	"github.com/KaramelBytes/dataagent-cli/internal/events"
	"github.com/KaramelBytes/dataagent-cli/internal/metrics"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

// DefaultContextRows is how many leading rows accompany each question.
const DefaultContextRows = 10

// OmittedChartNote is appended when a suggested chart names unknown columns.
const OmittedChartNote = "(A suggested chart was omitted because it referenced columns that are not in this dataset.)"

var (
	ErrEmptyQuery = errors.New("query is empty")
	ErrClosed     = errors.New("session closed")
)

// ErrStale is returned to a request superseded by a newer one; its reply is discarded.
var ErrStale = errors.New("request superseded by a newer query")

// Analyzer answers one query against a dataset sample.
type Analyzer interface {
	Analyze(ctx context.Context, query string, columns []string, sample []table.Row) analyst.Result
}

// Publisher receives transcript events.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Event is the payload published for every appended message.
type Event struct {
	Dataset string  `json:"dataset"`
	Message Message `json:"message"`
}

// Options configures a Session. Zero values are usable.
type Options struct {
	ContextRows int
	Publisher   Publisher
	Log         *zap.Logger
	Metrics     *metrics.Prometheus
}

// Session binds one read-only table to its transcript.
type Session struct {
	table      *table.Table
	analyzer   Analyzer
	transcript *Transcript
	opts       Options
	log        *zap.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

// NewSession starts a conversation about t and appends the intro message.
func NewSession(t *table.Table, a Analyzer, opts Options) *Session {
	if opts.ContextRows <= 0 {
		opts.ContextRows = DefaultContextRows
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		table:      t,
		analyzer:   a,
		transcript: NewTranscript(),
		opts:       opts,
		log:        log.With(zap.String("dataset", t.Name)),
	}
	s.transcript.Subscribe(s.onAppend)
	s.transcript.Append(RoleAssistant, IntroMessage(t), nil)
	return s
}

// IntroMessage greets the user after a dataset is loaded.
func IntroMessage(t *table.Table) string {
	return fmt.Sprintf("I've loaded **%s** successfully! \n\nIt has %d rows and columns: %s. \n\nAsk me anything about this data!",
		t.Name, t.Len(), strings.Join(t.Columns, ", "))
}

func (s *Session) Table() *table.Table { return s.table }

func (s *Session) Transcript() *Transcript { return s.transcript }

// Ask records query, asks the analyzer and records the reply. A newer Ask
// cancels this one; the superseded call returns ErrStale and appends nothing.
func (s *Session) Ask(ctx context.Context, query string) (Message, error) {
	if strings.TrimSpace(query) == "" {
		return Message{}, ErrEmptyQuery
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Message{}, ErrClosed
	}
	s.transcript.Append(RoleUser, query, nil)
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	res := s.analyzer.Analyze(ctx, query, s.table.Columns, s.table.Head(s.opts.ContextRows))
	answer, viz := s.validate(res)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.closed {
		s.log.Debug("discarding stale reply", zap.Uint64("generation", gen), zap.Uint64("current", s.generation))
		return Message{}, ErrStale
	}
	s.cancel = nil
	return s.transcript.Append(RoleAssistant, answer, viz), nil
}

// validate drops a chart naming columns outside the dataset and notes it in the answer.
func (s *Session) validate(res analyst.Result) (string, *chart.Descriptor) {
	if res.Visualization == nil {
		return res.Answer, nil
	}
	if err := chart.Validate(*res.Visualization, s.table.Columns); err != nil {
		s.log.Warn("dropping chart", zap.Error(err))
		return res.Answer + "\n\n" + OmittedChartNote, nil
	}
	return res.Answer, res.Visualization
}

// Close cancels any in-flight request. Later Asks fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) onAppend(m Message) {
	s.opts.Metrics.MessageAppended(string(m.Role))
	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.Publish(events.TopicTranscriptAppended, Event{Dataset: s.table.Name, Message: m}); err != nil {
		s.log.Warn("publish transcript event", zap.Error(err))
	}
}
