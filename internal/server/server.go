// Package server exposes the dataset conversation over HTTP: upload a CSV,
// ask questions, poll or stream the transcript.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dataagent-cli/internal/conversation"
	"github.com/KaramelBytes/dataagent-cli/internal/events"
	"github.com/KaramelBytes/dataagent-cli/internal/metrics"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

const (
	DefaultAddr           = "127.0.0.1:8080"
	DefaultMaxUploadBytes = 32 << 20
	shutdownTimeout       = 10 * time.Second
)

// Options configures the HTTP service. Zero values are usable.
type Options struct {
	Addr           string
	RateLimit      RateLimitConfig
	ContextRows    int
	PreviewRows    int
	MaxUploadBytes int64
}

// Server holds at most one active dataset session.
type Server struct {
	analyzer conversation.Analyzer
	bus      *events.Bus
	metrics  *metrics.Prometheus
	log      *zap.Logger
	opts     Options

	mu      sync.RWMutex
	session *conversation.Session
}

// New builds a server. bus, m and log may be nil.
func New(a conversation.Analyzer, bus *events.Bus, m *metrics.Prometheus, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 100
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{analyzer: a, bus: bus, metrics: m, log: log, opts: opts}
}

// LoadDataset replaces the active session with a fresh one for t.
func (s *Server) LoadDataset(t *table.Table) *conversation.Session {
	var pub conversation.Publisher
	if s.bus != nil {
		pub = s.bus
	}
	sess := conversation.NewSession(t, s.analyzer, conversation.Options{
		ContextRows: s.opts.ContextRows,
		Publisher:   pub,
		Log:         s.log.Named("conversation"),
		Metrics:     s.metrics,
	})
	s.mu.Lock()
	prev := s.session
	s.session = sess
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	s.log.Info("dataset loaded", zap.String("dataset", t.Name), zap.Int("rows", t.Len()), zap.Int("columns", len(t.Columns)))
	return sess
}

// RemoveDataset drops the active session. It reports whether one existed.
func (s *Server) RemoveDataset() bool {
	s.mu.Lock()
	prev := s.session
	s.session = nil
	s.mu.Unlock()
	if prev == nil {
		return false
	}
	prev.Close()
	s.log.Info("dataset removed", zap.String("dataset", prev.Table().Name))
	return true
}

func (s *Server) current() *conversation.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Router wires every route onto a new gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.opts.MaxUploadBytes
	router.Use(gin.Recovery(), requestLogger(s.log.Named("http")))

	router.GET("/healthz", s.health)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(rateLimit(s.opts.RateLimit))
	v1.POST("/dataset", s.uploadDataset)
	v1.GET("/dataset", s.getDataset)
	v1.DELETE("/dataset", s.deleteDataset)
	v1.GET("/dataset/rows", s.getRows)
	v1.POST("/messages", s.postMessage)
	v1.GET("/messages", s.listMessages)
	v1.GET("/events", s.streamEvents)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sess := s.current(); sess != nil {
		sess.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
