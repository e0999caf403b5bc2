package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KaramelBytes/dataagent-cli/internal/analysis"
	"github.com/KaramelBytes/dataagent-cli/internal/chart"
	"github.com/KaramelBytes/dataagent-cli/internal/conversation"
	"github.com/KaramelBytes/dataagent-cli/internal/events"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

type askRequest struct {
	Content string `json:"content"`
}

// messageView is a transcript entry with its chart resolved against the dataset.
type messageView struct {
	conversation.Message
	Render *chart.Renderable `json:"render,omitempty"`
}

type datasetView struct {
	Name    string                   `json:"name"`
	Rows    int                      `json:"rows"`
	Columns []string                 `json:"columns"`
	Profile []analysis.ColumnProfile `json:"profile"`
}

func viewOf(m conversation.Message, t *table.Table) messageView {
	v := messageView{Message: m}
	if m.Chart != nil {
		r := chart.Resolve(*m.Chart, t.Rows)
		v.Render = &r
	}
	return v
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) uploadDataset(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	if fh.Size > s.opts.MaxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, CodeBadDataset, errUploadTooLarge(s.opts.MaxUploadBytes).Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "cannot read upload")
		return
	}
	defer f.Close()

	// Read one byte past the cap so an oversized body is refused, never truncated.
	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "cannot read upload")
		return
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, CodeBadDataset, errUploadTooLarge(s.opts.MaxUploadBytes).Error())
		return
	}

	t, err := table.ReadNamed(fh.Filename, bytes.NewReader(data))
	if err != nil {
		// The active dataset is left untouched.
		fail(c, http.StatusBadRequest, CodeBadDataset, err.Error())
		return
	}
	sess := s.LoadDataset(t)
	msgs := sess.Transcript().Messages()
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, viewOf(m, t))
	}
	ok(c, gin.H{
		"dataset":  datasetView{Name: t.Name, Rows: t.Len(), Columns: t.Columns},
		"messages": views,
	})
}

func errUploadTooLarge(limit int64) error {
	return fmt.Errorf("upload exceeds %d bytes", limit)
}

func (s *Server) getDataset(c *gin.Context) {
	sess := s.current()
	if sess == nil {
		fail(c, http.StatusNotFound, CodeNoDataset, "no dataset loaded")
		return
	}
	t := sess.Table()
	ok(c, datasetView{Name: t.Name, Rows: t.Len(), Columns: t.Columns, Profile: analysis.Profile(t)})
}

func (s *Server) deleteDataset(c *gin.Context) {
	if !s.RemoveDataset() {
		fail(c, http.StatusNotFound, CodeNoDataset, "no dataset loaded")
		return
	}
	ok(c, gin.H{"removed": true})
}

func (s *Server) getRows(c *gin.Context) {
	sess := s.current()
	if sess == nil {
		fail(c, http.StatusNotFound, CodeNoDataset, "no dataset loaded")
		return
	}
	limit := s.opts.PreviewRows
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	t := sess.Table()
	rows := t.Head(limit)
	// Arrays keep column order, which a JSON object would not.
	out := make([][]table.Value, len(rows))
	for i, row := range rows {
		vals := make([]table.Value, len(t.Columns))
		for j, col := range t.Columns {
			vals[j] = row[col]
		}
		out[i] = vals
	}
	ok(c, gin.H{"columns": t.Columns, "rows": out, "total": t.Len()})
}

func (s *Server) postMessage(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	sess := s.current()
	if sess == nil {
		fail(c, http.StatusConflict, CodeNeedDataset, "upload a dataset first")
		return
	}
	msg, err := sess.Ask(c.Request.Context(), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrEmptyQuery):
			fail(c, http.StatusBadRequest, CodeEmptyQuery, err.Error())
		case errors.Is(err, conversation.ErrStale), errors.Is(err, conversation.ErrClosed):
			fail(c, http.StatusConflict, CodeStale, err.Error())
		default:
			_ = c.Error(err)
			fail(c, http.StatusInternalServerError, CodeInternal, "ask failed")
		}
		return
	}
	ok(c, viewOf(msg, sess.Table()))
}

func (s *Server) listMessages(c *gin.Context) {
	sess := s.current()
	if sess == nil {
		ok(c, gin.H{"dataset": nil, "messages": []messageView{}})
		return
	}
	var after uint64
	if raw := c.Query("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, CodeBadRequest, "invalid after")
			return
		}
		after = n
	}
	t := sess.Table()
	msgs := sess.Transcript().Since(after)
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, viewOf(m, t))
	}
	ok(c, gin.H{"dataset": t.Name, "messages": views})
}

// streamEvents relays transcript appends as Server-Sent Events until the
// client disconnects. A leading "ready" event marks the subscription live.
func (s *Server) streamEvents(c *gin.Context) {
	if s.bus == nil {
		fail(c, http.StatusServiceUnavailable, CodeInternal, "event stream disabled")
		return
	}
	ctx := c.Request.Context()
	ch, err := s.bus.Subscribe(ctx, events.TopicTranscriptAppended)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, CodeInternal, "subscribe failed")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"status": "ok"})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case payload, open := <-ch:
			if !open {
				return false
			}
			var ev conversation.Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				s.log.Warn("bad transcript event", zap.Error(err))
				return true
			}
			view := messageView{Message: ev.Message}
			if sess := s.current(); sess != nil && sess.Table().Name == ev.Dataset {
				view = viewOf(ev.Message, sess.Table())
			}
			c.SSEvent("message", gin.H{"dataset": ev.Dataset, "message": view})
			return true
		}
	})
}
