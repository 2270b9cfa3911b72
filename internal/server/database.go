package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printpixel/core/internal/binding"
	eventdomain "github.com/printpixel/core/internal/event/domain"
)

type commitRequest struct {
	Schema  string          `json:"schema"`
	Payload map[string]any  `json:"payload"`
	PageID  string          `json:"pageId"`
	ID      string          `json:"id"`
	Fields  []binding.Field `json:"fields"`
}

type queryRequest struct {
	Schema  string         `json:"schema"`
	Filters map[string]any `json:"filters"`
	Limit   int            `json:"limit"`
	From    string         `json:"from"`
	To      string         `json:"to"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// DatabaseInit reports that the store is reachable. The client calls it once
// on page load before committing anything.
func (s *Server) DatabaseInit(c *gin.Context) {
	stats, err := s.eventSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ready":   true,
		"total":   stats.Total,
	})
}

// CommitEvent resolves a commit into a create, an update or a create with a
// caller-chosen id. The body carries either a ready payload or the raw bound
// form fields, which are normalized here.
func (s *Server) CommitEvent(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	schema := strings.TrimSpace(req.Schema)
	payload := req.Payload
	if len(req.Fields) > 0 {
		// Built per request so a reloaded date-field setting takes effect
		// without a restart.
		normalizer := binding.New(s.events.Get().DateField)
		boundSchema, boundPayload, err := normalizer.Normalize(req.Fields)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if schema == "" {
			schema = boundSchema
		}
		payload = boundPayload
	}

	resp, err := s.eventSvc.Commit(c.Request.Context(), eventdomain.CommitRequest{
		Schema:  schema,
		Payload: payload,
		PageID:  strings.TrimSpace(req.PageID),
		ID:      strings.TrimSpace(req.ID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.Commits.WithLabelValues(schema, string(resp.Action)).Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      resp.ID,
		"action":  resp.Action,
	})
}

// QueryEvents returns matching records, newest first.
func (s *Server) QueryEvents(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	s.queryEvents(c, req)
}

// QueryEventsGet is the query surface for links and manual inspection:
// /api/database/query?schema=pedido&limit=50.
func (s *Server) QueryEventsGet(c *gin.Context) {
	var query struct {
		Schema string `form:"schema"`
		Limit  int    `form:"limit"`
		From   string `form:"from"`
		To     string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	s.queryEvents(c, queryRequest{
		Schema: query.Schema,
		Limit:  query.Limit,
		From:   query.From,
		To:     query.To,
	})
}

// RecentEvents serves the newest records across every schema, for the
// activity feed on the dashboard.
func (s *Server) RecentEvents(c *gin.Context) {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	events, err := s.eventSvc.Recent(c.Request.Context(), query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"events":  events,
	})
}

func (s *Server) queryEvents(c *gin.Context, req queryRequest) {
	from, err := parseOptionalTime(req.From)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	to, err := parseOptionalTime(req.To)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	schema := strings.TrimSpace(req.Schema)
	events, err := s.eventSvc.Query(c.Request.Context(), eventdomain.QueryRequest{
		Schema:  schema,
		Filters: req.Filters,
		Limit:   req.Limit,
		From:    from,
		To:      to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.metrics != nil {
		label := schema
		if label == "" {
			label = eventdomain.SchemaAll
		}
		s.metrics.Queries.WithLabelValues(label).Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"events":  events,
	})
}

// DeleteEvent soft-deletes one record.
func (s *Server) DeleteEvent(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	id, err := s.eventSvc.Delete(c.Request.Context(), eventdomain.DeleteRequest{
		ID: strings.TrimSpace(req.ID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.Deletes.Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
	})
}

// UpdateEventStatus changes the workflow status of one record. Status is the
// one field the client may rewrite without going through a full commit.
func (s *Server) UpdateEventStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := s.eventSvc.UpdateStatus(c.Request.Context(), eventdomain.UpdateStatusRequest{
		ID:     id,
		Status: strings.TrimSpace(req.Status),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
	})
}

// DatabaseStats serves record counts per schema.
func (s *Server) DatabaseStats(c *gin.Context) {
	stats, err := s.eventSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

func parseOptionalTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
