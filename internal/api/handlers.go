package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gouq/app"
	"gouq/domain/core"
	"gouq/domain/run"
	"gouq/internal/errors"
)

// runRequest is the JSON body of POST /runs and POST /map. Seed is a pointer
// so an explicit zero differs from an omitted seed.
type runRequest struct {
	Prior     string  `json:"prior" binding:"required"`
	Boundary  string  `json:"boundary"`
	Scale     float64 `json:"scale"`
	Precision float64 `json:"precision"`
	Samples   int     `json:"samples"`
	Seed      *uint64 `json:"seed"`
	N         int     `json:"n"`
	NoiseStd  float64 `json:"noise_std"`
}

func (r runRequest) toRequest(defaultSeed uint64) run.Request {
	seed := defaultSeed
	if r.Seed != nil {
		seed = *r.Seed
	}
	return run.Request{
		Prior:     r.Prior,
		Boundary:  r.Boundary,
		Scale:     r.Scale,
		Precision: r.Precision,
		Samples:   r.Samples,
		Seed:      seed,
		N:         r.N,
		NoiseStd:  r.NoiseStd,
	}
}

func (s *Server) bindRequest(c *gin.Context) (run.Request, bool) {
	var body runRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return run.Request{}, false
	}
	return body.toRequest(s.seed), true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateRun accepts a sampling run and executes it in the background
func (s *Server) handleCreateRun(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	if !s.sem.TryAcquire(1) {
		respondError(c, errors.Busy("too many sampling runs in progress"))
		return
	}

	r, err := s.service.Submit(c.Request.Context(), req)
	if err != nil {
		s.sem.Release(1)
		respondError(c, err)
		return
	}
	accepted := *r

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.sem.Release(1)
		ctx := s.baseCtx
		if s.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()
		}
		if err := s.service.Execute(ctx, r); err != nil {
			s.logger.Warn("run %s finished with error: %v", r.ID, err)
		}
	}()

	c.Header("Location", "/api/v1/runs/"+accepted.ID.String())
	c.JSON(http.StatusAccepted, accepted)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.service.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *Server) runID(c *gin.Context) (core.RunID, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return "", false
	}
	return id, true
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, ok := s.runID(c)
	if !ok {
		return
	}
	r, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// handleRunReport renders the run report as HTML, or as markdown with ?format=md
func (s *Server) handleRunReport(c *gin.Context) {
	id, ok := s.runID(c)
	if !ok {
		return
	}
	md, err := s.service.Report(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") == "md" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", app.MarkdownToHTML(md))
}

// handleRunEvents streams progress of a run as Server-Sent Events
func (s *Server) handleRunEvents(c *gin.Context) {
	id, ok := s.runID(c)
	if !ok {
		return
	}
	if _, err := s.service.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	events, unsubscribe := s.hub.Subscribe(id.String())
	defer unsubscribe()

	// A run that finished before the subscription gets its terminal event
	// from the stored state.
	r, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if r.Status == run.StatusCompleted || r.Status == run.StatusFailed {
		ch := make(chan RunEvent, 1)
		ch <- terminalEvent(r)
		s.hub.stream(c, ch)
		return
	}
	s.hub.stream(c, events)
}

func (s *Server) handleMAP(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	res, err := s.service.MAP(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
