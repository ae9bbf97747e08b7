package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baysound/sf-events/internal/calendar"
	"github.com/baysound/sf-events/internal/event"
	"github.com/baysound/sf-events/internal/filter"
	"github.com/baysound/sf-events/internal/logger"
	"github.com/baysound/sf-events/internal/scheduler"
	"github.com/baysound/sf-events/internal/storage"
)

const maxListLimit = 200

// RunStore is the read side of run history
type RunStore interface {
	LatestRun(ctx context.Context) (*storage.RunRecord, error)
	GetRun(ctx context.Context, id string) (*storage.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*storage.RunRecord, error)
	Candidates(ctx context.Context, runID string) ([]*event.Candidate, error)
}

// Scheduler reports loop state and accepts manual triggers
type Scheduler interface {
	Status() scheduler.Status
	RunNow(ctx context.Context) bool
}

// Deps are the collaborators behind the HTTP surface. Scheduler and Metrics may be nil.
type Deps struct {
	Store     RunStore
	Scheduler Scheduler
	Metrics   http.Handler
	Logger    *logger.Logger
	// RunContext is the parent context for manual runs; request contexts end too early.
	RunContext context.Context
}

// Handler serves status and run history
type Handler struct {
	deps Deps
	log  *logger.Logger
}

// New creates the gin engine with all routes configured
func New(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.RunContext == nil {
		deps.RunContext = context.Background()
	}
	h := &Handler{deps: deps, log: deps.Logger.With(logger.Fields{"component": "server"})}

	r := gin.New()
	r.Use(h.requestLogger())
	r.Use(gin.Recovery())

	r.GET("/", h.index)
	r.GET("/healthz", h.health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	r.GET("/calendar.ics", h.latestCalendar)

	api := r.Group("/api")
	{
		api.GET("/runs", h.listRuns)
		api.POST("/runs", h.triggerRun)
		api.GET("/runs/latest", h.latestRun)
		api.GET("/runs/:id", h.getRun)
		api.GET("/runs/:id/candidates", h.runCandidates)
	}

	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug("HTTP request", logger.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
	}
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "sf-events",
		"endpoints": map[string]string{
			"health":     "/healthz",
			"metrics":    "/metrics",
			"calendar":   "/calendar.ics",
			"runs":       "/api/runs?limit=<n>",
			"latest":     "/api/runs/latest",
			"run":        "/api/runs/<id>",
			"candidates": "/api/runs/<id>/candidates",
			"trigger":    "/api/runs (POST)",
		},
	})
}

func (h *Handler) health(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.deps.Scheduler != nil {
		body["scheduler"] = h.deps.Scheduler.Status()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) listRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := h.deps.Store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.internalError(c, "list_runs", err)
		return
	}
	if runs == nil {
		runs = []*storage.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (h *Handler) latestRun(c *gin.Context) {
	run, err := h.deps.Store.LatestRun(c.Request.Context())
	h.respondRun(c, run, err)
}

func (h *Handler) getRun(c *gin.Context) {
	run, err := h.deps.Store.GetRun(c.Request.Context(), c.Param("id"))
	h.respondRun(c, run, err)
}

func (h *Handler) respondRun(c *gin.Context, run *storage.RunRecord, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such run"})
		return
	}
	if err != nil {
		h.internalError(c, "get_run", err)
		return
	}
	candidates, err := h.deps.Store.Candidates(c.Request.Context(), run.ID)
	if err != nil {
		h.internalError(c, "get_candidates", err)
		return
	}
	if candidates == nil {
		candidates = []*event.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "candidates": candidates})
}

func (h *Handler) runCandidates(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.deps.Store.GetRun(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such run"})
			return
		}
		h.internalError(c, "get_run", err)
		return
	}
	candidates, err := h.deps.Store.Candidates(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "get_candidates", err)
		return
	}
	f, err := queryFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candidates = f.Apply(candidates)
	if candidates == nil {
		candidates = []*event.Candidate{}
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "count": len(candidates)})
}

// queryFilter reads ?venue=, ?artist= and ?dates= into a candidate filter.
func queryFilter(c *gin.Context) (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Venues = c.QueryArray("venue")
	f.Artists = c.QueryArray("artist")
	if dates := c.Query("dates"); dates != "" {
		from, to, err := filter.ParseDateRange(dates, time.Now())
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	return f, nil
}

func (h *Handler) latestCalendar(c *gin.Context) {
	run, err := h.deps.Store.LatestRun(c.Request.Context())
	if errors.Is(err, storage.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		h.internalError(c, "get_run", err)
		return
	}
	candidates, err := h.deps.Store.Candidates(c.Request.Context(), run.ID)
	if err != nil {
		h.internalError(c, "get_candidates", err)
		return
	}
	event.SortByDate(candidates)
	ics := calendar.GenerateICS(candidates, calendar.Options{Name: "SF Shows"})

	c.Header("X-Run-ID", run.ID)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

func (h *Handler) triggerRun(c *gin.Context) {
	if h.deps.Scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}
	if !h.deps.Scheduler.RunNow(h.deps.RunContext) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.log.Error("Database error", logger.Fields{"operation": op, "path": c.Request.URL.Path}, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s failed", op)})
}
