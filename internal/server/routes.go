package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/admission-lists/internal/competition"
	apperrors "github.com/garyellow/admission-lists/internal/errors"
	"github.com/garyellow/admission-lists/internal/logger"
	"github.com/garyellow/admission-lists/internal/metrics"
	"github.com/garyellow/admission-lists/internal/ratelimit"
	"github.com/garyellow/admission-lists/internal/storage"
	"github.com/garyellow/admission-lists/internal/stringutil"
)

// History is the subset of *storage.DB served under /v1/runs and /v1/audits.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]storage.Run, error)
	GetRun(ctx context.Context, id string) (*storage.Run, error)
	SearchPrograms(ctx context.Context, runID, term string, limit int) ([]string, error)
	LatestAudit(ctx context.Context) (*storage.AuditRecord, error)
}

// Options configures the router.
type Options struct {
	Holder   *Holder
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil disables /metrics
	History  History             // nil disables /v1/runs and /v1/audits/latest
	Logger   *logger.Logger
	Sentry   bool // report panics to Sentry

	// RateLimiter throttles /v1 per client IP; nil disables throttling
	RateLimiter *ratelimit.KeyedLimiter

	// Basic Auth for /metrics; an empty password leaves it open
	MetricsUsername string
	MetricsPassword string
}

// NewRouter builds the gin engine with all routes.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Sentry {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(opts.Logger))

	h := &handlers{opts: opts}

	// Liveness never checks dependencies
	router.GET("/healthz", h.health)
	router.HEAD("/healthz", h.health)
	router.GET("/readyz", h.ready)
	router.HEAD("/readyz", h.ready)

	v1 := router.Group("/v1")
	if opts.RateLimiter != nil {
		v1.Use(rateLimitMiddleware(opts.RateLimiter))
	}
	v1.GET("/programs", h.listPrograms)
	v1.GET("/programs/:name", h.getProgram)
	v1.GET("/programs/:name/:quota", h.getQuota)
	v1.GET("/lookup", h.lookupQuery)
	if opts.History != nil {
		v1.GET("/runs", h.listRuns)
		v1.GET("/runs/:id/programs", h.searchRunPrograms)
		v1.GET("/audits/latest", h.latestAudit)
	}

	if opts.Gatherer != nil {
		router.GET("/metrics",
			metricsAuthMiddleware(opts.MetricsUsername, opts.MetricsPassword),
			gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

type handlers struct {
	opts Options
}

type lookupResponse struct {
	Query          string                     `json:"query"`
	Name           string                     `json:"name"`
	Match          string                     `json:"match"` // exact or folded
	CompetitionIDs competition.CompetitionIDs `json:"competition_ids"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) ready(c *gin.Context) {
	s := h.opts.Holder.Current()
	if s == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "mapping not loaded",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"programs":     s.Mapping.Len(),
		"source":       s.Source,
		"run_id":       s.RunID,
		"generated_at": s.GeneratedAt,
		"loaded_at":    s.LoadedAt,
	})
}

// snapshot writes 503 and returns nil when no mapping is loaded.
func (h *handlers) snapshot(c *gin.Context) *Snapshot {
	s := h.opts.Holder.Current()
	if s == nil {
		h.opts.Metrics.RecordHTTPError("not_ready", c.FullPath())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mapping not loaded"})
	}
	return s
}

func (h *handlers) listPrograms(c *gin.Context) {
	s := h.snapshot(c)
	if s == nil {
		return
	}
	names := s.Mapping.Names()
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		needle := stringutil.UpperKey(q)
		filtered := names[:0]
		for _, n := range names {
			if strings.Contains(stringutil.UpperKey(n), needle) {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}
	c.JSON(http.StatusOK, gin.H{"count": len(names), "programs": names})
}

func (h *handlers) getProgram(c *gin.Context) {
	h.lookup(c, c.Param("name"))
}

func (h *handlers) lookupQuery(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		h.opts.Metrics.RecordHTTPError("bad_request", c.FullPath())
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter name is required"})
		return
	}
	h.lookup(c, name)
}

func (h *handlers) lookup(c *gin.Context, name string) {
	s := h.snapshot(c)
	if s == nil {
		return
	}
	resp, ok := h.resolve(s, name)
	if !ok {
		h.opts.Metrics.RecordHTTPError("not_found", c.FullPath())
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found", "query": name})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) getQuota(c *gin.Context) {
	quota, err := competition.ParseQuota(c.Param("quota"))
	if err != nil {
		h.opts.Metrics.RecordHTTPError("bad_request", c.FullPath())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := h.snapshot(c)
	if s == nil {
		return
	}
	resp, ok := h.resolve(s, c.Param("name"))
	if !ok {
		h.opts.Metrics.RecordHTTPError("not_found", c.FullPath())
		c.JSON(http.StatusNotFound, gin.H{"error": "program not found", "query": c.Param("name")})
		return
	}
	id := resp.CompetitionIDs.ByQuota(quota)
	if id == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "program has no list for quota", "name": resp.Name, "quota": quota})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": resp.Name, "quota": quota, "id": id})
}

// resolve performs the lookup and records which kind of match it was.
func (h *handlers) resolve(s *Snapshot, name string) (lookupResponse, bool) {
	key, ids, ok := s.Mapping.Resolve(name)
	if !ok {
		h.opts.Metrics.RecordLookup("miss")
		return lookupResponse{}, false
	}
	match := "exact"
	if key != name {
		match = "folded"
	}
	h.opts.Metrics.RecordLookup(match)
	return lookupResponse{Query: name, Name: key, Match: match, CompetitionIDs: ids}, true
}

func (h *handlers) listRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		h.opts.Metrics.RecordHTTPError("bad_request", c.FullPath())
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	runs, err := h.opts.History.ListRuns(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// searchRunPrograms lists the program names of a stored run, optionally
// filtered by ?q=. Unlike /v1/programs it reads history, not the served mapping.
func (h *handlers) searchRunPrograms(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		h.opts.Metrics.RecordHTTPError("bad_request", c.FullPath())
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	ctx := c.Request.Context()
	run, err := h.opts.History.GetRun(ctx, c.Param("id"))
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found", "id": c.Param("id")})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	names, err := h.opts.History.SearchPrograms(ctx, run.ID, c.Query("q"), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search programs"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "count": len(names), "programs": names})
}

func (h *handlers) latestAudit(c *gin.Context) {
	rec, err := h.opts.History.LatestAudit(c.Request.Context())
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audit recorded"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
