// Package server exposes the research workflow over HTTP: batch and
// streaming research endpoints, memory listing, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/deepresearch/memory"
	"github.com/dshills/deepresearch/research"
)

// Runner executes research requests. *research.Workflow implements it.
type Runner interface {
	Run(ctx context.Context, req research.Request) (research.State, error)
	Stream(ctx context.Context, req research.Request) <-chan research.Event
}

// MemoryReader lists a user's stored interactions. *memory.Manager
// implements it.
type MemoryReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]memory.Record, error)
}

// Health describes the configured providers and any degraded backends,
// reported by GET /health.
type Health struct {
	Status         string `json:"status"`
	LLMProvider    string `json:"llm_provider"`
	SearchProvider string `json:"search_provider"`
	StoreBackend   string `json:"store_backend"`
	StoreDegraded  bool   `json:"store_degraded,omitempty"`
	MemoryBackend  string `json:"memory_backend"`
	MemoryDegraded bool   `json:"memory_degraded,omitempty"`
}

// Server wires the research workflow into an echo HTTP server.
type Server struct {
	runner   Runner
	memory   MemoryReader
	health   Health
	gatherer prometheus.Gatherer
	echo     *echo.Echo
}

// New creates a Server. gatherer may be nil to use the default
// Prometheus registry; memory may be nil when long-term memory is not
// configured.
func New(runner Runner, mem MemoryReader, health Health, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		runner:   runner,
		memory:   mem,
		health:   health,
		gatherer: gatherer,
	}
	s.echo = s.buildEcho()
	return s
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	httpLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		httpLogger.Printf("%d %s %s: %v", code, req.Method, req.URL.Path, err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.POST("/research", s.handleResearch)
	e.POST("/research/stream", s.handleResearchStream)
	e.GET("/memory/:user_id", s.handleMemory)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return e
}

// Handler returns the HTTP handler, for tests and custom serving.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves HTTP on addr until the listener fails or Shutdown is
// called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ResearchResponse is the batch research result. The thinking trace is
// included only when the request asked for it.
type ResearchResponse struct {
	ThreadID      string                `json:"thread_id"`
	Answer        string                `json:"answer"`
	Sources       []research.Source     `json:"sources"`
	ThinkingTrace []research.TraceEntry `json:"thinking_trace,omitempty"`
}

func (s *Server) bindRequest(c echo.Context) (research.Request, error) {
	var req research.Request
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	// An omitted thread ID starts a new conversation
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, nil
}

func (s *Server) handleResearch(c echo.Context) error {
	req, err := s.bindRequest(c)
	if err != nil {
		return err
	}

	final, err := s.runner.Run(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := ResearchResponse{
		ThreadID: req.ThreadID,
		Answer:   final.FinalAnswer,
		Sources:  final.Sources,
	}
	if req.ShowThinking {
		resp.ThinkingTrace = final.Trace
	}
	return c.JSON(http.StatusOK, resp)
}

// handleResearchStream delivers workflow progress as Server-Sent
// Events, one data frame per research event.
func (s *Server) handleResearchStream(c echo.Context) error {
	req, err := s.bindRequest(c)
	if err != nil {
		return err
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	ctx := c.Request().Context()
	for ev := range s.runner.Stream(ctx, req) {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return nil
		}
		flusher.Flush()
	}
	return nil
}

func (s *Server) handleMemory(c echo.Context) error {
	if s.memory == nil {
		return echo.NewHTTPError(http.StatusNotFound, "memory not configured")
	}

	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	limit := 10
	if val := c.QueryParam("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	records, err := s.memory.Recent(c.Request().Context(), userID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []memory.Record{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"memories": records})
}

func (s *Server) handleHealth(c echo.Context) error {
	h := s.health
	h.Status = "ok"
	if h.StoreDegraded || h.MemoryDegraded {
		h.Status = "degraded"
	}
	return c.JSON(http.StatusOK, h)
}
