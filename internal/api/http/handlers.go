package http

import (
	"context"
	"net/http"
	"net/url"
	"runtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/statelab/renderbox/internal/domain/render"
	"github.com/statelab/renderbox/internal/domain/session"
	"github.com/statelab/renderbox/internal/infrastructure/health"
	"github.com/statelab/renderbox/internal/infrastructure/logging"
	"github.com/statelab/renderbox/internal/infrastructure/monitoring"
)

// Resolver resolves the effective session identity for a request.
type Resolver interface {
	Resolve(ctx context.Context, candidate string) session.Identity
}

// Renderer drives one render under a resolved identity.
type Renderer interface {
	Render(ctx context.Context, url string, id session.Identity) render.Outcome
}

// EngineStats exposes engine liveness and context accounting for the
// metrics endpoint. The engine is authoritative for the context count.
type EngineStats interface {
	Connected() bool
	ActiveContexts() int
}

// Handlers contains HTTP request handlers with injected dependencies.
type Handlers struct {
	resolver Resolver
	renderer Renderer
	health   *health.Aggregator
	engine   EngineStats
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewHandlers creates HTTP handlers.
func NewHandlers(resolver Resolver, renderer Renderer, h *health.Aggregator, engine EngineStats, logger *logging.Logger, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		resolver: resolver,
		renderer: renderer,
		health:   h,
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
	}
}

// ContentRequest is the POST /content request body.
type ContentRequest struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// ContentResponse is the successful POST /content response body.
// StatusCode carries the rendered page's response status, not the API's.
type ContentResponse struct {
	StatusCode  int    `json:"statusCode"`
	Content     string `json:"content"`
	SessionID   string `json:"sessionId"`
	StateStored bool   `json:"stateStored"`
}

// Root returns the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "renderbox",
		"endpoints": []string{
			"POST /content",
			"GET /health",
			"GET /metrics",
			"GET /metrics/prometheus",
		},
	})
}

// RenderContent renders a URL in an isolated browser context and returns the
// fully rendered HTML, resuming prior session state when a verifiable
// session id is supplied.
func (h *Handlers) RenderContent(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	if reason, ok := validateURL(req.URL); !ok {
		h.badRequest(c, reason)
		return
	}

	ctx := c.Request.Context()
	identity := h.resolver.Resolve(ctx, req.SessionID)
	outcome := h.renderer.Render(ctx, req.URL, identity)

	if outcome.Err != nil {
		status := render.StatusFor(outcome.Err)
		c.JSON(status, gin.H{
			"statusCode": status,
			"error":      outcome.Err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ContentResponse{
		StatusCode:  outcome.Status,
		Content:     outcome.HTML,
		SessionID:   identity.ID,
		StateStored: outcome.StateStored,
	})
}

// Health reports the aggregated readiness verdict.
func (h *Handlers) Health(c *gin.Context) {
	snap := h.health.Snapshot()

	status := "healthy"
	code := http.StatusOK
	if !snap.Healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":           status,
		"browserConnected": snap.BrowserConnected,
		"valkeyConnected":  snap.ValkeyConnected,
		"valkeyEnabled":    snap.ValkeyEnabled,
		"uptime":           snap.UptimeSeconds,
	})
}

// Metrics reports engine and runtime statistics as JSON.
func (h *Handlers) Metrics(c *gin.Context) {
	if !h.engine.Connected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "render engine not connected",
		})
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, gin.H{
		"browserConnected": true,
		"activeContexts":   h.engine.ActiveContexts(),
		"memoryUsage": gin.H{
			"heapAlloc": mem.HeapAlloc,
			"heapSys":   mem.HeapSys,
			"sys":       mem.Sys,
			"numGC":     mem.NumGC,
		},
		"uptime": h.metrics.UptimeSeconds(),
	})
}

func (h *Handlers) badRequest(c *gin.Context, reason string) {
	h.logger.Debug("Rejected render request", zap.String("reason", reason))
	c.JSON(http.StatusBadRequest, gin.H{
		"statusCode": http.StatusBadRequest,
		"error":      reason,
	})
}

// validateURL accepts only syntactically valid absolute http(s) URLs.
// Rejection happens before any session or browser resource is touched.
func validateURL(raw string) (string, bool) {
	if raw == "" {
		return "url is required", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "url is not parseable", false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "url must be absolute with http or https scheme", false
	}
	return "", true
}
