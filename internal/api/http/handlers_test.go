package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statelab/renderbox/internal/domain/render"
	"github.com/statelab/renderbox/internal/domain/session"
	"github.com/statelab/renderbox/internal/infrastructure/health"
	"github.com/statelab/renderbox/internal/infrastructure/logging"
	"github.com/statelab/renderbox/internal/infrastructure/monitoring"
)

type fakeResolver struct {
	identity session.Identity
	calls    int
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) session.Identity {
	f.calls++
	return f.identity
}

type fakeRenderer struct {
	outcome render.Outcome
	calls   int
	lastURL string
}

func (f *fakeRenderer) Render(_ context.Context, url string, _ session.Identity) render.Outcome {
	f.calls++
	f.lastURL = url
	return f.outcome
}

type fakeEngine struct {
	connected bool
	contexts  int
}

func (f *fakeEngine) Connected() bool     { return f.connected }
func (f *fakeEngine) ActiveContexts() int { return f.contexts }

type deps struct {
	resolver *fakeResolver
	renderer *fakeRenderer
	engine   *fakeEngine
	router   *gin.Engine
}

type liveness bool

func (l liveness) Connected() bool { return bool(l) }

func setup(t *testing.T, eng *fakeEngine, storeUp, storageEnabled bool) *deps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d := &deps{
		resolver: &fakeResolver{identity: session.Identity{ID: "fresh-id"}},
		renderer: &fakeRenderer{outcome: render.Outcome{Status: 200, HTML: "<html></html>", StateStored: true}},
		engine:   eng,
	}

	agg := health.New(liveness(eng.connected), liveness(storeUp), storageEnabled)
	h := NewHandlers(d.resolver, d.renderer, agg, eng, logging.NewNop(), monitoring.NewMetrics())

	router := gin.New()
	router.POST("/content", h.RenderContent)
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
	router.GET("/", h.Root)
	d.router = router
	return d
}

func post(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/content", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRenderContentMissingURL(t *testing.T) {
	d := setup(t, &fakeEngine{connected: true}, false, false)

	w := post(d.router, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(400), resp["statusCode"])
	assert.NotEmpty(t, resp["error"])

	// Rejection happens before any session or browser resource is touched.
	assert.Zero(t, d.resolver.calls)
	assert.Zero(t, d.renderer.calls)
}

func TestRenderContentMalformedURL(t *testing.T) {
	d := setup(t, &fakeEngine{connected: true}, false, false)

	for _, bad := range []string{"not-a-url", "ftp://example.com/file", "//missing-scheme"} {
		w := post(d.router, `{"url":"`+bad+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, "url %q must be rejected", bad)
	}
	assert.Zero(t, d.renderer.calls)
}

func TestRenderContentSuccess(t *testing.T) {
	d := setup(t, &fakeEngine{connected: true}, false, false)
	d.renderer.outcome = render.Outcome{Status: 404, HTML: "<html>missing</html>", StateStored: true}

	w := post(d.router, `{"url":"https://example.com/page","sessionId":"supplied"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// The inner statusCode is the rendered page's status, not the API's.
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "<html>missing</html>", resp.Content)
	assert.True(t, resp.StateStored)
	// The response carries the resolver's effective id, which differs from
	// the unverifiable supplied one.
	assert.Equal(t, "fresh-id", resp.SessionID)
	assert.Equal(t, "https://example.com/page", d.renderer.lastURL)
}

func TestRenderContentErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", render.ErrNavigationTimeout, http.StatusGatewayTimeout},
		{"network", render.ErrNetworkFailure, http.StatusBadGateway},
		{"other", render.ErrRenderFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setup(t, &fakeEngine{connected: true}, false, false)
			d.renderer.outcome = render.Outcome{Err: tt.err}

			w := post(d.router, `{"url":"https://example.com"}`)

			assert.Equal(t, tt.want, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, float64(tt.want), resp["statusCode"])
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestHealthHealthy(t *testing.T) {
	d := setup(t, &fakeEngine{connected: true}, true, true)

	w := get(d.router, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, true, resp["browserConnected"])
	assert.Equal(t, true, resp["valkeyConnected"])
	assert.Equal(t, true, resp["valkeyEnabled"])
}

func TestHealthEngineDownIsUnhealthy(t *testing.T) {
	// Store state must not mask a disconnected engine.
	d := setup(t, &fakeEngine{connected: false}, true, true)

	w := get(d.router, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp["status"])
}

func TestHealthStorageEnabledWithoutStoreIsUnhealthy(t *testing.T) {
	d := setup(t, &fakeEngine{connected: true}, false, true)

	w := get(d.router, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsReportsEngineState(t *testing.T) {
	d := setup(t, &fakeEngine{connected: true, contexts: 3}, false, false)

	w := get(d.router, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["browserConnected"])
	assert.Equal(t, float64(3), resp["activeContexts"])
	assert.Contains(t, resp, "memoryUsage")
	assert.Contains(t, resp, "uptime")
}

func TestMetricsEngineDisconnected(t *testing.T) {
	d := setup(t, &fakeEngine{connected: false}, false, false)

	w := get(d.router, "/metrics")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRootBanner(t *testing.T) {
	d := setup(t, &fakeEngine{connected: true}, false, false)

	w := get(d.router, "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "renderbox")
}
