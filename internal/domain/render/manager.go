package render

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/statelab/renderbox/internal/domain/session"
	"github.com/statelab/renderbox/internal/infrastructure/logging"
	"github.com/statelab/renderbox/internal/infrastructure/monitoring"
	"github.com/statelab/renderbox/internal/store"
)

const (
	// NavigationTimeout is the hard ceiling on one navigation.
	NavigationTimeout = 30 * time.Second
	// persistTimeout bounds the best-effort state capture and write.
	persistTimeout = 5 * time.Second
)

// Engine acquires isolated browser contexts from the shared render engine.
type Engine interface {
	NewContext(ctx context.Context, restore []byte) (Context, error)
}

// Context is one isolated browser session, exclusively owned by a single
// render for its full duration.
type Context interface {
	Render(ctx context.Context, url string) (html string, status int, err error)
	CaptureState(ctx context.Context) ([]byte, error)
	Dispose()
}

// Outcome is the transient result of one render attempt.
type Outcome struct {
	Status      int
	HTML        string
	StateStored bool
	Err         error
}

// Manager orchestrates one render: acquire context, navigate, capture
// resulting state, release the context, with deterministic cleanup on every
// exit path.
type Manager struct {
	engine  Engine
	store   store.Store
	ttl     time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewManager creates a rendering session manager.
func NewManager(engine Engine, st store.Store, ttl time.Duration, logger *logging.Logger, metrics *monitoring.Metrics) *Manager {
	return &Manager{engine: engine, store: st, ttl: ttl, logger: logger, metrics: metrics}
}

// Render drives one render under the resolved identity. Regardless of the
// navigation outcome, it attempts a best-effort state persistence and then
// disposes the context; disposal runs even when capture or persistence
// fails.
func (m *Manager) Render(ctx context.Context, url string, id session.Identity) Outcome {
	start := time.Now()

	rc, err := m.engine.NewContext(ctx, id.Restore)
	if err != nil {
		m.metrics.RecordRender("context_failed", time.Since(start))
		m.logger.Error("Failed to acquire browser context", zap.Error(err))
		return Outcome{Err: classify(err)}
	}

	var out Outcome
	func() {
		// Registered in reverse order: persistence runs first, disposal
		// runs last and even when the persist path faults.
		defer rc.Dispose()
		defer func() {
			out.StateStored = m.persistState(ctx, rc, id.ID)
		}()

		navCtx, cancel := context.WithTimeout(ctx, NavigationTimeout)
		defer cancel()
		out.HTML, out.Status, out.Err = rc.Render(navCtx, url)
	}()

	duration := time.Since(start)
	if out.Err != nil {
		out.Err = classify(out.Err)
		m.metrics.RecordRender("failed", duration)
		m.logger.Warn("Render failed",
			zap.String("url", url),
			zap.String("session_id", id.ID),
			zap.Duration("duration", duration),
			zap.Error(out.Err),
		)
		return out
	}

	m.metrics.RecordRender("ok", duration)
	m.logger.Info("Render completed",
		zap.String("url", url),
		zap.String("session_id", id.ID),
		zap.Int("status", out.Status),
		zap.Bool("resumed", id.Resumed),
		zap.Bool("state_stored", out.StateStored),
		zap.Duration("duration", duration),
	)
	return out
}

// persistState captures and stores the context state under the session id.
// Best effort: failure degrades StateStored only, never the render outcome.
// The write is detached from request cancellation so a caller that went away
// mid-render still gets its state captured for next time.
func (m *Manager) persistState(ctx context.Context, rc Context, sessionID string) bool {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	blob, err := rc.CaptureState(pctx)
	if err != nil {
		m.metrics.RecordStatePersist(false)
		m.logger.Warn("Failed to capture session state",
			zap.String("session_id", sessionID), zap.Error(err))
		return false
	}

	ok := m.store.TrySet(pctx, sessionID, blob, m.ttl)
	m.metrics.RecordStatePersist(ok)
	return ok
}
