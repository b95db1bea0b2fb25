package session

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statelab/renderbox/internal/infrastructure/logging"
	"github.com/statelab/renderbox/internal/infrastructure/monitoring"
	"github.com/statelab/renderbox/internal/store"
)

// Identity is the resolved session identity for one render request.
type Identity struct {
	// ID is the effective session identifier the render runs under.
	ID string
	// Restore is the stored state blob to seed the browser context with,
	// nil when no usable prior state exists.
	Restore []byte
	// Resumed reports whether ID is a verified client-supplied identifier.
	Resumed bool
}

// Resolver decides the effective session identity for each request.
//
// A client-supplied candidate is honored only when the store can verify it;
// anything unverifiable is discarded and a brand-new identifier minted, so
// unverified tokens cannot be used to probe or hijack stored session state.
type Resolver struct {
	store   store.Store
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewResolver creates a session identity resolver.
func NewResolver(st store.Store, logger *logging.Logger, metrics *monitoring.Metrics) *Resolver {
	return &Resolver{store: st, logger: logger, metrics: metrics}
}

// Resolve produces the effective identity for a request. It never allocates
// a browser resource and never fails: the worst case is a fresh identity.
func (r *Resolver) Resolve(ctx context.Context, candidate string) Identity {
	if candidate == "" {
		return r.mint("none supplied")
	}

	if !r.store.TryExists(ctx, candidate) {
		// Unknown, expired, or unverifiable (store down or disabled):
		// the candidate is discarded, never impersonated.
		return r.mint("candidate not verifiable")
	}

	restore, ok := r.store.TryGet(ctx, candidate)
	if !ok {
		// Existence without a readable value is tolerated: the session id
		// stays verified and the render starts from a clean context.
		r.logger.Warn("Session exists but state is unreadable, proceeding without restore",
			zap.String("session_id", candidate))
		restore = nil
	}

	r.metrics.SessionsResumed.Inc()
	r.logger.Debug("Resumed session", zap.String("session_id", candidate), zap.Bool("has_state", ok))
	return Identity{ID: candidate, Restore: restore, Resumed: true}
}

func (r *Resolver) mint(reason string) Identity {
	id := NewID()
	r.metrics.SessionsMinted.Inc()
	r.logger.Debug("Minted session", zap.String("session_id", id), zap.String("reason", reason))
	return Identity{ID: id}
}

// NewID mints a globally unique, non-guessable session identifier
// (128 bits of randomness, string-rendered).
func NewID() string {
	return uuid.NewString()
}
