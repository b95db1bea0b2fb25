package store

import (
	"context"
	"time"
)

// Store provides best-effort session state persistence.
//
// Every operation is non-throwing: any transport or protocol failure from the
// underlying store is absorbed and reported as the absent/false result. A
// render must never fail solely because persistence is unavailable.
type Store interface {
	// TryGet returns the stored state blob for a session, or (nil, false)
	// when the entry is missing or the store is unreachable.
	TryGet(ctx context.Context, sessionID string) ([]byte, bool)

	// TrySet stores a state blob under a session with the given TTL and
	// reports whether the write succeeded.
	TrySet(ctx context.Context, sessionID string, state []byte, ttl time.Duration) bool

	// TryExists reports whether a stored entry exists for the session.
	// Unreachable stores report false.
	TryExists(ctx context.Context, sessionID string) bool

	// Connected reports the cached connectivity verdict. No live round-trip
	// is performed.
	Connected() bool

	// Close releases the underlying client.
	Close() error
}

// Key returns the storage key for a session identifier.
func Key(sessionID string) string {
	return "session:" + sessionID
}
