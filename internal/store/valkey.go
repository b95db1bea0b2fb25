package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/statelab/renderbox/internal/infrastructure/logging"
)

const pingTimeout = 5 * time.Second

// Valkey is a Store backed by a Valkey (or any RESP-compatible) server.
//
// Writes are last-writer-wins: concurrent renders under the same session id
// are not ordered relative to each other, the last TrySet to complete wins.
// Entries expire by TTL inside the store; the adapter never deletes them.
type Valkey struct {
	rdb       *redis.Client
	logger    *logging.Logger
	connected atomic.Bool
}

// NewValkey creates a Valkey-backed store and probes connectivity once.
// A failed probe is not fatal: the adapter starts disconnected and recovers
// as soon as an operation succeeds.
func NewValkey(addr string, logger *logging.Logger) *Valkey {
	v := &Valkey{
		rdb: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := v.rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Valkey unreachable at startup, continuing without persistence",
			zap.String("addr", addr), zap.Error(err))
	} else {
		v.connected.Store(true)
		logger.Info("Connected to Valkey", zap.String("addr", addr))
	}
	return v
}

// TryGet returns the stored state blob, or (nil, false) on miss or failure.
func (v *Valkey) TryGet(ctx context.Context, sessionID string) ([]byte, bool) {
	data, err := v.rdb.Get(ctx, Key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			v.connected.Store(true)
			return nil, false
		}
		v.fail("get", sessionID, err)
		return nil, false
	}
	v.connected.Store(true)
	return data, true
}

// TrySet stores the state blob with the given TTL, reporting success.
func (v *Valkey) TrySet(ctx context.Context, sessionID string, state []byte, ttl time.Duration) bool {
	if err := v.rdb.Set(ctx, Key(sessionID), state, ttl).Err(); err != nil {
		v.fail("set", sessionID, err)
		return false
	}
	v.connected.Store(true)
	return true
}

// TryExists reports whether an entry exists, false on failure.
func (v *Valkey) TryExists(ctx context.Context, sessionID string) bool {
	n, err := v.rdb.Exists(ctx, Key(sessionID)).Result()
	if err != nil {
		v.fail("exists", sessionID, err)
		return false
	}
	v.connected.Store(true)
	return n > 0
}

// Connected reports the cached connectivity verdict.
func (v *Valkey) Connected() bool {
	return v.connected.Load()
}

// Close closes the underlying client.
func (v *Valkey) Close() error {
	return v.rdb.Close()
}

func (v *Valkey) fail(op, sessionID string, err error) {
	// A cancelled caller context says nothing about the server, so it must
	// not downgrade the cached connectivity verdict.
	if errors.Is(err, context.Canceled) {
		v.logger.Debug("Valkey operation abandoned by caller",
			zap.String("op", op),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return
	}
	v.connected.Store(false)
	v.logger.Warn("Valkey operation failed, treating store as unavailable",
		zap.String("op", op),
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
}
