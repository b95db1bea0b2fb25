package session

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statelab/renderbox/internal/infrastructure/logging"
	"github.com/statelab/renderbox/internal/infrastructure/monitoring"
)

type fakeStore struct {
	data       map[string][]byte
	unreadable map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, unreadable: map[string]bool{}}
}

func (f *fakeStore) TryGet(_ context.Context, id string) ([]byte, bool) {
	if f.unreadable[id] {
		return nil, false
	}
	blob, ok := f.data[id]
	return blob, ok
}

func (f *fakeStore) TrySet(_ context.Context, id string, state []byte, _ time.Duration) bool {
	f.data[id] = state
	return true
}

func (f *fakeStore) TryExists(_ context.Context, id string) bool {
	if f.unreadable[id] {
		return true
	}
	_, ok := f.data[id]
	return ok
}

func (f *fakeStore) Connected() bool { return true }
func (f *fakeStore) Close() error    { return nil }

func newResolver(st *fakeStore) *Resolver {
	return NewResolver(st, logging.NewNop(), monitoring.NewMetrics())
}

func TestResolveWithoutCandidate(t *testing.T) {
	r := newResolver(newFakeStore())

	id := r.Resolve(context.Background(), "")

	assert.NotEmpty(t, id.ID)
	assert.Nil(t, id.Restore)
	assert.False(t, id.Resumed)
}

func TestResolveUnverifiableCandidateIsDiscarded(t *testing.T) {
	r := newResolver(newFakeStore())

	id := r.Resolve(context.Background(), "deadbeef")

	assert.NotEqual(t, "deadbeef", id.ID, "unverified candidate must never be reused")
	assert.Nil(t, id.Restore)
	assert.False(t, id.Resumed)
}

func TestResolveVerifiedCandidateIsResumed(t *testing.T) {
	st := newFakeStore()
	st.data["known"] = []byte(`{"cookies":[]}`)
	r := newResolver(st)

	id := r.Resolve(context.Background(), "known")

	assert.Equal(t, "known", id.ID)
	assert.Equal(t, []byte(`{"cookies":[]}`), id.Restore)
	assert.True(t, id.Resumed)
}

func TestResolveExistsButUnreadableKeepsIdentity(t *testing.T) {
	st := newFakeStore()
	st.unreadable["known"] = true
	r := newResolver(st)

	id := r.Resolve(context.Background(), "known")

	assert.Equal(t, "known", id.ID)
	assert.Nil(t, id.Restore)
	assert.True(t, id.Resumed)
}

// The resumed counter tracks verified identifiers being honored, whether or
// not the stored blob was readable; minting covers the other paths.
func TestResolveCountsHonoredAndMintedIdentifiers(t *testing.T) {
	st := newFakeStore()
	st.data["readable"] = []byte(`{"cookies":[]}`)
	st.unreadable["opaque"] = true
	metrics := monitoring.NewMetrics()
	r := NewResolver(st, logging.NewNop(), metrics)

	ctx := context.Background()
	r.Resolve(ctx, "")
	r.Resolve(ctx, "unknown")
	r.Resolve(ctx, "readable")
	r.Resolve(ctx, "opaque")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SessionsResumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SessionsMinted))
}

func TestMintedIdentifiersAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.Len(t, id, 36)
		require.False(t, seen[id], "minted a duplicate session id")
		seen[id] = true
	}
}
