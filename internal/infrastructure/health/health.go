// Package health derives a single up/down verdict from cached engine and
// store connectivity, independent of any in-flight request. Checks read the
// flags established at startup and refreshed by background probes; they
// never perform live round-trips of their own.
package health

import "time"

// EngineLiveness reports the render engine's cached connectivity.
type EngineLiveness interface {
	Connected() bool
}

// StoreLiveness reports the state store's cached connectivity.
type StoreLiveness interface {
	Connected() bool
}

// Aggregator combines collaborator liveness into one readiness verdict.
type Aggregator struct {
	engine         EngineLiveness
	store          StoreLiveness
	storageEnabled bool
	startTime      time.Time
}

// New creates a health aggregator.
func New(engine EngineLiveness, store StoreLiveness, storageEnabled bool) *Aggregator {
	return &Aggregator{
		engine:         engine,
		store:          store,
		storageEnabled: storageEnabled,
		startTime:      time.Now(),
	}
}

// Healthy reports true iff the render engine is connected and, when
// persistence is enabled, the store handle is connected too.
func (a *Aggregator) Healthy() bool {
	if !a.engine.Connected() {
		return false
	}
	if a.storageEnabled && !a.store.Connected() {
		return false
	}
	return true
}

// Status is the health verdict with its contributing signals.
type Status struct {
	Healthy          bool
	BrowserConnected bool
	ValkeyConnected  bool
	ValkeyEnabled    bool
	UptimeSeconds    float64
}

// Snapshot returns the current verdict and its inputs.
func (a *Aggregator) Snapshot() Status {
	return Status{
		Healthy:          a.Healthy(),
		BrowserConnected: a.engine.Connected(),
		ValkeyConnected:  a.store.Connected(),
		ValkeyEnabled:    a.storageEnabled,
		UptimeSeconds:    time.Since(a.startTime).Seconds(),
	}
}
