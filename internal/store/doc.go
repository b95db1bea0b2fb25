// Package store adapts the external Valkey key-value service into a
// non-throwing session state store.
//
// The adapter converts every transport, timeout, and protocol failure into
// the absent/false result so that callers degrade gracefully instead of
// failing renders. Connectivity is tracked as a cached flag updated on every
// operation, read by the health aggregator without live round-trips.
package store
