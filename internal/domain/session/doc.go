// Package session resolves the effective session identity for each render
// request.
//
// The protocol: no candidate means a fresh id; a candidate the store can
// verify is resumed together with its stored state; a candidate the store
// cannot verify is discarded and replaced with a fresh id. The resolver
// never reuses an identifier it cannot verify, which keeps client-supplied
// tokens from probing stored session state.
package session
