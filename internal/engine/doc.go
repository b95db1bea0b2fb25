// Package engine drives the shared headless Chromium over CDP using go-rod.
//
// One Engine handle exists per process, initialized at startup and torn down
// at shutdown. Each request acquires its own isolated Context (an incognito
// browser context with a private cookie jar), optionally seeded from a
// previously captured state blob. State capture serializes the cookie jar
// and origin-keyed localStorage into an opaque JSON blob suitable for
// seeding a later context.
//
// Rendering applies fixed constraints uniformly: 1920x1080 viewport, a fixed
// Chrome user agent, a fixed Accept-Language, JavaScript enabled, and TLS
// errors tolerated so content behind self-signed certificates still renders.
package engine
