// Package render orchestrates one render: acquire an isolated browser
// context (optionally seeded with restored state), delegate navigation to
// the engine, capture and persist the resulting state, and release the
// context.
//
// One render moves through: context acquired, navigating, rendered or
// failed, state persist attempted, disposed. Disposed is terminal and is
// reached from every prior state; persistence failures degrade the
// StateStored flag only and never change the render outcome.
package render
