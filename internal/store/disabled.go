package store

import (
	"context"
	"time"
)

// Disabled is a Store for deployments with persistence turned off.
// Every operation short-circuits to the disabled-equivalent result without
// contacting anything.
type Disabled struct{}

// NewDisabled creates a no-op store.
func NewDisabled() Disabled { return Disabled{} }

func (Disabled) TryGet(context.Context, string) ([]byte, bool) { return nil, false }

func (Disabled) TrySet(context.Context, string, []byte, time.Duration) bool { return false }

func (Disabled) TryExists(context.Context, string) bool { return false }

func (Disabled) Connected() bool { return false }

func (Disabled) Close() error { return nil }
