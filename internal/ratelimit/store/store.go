// Package store holds counter backends for the rate limiter.
package store

import (
	"context"
	"time"
)

// CounterStore increments a windowed counter and reports the value after the
// increment. The first increment of a key arms its expiry to the window
// length; later increments within the window do not extend it.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
