// Package counter defines a shared fixed-window counter used for rate
// limiting across instances.
package counter

import (
	"context"
	"time"
)

// Counter increments the named key's count within the current fixed window
// and returns the running total for that window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}
