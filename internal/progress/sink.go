package progress

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Sink receives rendered status text. The Telegram transport implements
// it by editing the session's status message.
type Sink interface {
	Publish(ctx context.Context, text string) error
}

// Debounced wraps a Sink and drops updates that arrive faster than the
// configured minimum interval. Engine callbacks can fire many times per
// second; pushing every one would overwhelm the transport.
type Debounced struct {
	sink    Sink
	limiter *rate.Limiter
}

// NewDebounced creates a Debounced sink with the given minimum interval
// between forwarded updates. The first update always passes.
func NewDebounced(sink Sink, minInterval time.Duration) *Debounced {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Debounced{
		sink:    sink,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Publish forwards text to the underlying sink if the rate limit allows,
// and silently drops it otherwise. Publish errors are logged, not
// propagated: a failed status edit must never abort a download.
func (d *Debounced) Publish(ctx context.Context, text string) {
	if !d.limiter.Allow() {
		return
	}
	if err := d.sink.Publish(ctx, text); err != nil {
		slog.Warn("Progress update failed", "error", err)
	}
}

// Flush pushes text to the underlying sink unconditionally. Used for
// terminal notifications, which must not be dropped by the debounce.
func (d *Debounced) Flush(ctx context.Context, text string) {
	if err := d.sink.Publish(ctx, text); err != nil {
		slog.Warn("Status update failed", "error", err)
	}
}
