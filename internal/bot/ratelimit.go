package bot

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Command rate limits per chat. Downloads themselves are limited by the
// single-slot gate; this only keeps command floods from hammering the
// Bot API.
const (
	defaultCommandRate  = rate.Limit(1) // commands per second
	defaultCommandBurst = 3
)

// chatLimiter rate-limits commands per chat ID.
type chatLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[int64]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newChatLimiter(limit rate.Limit, burst int) *chatLimiter {
	return &chatLimiter{
		limit:    limit,
		burst:    burst,
		visitors: make(map[int64]*visitor),
	}
}

// Allow reports whether the chat may issue another command now.
func (cl *chatLimiter) Allow(chatID int64) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	v, ok := cl.visitors[chatID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.visitors[chatID] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

// cleanupLoop drops idle chats so the map does not grow unbounded. It
// runs until the context is cancelled.
func (cl *chatLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cl.cleanup()
		}
	}
}

func (cl *chatLimiter) cleanup() {
	threshold := time.Now().Add(-30 * time.Minute)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for id, v := range cl.visitors {
		if v.lastSeen.Before(threshold) {
			delete(cl.visitors, id)
		}
	}
}
