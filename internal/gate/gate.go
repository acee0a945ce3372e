// Package gate provides the single-slot admission guard that limits the
// process to one in-flight download.
package gate

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/driftbyte/fetchtube/internal/domain"
)

// Session is the live state of an admitted download. Exactly one
// session exists per process at a time.
type Session struct {
	ID      string
	Request domain.DownloadRequest
	Created time.Time

	state        atomic.Value // domain.SessionState
	cancelFlag   atomic.Bool
	producedFile atomic.Value // string
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	return s.state.Load().(domain.SessionState)
}

// SetState transitions the session to a new state. A cancel request
// takes precedence: once Cancelling, only terminal states overwrite it.
func (s *Session) SetState(st domain.SessionState) {
	if s.State() == domain.StateCancelling &&
		st != domain.StateSucceeded && st != domain.StateFailed {
		return
	}
	s.state.Store(st)
}

// RequestCancel sets the cooperative cancellation flag. The engine
// observes it on the next progress tick, so termination is not
// instantaneous.
func (s *Session) RequestCancel() {
	s.cancelFlag.Store(true)
	s.state.Store(domain.StateCancelling)
}

// Cancelled reports whether cancellation has been requested.
func (s *Session) Cancelled() bool {
	return s.cancelFlag.Load()
}

// SetProducedFile records the path of the engine's output.
func (s *Session) SetProducedFile(path string) {
	s.producedFile.Store(path)
}

// ProducedFile returns the recorded output path, or "".
func (s *Session) ProducedFile() string {
	if v := s.producedFile.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Gate is the single-slot admission guard. TryAdmit claims the slot
// atomically; Release frees it. At most one session is ever live.
type Gate struct {
	slot *semaphore.Weighted

	mu     sync.Mutex
	active *Session
}

// New creates a Gate with a single download slot.
func New() *Gate {
	return &Gate{slot: semaphore.NewWeighted(1)}
}

// TryAdmit attempts to claim the download slot for a request. It never
// blocks: when the slot is taken it returns domain.ErrBusy immediately.
func (g *Gate) TryAdmit(req domain.DownloadRequest) (*Session, error) {
	if !g.slot.TryAcquire(1) {
		return nil, domain.ErrBusy
	}

	session := &Session{
		ID:      uuid.New().String(),
		Request: req,
		Created: time.Now().UTC(),
	}
	session.state.Store(domain.StatePending)

	g.mu.Lock()
	g.active = session
	g.mu.Unlock()

	slog.Info("Download slot claimed",
		"session_id", session.ID,
		"url", req.URL,
		"resolution", string(req.Resolution),
	)
	return session, nil
}

// Release frees the slot claimed by session. It is safe to call from a
// deferred cleanup path regardless of how the session ended; releasing
// a session that is not active is a no-op.
func (g *Gate) Release(session *Session) {
	if session == nil {
		return
	}

	g.mu.Lock()
	if g.active != session {
		g.mu.Unlock()
		return
	}
	g.active = nil
	g.mu.Unlock()

	g.slot.Release(1)
	slog.Info("Download slot released",
		"session_id", session.ID,
		"state", string(session.State()),
	)
}

// Active returns the live session, or nil when the slot is free.
func (g *Gate) Active() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Busy reports whether a download is in flight.
func (g *Gate) Busy() bool {
	return g.Active() != nil
}

// CancelActive requests cancellation of the live session. Returns false
// when no download is in flight.
func (g *Gate) CancelActive() bool {
	session := g.Active()
	if session == nil {
		return false
	}
	session.RequestCancel()
	slog.Info("Cancellation requested", "session_id", session.ID)
	return true
}
