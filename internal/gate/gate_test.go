package gate

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbyte/fetchtube/internal/domain"
)

func testRequest() domain.DownloadRequest {
	return domain.DownloadRequest{
		URL:         "https://youtu.be/dQw4w9WgXcQ",
		Resolution:  domain.Res720,
		RequesterID: 42,
	}
}

func TestTryAdmitSingleSlot(t *testing.T) {
	g := New()

	session, err := g.TryAdmit(testRequest())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, domain.StatePending, session.State())
	assert.True(t, g.Busy())

	_, err = g.TryAdmit(testRequest())
	assert.ErrorIs(t, err, domain.ErrBusy)

	g.Release(session)
	assert.False(t, g.Busy())

	next, err := g.TryAdmit(testRequest())
	require.NoError(t, err)
	g.Release(next)
}

func TestTryAdmitConcurrent(t *testing.T) {
	g := New()

	const attempts = 50
	var wg sync.WaitGroup
	admitted := make(chan *Session, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s, err := g.TryAdmit(testRequest()); err == nil {
				admitted <- s
			} else if !errors.Is(err, domain.ErrBusy) {
				t.Errorf("unexpected admission error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(admitted)

	var sessions []*Session
	for s := range admitted {
		sessions = append(sessions, s)
	}
	require.Len(t, sessions, 1, "concurrent TryAdmit must yield exactly one accepted session")

	g.Release(sessions[0])
	s, err := g.TryAdmit(testRequest())
	require.NoError(t, err, "slot must be reusable after release")
	g.Release(s)
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := New()
	session, err := g.TryAdmit(testRequest())
	require.NoError(t, err)

	g.Release(session)
	g.Release(session) // second release must not free a slot twice
	g.Release(nil)

	first, err := g.TryAdmit(testRequest())
	require.NoError(t, err)
	_, err = g.TryAdmit(testRequest())
	assert.ErrorIs(t, err, domain.ErrBusy, "double release must not widen the slot")
	g.Release(first)
}

func TestCancelActive(t *testing.T) {
	g := New()
	assert.False(t, g.CancelActive(), "no live session to cancel")

	session, err := g.TryAdmit(testRequest())
	require.NoError(t, err)
	assert.False(t, session.Cancelled())

	assert.True(t, g.CancelActive())
	assert.True(t, session.Cancelled())
	assert.Equal(t, domain.StateCancelling, session.State())

	// Downloading must not overwrite a pending cancellation.
	session.SetState(domain.StateDownloading)
	assert.Equal(t, domain.StateCancelling, session.State())

	// Terminal states do.
	session.SetState(domain.StateFailed)
	assert.Equal(t, domain.StateFailed, session.State())

	g.Release(session)
}
