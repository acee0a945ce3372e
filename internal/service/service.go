// Package service orchestrates a download end to end: admission,
// metadata probe, engine run with progress forwarding, delivery, and
// guaranteed slot release.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftbyte/fetchtube/internal/domain"
	"github.com/driftbyte/fetchtube/internal/format"
	"github.com/driftbyte/fetchtube/internal/gate"
	"github.com/driftbyte/fetchtube/internal/progress"
)

// Engine is the download engine adapter.
type Engine interface {
	Probe(ctx context.Context, url string) (*domain.VideoInfo, error)
	Download(ctx context.Context, req domain.DownloadRequest, info *domain.VideoInfo, onProgress func(domain.ProgressSample), isCancelled func() bool) (string, error)
}

// Deliverer hands the produced file to the outbound transport.
type Deliverer interface {
	Deliver(ctx context.Context, session *gate.Session, info *domain.VideoInfo) error
}

// History persists download attempts. All history failures are logged
// and swallowed: bookkeeping must never break a download.
type History interface {
	Create(ctx context.Context, rec *domain.Record) error
	SetTitle(ctx context.Context, id, title string) error
	Finish(ctx context.Context, id string, status domain.RecordStatus, errMsg string) error
}

// Service is the download admission and progress-tracking core.
type Service struct {
	gate     *gate.Gate
	engine   Engine
	deliver  Deliverer
	history  History
	debounce time.Duration
}

// New creates a Service.
func New(g *gate.Gate, engine Engine, deliver Deliverer, history History, debounce time.Duration) *Service {
	return &Service{
		gate:     g,
		engine:   engine,
		deliver:  deliver,
		history:  history,
		debounce: debounce,
	}
}

// SubmitDownload runs one download request to a terminal outcome. It
// returns domain.ErrBusy immediately when a download is already in
// flight; every other error is one of the classified outcomes from the
// domain taxonomy. The slot is released on all paths.
func (s *Service) SubmitDownload(ctx context.Context, req domain.DownloadRequest, sink progress.Sink) error {
	req.Resolution = format.Normalize(req.Resolution)

	session, err := s.gate.TryAdmit(req)
	if err != nil {
		return err
	}
	defer s.gate.Release(session)

	err = s.run(ctx, session, req, sink)
	s.finishRecord(session, err)
	return err
}

func (s *Service) run(ctx context.Context, session *gate.Session, req domain.DownloadRequest, sink progress.Sink) error {
	rec := domain.NewRecord(session.ID, req)
	if s.history != nil {
		if err := s.history.Create(ctx, rec); err != nil {
			slog.Warn("Failed to persist download record", "error", err)
		}
	}

	info, err := s.engine.Probe(ctx, req.URL)
	if err != nil {
		return err
	}
	if s.history != nil {
		if err := s.history.SetTitle(ctx, session.ID, info.Title); err != nil {
			slog.Warn("Failed to persist title", "error", err)
		}
	}

	debounced := progress.NewDebounced(sink, s.debounce)
	debounced.Flush(ctx, startingText(info, req.Resolution))

	session.SetState(domain.StateDownloading)
	path, err := s.engine.Download(ctx, req, info,
		func(sample domain.ProgressSample) {
			debounced.Publish(ctx, progress.Render(sample))
		},
		session.Cancelled,
	)
	if err != nil {
		return err
	}
	session.SetProducedFile(path)

	debounced.Flush(ctx, "📤 **Uploading to Telegram...**")
	return s.deliver.Deliver(ctx, session, info)
}

// finishRecord maps the outcome onto the session state and the history
// record.
func (s *Service) finishRecord(session *gate.Session, err error) {
	var (
		state  = domain.StateSucceeded
		status = domain.RecordSucceeded
		errMsg string
	)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCancelled):
		state, status, errMsg = domain.StateFailed, domain.RecordCancelled, err.Error()
	default:
		state, status, errMsg = domain.StateFailed, domain.RecordFailed, err.Error()
	}
	session.SetState(state)

	if s.history == nil {
		return
	}
	// The session context may already be cancelled; bookkeeping gets its
	// own short deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.Finish(ctx, session.ID, status, errMsg); err != nil {
		slog.Warn("Failed to finish download record", "error", err)
	}
}

// CancelActive requests cancellation of the in-flight download, if any.
func (s *Service) CancelActive() bool {
	return s.gate.CancelActive()
}

// Busy reports whether a download is in flight.
func (s *Service) Busy() bool {
	return s.gate.Busy()
}

// ActiveDownloads returns 1 when the slot is claimed, 0 otherwise.
func (s *Service) ActiveDownloads() int {
	if s.gate.Busy() {
		return 1
	}
	return 0
}

// startingText is the first status message, shown before the engine
// reports any progress.
func startingText(info *domain.VideoInfo, res domain.Resolution) string {
	return fmt.Sprintf(
		"📥 **Downloading YouTube Video**\n\n"+
			"**Title:** %s\n"+
			"**Resolution:** %s\n"+
			"**Status:** Starting download...\n\n"+
			"🛑 Send /cancel to stop",
		info.Title,
		format.Display(res),
	)
}
