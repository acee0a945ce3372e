package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbyte/fetchtube/internal/domain"
	"github.com/driftbyte/fetchtube/internal/gate"
)

type fakeEngine struct {
	probeErr    error
	downloadErr error
	filePath    string
	ticks       []domain.ProgressSample // samples emitted during Download
	started     chan struct{}           // closed when Download begins
	proceed     chan struct{}           // Download blocks until closed (nil = no blocking)
}

func (f *fakeEngine) Probe(ctx context.Context, url string) (*domain.VideoInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &domain.VideoInfo{Title: "Some Video", Duration: 60, Uploader: "Chan"}, nil
}

func (f *fakeEngine) Download(ctx context.Context, req domain.DownloadRequest, info *domain.VideoInfo, onProgress func(domain.ProgressSample), isCancelled func() bool) (string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.proceed != nil {
		<-f.proceed
	}
	for _, sample := range f.ticks {
		if isCancelled() {
			return "", domain.ErrCancelled
		}
		onProgress(sample)
	}
	if isCancelled() {
		return "", domain.ErrCancelled
	}
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	return f.filePath, nil
}

type fakeDeliverer struct {
	err   error
	calls int
	path  string
}

func (f *fakeDeliverer) Deliver(ctx context.Context, session *gate.Session, info *domain.VideoInfo) error {
	f.calls++
	f.path = session.ProducedFile()
	return f.err
}

type memHistory struct {
	mu      sync.Mutex
	created []*domain.Record
	status  map[string]domain.RecordStatus
	errs    map[string]string
}

func newMemHistory() *memHistory {
	return &memHistory{
		status: make(map[string]domain.RecordStatus),
		errs:   make(map[string]string),
	}
}

func (m *memHistory) Create(ctx context.Context, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, rec)
	return nil
}

func (m *memHistory) SetTitle(ctx context.Context, id, title string) error { return nil }

func (m *memHistory) Finish(ctx context.Context, id string, status domain.RecordStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[id] = status
	m.errs[id] = errMsg
	return nil
}

type recordingSink struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingSink) Publish(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func testReq() domain.DownloadRequest {
	return domain.DownloadRequest{URL: "https://youtu.be/abc", Resolution: domain.Res720, RequesterID: 5}
}

func TestSubmitDownloadSuccess(t *testing.T) {
	engine := &fakeEngine{
		filePath: "/tmp/x_720p.mp4",
		ticks: []domain.ProgressSample{
			{Downloaded: 1 << 20, Total: 2 << 20, Speed: 1 << 20},
		},
	}
	deliverer := &fakeDeliverer{}
	history := newMemHistory()
	sink := &recordingSink{}
	svc := New(gate.New(), engine, deliverer, history, time.Millisecond)

	err := svc.SubmitDownload(context.Background(), testReq(), sink)
	require.NoError(t, err)

	assert.Equal(t, 1, deliverer.calls)
	assert.Equal(t, "/tmp/x_720p.mp4", deliverer.path)
	assert.False(t, svc.Busy(), "slot must be released after success")

	require.Len(t, history.created, 1)
	assert.Equal(t, domain.RecordSucceeded, history.status[history.created[0].ID])

	require.NotEmpty(t, sink.texts)
	assert.Contains(t, sink.texts[0], "Some Video")
	assert.Contains(t, sink.texts[len(sink.texts)-1], "Uploading")
}

func TestSubmitDownloadBusy(t *testing.T) {
	engine := &fakeEngine{
		filePath: "/tmp/x.mp4",
		started:  make(chan struct{}),
		proceed:  make(chan struct{}),
	}
	svc := New(gate.New(), engine, &fakeDeliverer{}, nil, time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- svc.SubmitDownload(context.Background(), testReq(), &recordingSink{})
	}()
	<-engine.started

	err := svc.SubmitDownload(context.Background(), testReq(), &recordingSink{})
	assert.ErrorIs(t, err, domain.ErrBusy)

	close(engine.proceed)
	require.NoError(t, <-done)

	// Slot is free again.
	engine.started, engine.proceed = nil, nil
	require.NoError(t, svc.SubmitDownload(context.Background(), testReq(), &recordingSink{}))
}

func TestSubmitDownloadProbeFailureReleasesSlot(t *testing.T) {
	engine := &fakeEngine{probeErr: domain.ErrPrivateVideo}
	deliverer := &fakeDeliverer{}
	history := newMemHistory()
	svc := New(gate.New(), engine, deliverer, history, time.Millisecond)

	err := svc.SubmitDownload(context.Background(), testReq(), &recordingSink{})
	assert.ErrorIs(t, err, domain.ErrPrivateVideo)
	assert.Zero(t, deliverer.calls, "no delivery on probe failure")
	assert.False(t, svc.Busy())

	require.Len(t, history.created, 1)
	assert.Equal(t, domain.RecordFailed, history.status[history.created[0].ID])
}

func TestSubmitDownloadCancellation(t *testing.T) {
	engine := &fakeEngine{
		filePath: "/tmp/x.mp4",
		started:  make(chan struct{}),
		proceed:  make(chan struct{}),
		ticks: []domain.ProgressSample{
			{Downloaded: 1, Total: 100},
			{Downloaded: 2, Total: 100},
		},
	}
	deliverer := &fakeDeliverer{}
	history := newMemHistory()
	svc := New(gate.New(), engine, deliverer, history, time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- svc.SubmitDownload(context.Background(), testReq(), &recordingSink{})
	}()
	<-engine.started

	require.True(t, svc.CancelActive())
	close(engine.proceed)

	err := <-done
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Zero(t, deliverer.calls, "no delivery after cancellation")
	assert.False(t, svc.Busy())
	assert.Equal(t, domain.RecordCancelled, history.status[history.created[0].ID])
}

func TestSubmitDownloadNormalizesResolution(t *testing.T) {
	engine := &fakeEngine{filePath: "/tmp/x.mp4"}
	history := newMemHistory()
	svc := New(gate.New(), engine, &fakeDeliverer{}, history, time.Millisecond)

	req := testReq()
	req.Resolution = domain.Resolution("8k-nonsense")
	require.NoError(t, svc.SubmitDownload(context.Background(), req, &recordingSink{}))

	require.Len(t, history.created, 1)
	assert.Equal(t, domain.Res720, history.created[0].Resolution)
}

func TestCancelActiveWithoutDownload(t *testing.T) {
	svc := New(gate.New(), &fakeEngine{}, &fakeDeliverer{}, nil, time.Millisecond)
	assert.False(t, svc.CancelActive())
	assert.Equal(t, 0, svc.ActiveDownloads())
}
