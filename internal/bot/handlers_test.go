package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/driftbyte/fetchtube/internal/cookies"
	"github.com/driftbyte/fetchtube/internal/domain"
	"github.com/driftbyte/fetchtube/internal/gate"
	"github.com/driftbyte/fetchtube/internal/service"
)

// fakeBotAPI records the Bot API methods invoked against it.
type fakeBotAPI struct {
	mu      sync.Mutex
	methods []string
	texts   []string
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)

	r.ParseForm()
	f.mu.Lock()
	f.methods = append(f.methods, method)
	if text := r.FormValue("text"); text != "" {
		f.texts = append(f.texts, text)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if method == "sendMessage" {
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"chat":{"id":1,"type":"private"}}}`)
		return
	}
	fmt.Fprint(w, `{"ok":true,"result":true}`)
}

func (f *fakeBotAPI) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.methods {
		if m == method {
			return true
		}
	}
	return false
}

// probeFailEngine fails every probe with a fixed classified error.
type probeFailEngine struct {
	err error
}

func (e *probeFailEngine) Probe(ctx context.Context, url string) (*domain.VideoInfo, error) {
	return nil, e.err
}

func (e *probeFailEngine) Download(ctx context.Context, req domain.DownloadRequest, info *domain.VideoInfo, onProgress func(domain.ProgressSample), isCancelled func() bool) (string, error) {
	return "", e.err
}

func newTestBot(t *testing.T, engine service.Engine) (*Bot, *fakeBotAPI) {
	t.Helper()

	fake := &fakeBotAPI{}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	api := &tgbotapi.BotAPI{Token: "test-token", Client: server.Client(), Buffer: 100}
	api.SetAPIEndpoint(server.URL + "/bot%s/%s")

	svc := service.New(gate.New(), engine, nil, nil, time.Second)
	cookieMgr := cookies.NewManager(filepath.Join(t.TempDir(), "cookies.txt"))

	return New(api, &Config{Token: "test-token", Credit: "tester"}, svc, cookieMgr), fake
}

func TestFailedDownloadRemovesStatusMessage(t *testing.T) {
	b, fake := newTestBot(t, &probeFailEngine{err: domain.ErrPrivateVideo})

	b.startDownload(1, "https://youtu.be/dQw4w9WgXcQ", domain.Res720)

	// The status message must be deleted on failure too, leaving only
	// the outcome reply.
	require.Eventually(t, func() bool {
		return fake.called("deleteMessage")
	}, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		for _, text := range fake.texts {
			if strings.Contains(text, "Private Video") {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}
