// Package bot implements the Telegram transport: command routing,
// resolution selection, progress edits, and file upload/download against
// the Bot API.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/driftbyte/fetchtube/internal/cookies"
	"github.com/driftbyte/fetchtube/internal/service"
)

// pendingTTL is how long a resolution keyboard waits for a reply.
const pendingTTL = 30 * time.Second

// pendingRequest is a URL awaiting a resolution choice.
type pendingRequest struct {
	url       string
	expires   time.Time
	messageID int // the keyboard prompt, deleted after selection
}

// Bot is the Telegram front end.
type Bot struct {
	api     *tgbotapi.BotAPI
	svc     *service.Service
	cookies *cookies.Manager
	client  *http.Client
	limiter *chatLimiter
	credit  string
	ownerID int64

	mu      sync.Mutex
	pending map[int64]pendingRequest
}

// Config holds bot settings.
type Config struct {
	Token      string
	OwnerID    int64
	Credit     string
	HTTPClient *http.Client
	Debug      bool
}

// Connect authenticates against the Bot API. The returned client is
// shared between the Bot command loop and the delivery Uploader.
func Connect(token string, client *http.Client, debug bool) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is not configured")
	}
	if client == nil {
		client = http.DefaultClient
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bot API client: %w", err)
	}
	api.Debug = debug

	slog.Info("Bot authorized",
		"username", api.Self.UserName,
		"id", api.Self.ID,
	)
	return api, nil
}

// New creates a Bot around an authenticated API client.
func New(api *tgbotapi.BotAPI, cfg *Config, svc *service.Service, cookieMgr *cookies.Manager) *Bot {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Bot{
		api:     api,
		svc:     svc,
		cookies: cookieMgr,
		client:  client,
		limiter: newChatLimiter(defaultCommandRate, defaultCommandBurst),
		credit:  cfg.Credit,
		ownerID: cfg.OwnerID,
		pending: make(map[int64]pendingRequest),
	}
}

// Run processes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go b.limiter.cleanupLoop(ctx)

	slog.Info("Bot listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// send sends a Markdown message and logs (but does not propagate)
// transport errors.
func (b *Bot) send(chatID int64, text string) *tgbotapi.Message {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		slog.Warn("Failed to send message", "chat_id", chatID, "error", err)
		return nil
	}
	return &sent
}

// deleteMessage removes a message, best effort.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		slog.Debug("Failed to delete message", "chat_id", chatID, "error", err)
	}
}

// downloadDocument fetches a user-uploaded document's bytes from the
// Bot API file endpoint.
func (b *Bot) downloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file fetch returned status %d", resp.StatusCode)
	}

	// Cookie exports are tiny; anything past 1MB is not one.
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// setPending stores a URL awaiting resolution choice for a chat.
func (b *Bot) setPending(chatID int64, url string, promptID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[chatID] = pendingRequest{
		url:       url,
		expires:   time.Now().Add(pendingTTL),
		messageID: promptID,
	}
}

// takePending pops the pending URL for a chat if one exists and has not
// expired.
func (b *Bot) takePending(chatID int64) (pendingRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[chatID]
	if !ok {
		return pendingRequest{}, false
	}
	delete(b.pending, chatID)
	if time.Now().After(p.expires) {
		return pendingRequest{}, false
	}
	return p, true
}

// Uploader adapts the Bot API to the delivery.Uploader contract. It is
// constructed separately from Bot so delivery can be wired before the
// command loop exists.
type Uploader struct {
	api *tgbotapi.BotAPI
}

// NewUploader creates an Uploader around an authenticated Bot API client.
func NewUploader(api *tgbotapi.BotAPI) *Uploader {
	return &Uploader{api: api}
}

// SendVideo uploads a media file to the chat with a caption.
func (u *Uploader) SendVideo(ctx context.Context, requesterID int64, filePath, caption string) error {
	video := tgbotapi.NewVideo(requesterID, tgbotapi.FilePath(filePath))
	video.Caption = caption
	video.ParseMode = tgbotapi.ModeMarkdown
	video.SupportsStreaming = true

	if _, err := u.api.Send(video); err != nil {
		return fmt.Errorf("video upload failed: %w", err)
	}
	return nil
}

// statusSink edits a fixed status message with rendered progress text.
type statusSink struct {
	api       *tgbotapi.BotAPI
	chatID    int64
	messageID int
}

// Publish implements progress.Sink.
func (s *statusSink) Publish(ctx context.Context, text string) error {
	edit := tgbotapi.NewEditMessageText(s.chatID, s.messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := s.api.Send(edit)
	return err
}
