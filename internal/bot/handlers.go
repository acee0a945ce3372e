package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/driftbyte/fetchtube/internal/domain"
	"github.com/driftbyte/fetchtube/internal/format"
)

// handleMessage routes one incoming message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		if !b.limiter.Allow(chatID) {
			b.send(chatID, "🐢 **Slow down**, too many commands.")
			return
		}
		switch msg.Command() {
		case "start", "help":
			b.handleStart(chatID)
		case "download":
			b.handleDownloadCommand(ctx, msg)
		case "cancel":
			b.handleCancel(chatID)
		case "status":
			b.handleStatus(chatID)
		case "cookies":
			b.handleCookiesUpload(ctx, msg)
		case "getcookies":
			b.handleGetCookies(chatID)
		default:
			b.send(chatID, "❓ Unknown command. Send /start for help.")
		}
		return
	}

	text := strings.TrimSpace(msg.Text)

	// A resolution keyboard reply for a pending URL?
	if res, ok := parseResolutionReply(text); ok {
		if p, found := b.takePending(chatID); found {
			b.deleteMessage(chatID, p.messageID)
			b.deleteMessage(chatID, msg.MessageID)
			b.startDownload(chatID, p.url, res)
			return
		}
	}

	// Bare YouTube URLs start the download flow directly.
	if youtubeURLPattern.MatchString(text) {
		b.promptResolution(chatID, text)
	}
}

func (b *Bot) handleStart(chatID int64) {
	b.send(chatID, fmt.Sprintf(
		"🎬 **YouTube Downloader Bot**\n\n"+
			"**Features:**\n"+
			"• Download YouTube videos\n"+
			"• Multiple resolutions (144p to 1080p)\n"+
			"• Members-only videos support (with cookies)\n\n"+
			"**Commands:**\n"+
			"• Send a YouTube URL directly\n"+
			"• /download [url] - Download video\n"+
			"• /cookies - Upload cookies file\n"+
			"• /getcookies - Get current cookies\n"+
			"• /cancel - Cancel download\n"+
			"• /status - Check bot status\n\n"+
			"**Made by:** %s", b.credit))
}

func (b *Bot) handleDownloadCommand(ctx context.Context, msg *tgbotapi.Message) {
	url := strings.TrimSpace(msg.CommandArguments())
	if url == "" {
		b.send(msg.Chat.ID,
			"📝 **Usage:**\n\n"+
				"Send a YouTube URL directly or use:\n"+
				"`/download [youtube_url]`\n\n"+
				"Example:\n"+
				"`/download https://youtu.be/dQw4w9WgXcQ`")
		return
	}
	b.promptResolution(msg.Chat.ID, url)
}

// promptResolution validates the URL and shows the resolution keyboard.
func (b *Bot) promptResolution(chatID int64, url string) {
	if b.svc.Busy() {
		b.send(chatID, busyMessage)
		return
	}
	if err := ValidateURL(url); err != nil {
		b.send(chatID, fmt.Sprintf("❌ **Invalid URL**\n\n%s", err.Error()))
		return
	}

	msg := tgbotapi.NewMessage(chatID, "📏 **Select Resolution:**\n\nChoose your preferred video quality:")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = resolutionKeyboard()

	sent, err := b.api.Send(msg)
	if err != nil {
		slog.Warn("Failed to send resolution keyboard", "chat_id", chatID, "error", err)
		return
	}
	b.setPending(chatID, NormalizeURL(url), sent.MessageID)
}

// startDownload runs the download in its own goroutine so the update
// loop stays responsive for /cancel and /status.
func (b *Bot) startDownload(chatID int64, url string, res domain.Resolution) {
	status := b.send(chatID, "⏳ **Preparing download...**")
	if status == nil {
		return
	}
	sink := &statusSink{api: b.api, chatID: chatID, messageID: status.MessageID}

	req := domain.DownloadRequest{URL: url, Resolution: res, RequesterID: chatID}

	go func() {
		// The download must outlive the update that triggered it.
		err := b.svc.SubmitDownload(context.Background(), req, sink)
		// The status message is stale on every outcome; the reply below
		// carries the result.
		b.deleteMessage(chatID, status.MessageID)
		b.send(chatID, OutcomeMessage(err))
	}()
}

func (b *Bot) handleCancel(chatID int64) {
	if b.svc.CancelActive() {
		b.send(chatID, "🛑 **Cancellation requested...**")
	} else {
		b.send(chatID, "ℹ️ **No active download to cancel.**")
	}
}

func (b *Bot) handleStatus(chatID int64) {
	cookiesState := "❌ Missing"
	if b.cookies.Exists() {
		cookiesState = "✅ Present"
	}

	b.send(chatID, fmt.Sprintf(
		"🟢 **Bot is running**\n\n"+
			"**Active Downloads:** %d\n"+
			"**Cookies File:** %s\n\n"+
			"**Credit:** %s",
		b.svc.ActiveDownloads(), cookiesState, b.credit))
}

func (b *Bot) handleCookiesUpload(ctx context.Context, msg *tgbotapi.Message) {
	reply := msg.ReplyToMessage
	if reply == nil || reply.Document == nil {
		b.send(msg.Chat.ID,
			"📁 **Please reply to a cookies file with this command.**\n\n"+
				"How to get cookies:\n"+
				"1. Install 'Get cookies.txt LOCALLY' extension\n"+
				"2. Go to YouTube and login\n"+
				"3. Export cookies as .txt file\n"+
				"4. Send it here with /cookies command")
		return
	}

	doc := reply.Document
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".txt") {
		b.send(msg.Chat.ID, "❌ **Invalid file type.** Please upload a .txt file.")
		return
	}

	content, err := b.downloadDocument(ctx, doc.FileID)
	if err != nil {
		slog.Error("Cookies download failed", "error", err)
		b.send(msg.Chat.ID, fmt.Sprintf("❌ **Failed to update cookies:** %s",
			domain.Truncate(err.Error(), domain.MaxErrorDetail)))
		return
	}

	if err := b.cookies.Save(content); err != nil {
		b.send(msg.Chat.ID, fmt.Sprintf("❌ **Failed to update cookies:** %s", err.Error()))
		return
	}

	b.send(msg.Chat.ID,
		"✅ **Cookies updated successfully!**\n\n"+
			"You can now download members-only/private videos.")
}

func (b *Bot) handleGetCookies(chatID int64) {
	if !b.cookies.Exists() {
		b.send(chatID, "📭 **No cookies file found.**")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(b.cookies.Path()))
	doc.Caption = "🔐 **YouTube Cookies File**"
	doc.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.api.Send(doc); err != nil {
		slog.Error("Failed to send cookies file", "error", err)
		b.send(chatID, fmt.Sprintf("❌ **Error:** %s",
			domain.Truncate(err.Error(), domain.MaxErrorDetail)))
	}
}

// resolutionKeyboard is the one-time reply keyboard for quality choice.
func resolutionKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("144p"),
			tgbotapi.NewKeyboardButton("240p"),
			tgbotapi.NewKeyboardButton("360p"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("480p"),
			tgbotapi.NewKeyboardButton("720p"),
			tgbotapi.NewKeyboardButton("1080p"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Best Quality"),
		),
	)
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

// parseResolutionReply maps a keyboard label ("720p", "Best Quality")
// back to a resolution.
func parseResolutionReply(text string) (domain.Resolution, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "best quality" {
		return domain.ResBest, true
	}
	normalized = strings.TrimSuffix(normalized, "p")
	res := domain.Resolution(normalized)
	if format.Normalize(res) == res {
		return res, true
	}
	return "", false
}
