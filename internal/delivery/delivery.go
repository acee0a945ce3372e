// Package delivery hands finished downloads to the outbound transport
// and owns removal of the local temp file.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/driftbyte/fetchtube/internal/domain"
	"github.com/driftbyte/fetchtube/internal/format"
	"github.com/driftbyte/fetchtube/internal/gate"
	"github.com/driftbyte/fetchtube/internal/storage"
)

// Uploader sends a media file to the requester. The Telegram transport
// implements it with a video upload.
type Uploader interface {
	SendVideo(ctx context.Context, requesterID int64, filePath, caption string) error
}

// Deliverer uploads produced files and cleans up after itself.
type Deliverer struct {
	uploader Uploader
	archive  storage.Archive
	credit   string
}

// New creates a Deliverer. archive may be a storage.Disabled.
func New(uploader Uploader, archive storage.Archive, credit string) *Deliverer {
	return &Deliverer{uploader: uploader, archive: archive, credit: credit}
}

// Deliver uploads the session's produced file with a metadata caption.
// The local file is removed on every exit path, success or not; there is
// no separate garbage collection for delivered files.
func (d *Deliverer) Deliver(ctx context.Context, session *gate.Session, info *domain.VideoInfo) error {
	filePath := session.ProducedFile()
	if filePath == "" {
		return domain.ErrFileNotFound
	}

	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove delivered file",
				"path", filePath,
				"error", err,
			)
		}
	}()

	// Archive before upload so a failed send still leaves a copy.
	if key, err := d.archive.Upload(ctx, filePath); err != nil {
		slog.Warn("Archive upload failed", "path", filePath, "error", err)
	} else if key != "" {
		slog.Info("Download archived", "key", key)
	}

	caption := Caption(info, session.Request.Resolution, d.credit)
	if err := d.uploader.SendVideo(ctx, session.Request.RequesterID, filePath, caption); err != nil {
		return fmt.Errorf("delivery failed: %s", domain.Truncate(err.Error(), domain.MaxErrorDetail))
	}

	slog.Info("Download delivered",
		"session_id", session.ID,
		"requester", session.Request.RequesterID,
		"title", info.Title,
	)
	return nil
}

// Caption builds the chat caption for a delivered video.
func Caption(info *domain.VideoInfo, res domain.Resolution, credit string) string {
	duration := int(info.Duration)
	return fmt.Sprintf(
		"🎬 **YouTube Video**\n"+
			"**Title:** %s\n"+
			"**Resolution:** %s\n"+
			"**Duration:** %d:%02d\n"+
			"**Channel:** %s\n\n"+
			"**Downloaded by:** %s",
		orUnknown(info.Title),
		format.Display(res),
		duration/60, duration%60,
		orUnknown(info.Uploader),
		credit,
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
