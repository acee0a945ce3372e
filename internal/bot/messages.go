package bot

import (
	"errors"
	"fmt"

	"github.com/driftbyte/fetchtube/internal/domain"
)

const busyMessage = "⏳ **Please wait**, another download is in progress."

// OutcomeMessage maps a terminal download outcome to the user-facing
// chat text. A nil error is the success message.
func OutcomeMessage(err error) string {
	if err == nil {
		return "✅ **Download Complete!**"
	}

	switch {
	case errors.Is(err, domain.ErrBusy):
		return busyMessage

	case errors.Is(err, domain.ErrPrivateVideo):
		return "🔒 **Private Video**\nThis video is private and cannot be downloaded."

	case errors.Is(err, domain.ErrMembersOnly):
		return "👥 **Members-Only Video**\nThis video is for channel members only."

	case errors.Is(err, domain.ErrAuthRequired):
		return "🔑 **Authentication Required**\n\n" +
			"This video requires login. Please:\n" +
			"1. Export cookies from your browser\n" +
			"2. Send them using /cookies command\n" +
			"3. Try downloading again"

	case errors.Is(err, domain.ErrCancelled):
		return "🛑 **Download Cancelled.**"

	case errors.Is(err, domain.ErrFileNotFound):
		return "❌ **Download Failed**\n\nError: could not locate the downloaded file."
	}

	var engineErr *domain.EngineError
	if errors.As(err, &engineErr) {
		return fmt.Sprintf("❌ **Download Failed**\n\nError: %s", engineErr.Detail)
	}

	return fmt.Sprintf("❌ **Unexpected Error**\n\n%s",
		domain.Truncate(err.Error(), domain.MaxErrorDetail))
}
