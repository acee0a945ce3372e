// Package progress renders download progress into chat-friendly text and
// pushes it to a display sink at a bounded rate.
package progress

import (
	"fmt"
	"strings"

	"github.com/driftbyte/fetchtube/internal/domain"
)

// BarWidth is the character width of the rendered progress bar.
const BarWidth = 20

const (
	filledCell = "█"
	emptyCell  = "░"
)

// Render converts a progress sample into the status text shown in chat.
// It is a pure function: the same sample always yields the same text.
func Render(sample domain.ProgressSample) string {
	var b strings.Builder
	b.WriteString("📥 **Downloading YouTube Video**\n\n")

	pct := sample.Percent()
	if pct < 0 {
		b.WriteString("**Progress:** Calculating...\n")
	} else {
		fmt.Fprintf(&b, "**Progress:** [%s] %.1f%%\n", Bar(pct), pct)
		fmt.Fprintf(&b, "**Downloaded:** %.1f MB / %.1f MB\n",
			float64(sample.Downloaded)/(1024*1024),
			float64(sample.Total)/(1024*1024),
		)
	}

	fmt.Fprintf(&b, "**Speed:** %s\n", FormatSpeed(sample.Speed))
	b.WriteString("\n🛑 Send /cancel to stop")
	return b.String()
}

// Bar renders a fixed-width progress bar with floor-rounded fill.
func Bar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(BarWidth * pct / 100)
	return strings.Repeat(filledCell, filled) + strings.Repeat(emptyCell, BarWidth-filled)
}

// FormatSpeed scales a byte rate to B/s, KB/s or MB/s by magnitude.
// Unknown speeds render as "Calculating...".
func FormatSpeed(bytesPerSec int64) string {
	switch {
	case bytesPerSec <= 0:
		return "Calculating..."
	case bytesPerSec > 1024*1024:
		return fmt.Sprintf("%.1f MB/s", float64(bytesPerSec)/(1024*1024))
	case bytesPerSec > 1024:
		return fmt.Sprintf("%.1f KB/s", float64(bytesPerSec)/1024)
	default:
		return fmt.Sprintf("%.1f B/s", float64(bytesPerSec))
	}
}
