package downloader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/driftbyte/fetchtube/internal/domain"
)

// progressRegex matches yt-dlp --newline progress lines:
//
//	[download]  42.5% of ~ 12.34MiB at  1.23MiB/s ETA 00:05
//
// The tilde marks an estimated total.
var progressRegex = regexp.MustCompile(`\[download\]\s+(\d+\.?\d*)%\s+of\s+(~?)\s*(\S+)\s+at\s+(\S+)`)

// unsafeFilenameChars are stripped from titles before they become
// filesystem paths.
var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// maxTitleLength caps sanitized titles so output paths stay manageable.
const maxTitleLength = 50

// ParseProgressLine extracts a ProgressSample from one line of yt-dlp
// output. The second return value is false for non-progress lines.
func ParseProgressLine(line string) (domain.ProgressSample, bool) {
	matches := progressRegex.FindStringSubmatch(line)
	if matches == nil {
		return domain.ProgressSample{}, false
	}

	pct, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return domain.ProgressSample{}, false
	}

	total := parseByteSize(matches[3])
	speed := parseByteSize(strings.TrimSuffix(matches[4], "/s"))

	var downloaded int64
	if total > 0 {
		downloaded = int64(float64(total) * pct / 100)
	}

	return domain.ProgressSample{
		Downloaded: downloaded,
		Total:      total,
		Speed:      speed,
	}, true
}

// byteUnits in the notations yt-dlp emits.
var byteUnits = map[string]int64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
	"KB":  1000,
	"MB":  1000 * 1000,
	"GB":  1000 * 1000 * 1000,
}

// parseByteSize converts strings like "12.34MiB" to bytes. Returns 0 for
// unknown or unparseable values.
func parseByteSize(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") || s == "N/A" {
		return 0
	}

	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i <= 0 {
		return 0
	}

	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0
	}
	unit, ok := byteUnits[s[i:]]
	if !ok {
		return 0
	}
	return int64(value * float64(unit))
}

// SanitizeTitle strips filesystem-unsafe characters from a video title
// and caps its length.
func SanitizeTitle(title string) string {
	clean := unsafeFilenameChars.ReplaceAllString(title, "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		clean = "YouTube_Video"
	}

	runes := []rune(clean)
	if len(runes) > maxTitleLength {
		clean = strings.TrimSpace(string(runes[:maxTitleLength]))
	}
	return clean
}
