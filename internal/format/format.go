// Package format maps requested resolutions to yt-dlp stream-selection
// expressions.
package format

import (
	"log/slog"

	"github.com/driftbyte/fetchtube/internal/domain"
)

// DefaultResolution is used when a request carries an unrecognized
// resolution. Falling back (rather than erroring) matches the behavior
// users already rely on: a bad keyboard reply still produces a video.
const DefaultResolution = domain.Res720

// specs maps each supported resolution to a selection expression:
// best mp4 video capped at the height, merged with best m4a audio,
// falling back to a single pre-merged stream at the same ceiling.
var specs = map[domain.Resolution]string{
	domain.Res144:  "bv*[height<=144][ext=mp4]+ba[ext=m4a]/b[height<=144]",
	domain.Res240:  "bv*[height<=240][ext=mp4]+ba[ext=m4a]/b[height<=240]",
	domain.Res360:  "bv*[height<=360][ext=mp4]+ba[ext=m4a]/b[height<=360]",
	domain.Res480:  "bv*[height<=480][ext=mp4]+ba[ext=m4a]/b[height<=480]",
	domain.Res720:  "bv*[height<=720][ext=mp4]+ba[ext=m4a]/b[height<=720]",
	domain.Res1080: "bv*[height<=1080][ext=mp4]+ba[ext=m4a]/b[height<=1080]",
	domain.ResBest: "bv*[ext=mp4]+ba[ext=m4a]/b",
}

// Expression returns the yt-dlp format expression for a resolution.
// Unknown resolutions fall back to DefaultResolution.
func Expression(res domain.Resolution) string {
	if expr, ok := specs[res]; ok {
		return expr
	}
	slog.Warn("Unknown resolution, falling back",
		"requested", string(res),
		"fallback", string(DefaultResolution),
	)
	return specs[DefaultResolution]
}

// Normalize maps a resolution to itself if supported, or to
// DefaultResolution otherwise.
func Normalize(res domain.Resolution) domain.Resolution {
	if _, ok := specs[res]; ok {
		return res
	}
	return DefaultResolution
}

// Display returns the human-readable label for a resolution ("720p",
// "Best Quality").
func Display(res domain.Resolution) string {
	res = Normalize(res)
	if res == domain.ResBest {
		return "Best Quality"
	}
	return string(res) + "p"
}

// Supported lists all supported resolutions in ascending quality order.
func Supported() []domain.Resolution {
	return []domain.Resolution{
		domain.Res144, domain.Res240, domain.Res360,
		domain.Res480, domain.Res720, domain.Res1080,
		domain.ResBest,
	}
}
