package domain

import (
	"errors"
	"fmt"
)

// MaxErrorDetail bounds the length of engine error text surfaced to users.
const MaxErrorDetail = 200

// Classified download outcomes. Engine faults are mapped to one of these
// at the adapter boundary; raw yt-dlp errors never reach callers.
var (
	// ErrBusy is returned when a download slot is already claimed.
	ErrBusy = errors.New("another download is already in progress")
	// ErrPrivateVideo indicates the video is private.
	ErrPrivateVideo = errors.New("video is private")
	// ErrMembersOnly indicates the video is restricted to channel members.
	ErrMembersOnly = errors.New("video is for channel members only")
	// ErrAuthRequired indicates the video needs an authenticated session.
	ErrAuthRequired = errors.New("video requires sign-in")
	// ErrCancelled indicates the download was cancelled by the requester.
	ErrCancelled = errors.New("download cancelled")
	// ErrFileNotFound indicates the engine finished but no output file
	// was found, even after probing alternate extensions.
	ErrFileNotFound = errors.New("downloaded file not found")
)

// EngineError is a yt-dlp failure that did not match a known category.
// Detail is truncated to MaxErrorDetail before construction.
type EngineError struct {
	Detail string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("download failed: %s", e.Detail)
}

// NewEngineError builds an EngineError with bounded detail.
func NewEngineError(detail string) *EngineError {
	return &EngineError{Detail: Truncate(detail, MaxErrorDetail)}
}

// UnexpectedError is a non-engine fault (I/O, process spawn, etc.)
// caught at the adapter boundary.
type UnexpectedError struct {
	Detail string
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error: %s", e.Detail)
}

// NewUnexpectedError builds an UnexpectedError with bounded detail.
func NewUnexpectedError(err error) *UnexpectedError {
	return &UnexpectedError{Detail: Truncate(err.Error(), MaxErrorDetail)}
}

// Truncate shortens a string for user-facing messages. The bound counts
// characters, not bytes: cutting mid-rune would hand the transport
// invalid UTF-8, which the Bot API rejects.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
