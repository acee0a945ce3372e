// Package domain contains the core business entities and types.
package domain

import (
	"time"
)

// Resolution is a requested video quality.
type Resolution string

const (
	Res144  Resolution = "144"
	Res240  Resolution = "240"
	Res360  Resolution = "360"
	Res480  Resolution = "480"
	Res720  Resolution = "720"
	Res1080 Resolution = "1080"
	ResBest Resolution = "best"
)

// DownloadRequest is an admitted request to download a video.
// Immutable once admitted.
type DownloadRequest struct {
	URL         string
	Resolution  Resolution
	RequesterID int64
}

// SessionState tracks the lifecycle of a download session.
type SessionState string

const (
	StatePending     SessionState = "pending"
	StateDownloading SessionState = "downloading"
	StateCancelling  SessionState = "cancelling"
	StateSucceeded   SessionState = "succeeded"
	StateFailed      SessionState = "failed"
)

// ProgressSample is one point-in-time measurement of download progress.
// Total and Speed are zero when the engine could not report them.
type ProgressSample struct {
	Downloaded int64 // bytes downloaded so far
	Total      int64 // total bytes, or estimate; 0 when unknown
	Speed      int64 // bytes per second; 0 when unknown
}

// Percent returns the completion percentage clamped to [0,100],
// or -1 when the total is unknown.
func (s ProgressSample) Percent() float64 {
	if s.Total <= 0 {
		return -1
	}
	pct := float64(s.Downloaded) / float64(s.Total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// VideoInfo contains metadata about a video, obtained from a
// metadata-only probe before the download starts.
type VideoInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"` // in seconds
	Uploader string  `json:"uploader"`
}

// RecordStatus is the terminal (or in-flight) status of a history record.
type RecordStatus string

const (
	RecordPending   RecordStatus = "pending"
	RecordSucceeded RecordStatus = "succeeded"
	RecordFailed    RecordStatus = "failed"
	RecordCancelled RecordStatus = "cancelled"
)

// Record is one download attempt as persisted in the history store.
type Record struct {
	ID          string
	URL         string
	Title       string
	Resolution  Resolution
	RequesterID int64
	Status      RecordStatus
	Error       string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// NewRecord creates a pending history record for an admitted request.
func NewRecord(id string, req DownloadRequest) *Record {
	return &Record{
		ID:          id,
		URL:         req.URL,
		Resolution:  req.Resolution,
		RequesterID: req.RequesterID,
		Status:      RecordPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Finish marks the record terminal with the given status.
func (r *Record) Finish(status RecordStatus, errMsg string) {
	r.Status = status
	r.Error = errMsg
	now := time.Now().UTC()
	r.FinishedAt = &now
}
