package library

import (
	"fmt"
	"strings"
)

// DownloadStatus tracks a release through the download lifecycle.
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusSkipped     DownloadStatus = "skipped"
)

// ParseDownloadStatus converts a user-supplied string to a DownloadStatus.
func ParseDownloadStatus(s string) (DownloadStatus, error) {
	switch strings.ToLower(s) {
	case "pending":
		return StatusPending, nil
	case "downloading":
		return StatusDownloading, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	case "skipped":
		return StatusSkipped, nil
	default:
		return "", fmt.Errorf("unknown download status %q", s)
	}
}

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
// completed -> downloading requires force, skipped -> pending requires an
// explicit requeue; those gates live in the claim and requeue code paths.
var validTransitions = map[DownloadStatus][]DownloadStatus{
	StatusPending:     {StatusDownloading, StatusSkipped},
	StatusDownloading: {StatusCompleted, StatusFailed, StatusPending}, // pending via lease recovery
	StatusCompleted:   {StatusDownloading},
	StatusFailed:      {StatusDownloading, StatusSkipped},
	StatusSkipped:     {StatusPending},
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s DownloadStatus) CanTransitionTo(target DownloadStatus) bool {
	valid, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this status needs explicit user action (force or
// requeue) before any further download work may touch the release.
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}
