package download

import "errors"

// Sentinel errors for the download package.
var (
	// ErrConcurrentlyProcessing is returned when a claim finds the release
	// already being worked on. Reported as an informational skip.
	ErrConcurrentlyProcessing = errors.New("release is already being processed")

	// ErrAlreadySatisfied is returned when the requested work is already
	// done: a completed release claimed without force, or a track whose
	// file exists on disk. Reported as an informational skip.
	ErrAlreadySatisfied = errors.New("already satisfied")

	// ErrMarkedSkipped is returned when a claim meets a release the user
	// skipped. Requeue moves it back to pending.
	ErrMarkedSkipped = errors.New("release marked skipped")

	// ErrClaimLost is returned when finishing a release whose claim was
	// taken over, usually by lease recovery after a stall.
	ErrClaimLost = errors.New("claim lost")
)
