package download

import (
	"time"

	"github.com/vmunix/resonarr/internal/quality"
)

// ResultStatus classifies one processed release or track.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultSkipped   ResultStatus = "skipped"
	ResultFailed    ResultStatus = "failed"
	ResultPlanned   ResultStatus = "planned" // dry run would-fetch
)

// TrackResult records the outcome for one track.
type TrackResult struct {
	TrackID string
	Title   string
	Quality quality.Tier
	Path    string
	Status  ResultStatus
	Reason  string // for skips
	Bytes   int64
	Err     error
}

// ReleaseResult records the outcome for one release-sized job.
// ReleaseID is zero for ad-hoc jobs.
type ReleaseResult struct {
	ReleaseID int64
	SourceID  string
	Title     string
	Artist    string
	Status    ResultStatus
	Reason    string
	Err       error
	Tracks    []TrackResult
}

func failedResult(sourceID, title string, err error) *ReleaseResult {
	return &ReleaseResult{SourceID: sourceID, Title: title, Status: ResultFailed, Err: err}
}

func (r *ReleaseResult) skip(reason string) *ReleaseResult {
	r.Status = ResultSkipped
	r.Reason = reason
	return r
}

func (r *ReleaseResult) fail(err error) *ReleaseResult {
	r.Status = ResultFailed
	r.Err = err
	return r
}

// settle derives the release status from its track results: any failure
// fails the release, a dry run with pending fetches is planned, all
// skips is a skip, anything else completed.
func (r *ReleaseResult) settle() {
	if r.Status == ResultFailed {
		return
	}
	var planned, skipped int
	for _, tr := range r.Tracks {
		switch tr.Status {
		case ResultFailed:
			r.Status = ResultFailed
			r.Err = tr.Err
			return
		case ResultPlanned:
			planned++
		case ResultSkipped:
			skipped++
		}
	}
	switch {
	case planned > 0:
		r.Status = ResultPlanned
	case skipped == len(r.Tracks) && len(r.Tracks) > 0:
		r.Status = ResultSkipped
		r.Reason = "all tracks already on disk"
	default:
		r.Status = ResultCompleted
	}
}

// Report aggregates one orchestrator run.
type Report struct {
	StartedAt     time.Time
	Duration      time.Duration
	DryRun        bool
	ExportPath    string
	ExportedLinks int
	Results       []*ReleaseResult
}

func (r *Report) count(s ResultStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Completed counts releases fully fetched this run.
func (r *Report) Completed() int { return r.count(ResultCompleted) }

// Skipped counts releases passed over, claim refusals included.
func (r *Report) Skipped() int { return r.count(ResultSkipped) }

// Failed counts releases with at least one unrecovered failure.
func (r *Report) Failed() int { return r.count(ResultFailed) }

// Planned counts releases a dry run would fetch.
func (r *Report) Planned() int { return r.count(ResultPlanned) }

func (r *Report) trackCount(s ResultStatus) int {
	n := 0
	for _, res := range r.Results {
		for _, tr := range res.Tracks {
			if tr.Status == s {
				n++
			}
		}
	}
	return n
}

// TracksCompleted counts individual files written this run.
func (r *Report) TracksCompleted() int { return r.trackCount(ResultCompleted) }

// TracksSkipped counts tracks whose files already existed.
func (r *Report) TracksSkipped() int { return r.trackCount(ResultSkipped) }

// TracksFailed counts tracks that failed after retries.
func (r *Report) TracksFailed() int { return r.trackCount(ResultFailed) }

// TracksPlanned counts tracks a dry run would fetch.
func (r *Report) TracksPlanned() int { return r.trackCount(ResultPlanned) }

// HasFailures reports whether anything in the run failed; it drives the
// process exit status.
func (r *Report) HasFailures() bool { return r.Failed() > 0 }
