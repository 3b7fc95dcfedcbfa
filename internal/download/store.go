// Package download orchestrates media fetches for discovered releases:
// claim-based status transitions on release rows, bounded worker pools,
// atomic file writes, and retry with exponential backoff.
package download

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vmunix/resonarr/internal/library"
)

// TransitionEvent describes one status change on a release row.
type TransitionEvent struct {
	ReleaseID int64
	From      library.DownloadStatus
	To        library.DownloadStatus
	At        time.Time
}

// TransitionHandler is called synchronously after each status change.
type TransitionHandler func(TransitionEvent)

// Claim is a lease on a release row. Exactly one worker holds a claim at
// a time; Finish releases it.
type Claim struct {
	ReleaseID int64
	ID        string
	At        time.Time
}

// Store performs the claim protocol on release rows. All status writes
// to releases go through here; the library store never touches
// download_status after insert.
type Store struct {
	db       *sql.DB
	handlers []TransitionHandler
}

// NewStore creates a download store over the shared database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// OnTransition registers a handler called on every status change.
func (s *Store) OnTransition(h TransitionHandler) {
	s.handlers = append(s.handlers, h)
}

func (s *Store) emit(e TransitionEvent) {
	for _, h := range s.handlers {
		h(e)
	}
}

// Claim atomically moves an eligible release to downloading and stamps a
// fresh claim ID. Eligible statuses are pending and failed; force adds
// completed. Zero rows updated is classified by the row's current state:
// downloading maps to ErrConcurrentlyProcessing, completed without force
// to ErrAlreadySatisfied, skipped to ErrMarkedSkipped.
func (s *Store) Claim(releaseID int64, force bool) (*Claim, error) {
	eligible := "('pending', 'failed')"
	if force {
		eligible = "('pending', 'failed', 'completed')"
	}

	// The prior status is read only for the emitted event; losing a race
	// here can misreport From, never the transition itself.
	var from library.DownloadStatus
	err := s.db.QueryRow("SELECT download_status FROM releases WHERE id = ?", releaseID).Scan(&from)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("claim release %d: %w", releaseID, library.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("claim release %d: %w", releaseID, err)
	}

	c := &Claim{
		ReleaseID: releaseID,
		ID:        uuid.NewString(),
		At:        time.Now(),
	}

	result, err := s.db.Exec(`
		UPDATE releases
		SET download_status = 'downloading', claim_id = ?, claimed_at = ?, last_attempt_at = ?
		WHERE id = ? AND download_status IN `+eligible,
		c.ID, c.At, c.At, releaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("claim release %d: %w", releaseID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, s.classifyRefusal(releaseID)
	}

	s.emit(TransitionEvent{ReleaseID: releaseID, From: from, To: library.StatusDownloading, At: c.At})
	return c, nil
}

// classifyRefusal maps a refused claim to the sentinel matching the
// row's current status.
func (s *Store) classifyRefusal(releaseID int64) error {
	var status library.DownloadStatus
	err := s.db.QueryRow("SELECT download_status FROM releases WHERE id = ?", releaseID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("claim release %d: %w", releaseID, library.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("claim release %d: %w", releaseID, err)
	}

	switch status {
	case library.StatusDownloading:
		return fmt.Errorf("claim release %d: %w", releaseID, ErrConcurrentlyProcessing)
	case library.StatusCompleted:
		return fmt.Errorf("claim release %d: %w", releaseID, ErrAlreadySatisfied)
	case library.StatusSkipped:
		return fmt.Errorf("claim release %d: %w", releaseID, ErrMarkedSkipped)
	default:
		return fmt.Errorf("claim release %d: refused at status %s", releaseID, status)
	}
}

// Finish settles a claimed release at completed or failed and clears the
// lease. Returns ErrClaimLost if the claim no longer holds the row.
func (s *Store) Finish(c *Claim, to library.DownloadStatus) error {
	if to != library.StatusCompleted && to != library.StatusFailed {
		return fmt.Errorf("finish release %d: cannot settle at %s", c.ReleaseID, to)
	}

	now := time.Now()
	result, err := s.db.Exec(`
		UPDATE releases
		SET download_status = ?, claim_id = NULL, claimed_at = NULL
		WHERE id = ? AND claim_id = ?`,
		to, c.ReleaseID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("finish release %d: %w", c.ReleaseID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("finish release %d: %w", c.ReleaseID, ErrClaimLost)
	}

	s.emit(TransitionEvent{ReleaseID: c.ReleaseID, From: library.StatusDownloading, To: to, At: now})
	return nil
}

// RecoverExpired reverts downloading rows whose claim is older than the
// lease back to pending. Runs at daemon startup and before bulk
// downloads so rows orphaned by a crash become claimable again.
func (s *Store) RecoverExpired(lease time.Duration) (int, error) {
	cutoff := time.Now().Add(-lease)

	rows, err := s.db.Query(`
		SELECT id FROM releases
		WHERE download_status = 'downloading' AND (claimed_at IS NULL OR claimed_at < ?)`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("find expired claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan release id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate expired claims: %w", err)
	}

	now := time.Now()
	recovered := 0
	for _, id := range ids {
		result, err := s.db.Exec(`
			UPDATE releases
			SET download_status = 'pending', claim_id = NULL, claimed_at = NULL
			WHERE id = ? AND download_status = 'downloading' AND (claimed_at IS NULL OR claimed_at < ?)`,
			id, cutoff,
		)
		if err != nil {
			return recovered, fmt.Errorf("recover release %d: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return recovered, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			continue // settled or re-claimed since the scan
		}
		recovered++
		s.emit(TransitionEvent{ReleaseID: id, From: library.StatusDownloading, To: library.StatusPending, At: now})
	}

	return recovered, nil
}

// Requeue moves a skipped release back to pending.
func (s *Store) Requeue(releaseID int64) error {
	return s.transition(releaseID, []library.DownloadStatus{library.StatusSkipped}, library.StatusPending)
}

// Skip marks a pending or failed release skipped so bulk downloads pass
// it over.
func (s *Store) Skip(releaseID int64) error {
	return s.transition(releaseID, []library.DownloadStatus{library.StatusPending, library.StatusFailed}, library.StatusSkipped)
}

// transition performs a guarded move outside the claim protocol. The row
// must currently sit at one of the from statuses; otherwise the call
// fails with ErrConstraint, or ErrNotFound for a missing row.
func (s *Store) transition(releaseID int64, from []library.DownloadStatus, to library.DownloadStatus) error {
	var current library.DownloadStatus
	err := s.db.QueryRow("SELECT download_status FROM releases WHERE id = ?", releaseID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("transition release %d: %w", releaseID, library.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("transition release %d: %w", releaseID, err)
	}

	placeholders := make([]string, len(from))
	args := []any{to, releaseID}
	for i, f := range from {
		placeholders[i] = "?"
		args = append(args, f)
	}

	now := time.Now()
	result, err := s.db.Exec(
		"UPDATE releases SET download_status = ? WHERE id = ? AND download_status IN ("+strings.Join(placeholders, ", ")+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("transition release %d: %w", releaseID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transition release %d from %s to %s: %w", releaseID, current, to, library.ErrConstraint)
	}

	s.emit(TransitionEvent{ReleaseID: releaseID, From: current, To: to, At: now})
	return nil
}
