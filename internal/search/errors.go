package search

import "errors"

var (
	// ErrNoMatch indicates the catalog returned no artists for the
	// name. Informational, not a failure.
	ErrNoMatch = errors.New("no artists found")

	// ErrAmbiguous indicates several artists matched and none exactly.
	// The caller should present the candidates and ask for a source ID.
	ErrAmbiguous = errors.New("ambiguous artist name")
)
