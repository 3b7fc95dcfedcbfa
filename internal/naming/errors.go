package naming

import "errors"

var (
	// ErrUnknownVariable is returned when a template references a scope or
	// field outside the fixed vocabulary. Raised at parse time so a bad
	// template is rejected before any download begins.
	ErrUnknownVariable = errors.New("unknown template variable")

	// ErrPathTraversal is returned when a rendered path would escape the
	// download root.
	ErrPathTraversal = errors.New("path escapes root directory")
)
