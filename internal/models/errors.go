package models

import "errors"

// Error kinds shared by every layer. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrConstraint = errors.New("constraint violation")
	ErrStorage    = errors.New("storage failure")
	ErrAborted    = errors.New("aborted")
)
