package models

import "errors"

// Error taxonomy shared by the engine. Wrap with fmt.Errorf("...: %w", Err...) and
// test with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("concurrent update conflict")
)
