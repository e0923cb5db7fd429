package TaskEngine

import "errors"

// Error kinds surfaced to synchronous callers. Controllers map these to
// HTTP statuses; the scheduled jobs log them and move on.
var (
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("record already exists")
	ErrExpired         = errors.New("period task already ended")
	ErrOutOfWindow     = errors.New("date outside the task window")
	ErrInvalidArgument = errors.New("invalid argument")
)
