package errs

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrPersistence        = errors.New("message could not be saved")
	ErrStoreUnavailable   = errors.New("message store unavailable")
	ErrConnectionNotFound = errors.New("connection not found")
)
