package id

import "errors"

// ErrInvalidULID is returned when a ULID string is invalid.
var ErrInvalidULID = errors.New("invalid ULID format")
