package storage

import "errors"

// ErrNotFound is returned when no IV reading exists for the requested symbol.
var ErrNotFound = errors.New("not found")
