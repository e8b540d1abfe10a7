package domain

import "errors"

// ErrStatusNotFound is returned when no status is stored for a host ID.
var ErrStatusNotFound = errors.New("status not found")
