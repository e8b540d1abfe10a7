package diagnostic

import "errors"

// ErrInvalidRange is returned when a span would start after it ends.
var ErrInvalidRange = errors.New("invalid span range")
