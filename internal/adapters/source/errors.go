package source

import "errors"

// ErrClosed is returned when pushing to a closed source.
var ErrClosed = errors.New("source closed")
