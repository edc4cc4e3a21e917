package memory

import "errors"

// ErrInvalidSeed wraps seed file problems.
var ErrInvalidSeed = errors.New("invalid seed")
