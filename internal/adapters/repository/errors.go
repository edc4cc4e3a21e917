package repository

import "errors"

// Sentinel kinds for store setup errors.
var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrMissingDSN     = errors.New("database url is required for the postgres backend")
)
