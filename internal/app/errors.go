package service

import "errors"

// Sentinel errors returned by Station operations.
var (
	ErrNotRunning        = errors.New("station not running")
	ErrStopped           = errors.New("station stopped")
	ErrScanInputDisabled = errors.New("scans are read from a local scanner")
)
