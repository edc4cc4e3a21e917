package config

import (
	"errors"
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps file, env and decode failures.
	ErrLoadConfig = errors.New("load config failed")
	// ErrUnknownBackend marks a store, suppression or scan input name that
	// this build does not provide. It is always joined with ErrInvalidConfig.
	ErrUnknownBackend = errors.New("unknown backend")
)
