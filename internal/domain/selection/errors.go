package selection

import "errors"

var (
	// ErrContextFixed is returned when selecting while a fixed context is configured.
	ErrContextFixed = errors.New("attendance context is fixed")
	// ErrUnknownContext is returned for ids that are not among today's options.
	ErrUnknownContext = errors.New("not one of today's sessions or events")
)
