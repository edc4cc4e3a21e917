package identity

import "errors"

var (
	// ErrSearchTermTooShort is returned for search terms under MinSearchLength characters.
	ErrSearchTermTooShort = errors.New("search term too short")
	ErrInvalidBadge       = errors.New("invalid badge")
)
