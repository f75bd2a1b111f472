package domain

import "errors"

// Shared error taxonomy. The transport layer maps these onto HTTP; note
// that ErrForbidden and ErrNotFound are presented with identical message
// text so responses never reveal whether a resource exists.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("operation conflicts with current state")
	ErrAlreadyActioned = errors.New("invitation was already actioned")
	ErrUpstreamTimeout = errors.New("upstream fetch timed out")
)
