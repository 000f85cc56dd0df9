package student

import "errors"

// Sentinel errors returned by the service and repository. Handlers match
// on these with errors.Is to pick the user-facing message; anything else
// is treated as a backing-store failure.
var (
	ErrInvalidEmail   = errors.New("invalid email format")
	ErrDuplicateEmail = errors.New("email already whitelisted")
	ErrNotFound       = errors.New("student not found")
)
